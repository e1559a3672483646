package parsers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mvp-joe/code-pairs/internal/syntax"
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var (
	// ErrSyntax indicates malformed source.
	ErrSyntax = errors.New("syntax error")

	// ErrDecode indicates source that is not valid UTF-8 text.
	ErrDecode = errors.New("source is not valid UTF-8")

	// ErrTooDeep indicates nesting beyond the configured depth limit.
	ErrTooDeep = errors.New("syntax tree nesting too deep")
)

// DefaultMaxDepth mirrors the default recursion limit of the Python interpreter.
const DefaultMaxDepth = 1000

// PythonParser parses Python source into the closed syntax model.
type pythonParser struct {
	*treeSitterParser
	maxDepth int
}

// Option configures a parser.
type Option func(*pythonParser)

// WithMaxDepth bounds the nesting depth of lowered nodes.
func WithMaxDepth(depth int) Option {
	return func(p *pythonParser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// NewPythonParser creates a new Python parser.
func NewPythonParser(opts ...Option) *pythonParser {
	lang := sitter.NewLanguage(python.Language())
	p := &pythonParser{
		treeSitterParser: newTreeSitterParser(lang, "python"),
		maxDepth:         DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses Python source text.
func (p *pythonParser) Parse(ctx context.Context, source []byte) (mod *syntax.Module, err error) {
	if !utf8.Valid(source) {
		return nil, ErrDecode
	}

	tree, err := p.parseTree(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w at line %d", ErrSyntax, firstErrorLine(root))
	}

	l := &lowerer{source: source, maxDepth: p.maxDepth}
	defer func() {
		if r := recover(); r != nil {
			lerr, ok := r.(lowerError)
			if !ok {
				panic(r)
			}
			mod, err = nil, lerr.err
		}
	}()

	mod = syntax.Place(&syntax.Module{Body: l.block(root)}, position(root))
	return mod, nil
}

// lowerError carries a lowering failure up through the recursive descent.
type lowerError struct{ err error }

// lowerer converts a tree-sitter Python CST into syntax nodes so that the
// resulting shape matches Python's own abstract syntax.
type lowerer struct {
	source   []byte
	maxDepth int
	depth    int
}

func (l *lowerer) fail(err error) {
	panic(lowerError{err: err})
}

func (l *lowerer) text(n *sitter.Node) string {
	return extractNodeText(n, l.source)
}

// block lowers the statements of a module or block.
func (l *lowerer) block(n *sitter.Node) []syntax.Node {
	return l.nodes(namedChildren(n))
}

// suite lowers the body of a compound statement.
func (l *lowerer) suite(n *sitter.Node) []syntax.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == "block" {
		return l.block(n)
	}
	return []syntax.Node{l.node(n)}
}

func (l *lowerer) nodes(ns []*sitter.Node) []syntax.Node {
	if len(ns) == 0 {
		return nil
	}
	out := make([]syntax.Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, l.node(n))
	}
	return out
}

func (l *lowerer) optional(n *sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}
	return l.node(n)
}

func (l *lowerer) node(n *sitter.Node) syntax.Node {
	l.depth++
	defer func() { l.depth-- }()
	if l.depth > l.maxDepth {
		l.fail(fmt.Errorf("%w: limit %d exceeded at line %d", ErrTooDeep, l.maxDepth, position(n).Line))
	}

	at := position(n)
	switch n.Kind() {
	case "expression_statement":
		items := l.block(n)
		if len(items) == 1 {
			return items[0]
		}
		return l.compound(n, "tuple", items)

	case "decorated_definition":
		return l.decorated(n)
	case "function_definition":
		return l.function(n, nil, n)
	case "class_definition":
		return l.class(n, nil)

	case "assignment":
		return l.assignment(n)
	case "augmented_assignment":
		return l.compound(n, "augmented_assignment", []syntax.Node{
			l.optional(n.ChildByFieldName("left")),
			l.optional(n.ChildByFieldName("right")),
		})

	case "if_statement":
		return l.ifStatement(n)
	case "for_statement":
		return syntax.Place(&syntax.For{
			Async:  hasLeadingKeyword(n, "async"),
			Target: l.optional(n.ChildByFieldName("left")),
			Iter:   l.optional(n.ChildByFieldName("right")),
			Body:   l.suite(n.ChildByFieldName("body")),
			Orelse: l.elseClause(n.ChildByFieldName("alternative")),
		}, at)
	case "while_statement":
		return syntax.Place(&syntax.While{
			Test:   l.optional(n.ChildByFieldName("condition")),
			Body:   l.suite(n.ChildByFieldName("body")),
			Orelse: l.elseClause(n.ChildByFieldName("alternative")),
		}, at)

	case "return_statement":
		return syntax.Place(&syntax.Return{Value: l.optional(firstNamedChild(n))}, at)
	case "pass_statement":
		return syntax.Place(&syntax.Pass{}, at)
	case "break_statement":
		return syntax.Place(&syntax.Break{}, at)
	case "continue_statement":
		return syntax.Place(&syntax.Continue{}, at)
	case "raise_statement":
		return l.raise(n)

	case "attribute":
		return syntax.Place(&syntax.Attribute{
			Value: l.optional(n.ChildByFieldName("object")),
			Attr:  l.text(n.ChildByFieldName("attribute")),
		}, at)
	case "identifier":
		return syntax.Place(&syntax.Name{ID: l.text(n)}, at)
	case "true":
		return syntax.Place(&syntax.Constant{Value: syntax.BoolLiteral(true)}, at)
	case "false":
		return syntax.Place(&syntax.Constant{Value: syntax.BoolLiteral(false)}, at)
	case "none":
		return syntax.Place(&syntax.Constant{Value: syntax.NoneLiteral()}, at)
	case "ellipsis":
		return syntax.Place(&syntax.Constant{Value: syntax.EllipsisLiteral()}, at)
	case "integer", "float":
		lit, err := parseNumber(l.text(n))
		if err != nil {
			l.fail(fmt.Errorf("line %d: %w", at.Line, err))
		}
		return syntax.Place(&syntax.Num{Value: lit}, at)
	case "string":
		return l.str(n)
	case "concatenated_string":
		return l.concatenated(n)
	case "interpolation":
		return l.interpolation(n)

	case "parenthesized_expression":
		if inner := firstNamedChild(n); inner != nil {
			return l.node(inner)
		}
		return l.compound(n, "tuple", nil)
	case "call":
		items := []syntax.Node{l.optional(n.ChildByFieldName("function"))}
		items = append(items, l.arguments(n.ChildByFieldName("arguments"))...)
		return l.compound(n, "call", items)
	case "keyword_argument":
		return l.compound(n, "keyword", []syntax.Node{l.optional(n.ChildByFieldName("value"))})
	case "dictionary":
		return l.dictionary(n)
	case "conditional_expression":
		return l.conditional(n)
	case "lambda":
		items := l.parameters(n.ChildByFieldName("parameters"))
		items = append(items, l.optional(n.ChildByFieldName("body")))
		return l.compound(n, "lambda", items)
	case "except_clause", "except_group_clause":
		return l.exceptClause(n)
	case "comparison_operator":
		if findChildByType(n, "<>") != nil {
			l.fail(fmt.Errorf("%w: Python 2 '<>' operator at line %d", ErrSyntax, at.Line))
		}

	case "import_statement", "import_from_statement", "future_import_statement",
		"global_statement", "nonlocal_statement":
		// Only names live here, and names are not expressions.
		return l.compound(n, n.Kind(), nil)
	case "print_statement", "exec_statement":
		l.fail(fmt.Errorf("%w: Python 2 %s at line %d", ErrSyntax, n.Kind(), at.Line))
	}

	return l.compound(n, n.Kind(), l.block(n))
}

func (l *lowerer) compound(n *sitter.Node, kind string, items []syntax.Node) syntax.Node {
	kept := items[:0:0]
	for _, item := range items {
		if item != nil {
			kept = append(kept, item)
		}
	}
	return syntax.Place(&syntax.Compound{Kind: kind, Items: kept}, position(n))
}

// decorated unwraps a decorated_definition into its function or class.
func (l *lowerer) decorated(n *sitter.Node) syntax.Node {
	decorators := findChildrenByType(n, "decorator")
	def := n.ChildByFieldName("definition")
	if def == nil {
		l.fail(fmt.Errorf("%w: decorator without definition at line %d", ErrSyntax, position(n).Line))
	}
	if def.Kind() == "class_definition" {
		return l.class(def, decorators)
	}
	return l.function(def, decorators, n)
}

// function lowers a function_definition. outer is the node whose text becomes
// the function source: the decorated_definition when decorators are present.
func (l *lowerer) function(def *sitter.Node, decorators []*sitter.Node, outer *sitter.Node) *syntax.FunctionDef {
	body := def.ChildByFieldName("body")
	fn := &syntax.FunctionDef{
		Name:       l.text(def.ChildByFieldName("name")),
		Async:      hasLeadingKeyword(def, "async"),
		Params:     l.parameters(def.ChildByFieldName("parameters")),
		Body:       l.suite(body),
		Decorators: l.decorators(decorators),
		Returns:    l.optional(def.ChildByFieldName("return_type")),
		Docstring:  l.docstring(body, outer),
		Source:     l.text(outer),
	}
	return syntax.Place(fn, position(def))
}

func (l *lowerer) class(def *sitter.Node, decorators []*sitter.Node) *syntax.ClassDef {
	cls := &syntax.ClassDef{
		Name:       l.text(def.ChildByFieldName("name")),
		Bases:      l.arguments(def.ChildByFieldName("superclasses")),
		Body:       l.suite(def.ChildByFieldName("body")),
		Decorators: l.decorators(decorators),
	}
	return syntax.Place(cls, position(def))
}

func (l *lowerer) decorators(decorators []*sitter.Node) []syntax.Node {
	var out []syntax.Node
	for _, d := range decorators {
		if expr := firstNamedChild(d); expr != nil {
			out = append(out, l.node(expr))
		}
	}
	return out
}

// docstring returns the leading bare string literal of a function body, its
// span measured from the start of outer.
func (l *lowerer) docstring(body, outer *sitter.Node) *syntax.Docstring {
	first := firstNamedChild(body)
	if first == nil || first.Kind() != "expression_statement" {
		return nil
	}
	children := namedChildren(first)
	if len(children) != 1 {
		return nil
	}
	lit := children[0]
	if lit.Kind() != "string" && lit.Kind() != "concatenated_string" {
		return nil
	}
	str, ok := l.node(lit).(*syntax.Str)
	if !ok {
		return nil
	}

	from, to := lit.StartByte(), lit.EndByte()
	if lit.Kind() == "string" {
		start := findChildByType(lit, "string_start")
		end := findChildByType(lit, "string_end")
		if start != nil && end != nil {
			from, to = start.EndByte(), end.StartByte()
		}
	}
	base := outer.StartByte()
	return &syntax.Docstring{
		Value: str.Value,
		Raw:   string(l.source[from:to]),
		Start: int(from - base),
		End:   int(to - base),
	}
}

// parameters keeps the expressions of a parameter list in the order of
// Python's arguments node: positional annotations, the *args annotation,
// keyword-only annotations, keyword-only defaults, the **kwargs annotation,
// then positional defaults. Parameter names are not expressions.
func (l *lowerer) parameters(n *sitter.Node) []syntax.Node {
	var (
		posAnnotations, posDefaults []syntax.Node
		kwAnnotations, kwDefaults   []syntax.Node
		varargs, kwargs             syntax.Node
		keywordOnly                 bool
	)
	for _, p := range namedChildren(n) {
		switch p.Kind() {
		case "keyword_separator", "list_splat_pattern":
			keywordOnly = true
		case "typed_parameter":
			typ := l.optional(p.ChildByFieldName("type"))
			switch {
			case findChildByType(p, "list_splat_pattern") != nil:
				varargs = typ
				keywordOnly = true
			case findChildByType(p, "dictionary_splat_pattern") != nil:
				kwargs = typ
			case keywordOnly:
				kwAnnotations = append(kwAnnotations, typ)
			default:
				posAnnotations = append(posAnnotations, typ)
			}
		case "default_parameter", "typed_default_parameter":
			typ := l.optional(p.ChildByFieldName("type"))
			value := l.optional(p.ChildByFieldName("value"))
			if keywordOnly {
				kwAnnotations = append(kwAnnotations, typ)
				kwDefaults = append(kwDefaults, value)
			} else {
				posAnnotations = append(posAnnotations, typ)
				posDefaults = append(posDefaults, value)
			}
		}
	}

	ordered := append(posAnnotations, varargs)
	ordered = append(ordered, kwAnnotations...)
	ordered = append(ordered, kwDefaults...)
	ordered = append(ordered, kwargs)
	ordered = append(ordered, posDefaults...)

	var out []syntax.Node
	for _, item := range ordered {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}

// arguments orders call arguments the way Python's Call node does:
// positional arguments first, then keyword arguments.
func (l *lowerer) arguments(n *sitter.Node) []syntax.Node {
	if n == nil {
		return nil
	}
	if n.Kind() != "argument_list" {
		return []syntax.Node{l.node(n)}
	}

	var positional, keywords []syntax.Node
	for _, arg := range namedChildren(n) {
		switch arg.Kind() {
		case "keyword_argument", "dictionary_splat":
			keywords = append(keywords, l.node(arg))
		default:
			positional = append(positional, l.node(arg))
		}
	}
	return append(positional, keywords...)
}

// assignment flattens chained assignments into a single Assign.
func (l *lowerer) assignment(n *sitter.Node) syntax.Node {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")

	if typ := n.ChildByFieldName("type"); typ != nil {
		return l.compound(n, "annotated_assignment", []syntax.Node{
			l.optional(left), l.node(typ), l.optional(right),
		})
	}

	targets := []syntax.Node{l.optional(left)}
	for right != nil && right.Kind() == "assignment" && right.ChildByFieldName("type") == nil {
		targets = append(targets, l.optional(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}

	return syntax.Place(&syntax.Assign{Targets: targets, Value: l.optional(right)}, position(n))
}

// ifStatement nests elif clauses the way Python's If node does.
func (l *lowerer) ifStatement(n *sitter.Node) syntax.Node {
	var alternatives []*sitter.Node
	for _, c := range namedChildren(n) {
		if c.Kind() == "elif_clause" || c.Kind() == "else_clause" {
			alternatives = append(alternatives, c)
		}
	}
	return syntax.Place(&syntax.If{
		Test:   l.optional(n.ChildByFieldName("condition")),
		Body:   l.suite(n.ChildByFieldName("consequence")),
		Orelse: l.alternatives(alternatives),
	}, position(n))
}

func (l *lowerer) alternatives(clauses []*sitter.Node) []syntax.Node {
	if len(clauses) == 0 {
		return nil
	}
	first := clauses[0]
	if first.Kind() == "else_clause" {
		return l.elseClause(first)
	}
	elif := syntax.Place(&syntax.If{
		Test:   l.optional(first.ChildByFieldName("condition")),
		Body:   l.suite(first.ChildByFieldName("consequence")),
		Orelse: l.alternatives(clauses[1:]),
	}, position(first))
	return []syntax.Node{elif}
}

func (l *lowerer) elseClause(n *sitter.Node) []syntax.Node {
	if n == nil {
		return nil
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return l.suite(body)
	}
	return l.suite(findChildByType(n, "block"))
}

func (l *lowerer) raise(n *sitter.Node) syntax.Node {
	cause := n.ChildByFieldName("cause")
	r := &syntax.Raise{}
	for _, c := range namedChildren(n) {
		if sameNode(c, cause) {
			r.Cause = l.node(c)
			continue
		}
		if r.Exc == nil {
			r.Exc = l.node(c)
		}
	}
	return syntax.Place(r, position(n))
}

// dictionary lists every key before every value, as Python's Dict node does.
func (l *lowerer) dictionary(n *sitter.Node) syntax.Node {
	var keys, values []syntax.Node
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "pair":
			keys = append(keys, l.optional(c.ChildByFieldName("key")))
			values = append(values, l.optional(c.ChildByFieldName("value")))
		case "dictionary_splat":
			if inner := firstNamedChild(c); inner != nil {
				values = append(values, l.node(inner))
			}
		default:
			values = append(values, l.node(c))
		}
	}
	return l.compound(n, "dictionary", append(keys, values...))
}

// conditional reorders `body if test else orelse` into test, body, orelse.
func (l *lowerer) conditional(n *sitter.Node) syntax.Node {
	parts := namedChildren(n)
	if len(parts) != 3 {
		return l.compound(n, "conditional_expression", l.nodes(parts))
	}
	return l.compound(n, "conditional_expression", []syntax.Node{
		l.node(parts[1]), l.node(parts[0]), l.node(parts[2]),
	})
}

// exceptClause keeps the exception type and the handler body; the bound name
// after "as" is not an expression. The Python 2 form `except E, name:` is a
// syntax error.
func (l *lowerer) exceptClause(n *sitter.Node) syntax.Node {
	var items []syntax.Node
	afterAs := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(uint(i))
		if c.IsExtra() {
			continue
		}
		if !c.IsNamed() {
			switch c.Kind() {
			case "as":
				afterAs = true
			case ",":
				l.fail(fmt.Errorf("%w: Python 2 except clause at line %d", ErrSyntax, position(n).Line))
			}
			continue
		}
		switch {
		case c.Kind() == "block":
			items = append(items, l.suite(c)...)
		case c.Kind() == "as_pattern":
			if typ := firstNamedChild(c); typ != nil {
				items = append(items, l.node(typ))
			}
		case afterAs:
			afterAs = false
		default:
			items = append(items, l.node(c))
		}
	}
	return l.compound(n, n.Kind(), items)
}

// str lowers a single string literal.
func (l *lowerer) str(n *sitter.Node) syntax.Node {
	start := findChildByType(n, "string_start")
	end := findChildByType(n, "string_end")
	if start == nil || end == nil {
		l.fail(fmt.Errorf("%w: unterminated string at line %d", ErrSyntax, position(n).Line))
	}

	prefix := stringPrefix(l.text(start))
	raw := strings.Contains(prefix, "r")
	at := position(n)

	if strings.Contains(prefix, "f") {
		return l.fstring(n, raw)
	}

	body := string(l.source[start.EndByte():end.StartByte()])
	if strings.Contains(prefix, "b") {
		value, err := decodeBytes(body, raw)
		if err != nil {
			l.fail(fmt.Errorf("line %d: %w", at.Line, err))
		}
		return syntax.Place(&syntax.Bytes{Value: value}, at)
	}

	value, err := decodeString(body, raw)
	if err != nil {
		l.fail(fmt.Errorf("line %d: %w", at.Line, err))
	}
	return syntax.Place(&syntax.Str{Value: value}, at)
}

// fstring lowers a formatted string into its literal parts and the
// interpolated expressions, merging adjacent literal text.
func (l *lowerer) fstring(n *sitter.Node, raw bool) syntax.Node {
	var parts textParts
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "string_content":
			text := strings.NewReplacer("{{", "{", "}}", "}").Replace(l.text(c))
			value, err := decodeString(text, raw)
			if err != nil {
				l.fail(fmt.Errorf("line %d: %w", position(c).Line, err))
			}
			parts.text(value, position(c))
		case "interpolation":
			parts.node(l.node(c))
		}
	}
	return l.compound(n, "fstring", parts.done())
}

// concatenated merges implicitly concatenated literals.
func (l *lowerer) concatenated(n *sitter.Node) syntax.Node {
	pieces := l.nodes(namedChildren(n))
	at := position(n)

	var (
		text     strings.Builder
		bytesVal []byte
		sawStr   bool
		sawBytes bool
		sawFmt   bool
	)
	for _, p := range pieces {
		switch v := p.(type) {
		case *syntax.Str:
			sawStr = true
			text.WriteString(v.Value)
		case *syntax.Bytes:
			sawBytes = true
			bytesVal = append(bytesVal, v.Value...)
		default:
			sawFmt = true
		}
	}
	if sawBytes && (sawStr || sawFmt) {
		l.fail(fmt.Errorf("%w: cannot mix bytes and nonbytes literals at line %d", ErrSyntax, at.Line))
	}
	if sawBytes {
		return syntax.Place(&syntax.Bytes{Value: bytesVal}, at)
	}
	if !sawFmt {
		return syntax.Place(&syntax.Str{Value: text.String()}, at)
	}

	var parts textParts
	for _, p := range pieces {
		switch v := p.(type) {
		case *syntax.Str:
			parts.text(v.Value, v.Position())
		case *syntax.Compound:
			for _, item := range v.Items {
				if s, ok := item.(*syntax.Str); ok {
					parts.text(s.Value, s.Position())
				} else {
					parts.node(item)
				}
			}
		}
	}
	return l.compound(n, "fstring", parts.done())
}

// interpolation keeps the replacement expression and any format spec; the
// conversion flag is not an expression.
func (l *lowerer) interpolation(n *sitter.Node) syntax.Node {
	var items []syntax.Node
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "type_conversion":
		case "format_specifier":
			items = append(items, l.formatSpec(c))
		default:
			items = append(items, l.node(c))
		}
	}
	return l.compound(n, "formatted_value", items)
}

func (l *lowerer) formatSpec(n *sitter.Node) syntax.Node {
	var parts textParts
	cursor := n.StartByte()
	for _, c := range namedChildren(n) {
		if c.Kind() != "format_expression" {
			continue
		}
		parts.text(string(l.source[cursor:c.StartByte()]), position(n))
		if expr := firstNamedChild(c); expr != nil {
			parts.node(l.node(expr))
		}
		cursor = c.EndByte()
	}
	parts.text(string(l.source[cursor:n.EndByte()]), position(n))

	items := parts.done()
	if len(items) > 0 {
		if s, ok := items[0].(*syntax.Str); ok {
			s.Value = strings.TrimPrefix(s.Value, ":")
			if s.Value == "" {
				items = items[1:]
			}
		}
	}
	return l.compound(n, "format_spec", items)
}

// textParts accumulates f-string pieces, merging adjacent literal text.
type textParts struct {
	items   []syntax.Node
	pending strings.Builder
	at      syntax.Pos
	open    bool
}

func (t *textParts) text(s string, at syntax.Pos) {
	if s == "" {
		return
	}
	if !t.open {
		t.at = at
		t.open = true
	}
	t.pending.WriteString(s)
}

func (t *textParts) node(n syntax.Node) {
	t.flush()
	t.items = append(t.items, n)
}

func (t *textParts) flush() {
	if !t.open {
		return
	}
	t.items = append(t.items, syntax.Place(&syntax.Str{Value: t.pending.String()}, t.at))
	t.pending.Reset()
	t.open = false
}

func (t *textParts) done() []syntax.Node {
	t.flush()
	return t.items
}
