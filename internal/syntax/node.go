// Package syntax defines the closed node model the extraction core walks.
//
// Parsers lower their concrete trees into these variants. Anything that has no
// dedicated variant becomes a Compound that only carries its children, so the
// walker can still descend into it.
package syntax

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

// Node is implemented by every variant in this package and nothing else.
type Node interface {
	// Children returns the immediate child nodes in field order.
	Children() []Node
	// Position returns where the node starts in the source.
	Position() Pos

	node()
}

type base struct {
	At Pos
}

func (b base) Position() Pos { return b.At }
func (b *base) setPos(p Pos) { b.At = p }
func (base) node() {}

// Place sets the start position of n and returns it.
func Place[N Node](n N, p Pos) N {
	if s, ok := any(n).(interface{ setPos(Pos) }); ok {
		s.setPos(p)
	}
	return n
}

// Module is the root of a parsed blob.
type Module struct {
	base
	Body []Node
}

func (m *Module) Children() []Node { return m.Body }

// ClassDef is a class declaration.
type ClassDef struct {
	base
	Name       string
	Bases      []Node
	Body       []Node
	Decorators []Node
}

func (c *ClassDef) Children() []Node {
	return concat(c.Bases, c.Body, c.Decorators)
}

// Docstring is the leading string literal of a function body.
type Docstring struct {
	// Value is the decoded literal value.
	Value string
	// Raw is the literal's body exactly as written between the quotes.
	Raw string
	// Start and End are the byte offsets of Raw within the enclosing
	// FunctionDef's Source.
	Start, End int
}

// FunctionDef is a function or method declaration.
type FunctionDef struct {
	base
	Name       string
	Async      bool
	Params     []Node
	Body       []Node
	Decorators []Node
	Returns    Node
	Docstring  *Docstring
	// Source is the exact source text of the definition, decorators included.
	Source string
}

func (f *FunctionDef) Children() []Node {
	return concat(f.Params, f.Body, f.Decorators, optional(f.Returns))
}

// Line is the 1-based line of the def keyword.
func (f *FunctionDef) Line() int { return f.At.Line }

// Assign is a plain (possibly chained) assignment.
type Assign struct {
	base
	Targets []Node
	Value   Node
}

func (a *Assign) Children() []Node { return concat(a.Targets, optional(a.Value)) }

// If is a conditional. An elif chain is a nested If inside Orelse.
type If struct {
	base
	Test   Node
	Body   []Node
	Orelse []Node
}

func (i *If) Children() []Node { return concat(optional(i.Test), i.Body, i.Orelse) }

// For is a for loop.
type For struct {
	base
	Async  bool
	Target Node
	Iter   Node
	Body   []Node
	Orelse []Node
}

func (f *For) Children() []Node {
	return concat(optional(f.Target), optional(f.Iter), f.Body, f.Orelse)
}

// While is a while loop.
type While struct {
	base
	Test   Node
	Body   []Node
	Orelse []Node
}

func (w *While) Children() []Node { return concat(optional(w.Test), w.Body, w.Orelse) }

// Return is a return statement; Value is nil for a bare return.
type Return struct {
	base
	Value Node
}

func (r *Return) Children() []Node { return optional(r.Value) }

// Break is a break statement.
type Break struct{ base }

func (*Break) Children() []Node { return nil }

// Continue is a continue statement.
type Continue struct{ base }

func (*Continue) Children() []Node { return nil }

// Pass is a pass statement.
type Pass struct{ base }

func (*Pass) Children() []Node { return nil }

// Raise is a raise statement. Cause is the expression after "from".
type Raise struct {
	base
	Exc   Node
	Cause Node
}

func (r *Raise) Children() []Node { return concat(optional(r.Exc), optional(r.Cause)) }

// Attribute is a dotted access such as a.b.
type Attribute struct {
	base
	Value Node
	Attr  string
}

func (a *Attribute) Children() []Node { return optional(a.Value) }

// Name is an identifier reference.
type Name struct {
	base
	ID string
}

func (*Name) Children() []Node { return nil }

// Constant is a named literal: True, False, None or the ellipsis.
type Constant struct {
	base
	Value Literal
}

func (*Constant) Children() []Node { return nil }

// Num is a numeric literal.
type Num struct {
	base
	Value Literal
}

func (*Num) Children() []Node { return nil }

// Str is a decoded string literal.
type Str struct {
	base
	Value string
}

func (*Str) Children() []Node { return nil }

// Bytes is a decoded bytes literal.
type Bytes struct {
	base
	Value []byte
}

func (*Bytes) Children() []Node { return nil }

// Compound is every construct without a dedicated variant: calls, operators,
// collections, comprehensions, lambdas, subscripts, with/try blocks and so on.
// Kind is informational only.
type Compound struct {
	base
	Kind  string
	Items []Node
}

func (c *Compound) Children() []Node { return c.Items }

func concat(groups ...[]Node) []Node {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	if n == 0 {
		return nil
	}
	out := make([]Node, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func optional(n Node) []Node {
	if n == nil {
		return nil
	}
	return []Node{n}
}
