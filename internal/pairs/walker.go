package pairs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mvp-joe/code-pairs/internal/syntax"
)

// DefaultMaxDepth bounds walker recursion.
const DefaultMaxDepth = 1000

// APISequence walks the body of fn depth-first and returns the API sequence.
// The docstring statement, when present, contributes nothing. maxDepth <= 0
// selects DefaultMaxDepth.
func APISequence(fn *syntax.FunctionDef, maxDepth int) ([]Token, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	w := &walker{maxDepth: maxDepth}

	body := fn.Body
	if fn.Docstring != nil && len(body) > 0 {
		body = body[1:]
	}
	if err := w.visitAll(body); err != nil {
		return nil, err
	}
	return w.sink.tokens, nil
}

type walker struct {
	sink     tokenSink
	depth    int
	maxDepth int
}

func (w *walker) visitAll(nodes []syntax.Node) error {
	for _, n := range nodes {
		if err := w.visit(n); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visit(n syntax.Node) error {
	if n == nil {
		return nil
	}
	w.depth++
	defer func() { w.depth-- }()
	if w.depth > w.maxDepth {
		return fmt.Errorf("%w: limit %d at line %d", ErrTraversalDepth, w.maxDepth, n.Position().Line)
	}

	switch n := n.(type) {
	case *syntax.Assign:
		if err := w.visitAll(n.Targets); err != nil {
			return err
		}
		return w.visit(n.Value)

	case *syntax.If:
		w.sink.text("if")
		if err := w.visit(n.Test); err != nil {
			return err
		}
		if err := w.visitAll(n.Body); err != nil {
			return err
		}
		// Emitted even without an else branch.
		w.sink.text("else")
		return w.visitAll(n.Orelse)

	case *syntax.For:
		if n.Async {
			w.sink.text("async")
		}
		w.sink.text("for")
		if err := w.visit(n.Target); err != nil {
			return err
		}
		if err := w.visit(n.Iter); err != nil {
			return err
		}
		// The loop body is never visited.
		if len(n.Orelse) > 0 {
			w.sink.text("else")
			return w.visitAll(n.Orelse)
		}
		return nil

	case *syntax.While:
		w.sink.text("while")
		if err := w.visit(n.Test); err != nil {
			return err
		}
		if err := w.visitAll(n.Body); err != nil {
			return err
		}
		if len(n.Orelse) > 0 {
			w.sink.text("else")
			return w.visitAll(n.Orelse)
		}
		return nil

	case *syntax.Return:
		w.sink.text("return")
		return w.visit(n.Value)
	case *syntax.Break:
		w.sink.text("break")
		return nil
	case *syntax.Continue:
		w.sink.text("continue")
		return nil
	case *syntax.Pass:
		w.sink.text("pass")
		return nil
	case *syntax.Raise:
		w.sink.text("raise")
		return w.visit(n.Exc)

	case *syntax.Attribute:
		if err := w.visit(n.Value); err != nil {
			return err
		}
		w.sink.text(n.Attr)
		return nil
	case *syntax.Name:
		w.sink.text(n.ID)
		return nil
	case *syntax.Constant:
		// Only named constants (True, False, None) are emitted.
		if n.Value.Kind != syntax.LitEllipsis {
			w.sink.literal(n.Value)
		}
		return nil
	case *syntax.Num:
		w.sink.literal(n.Value)
		return nil
	case *syntax.Str:
		w.sink.text(n.Value)
		return nil
	case *syntax.Bytes:
		w.sink.text(bytesRepr(n.Value))
		return nil
	}

	return w.visitAll(n.Children())
}

// bytesRepr renders b the way Python's repr prints a bytes object.
func bytesRepr(b []byte) string {
	quote := byte('\'')
	if bytes.IndexByte(b, '\'') >= 0 && bytes.IndexByte(b, '"') < 0 {
		quote = '"'
	}

	var sb strings.Builder
	sb.Grow(len(b) + 3)
	sb.WriteByte('b')
	sb.WriteByte(quote)
	for _, c := range b {
		switch {
		case c == quote || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c < ' ' || c >= 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}
