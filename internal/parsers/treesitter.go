package parsers

import (
	"context"
	"fmt"

	"github.com/mvp-joe/code-pairs/internal/syntax"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser turns raw source text into the closed syntax model.
type Parser interface {
	// Parse returns the lowered module, or an error wrapping ErrSyntax,
	// ErrDecode or ErrTooDeep when the source cannot be represented.
	Parse(ctx context.Context, source []byte) (*syntax.Module, error)
}

// TreeSitterParser provides common tree-sitter parsing functionality.
type treeSitterParser struct {
	language *sitter.Language
	lang     string
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, lang string) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		lang:     lang,
	}
}

// parseTree runs tree-sitter over source. The caller owns the returned tree.
func (p *treeSitterParser) parseTree(ctx context.Context, source []byte) (*sitter.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to load %s grammar: %w", p.lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s parser produced no tree", ErrSyntax, p.lang)
	}
	return tree, nil
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		walkTree(child, visitor)
	}
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// findChildrenByType finds all child nodes with the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			results = append(results, child)
		}
	}
	return results
}

// namedChildren returns the named children of node in source order,
// skipping extras such as comments and line continuations.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}

	var results []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.IsNamed() && !child.IsExtra() {
			results = append(results, child)
		}
	}
	return results
}

// firstNamedChild returns the first named, non-extra child.
func firstNamedChild(node *sitter.Node) *sitter.Node {
	if children := namedChildren(node); len(children) > 0 {
		return children[0]
	}
	return nil
}

// hasLeadingKeyword reports whether the first child token of node is keyword.
func hasLeadingKeyword(node *sitter.Node, keyword string) bool {
	if node == nil || node.ChildCount() == 0 {
		return false
	}
	return node.Child(0).Kind() == keyword
}

// firstErrorLine returns the 1-based line of the first ERROR or MISSING node.
func firstErrorLine(root *sitter.Node) int {
	line := 0
	walkTree(root, func(n *sitter.Node) bool {
		if line != 0 {
			return false
		}
		if n.IsError() || n.IsMissing() {
			line = int(n.StartPosition().Row) + 1
			return false
		}
		return n.HasError()
	})
	return line
}

// position converts a tree-sitter start point into a 1-based syntax.Pos.
func position(node *sitter.Node) syntax.Pos {
	p := node.StartPosition()
	return syntax.Pos{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// sameNode reports whether a and b refer to the same tree-sitter node.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}
