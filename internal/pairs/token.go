package pairs

import (
	"strings"

	"github.com/mvp-joe/code-pairs/internal/syntax"
)

// Token is one entry of an API sequence: either text (identifiers, keywords,
// attribute names, string values) or a literal value.
type Token struct {
	Text    string
	Literal *syntax.Literal
}

// TextToken returns a text token.
func TextToken(s string) Token { return Token{Text: s} }

// LiteralToken returns a literal token.
func LiteralToken(l syntax.Literal) Token { return Token{Literal: &l} }

// IsLiteral reports whether t carries a literal value.
func (t Token) IsLiteral() bool { return t.Literal != nil }

// String renders the token the way the value prints in Python.
func (t Token) String() string {
	if t.Literal != nil {
		return t.Literal.String()
	}
	return t.Text
}

// Normalize returns the underscored form of the rendered token.
func (t Token) Normalize() string {
	return Underscore(t.String())
}

// Normalized normalizes every token in order.
func Normalized(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Normalize()
	}
	return out
}

// tokenSink collects walker output. Text is trimmed and dropped when empty;
// literals are always kept.
type tokenSink struct {
	tokens []Token
}

func (s *tokenSink) text(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	s.tokens = append(s.tokens, TextToken(v))
}

func (s *tokenSink) literal(l syntax.Literal) {
	s.tokens = append(s.tokens, LiteralToken(l))
}
