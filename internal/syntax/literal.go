package syntax

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// LiteralKind enumerates non-text literal values.
type LiteralKind uint8

const (
	LitNone LiteralKind = iota
	LitBool
	LitInt
	LitFloat
	LitComplex
	LitEllipsis
)

// Literal is a non-text literal value. Only the field matching Kind is set.
type Literal struct {
	Kind  LiteralKind
	Bool  bool
	Int   *big.Int
	Float float64 // also the imaginary part for LitComplex
}

// NoneLiteral returns the null literal.
func NoneLiteral() Literal { return Literal{Kind: LitNone} }

// BoolLiteral returns a boolean literal.
func BoolLiteral(b bool) Literal { return Literal{Kind: LitBool, Bool: b} }

// IntLiteral returns an integer literal.
func IntLiteral(i *big.Int) Literal { return Literal{Kind: LitInt, Int: i} }

// FloatLiteral returns a float literal.
func FloatLiteral(f float64) Literal { return Literal{Kind: LitFloat, Float: f} }

// ComplexLiteral returns a pure imaginary literal.
func ComplexLiteral(imag float64) Literal { return Literal{Kind: LitComplex, Float: imag} }

// EllipsisLiteral returns the ellipsis literal.
func EllipsisLiteral() Literal { return Literal{Kind: LitEllipsis} }

// String renders the value the way the Python interpreter prints it.
func (l Literal) String() string {
	switch l.Kind {
	case LitNone:
		return "None"
	case LitBool:
		if l.Bool {
			return "True"
		}
		return "False"
	case LitInt:
		if l.Int == nil {
			return "0"
		}
		return l.Int.String()
	case LitFloat:
		return formatFloat(l.Float)
	case LitComplex:
		s := formatFloat(l.Float)
		s = strings.TrimSuffix(s, ".0")
		return s + "j"
	case LitEllipsis:
		return "Ellipsis"
	}
	return ""
}

// Equal reports whether two literals hold the same value.
func (l Literal) Equal(o Literal) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case LitBool:
		return l.Bool == o.Bool
	case LitInt:
		if l.Int == nil || o.Int == nil {
			return l.Int == o.Int
		}
		return l.Int.Cmp(o.Int) == 0
	case LitFloat, LitComplex:
		return l.Float == o.Float
	}
	return true
}

// formatFloat matches repr(float): shortest round-trip digits, positional
// notation for exponents in [-4, 16), scientific otherwise.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
