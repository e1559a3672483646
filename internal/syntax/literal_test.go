package syntax

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiteral_String(t *testing.T) {
	t.Parallel()

	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211456", 10)

	tests := []struct {
		name string
		lit  Literal
		want string
	}{
		{"none", NoneLiteral(), "None"},
		{"true", BoolLiteral(true), "True"},
		{"false", BoolLiteral(false), "False"},
		{"ellipsis", EllipsisLiteral(), "Ellipsis"},
		{"int", IntLiteral(big.NewInt(-7)), "-7"},
		{"big int", IntLiteral(huge), "340282366920938463463374607431768211456"},
		{"nil int", Literal{Kind: LitInt}, "0"},
		{"integral float", FloatLiteral(3), "3.0"},
		{"fraction", FloatLiteral(0.1), "0.1"},
		{"small", FloatLiteral(0.0001), "0.0001"},
		{"tiny", FloatLiteral(0.00001), "1e-05"},
		{"large", FloatLiteral(1e16), "1e+16"},
		{"just below exponent", FloatLiteral(123456789012345.0), "123456789012345.0"},
		{"negative zero", FloatLiteral(math.Copysign(0, -1)), "-0.0"},
		{"inf", FloatLiteral(math.Inf(1)), "inf"},
		{"nan", FloatLiteral(math.NaN()), "nan"},
		{"complex", ComplexLiteral(2), "2j"},
		{"complex fraction", ComplexLiteral(0.5), "0.5j"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.lit.String(), tt.name)
	}
}

func TestLiteral_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, IntLiteral(big.NewInt(16)).Equal(IntLiteral(big.NewInt(0x10))))
	assert.False(t, IntLiteral(big.NewInt(1)).Equal(FloatLiteral(1)))
	assert.True(t, NoneLiteral().Equal(NoneLiteral()))
	assert.False(t, BoolLiteral(true).Equal(BoolLiteral(false)))
	assert.False(t, FloatLiteral(1).Equal(ComplexLiteral(1)))
}
