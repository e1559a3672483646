package tokenize

import (
	"testing"

	"github.com/blevesearch/bleve/v2/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"def get_user(self, id):\n    return self.db[id]", []string{"def", "get_user", "self", "id", "return", "self", "db", "id"}},
		{"x = a+b*2.5", []string{"x", "a", "b", "2", "5"}},
		{"naïve_café = 1", []string{"naïve_café", "1"}},
		{"  ...  ", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.in), tt.in)
	}
}

func TestLinguistic_Words(t *testing.T) {
	t.Parallel()

	l := NewLinguistic()

	assert.Equal(t, []string{"returns", "the", "user's", "id", "."}, l.Words("Returns the user's ID."))
	assert.Equal(t, []string{"load", "http", "data", ",", "then", "cache", "it"}, l.Words("Load  HTTP data,\n then cache it"))
	assert.Empty(t, l.Words(" \n\t "))
}

func TestLinguistic_TokenOffsets(t *testing.T) {
	t.Parallel()

	stream := NewLinguistic().Tokenize([]byte("Parse 42 files"))
	require.Len(t, stream, 5)

	assert.Equal(t, "Parse", string(stream[0].Term))
	assert.Equal(t, 0, stream[0].Start)
	assert.Equal(t, 5, stream[0].End)
	assert.Equal(t, "42", string(stream[2].Term))
	assert.Equal(t, 3, stream[2].Position)
	assert.Equal(t, 14, stream[4].End)
}

func TestTokenizersRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{CodeTokenizerName, LinguisticTokenizerName} {
		cache := registry.NewCache()
		tok, err := cache.TokenizerNamed(name)
		require.NoError(t, err, name)
		assert.NotNil(t, tok, name)
	}
}
