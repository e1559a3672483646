// Package tokenize provides the code and natural-language tokenizers used to
// build training records. Both are bleve analysis components so the search
// index can analyze records the same way they were produced.
package tokenize

import (
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	regexptokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/segment"
)

const (
	// CodeTokenizerName is the bleve registry name of the code tokenizer.
	CodeTokenizerName = "pairs_code"

	// LinguisticTokenizerName is the bleve registry name of the docstring tokenizer.
	LinguisticTokenizerName = "pairs_linguistic"
)

// wordRun matches maximal runs of letters, digits and underscores.
var wordRun = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var codeTokenizer = regexptokenizer.NewRegexpTokenizer(wordRun)

func init() {
	registry.RegisterTokenizer(CodeTokenizerName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return codeTokenizer, nil
	})
	registry.RegisterTokenizer(LinguisticTokenizerName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return NewLinguistic(), nil
	})
}

// Code splits source text into word tokens, discarding punctuation and
// whitespace, in left-to-right order.
func Code(text string) []string {
	return terms(codeTokenizer.Tokenize([]byte(text)))
}

// Linguistic segments natural-language text on Unicode word boundaries
// (UAX #29). Unlike bleve's unicode tokenizer it keeps punctuation and
// whitespace segments, so "returns x." yields "returns", " ", "x", ".".
type Linguistic struct {
	lower *lowercase.LowerCaseFilter
}

// NewLinguistic creates a linguistic tokenizer.
func NewLinguistic() *Linguistic {
	return &Linguistic{lower: lowercase.NewLowerCaseFilter()}
}

// Tokenize implements analysis.Tokenizer.
func (l *Linguistic) Tokenize(input []byte) analysis.TokenStream {
	stream := make(analysis.TokenStream, 0, len(input)/4+1)
	segmenter := segment.NewWordSegmenterDirect(input)

	start, position := 0, 1
	for segmenter.Segment() {
		term := segmenter.Bytes()
		end := start + len(term)
		stream = append(stream, &analysis.Token{
			Term:     term,
			Start:    start,
			End:      end,
			Position: position,
			Type:     tokenType(segmenter.Type()),
		})
		start = end
		position++
	}
	return stream
}

// Words tokenizes text, lowercases every token and drops whitespace-only ones.
func (l *Linguistic) Words(text string) []string {
	stream := l.lower.Filter(l.Tokenize([]byte(text)))

	words := make([]string, 0, len(stream))
	for _, tok := range stream {
		word := string(tok.Term)
		if strings.TrimSpace(word) == "" {
			continue
		}
		words = append(words, word)
	}
	return words
}

func terms(stream analysis.TokenStream) []string {
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		out = append(out, string(tok.Term))
	}
	return out
}

func tokenType(segmentType int) analysis.TokenType {
	switch segmentType {
	case segment.Ideo:
		return analysis.Ideographic
	case segment.Kana:
		return analysis.Ideographic
	case segment.Number:
		return analysis.Numeric
	}
	return analysis.AlphaNumeric
}
