package pairs

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mvp-joe/code-pairs/internal/parsers"
	"github.com/mvp-joe/code-pairs/internal/syntax"
	"github.com/mvp-joe/code-pairs/internal/tokenize"
)

// DocTokenizer segments natural-language text into lowercased words with
// whitespace-only tokens removed.
type DocTokenizer interface {
	Words(text string) []string
}

// BlobExtractor turns one source blob into its records. Expected per-blob
// failures are absorbed: the blob yields an empty result and a nil error.
// A non-nil error is either a context error or a bug.
type BlobExtractor interface {
	Pairs(ctx context.Context, blob string) ([]Record, error)
}

// Extractor assembles records from Python source blobs.
type Extractor struct {
	parser   parsers.Parser
	docs     DocTokenizer
	maxDepth int
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithParser replaces the default Python parser.
func WithParser(p parsers.Parser) Option {
	return func(e *Extractor) { e.parser = p }
}

// WithDocTokenizer replaces the default linguistic tokenizer.
func WithDocTokenizer(t DocTokenizer) Option {
	return func(e *Extractor) { e.docs = t }
}

// WithMaxDepth bounds walker recursion.
func WithMaxDepth(depth int) Option {
	return func(e *Extractor) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for skipped-blob messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor backed by tree-sitter Python parsing and
// the linguistic docstring tokenizer unless options say otherwise.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	if e.parser == nil {
		e.parser = parsers.NewPythonParser(parsers.WithMaxDepth(e.maxDepth))
	}
	if e.docs == nil {
		e.docs = tokenize.NewLinguistic()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Pairs extracts the records of one blob, turning any *Failure into an empty
// result.
func (e *Extractor) Pairs(ctx context.Context, blob string) ([]Record, error) {
	records, err := e.ExtractBlob(ctx, blob)
	if err != nil {
		if IsFailure(err) {
			e.logger.DebugContext(ctx, "skipping blob", "error", err)
			return []Record{}, nil
		}
		return nil, err
	}
	return records, nil
}

// ExtractBlob extracts the records of one blob in enumeration order. On error
// no records are returned; expected failures are reported as *Failure.
func (e *Extractor) ExtractBlob(ctx context.Context, blob string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mod, err := e.parser.Parse(ctx, []byte(normalizeNewlines(blob)))
	if err != nil {
		return nil, classify(err)
	}

	functions := Functions(mod)
	records := make([]Record, 0, len(functions))
	for _, fn := range functions {
		rec, err := e.record(fn)
		if err != nil {
			return nil, classify(err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Extractor) record(fn *syntax.FunctionDef) (Record, error) {
	if fn.Name == "" {
		return Record{}, consistencyf("function at line %d has no name", fn.Line())
	}

	api, err := APISequence(fn, e.maxDepth)
	if err != nil {
		return Record{}, err
	}

	code := fn.Source
	docTokens := []string{}
	if fn.Docstring != nil {
		if doc := CleanDocstring(fn.Docstring.Value); doc != "" {
			stripped, ok := stripDocstring(code, fn.Docstring)
			if !ok {
				return Record{}, consistencyf("docstring of %s not found in its source", fn.Name)
			}
			code = stripped
			docTokens = e.docs.Words(FirstParagraph(doc))
		}
	}

	underscored := Underscore(fn.Name)
	return Record{
		Name:              fn.Name,
		UnderscoredName:   underscored,
		Line:              fn.Line(),
		SourceText:        fn.Source,
		CodeTokens:        tokenize.Code(code),
		DocstringTokens:   docTokens,
		APISequenceTokens: Normalized(api),
		NameTokens:        NameTokens(underscored),
	}, nil
}

// stripDocstring cuts the docstring's own span out of source. It fails when
// the span does not hold the docstring text.
func stripDocstring(source string, doc *syntax.Docstring) (string, bool) {
	if doc.Start < 0 || doc.End < doc.Start || doc.End > len(source) {
		return "", false
	}
	if source[doc.Start:doc.End] != doc.Raw {
		return "", false
	}
	return source[:doc.Start] + source[doc.End:], true
}

func normalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
