// Package pairs extracts function/docstring training records from Python
// source blobs.
//
// The pipeline for one blob is: parse, enumerate module functions and
// methods of module-level classes, then for each function build a Record from
// the API-sequence walker, the code and docstring tokenizers and the
// identifier normalizer. A blob either yields all of its records or none.
package pairs

// Record is the training record produced for one function or method.
type Record struct {
	Name              string   `json:"name"`
	UnderscoredName   string   `json:"underscored_name"`
	Line              int      `json:"line"`
	SourceText        string   `json:"source_text"`
	CodeTokens        []string `json:"code_tokens"`
	DocstringTokens   []string `json:"docstring_tokens"`
	APISequenceTokens []string `json:"api_sequence_tokens"`
	NameTokens        []string `json:"name_tokens"`
}

// HasDocstring reports whether the record carries docstring tokens.
func (r Record) HasDocstring() bool {
	return len(r.DocstringTokens) > 0
}
