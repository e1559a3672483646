// Package corpus reads source blobs for extraction from a directory tree or
// from a repository CSV dump.
package corpus

import "fmt"

// Blob is one source file with its provenance.
type Blob struct {
	ID      int    // position in the corpus, zero based
	Repo    string // owner/name for CSV corpora, root directory name otherwise
	Path    string // slash-separated path inside the repository
	Content string
}

// Lineage returns the repo and path of the blob for a function line.
func (b Blob) Lineage(line int) string {
	if b.Repo == "" {
		return fmt.Sprintf("%s:%d", b.Path, line)
	}
	return fmt.Sprintf("%s %s:%d", b.Repo, b.Path, line)
}

// Contents returns the blob texts in order, ready for the batch driver.
func Contents(blobs []Blob) []string {
	out := make([]string, len(blobs))
	for i, b := range blobs {
		out[i] = b.Content
	}
	return out
}
