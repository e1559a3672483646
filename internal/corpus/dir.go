package corpus

import (
	"fmt"
	"os"
	"path/filepath"
)

// FromDir reads every included file under root. Repo is the base name of
// root; Path is relative to it.
func FromDir(root string, include, ignore []string) ([]Blob, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	discovery, err := NewFileDiscovery(abs, include, ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern: %w", err)
	}

	files, err := discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	repo := filepath.Base(abs)
	blobs := make([]Blob, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		rel, err := filepath.Rel(abs, file)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, Blob{
			ID:      len(blobs),
			Repo:    repo,
			Path:    filepath.ToSlash(rel),
			Content: string(content),
		})
	}
	return blobs, nil
}
