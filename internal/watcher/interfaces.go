// Package watcher re-runs extraction when source files under a project
// change.
package watcher

import "context"

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching, calling callback with debounced, sorted file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Matcher reports whether a slash-separated path relative to the watched
// root is a source file of interest.
type Matcher interface {
	Matches(relPath string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(relPath string) bool

// Matches implements Matcher.
func (f MatcherFunc) Matches(relPath string) bool { return f(relPath) }
