package pairs

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/code-pairs/internal/parsers"
)

var (
	// ErrParse marks malformed syntax in a blob.
	ErrParse = errors.New("parse failure")

	// ErrResource marks decoding failures and depth/size limits.
	ErrResource = errors.New("resource failure")

	// ErrConsistency marks a violated internal invariant, such as a
	// docstring that cannot be found verbatim in the function source.
	ErrConsistency = errors.New("consistency failure")

	// ErrTraversalDepth is returned when the walker exceeds its depth limit.
	ErrTraversalDepth = errors.New("traversal depth exceeded")
)

// FailureKind classifies an expected per-blob failure.
type FailureKind int

const (
	ParseFailure FailureKind = iota + 1
	ResourceFailure
	ConsistencyFailure
)

func (k FailureKind) String() string {
	switch k {
	case ParseFailure:
		return "parse"
	case ResourceFailure:
		return "resource"
	case ConsistencyFailure:
		return "consistency"
	}
	return "unknown"
}

func (k FailureKind) sentinel() error {
	switch k {
	case ParseFailure:
		return ErrParse
	case ResourceFailure:
		return ErrResource
	}
	return ErrConsistency
}

// Failure is an expected per-blob failure. The batch boundary turns it into
// an empty result for that blob.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (f *Failure) Unwrap() []error {
	return []error{f.Kind.sentinel(), f.Err}
}

// IsFailure reports whether err is an expected per-blob failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

func consistencyf(format string, args ...any) error {
	return &Failure{Kind: ConsistencyFailure, Err: fmt.Errorf(format, args...)}
}

// classify maps parser and walker errors onto the failure taxonomy.
// Cancellation and unknown errors pass through untouched.
func classify(err error) error {
	if err == nil || IsFailure(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, parsers.ErrSyntax):
		return &Failure{Kind: ParseFailure, Err: err}
	case errors.Is(err, parsers.ErrDecode), errors.Is(err, parsers.ErrTooDeep), errors.Is(err, ErrTraversalDepth):
		return &Failure{Kind: ResourceFailure, Err: err}
	}
	return err
}
