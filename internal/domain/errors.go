package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a malformed request, detected before any I/O.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmbeddingFailure signals that no usable query vector could be produced.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrIndexUnavailable signals that the vector index and the keyword fallback both failed.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrNotFound signals a missing product or session.
	ErrNotFound = errors.New("not found")
	// ErrSummarization signals a summarizer failure. It never leaves the composer.
	ErrSummarization = errors.New("summarization failed")
)

// Pipeline stages reported by StageError.
const (
	StageValidate        = "validate"
	StageSession         = "session"
	StageEmbedding       = "embedding"
	StageVectorSearch    = "vector_search"
	StageKeywordFallback = "keyword_fallback"
	StageCompose         = "compose"
)

// StageError records which query stage failed. It unwraps to the cause,
// so errors.Is against the sentinels above keeps working.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with a stage tag.
func NewStageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf extracts the stage from err, or "" when untagged.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// InvalidInputf formats an ErrInvalidInput with detail.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
