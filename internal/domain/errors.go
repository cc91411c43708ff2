package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInput signals a malformed request or an oversized batch.
	ErrInput = errors.New("invalid input")
	// ErrProviderUnavailable signals that an upstream provider (embedding, LLM, catalog, index) failed.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInternal signals an unexpected failure inside a pipeline stage.
	ErrInternal = errors.New("internal error")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)

// BatchLimitError wraps ErrInput with the offending batch size.
type BatchLimitError struct {
	Size int
	Max  int
}

func (e *BatchLimitError) Error() string {
	return fmt.Sprintf("%s: batch of %d exceeds limit %d", ErrInput.Error(), e.Size, e.Max)
}

func (e *BatchLimitError) Unwrap() error { return ErrInput }

// NewBatchLimit creates a batch limit error.
func NewBatchLimit(size, limit int) error {
	return &BatchLimitError{Size: size, Max: limit}
}
