package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter       = errors.New("invalid parameter")
	ErrDocumentNotFound       = errors.New("document not found")
	ErrChunkNotFound          = errors.New("chunk not found")
	ErrChunkDocumentMismatch  = errors.New("chunk belongs to a different document")
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// InvalidParameterError reports a chunking or query parameter that violates
// its constraint. It matches ErrInvalidParameter with errors.Is.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return e.Reason
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func invalidParameter(param, reason string) error {
	return &InvalidParameterError{Param: param, Reason: reason}
}

// ValidationError reports an invalid field on a document or chunk.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}
