package models

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the generative API produced no usable text.
var ErrEmptyResponse = errors.New("generative API returned an empty response")

// ValidationError marks bad client input. Handlers map it to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UpstreamError wraps a failure of an external collaborator: the PDF
// loader, the splitter, the embedding service, the vector index, the
// history store or the generative API.
type UpstreamError struct {
	Service string
	Op      string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream is shorthand for building an UpstreamError.
func Upstream(service, op string, err error) error {
	return &UpstreamError{Service: service, Op: op, Err: err}
}

// IngestionError aborts a whole document ingestion. A document that
// produced one must be treated as not indexed.
type IngestionError struct {
	File string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("failed to process PDF %s: %v", e.File, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
