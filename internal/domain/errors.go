package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrEmbeddingUnavailable) matches any wrapped variant.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeEmbeddingUnavailable = "EMBEDDING_UNAVAILABLE"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
	ErrCodeScrapeFailure        = "SCRAPE_FAILURE"
	ErrCodeModelUnavailable     = "MODEL_UNAVAILABLE"
	ErrCodeDimensionMismatch    = "DIMENSION_MISMATCH"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

var (
	ErrInvalidRequest       = NewDomainError(ErrCodeInvalidRequest, "invalid request")
	ErrMissingUserMessage   = NewDomainError(ErrCodeInvalidRequest, "latest message must be a non-empty user message")
	ErrEmbeddingUnavailable = NewDomainError(ErrCodeEmbeddingUnavailable, "embedding service unavailable")
	ErrStoreUnavailable     = NewDomainError(ErrCodeStoreUnavailable, "vector store unavailable")
	ErrScrapeFailure        = NewDomainError(ErrCodeScrapeFailure, "scrape failed")
	ErrModelUnavailable     = NewDomainError(ErrCodeModelUnavailable, "language model unavailable")
	ErrDimensionMismatch    = NewDomainError(ErrCodeDimensionMismatch, "embedding dimension does not match collection")
	ErrInternal             = NewDomainError(ErrCodeInternalError, "internal error")
)

// EmbeddingUnavailable wraps a provider failure as ErrEmbeddingUnavailable.
func EmbeddingUnavailable(err error) error {
	return wrap(ErrEmbeddingUnavailable, err)
}

// StoreUnavailable wraps a vector store failure as ErrStoreUnavailable.
func StoreUnavailable(err error) error {
	return wrap(ErrStoreUnavailable, err)
}

// ModelUnavailable wraps a language model failure as ErrModelUnavailable.
func ModelUnavailable(err error) error {
	return wrap(ErrModelUnavailable, err)
}

// ScrapeFailure wraps a fetch or extraction failure for a single URL.
func ScrapeFailure(url string, err error) error {
	return NewDomainErrorWithCause(ErrCodeScrapeFailure, "scrape failed for "+url, err)
}

// DimensionMismatch reports a vector whose length differs from the collection dimension.
func DimensionMismatch(expected, got int) error {
	return NewDomainError(ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension does not match collection: expected %d, got %d", expected, got))
}

func wrap(base *DomainError, err error) error {
	if err == nil {
		return base
	}
	var de *DomainError
	if errors.As(err, &de) && de.Code == base.Code {
		return err
	}
	return NewDomainErrorWithCause(base.Code, base.Message, err)
}

// Code returns the DomainError code carried by err, or ErrCodeInternalError.
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}
