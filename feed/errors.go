package feed

import (
	"errors"
	"fmt"
)

// ErrorCode classifies feed fetch failures.
type ErrorCode string

const (
	ErrTimeout ErrorCode = "TIMEOUT" // fetch exceeded its time budget
	ErrQuery   ErrorCode = "QUERY"   // data service returned an error
)

// FeedError is a typed fetch failure. Message is safe to show to a visitor.
type FeedError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *FeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FeedError) Unwrap() error { return e.Err }

// NewTimeout creates the error returned when a fetch loses the race against its timeout.
func NewTimeout() *FeedError {
	return &FeedError{
		Code:    ErrTimeout,
		Message: "request timed out",
	}
}

// NewQueryError wraps an error reported by the data service.
func NewQueryError(err error) *FeedError {
	return &FeedError{
		Code:    ErrQuery,
		Message: "could not load items",
		Err:     err,
	}
}

// Is reports whether err is, or wraps, a FeedError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *FeedError
	if errors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// userMessage picks the visitor-facing text for err.
func userMessage(err error) string {
	var fErr *FeedError
	if errors.As(err, &fErr) {
		return fErr.Message
	}
	return "something went wrong"
}
