package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for translation at the HTTP boundary.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindProcessSpawn Kind = "process_spawn_failure"
	KindOCR          Kind = "ocr_failure"
	KindUpstream     Kind = "upstream_failure"
	KindInternal     Kind = "internal"
)

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a failure to its response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
