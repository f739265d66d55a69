// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rundown

import (
	"errors"
	"fmt"
)

// Error classes. Callers branch on these with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrBadRequest          = errors.New("bad request")
	ErrInternal            = errors.New("internal error")
	ErrDuplicateExternalID = errors.New("duplicate external id")
)

// Error is a structured operation error with a numeric classification that
// mirrors HTTP status semantics (400, 404, 409, 500).
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code int, class error, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: class}
}

// NotFound reports a referenced rundown, segment, part or playlist that does not exist.
func NotFound(format string, args ...any) error {
	return newError(404, ErrNotFound, format, args...)
}

// BadRequest reports input that can never succeed.
func BadRequest(format string, args ...any) error {
	return newError(400, ErrBadRequest, format, args...)
}

// Conflict reports input that clashes with existing state.
func Conflict(format string, args ...any) error {
	return newError(409, ErrConflict, format, args...)
}

// Internal reports a broken invariant.
func Internal(format string, args ...any) error {
	return newError(500, ErrInternal, format, args...)
}

// CodeOf returns the numeric classification of err, or 500 when err carries none.
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return 500
}
