package domain

import (
	"errors"
	"fmt"
)

type ErrCode string

const (
	CodeValidation   ErrCode = "validation_error"
	CodeNotFound     ErrCode = "not_found"
	CodeForbidden    ErrCode = "forbidden"
	CodeConflict     ErrCode = "conflict"
	CodeInvalidState ErrCode = "invalid_state"
)

// AppError is the only error kind the transport layer translates into a
// client-visible status. Everything else is reported as an internal error.
type AppError struct {
	Code    ErrCode
	Message string
	Meta    map[string]string
}

func (e *AppError) Error() string {
	if len(e.Meta) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Meta)
}

func ErrValidation(msg string) error { return &AppError{Code: CodeValidation, Message: msg} }
func ErrValidationMeta(msg string, meta map[string]string) error {
	return &AppError{Code: CodeValidation, Message: msg, Meta: meta}
}
func ErrNotFound(msg string) error { return &AppError{Code: CodeNotFound, Message: msg} }
func ErrNotFoundMeta(msg string, meta map[string]string) error {
	return &AppError{Code: CodeNotFound, Message: msg, Meta: meta}
}
func ErrForbidden(msg string) error { return &AppError{Code: CodeForbidden, Message: msg} }
func ErrForbiddenMeta(msg string, meta map[string]string) error {
	return &AppError{Code: CodeForbidden, Message: msg, Meta: meta}
}
func ErrConflict(msg string) error     { return &AppError{Code: CodeConflict, Message: msg} }
func ErrInvalidState(msg string) error { return &AppError{Code: CodeInvalidState, Message: msg} }

// CodeOf returns the AppError code of err, or "" if err is not an AppError.
func CodeOf(err error) ErrCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
