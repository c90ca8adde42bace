// Package domainerrors provides coded errors for classifying failures at
// package boundaries. Callers branch on codes with HasCode rather than
// matching message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for boundary handling.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal"
	CodeInvariantViolation Code = "invariant_violation"

	// Rule compilation codes.
	CodeUnknownValue  Code = "unknown_domain_value"
	CodeUnsatisfiable Code = "unsatisfiable_constraint"
	CodeMalformedRule Code = "malformed_rule"
)

// Error is a coded error. Construct with New, Newf, or Wrap.
type Error struct {
	code Code
	msg  string
	err  error
}

// New returns a coded error with the given message.
func New(code Code, msg string) error {
	return &Error{code: code, msg: msg}
}

// Newf returns a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. Returns nil if err is nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Code returns the classification of this error.
func (e *Error) Code() Code { return e.code }

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.code == code {
			return true
		}
		err = de.err
	}
	return false
}

// CodeOf returns the code of the outermost coded error in err's chain.
// Unclassified non-nil errors report CodeInternal; nil reports the empty code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
