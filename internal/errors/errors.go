package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard library helpers, re-exported so callers need one errors import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

type codedError struct {
	code  ErrorCode
	msg   string
	cause error
	data  any
}

// Error renders "message[: data][: cause]", falling back to the code's
// registered message.
func (e *codedError) Error() string {
	var b strings.Builder

	if e.msg != "" {
		b.WriteString(e.msg)
	} else {
		b.WriteString(GetErrorMessage(e.code))
	}
	if e.data != nil {
		fmt.Fprintf(&b, ": %v", e.data)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}

	return b.String()
}

func (e *codedError) Code() ErrorCode { return e.code }
func (e *codedError) Data() any       { return e.data }
func (e *codedError) Unwrap() error   { return e.cause }

// Is matches a bare coded error, one without cause or data, by code only,
// so errors.Is(err, New().New(code)) works as a code test.
func (e *codedError) Is(target error) bool {
	t, ok := target.(*codedError)
	if !ok || t.cause != nil || t.data != nil {
		return false
	}
	return t.code == e.code
}

func (e *codedError) WithMessage(msg string) Error {
	c := *e
	c.msg = msg
	return &c
}

func (e *codedError) WithData(data any) Error {
	c := *e
	c.data = data
	return &c
}

type factory struct{}

// New returns the error Factory.
func New() Factory {
	return factory{}
}

func (factory) New(code ErrorCode) Error {
	return &codedError{code: code}
}

func (factory) Wrap(code ErrorCode, err error) Error {
	return &codedError{code: code, cause: err}
}

func (factory) WithMessage(code ErrorCode, msg string) Error {
	return &codedError{code: code, msg: msg}
}

func (factory) WithData(code ErrorCode, data any) Error {
	return &codedError{code: code, data: data}
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// an empty code.
func CodeOf(err error) ErrorCode {
	var coded Error
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var coded Error
	for errors.As(err, &coded) {
		if coded.Code() == code {
			return true
		}
		err = coded.Unwrap()
	}
	return false
}
