package core

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is the panic value (wrapped) for any operation on an object
	// whose handle was collected or whose runtime was closed.
	ErrReleased = errors.New("jsbridge: object used after deallocation")

	// ErrClosed is the panic value (wrapped) for runtime operations after Close.
	ErrClosed = errors.New("jsbridge: runtime is closed")

	// ErrNotConvertible is returned when a Go value has no script representation.
	ErrNotConvertible = errors.New("jsbridge: value is not convertible")

	// ErrNotObject is returned when an object is required but the value is a primitive.
	ErrNotObject = errors.New("jsbridge: value is not an object")

	// ErrNeverSettles is returned by Await when the promise is pending and the
	// runtime has no outstanding work that could settle it.
	ErrNeverSettles = errors.New("jsbridge: promise is pending with no outstanding work")
)

// CodedError is an error carrying a machine-readable code. When an async
// callable rejects with it, or a sync callable returns it, the script Error
// gets a matching code property.
type CodedError struct {
	ErrCode    string
	ErrMessage string
	Cause      error
}

// NewCodedError builds a CodedError with a formatted message.
func NewCodedError(code, format string, args ...any) *CodedError {
	return &CodedError{ErrCode: code, ErrMessage: fmt.Sprintf(format, args...)}
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("[%s] %s", e.ErrCode, e.ErrMessage)
}

// Code returns the error code.
func (e *CodedError) Code() string { return e.ErrCode }

// Message returns the message without the code prefix.
func (e *CodedError) Message() string { return e.ErrMessage }

func (e *CodedError) Unwrap() error { return e.Cause }

// ConversionError reports the Go type and the path at which conversion failed.
type ConversionError struct {
	Path   string // e.g. "items[2].name"; empty at the top level
	GoType string
	Reason string
}

func (e *ConversionError) Error() string {
	msg := "convert " + e.GoType
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return ErrNotConvertible }

// PromiseRejectedError is returned by Await when the awaited promise rejects.
type PromiseRejectedError struct {
	Message string // String(reason)
	Code    string // reason.code when present
}

func (e *PromiseRejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("promise rejected: [%s] %s", e.Code, e.Message)
	}
	return "promise rejected: " + e.Message
}
