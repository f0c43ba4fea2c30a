// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes transform failures. Every kind is a hard
// precondition: the pass produced no output.
type ErrorKind uint8

const (
	// ErrInvalidModule indicates a malformed header or instruction stream.
	ErrInvalidModule ErrorKind = iota

	// ErrUnsupportedFloatWidth indicates an IsNan/IsInf operand that is not a 32-bit float.
	ErrUnsupportedFloatWidth

	// ErrUnsupportedCubeArray indicates an arrayed cube storage image.
	ErrUnsupportedCubeArray

	// ErrUntraceableOperand indicates an operand whose producing instruction was not found.
	ErrUntraceableOperand

	// ErrMissingBinding indicates a descriptor set/binding with no matching variable.
	ErrMissingBinding

	// ErrUnsupported indicates a construct outside the subset the passes rewrite.
	ErrUnsupported

	// ErrNilCorrectionMap indicates a nil correction map passed to a pass
	// that records corrections.
	ErrNilCorrectionMap
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidModule:
		return "InvalidModule"
	case ErrUnsupportedFloatWidth:
		return "UnsupportedFloatWidth"
	case ErrUnsupportedCubeArray:
		return "UnsupportedCubeArray"
	case ErrUntraceableOperand:
		return "UntraceableOperand"
	case ErrMissingBinding:
		return "MissingBinding"
	case ErrUnsupported:
		return "Unsupported"
	case ErrNilCorrectionMap:
		return "NilCorrectionMap"
	default:
		return "Unknown"
	}
}

// Error is a transform failure.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Pass names the pass that failed, if known.
	Pass string

	// Message provides details about the error.
	Message string

	// Offset is the word offset of the offending instruction in the module
	// body, or -1.
	Offset int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := "transform"
	if e.Pass != "" {
		prefix = e.Pass
	}
	msg := fmt.Sprintf("%s %s: %s", prefix, e.Kind, e.Message)
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s (word %d)", msg, e.Offset)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, offset int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: offset}
}

func wrapError(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Offset: -1, Err: err}
}

// checkMap rejects a nil correction map before a pass touches the module.
func checkMap(cm *CorrectionMap, which string) error {
	if cm == nil {
		return newError(ErrNilCorrectionMap, -1, "%s is nil", which)
	}
	return nil
}

// IsKind reports whether err is a transform error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == kind
}

// named stamps the pass name on transform errors.
func named(pass string, err error) error {
	var terr *Error
	if errors.As(err, &terr) && terr.Pass == "" {
		terr.Pass = pass
	}
	return err
}
