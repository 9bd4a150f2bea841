// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive

import (
	"errors"
	"fmt"

	"github.com/kestrelgfx/psoarchive/internal/serial"
)

// ErrorCode is the closed error taxonomy spec.md §7 names.
type ErrorCode int

const (
	CodeBadMagic ErrorCode = iota
	CodeUnsupportedVersion
	CodeDuplicateChunk
	CodeUnknownChunkType
	CodeDuplicateName
	CodeNotFound
	CodeTypeMismatch
	CodeDecodeUnderflow
	CodeMissingBackendData
	CodeIllegalModification
	CodeInvalidSignatureLayout
	CodeDeviceConstructionFailed
	CodeIoError
)

func (c ErrorCode) String() string {
	switch c {
	case CodeBadMagic:
		return "BadMagic"
	case CodeUnsupportedVersion:
		return "UnsupportedVersion"
	case CodeDuplicateChunk:
		return "DuplicateChunk"
	case CodeUnknownChunkType:
		return "UnknownChunkType"
	case CodeDuplicateName:
		return "DuplicateName"
	case CodeNotFound:
		return "NotFound"
	case CodeTypeMismatch:
		return "TypeMismatch"
	case CodeDecodeUnderflow:
		return "DecodeUnderflow"
	case CodeMissingBackendData:
		return "MissingBackendData"
	case CodeIllegalModification:
		return "IllegalModification"
	case CodeInvalidSignatureLayout:
		return "InvalidSignatureLayout"
	case CodeDeviceConstructionFailed:
		return "DeviceConstructionFailed"
	case CodeIoError:
		return "IoError"
	default:
		return "Unknown"
	}
}

// Error is the error type every archive operation returns a failure
// as. Op names the failing operation, Name the resource involved (if
// any), and Err the underlying cause when there is one (e.g. a
// serial.ErrUnderflow).
type Error struct {
	Code ErrorCode
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("archive: %s: %s %q: %v", e.Op, e.Code, e.Name, e.Err)
	}
	return fmt.Sprintf("archive: %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers write errors.Is(err, archive.ErrNotFound) (and the
// other package-level sentinels below) without caring about Op, Name
// or the wrapped cause — only the ErrorCode must match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinel *Error values for use with errors.Is. Only Code is
// meaningful on these; construction always produces a fresh *Error
// carrying the real Op/Name/Err via newErr.
var (
	ErrBadMagic                = &Error{Code: CodeBadMagic}
	ErrUnsupportedVersion      = &Error{Code: CodeUnsupportedVersion}
	ErrDuplicateChunk          = &Error{Code: CodeDuplicateChunk}
	ErrUnknownChunkType        = &Error{Code: CodeUnknownChunkType}
	ErrDuplicateName           = &Error{Code: CodeDuplicateName}
	ErrNotFound                = &Error{Code: CodeNotFound}
	ErrTypeMismatch            = &Error{Code: CodeTypeMismatch}
	ErrDecodeUnderflow         = &Error{Code: CodeDecodeUnderflow}
	ErrMissingBackendData      = &Error{Code: CodeMissingBackendData}
	ErrIllegalModification     = &Error{Code: CodeIllegalModification}
	ErrInvalidSignatureLayout  = &Error{Code: CodeInvalidSignatureLayout}
	ErrDeviceConstructionFailed = &Error{Code: CodeDeviceConstructionFailed}
	ErrIoError                 = &Error{Code: CodeIoError}
)

func newErr(code ErrorCode, op, name string, err error) *Error {
	if err == nil {
		err = errors.New(code.String())
	}
	return &Error{Code: code, Op: op, Name: name, Err: err}
}

// wrapUnderflow turns a serial decode error into an *Error tagged
// CodeDecodeUnderflow, or CodeIoError for any other cause.
func wrapUnderflow(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, serial.ErrUnderflow) {
		return newErr(CodeDecodeUnderflow, op, name, err)
	}
	return newErr(CodeIoError, op, name, err)
}
