// Package mmdberrors defines the stable error-code contract shared by every
// layer of the MMDB reader, and the internal error type that carries it.
package mmdberrors

import "fmt"

// Code is the stable integer error contract. Values match the libmaxminddb
// MMDB_* error codes so that callers porting code from the C API can keep
// the same numeric comparisons.
type Code int

// Error codes, in the order and with the values fixed by the MMDB C API.
const (
	Success Code = iota
	FileOpenError
	CorruptSearchTree
	InvalidMetadata
	IOError
	OutOfMemory
	UnknownDatabaseFormat
	InvalidData
	InvalidLookupPath
	LookupPathDoesNotMatchData
)

var codeNames = [...]string{
	"Success",
	"Error opening the specified file",
	"Error reading the search tree",
	"Error reading the metadata",
	"I/O error",
	"Out of memory",
	"Unsupported MaxMind DB file format",
	"Invalid data section",
	"Invalid lookup path",
	"Lookup path does not match the data structure",
}

// String implements the strerror(code) operation from the public contract.
func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("unknown error code %d", int(c))
	}
	return codeNames[c]
}

// Error is the error type returned by every exported operation. Its Code is
// the stable integer contract; Message carries offset/path detail that is
// only useful for humans and must never be compared across calls.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

// Is lets errors.Is match on Code alone, since Message legitimately differs
// between two errors that represent "the same kind of failure".
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds an *Error with the given code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinel is used for errors.Is matching without caring about message text.
func Sentinel(code Code) *Error {
	return &Error{Code: code}
}

// NewOffsetError reports a read that ran past the end of the data section.
// This is always a corrupt/truncated data section, never a valid program
// state, so it is always InvalidData.
func NewOffsetError() *Error {
	return New(InvalidData, "unexpected end of data section")
}

// NewInvalidDatabaseError reports structural malformation in the data
// section that is not a simple offset overrun.
func NewInvalidDatabaseError(format string, args ...any) *Error {
	return New(InvalidData, format, args...)
}

// NewCorruptSearchTreeError reports malformation in the search tree
// specifically, as distinguished from data-section malformation by
// spec.md's error-locus rule.
func NewCorruptSearchTreeError(format string, args ...any) *Error {
	return New(CorruptSearchTree, format, args...)
}

// NewInvalidMetadataError reports a metadata section that decoded but
// failed structural validation (missing/out-of-range required field).
func NewInvalidMetadataError(format string, args ...any) *Error {
	return New(InvalidMetadata, format, args...)
}

// NewFileOpenError reports a failure to open or map the database file.
func NewFileOpenError(format string, args ...any) *Error {
	return New(FileOpenError, format, args...)
}

// NewIOError reports a failure reading from an already-open file.
func NewIOError(format string, args ...any) *Error {
	return New(IOError, format, args...)
}
