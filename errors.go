package mmdb

import "github.com/coredb/mmdb/internal/mmdberrors"

// ErrorCode is the stable integer error contract from the MMDB C API.
// Numeric values are part of the public contract and must not change.
type ErrorCode = mmdberrors.Code

// Error codes, matching libmaxminddb's MMDB_* constants.
const (
	Success                    = mmdberrors.Success
	FileOpenError              = mmdberrors.FileOpenError
	CorruptSearchTree          = mmdberrors.CorruptSearchTree
	InvalidMetadata            = mmdberrors.InvalidMetadata
	IOError                    = mmdberrors.IOError
	OutOfMemory                = mmdberrors.OutOfMemory
	UnknownDatabaseFormat      = mmdberrors.UnknownDatabaseFormat
	InvalidData                = mmdberrors.InvalidData
	InvalidLookupPath          = mmdberrors.InvalidLookupPath
	LookupPathDoesNotMatchData = mmdberrors.LookupPathDoesNotMatchData
)

// Error is returned by every exported operation that can fail for a
// database-format reason. Two Errors with the same Code compare equal under
// errors.Is regardless of Message, since Message carries offsets and other
// detail that legitimately differs between occurrences of "the same kind of
// failure".
type Error = mmdberrors.Error

// Strerror returns a human-readable description of code, mirroring the C
// API's strerror(code) operation.
func Strerror(code ErrorCode) string {
	return code.String()
}

func invalidMetadataErrf(format string, args ...any) error {
	return mmdberrors.NewInvalidMetadataError(format, args...)
}

func invalidDataErrf(format string, args ...any) error {
	return mmdberrors.NewInvalidDatabaseError(format, args...)
}

func invalidFileOpenErrf(format string, args ...any) error {
	return mmdberrors.NewFileOpenError(format, args...)
}

// Sentinel errors usable with errors.Is. Success, FileOpenError, IOError and
// OutOfMemory have no sentinel here.
var (
	ErrCorruptSearchTree          = mmdberrors.Sentinel(CorruptSearchTree)
	ErrInvalidMetadata            = mmdberrors.Sentinel(InvalidMetadata)
	ErrUnknownDatabaseFormat      = mmdberrors.Sentinel(UnknownDatabaseFormat)
	ErrInvalidData                = mmdberrors.Sentinel(InvalidData)
	ErrInvalidLookupPath          = mmdberrors.Sentinel(InvalidLookupPath)
	ErrLookupPathDoesNotMatchData = mmdberrors.Sentinel(LookupPathDoesNotMatchData)
)
