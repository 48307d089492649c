// Package dberrors defines the grouped error kinds used across the
// persistence engine, in the spirit of the single typed error the teacher
// repo used for constraint violations, generalized to the kind groups
// spec.md §7 names. Each error carries a Kind and a Code; both are short
// strings (e.g. "WAL" and "wal-full"), not numbers.
package dberrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind groups related error codes the way spec.md §7 lists them.
type Kind string

const (
	KindFile       Kind = "FILE"
	KindWAL        Kind = "WAL"
	KindTable      Kind = "TABLE"
	KindManifest   Kind = "MANIFEST"
	KindSuperblock Kind = "SUPERBLOCK"
	KindClock      Kind = "CLOCK"
)

// Code is a specific error within a Kind.
type Code string

const (
	// FILE
	CodeShortRead Code = "short-read"
	CodeIO        Code = "io-error"

	// WAL
	CodeWALFull      Code = "wal-full"
	CodeLSNNotFound  Code = "lsn-not-found"

	// TABLE
	CodeInvalidKeySize    Code = "invalid-key-size"
	CodeTruncatedID       Code = "truncated-id"
	CodeTruncatedExtents  Code = "truncated-extents"
	CodeManifestFull      Code = "manifest-full"
	CodeNeedsCompaction   Code = "needs-compaction"
	CodeBrokenTableSize   Code = "broken-table-size"
	CodeEntryNotExist     Code = "entry-not-exist"
	CodeInvalidPrefixSize Code = "invalid-prefix-size"

	// MANIFEST
	CodeTooManyEntries Code = "too-many-entries"
	CodeInvalidPageSize Code = "invalid-page-size"
	CodeCountExceedsCap Code = "count-exceeds-cap"
	CodeCorrupt         Code = "corrupt"

	// SUPERBLOCK
	CodeNoValidSuperblocks Code = "no-valid-superblocks"
	CodeNotInitialized     Code = "not-initialized"

	// CLOCK
	CodeCorruptedEpoch   Code = "corrupted-epoch"
	CodeBrokenClockState Code = "broken-clock-state"
)

// Error is the engine-wide error type. Callers switch on Kind()/Code()
// rather than matching error strings.
type Error struct {
	kind  Kind
	code  Code
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s/%s: %v", e.kind, e.code, e.cause)
	}
	return fmt.Sprintf("%s/%s", e.kind, e.code)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error group.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the specific error within the group.
func (e *Error) Code() Code { return e.code }

// New builds a kind/code error with no further cause, stack-annotated via
// pkg/errors so diagnostics carry an origin.
func New(kind Kind, code Code) *Error {
	return &Error{kind: kind, code: code, cause: errors.Errorf("%s/%s", kind, code)}
}

// Wrap builds a kind/code error around an existing cause, adding a stack
// trace the way other pack repos wrap I/O failures.
func Wrap(kind Kind, code Code, cause error) *Error {
	if cause == nil {
		return New(kind, code)
	}
	return &Error{kind: kind, code: code, cause: errors.Wrap(cause, string(code))}
}

// Is reports whether err is a *Error of the given kind and code.
func Is(err error, kind Kind, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.kind == kind && e.code == code
}
