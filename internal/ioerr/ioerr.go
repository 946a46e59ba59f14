// Package ioerr implements the actor's error taxonomy: every fault the
// actor can produce is a value, never a panic, and every value belongs
// to exactly one of two externally visible classes, [Fatal] or
// [Internal]. Callers compare against the class with [errors.Is] and
// recover structured fields with [errors.As] on the concrete kind.
package ioerr

import (
	"errors"
	"fmt"

	"github.com/ploke/ploke-io/internal/tokenhash"
)

// Fatal marks a per-request fault caused by the request's own input or
// the state of the filesystem (bad path, stale hash, invalid range,
// I/O failure, ...). Fatal errors are recovered locally and placed in a
// batch's result array; they never abort sibling requests in the same
// batch unless the fault is whole-file scoped (see spec.md §7).
var Fatal = errors.New("ploke-io: fatal")

// Internal marks a fault attributable to the actor's own lifecycle or a
// contract violation, not to caller input: [ShuttingDown],
// [ChannelClosed], [InvalidState].
var Internal = errors.New("ploke-io: internal")

// kind is embedded by every concrete error type to provide Unwrap and
// Is against the right class sentinel without repeating both methods
// on every struct.
type kind struct {
	class error
	cause error
}

func (k kind) Unwrap() error { return k.cause }

func (k kind) Is(target error) bool { return target == k.class } //nolint:errorlint // sentinel identity check by design

func fatal(cause error) kind    { return kind{class: Fatal, cause: cause} }
func internal(cause error) kind { return kind{class: Internal, cause: cause} }

// FileOperation reports a raw I/O failure from an open/read/write/fsync
// /rename/unlink/lstat/readlink syscall.
type FileOperation struct {
	kind
	Op   string // "open", "read", "write", "fsync", "rename", "unlink", "lstat", "readlink"
	Path string
}

func NewFileOperation(op, path string, cause error) *FileOperation {
	return &FileOperation{kind: fatal(cause), Op: op, Path: path}
}

func (e *FileOperation) Error() string {
	return fmt.Sprintf("ploke-io: %s %q: %v", e.Op, e.Path, e.cause)
}

// PermissionDenied reports that the OS refused access to path.
type PermissionDenied struct {
	kind
	Path string
}

func NewPermissionDenied(path string, cause error) *PermissionDenied {
	return &PermissionDenied{kind: fatal(cause), Path: path}
}

func (e *PermissionDenied) Error() string {
	return fmt.Sprintf("ploke-io: permission denied: %q", e.Path)
}

// FileNotFound reports that path does not exist.
type FileNotFound struct {
	kind
	Path string
}

func NewFileNotFound(path string, cause error) *FileNotFound {
	return &FileNotFound{kind: fatal(cause), Path: path}
}

func (e *FileNotFound) Error() string {
	return fmt.Sprintf("ploke-io: file not found: %q", e.Path)
}

// Utf8Decode reports that a file's bytes are not valid UTF-8.
type Utf8Decode struct {
	kind
	Path string
}

func NewUtf8Decode(path string) *Utf8Decode {
	return &Utf8Decode{kind: fatal(nil), Path: path}
}

func (e *Utf8Decode) Error() string {
	return fmt.Sprintf("ploke-io: %q is not valid UTF-8", e.Path)
}

// Utf8Boundary reports that a byte offset does not fall on a UTF-8
// character boundary.
type Utf8Boundary struct {
	kind
	Path   string
	Offset int
}

func NewUtf8Boundary(path string, offset int) *Utf8Boundary {
	return &Utf8Boundary{kind: fatal(nil), Path: path, Offset: offset}
}

func (e *Utf8Boundary) Error() string {
	return fmt.Sprintf("ploke-io: %q: offset %d is not a UTF-8 character boundary", e.Path, e.Offset)
}

// OutOfRange reports a byte range that is malformed or exceeds the
// file's length.
type OutOfRange struct {
	kind
	Path       string
	Start, End int
	Len        int
}

func NewOutOfRange(path string, start, end, length int) *OutOfRange {
	return &OutOfRange{kind: fatal(nil), Path: path, Start: start, End: end, Len: length}
}

func (e *OutOfRange) Error() string {
	return fmt.Sprintf("ploke-io: %q: range [%d,%d) out of bounds for length %d", e.Path, e.Start, e.End, e.Len)
}

// ContentMismatch reports that a request's expected_file_hash disagrees
// with the file's current content hash.
type ContentMismatch struct {
	kind
	Path             string
	Expected, Actual tokenhash.Hash
}

func NewContentMismatch(path string, expected, actual tokenhash.Hash) *ContentMismatch {
	return &ContentMismatch{kind: fatal(nil), Path: path, Expected: expected, Actual: actual}
}

func (e *ContentMismatch) Error() string {
	return fmt.Sprintf("ploke-io: %q: content changed: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// PathNotAllowed reports that a path's canonical form falls outside
// every configured root for the requested operation.
type PathNotAllowed struct {
	kind
	Path string
}

func NewPathNotAllowed(path string) *PathNotAllowed {
	return &PathNotAllowed{kind: fatal(nil), Path: path}
}

func (e *PathNotAllowed) Error() string {
	return fmt.Sprintf("ploke-io: %q is outside configured roots", e.Path)
}

// SymlinkPolicyViolation reports that a symlink component violated the
// configured [spec.md §4.1] symlink policy.
type SymlinkPolicyViolation struct {
	kind
	Path string
}

func NewSymlinkPolicyViolation(path string) *SymlinkPolicyViolation {
	return &SymlinkPolicyViolation{kind: fatal(nil), Path: path}
}

func (e *SymlinkPolicyViolation) Error() string {
	return fmt.Sprintf("ploke-io: %q violates the symlink policy", e.Path)
}

// Durability reports a write-stage integrity fault: the temp file,
// fsync, or rename step of a durable write failed.
type Durability struct {
	kind
	Op   string // "tempfile", "write", "fsync", "rename"
	Path string
}

func NewDurability(op, path string, cause error) *Durability {
	return &Durability{kind: fatal(cause), Op: op, Path: path}
}

func (e *Durability) Error() string {
	return fmt.Sprintf("ploke-io: durability failure during %s of %q: %v", e.Op, e.Path, e.cause)
}

// BatchInconsistent reports conflicting namespaces within a read group,
// or overlapping write ranges within a write group for the same file.
type BatchInconsistent struct {
	kind
	Path   string
	Reason string
}

func NewBatchInconsistent(path, reason string) *BatchInconsistent {
	return &BatchInconsistent{kind: fatal(nil), Path: path, Reason: reason}
}

func (e *BatchInconsistent) Error() string {
	return fmt.Sprintf("ploke-io: %q: batch inconsistent: %s", e.Path, e.Reason)
}

// ShuttingDown reports that the actor has begun or completed shutdown.
type ShuttingDown struct{ kind }

func NewShuttingDown() *ShuttingDown { return &ShuttingDown{kind: internal(nil)} }

func (e *ShuttingDown) Error() string { return "ploke-io: actor is shutting down" }

// ChannelClosed reports that a reply channel was dropped before a
// result could be delivered.
type ChannelClosed struct{ kind }

func NewChannelClosed() *ChannelClosed { return &ChannelClosed{kind: internal(nil)} }

func (e *ChannelClosed) Error() string { return "ploke-io: reply channel closed" }

// InvalidState reports a contract violation not attributable to caller
// input (a bug in the actor itself).
type InvalidState struct {
	kind
	Detail string
}

func NewInvalidState(detail string) *InvalidState {
	return &InvalidState{kind: internal(nil), Detail: detail}
}

func (e *InvalidState) Error() string {
	return fmt.Sprintf("ploke-io: invalid internal state: %s", e.Detail)
}
