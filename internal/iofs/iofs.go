// Package iofs provides the narrow filesystem abstraction [internal/fileworker]
// operates through, so its read/verify/extract and write/verify/splice
// /durability logic can be exercised against an injectable [FS] instead
// of the real disk.
//
// Adapted from the teacher's pkg/fs: trimmed to the operations
// [internal/fileworker] actually calls (open, read-whole-file, write,
// sync, rename, remove, and opening a directory purely to fsync it),
// plus the Lstat/Readlink pair [internal/pathpolicy] uses. Locking is
// not part of [FS]; it is the optional [Locker] extension that
// [internal/fileworker] uses only when its Durability.AdvisoryLock
// option is set.
package iofs

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File represents an open file descriptor or directory handle.
//
// Satisfied by [*os.File]. Directory handles only ever have [Sync] and
// [Close] called on them (to fsync a directory's entries after a
// rename), never Read/Write.
type File interface {
	io.ReadWriteCloser
	Sync() error
}

// FS defines the filesystem operations [internal/fileworker] needs.
//
// Two implementations are provided: [Real], which is a passthrough to
// [os], and [Chaos], which injects failures at each operation for
// testing the durability and atomicity invariants in spec.md §8.
type FS interface {
	// Open opens path for reading, or opens a directory purely so its
	// file descriptor can be passed to Sync.
	Open(path string) (File, error)

	// OpenFile opens path with the given flags and permissions. Used
	// for the O_WRONLY|O_CREATE|O_EXCL temp-file creation during a
	// durable write.
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads an entire file into memory.
	ReadFile(path string) ([]byte, error)

	// Remove deletes a file. Used to clean up a temp file after a
	// failed write.
	Remove(path string) error

	// Rename atomically replaces newpath with oldpath's contents,
	// reusing newpath's name (and, on POSIX, its existing hard link
	// slot) rather than creating a second link.
	Rename(oldpath, newpath string) error

	// Lstat returns file info without following a final symlink, used
	// by [internal/pathpolicy] to detect symlink components.
	Lstat(path string) (os.FileInfo, error)

	// Readlink returns the target of a symlink.
	Readlink(path string) (string, error)
}

// Real implements [FS] using the real filesystem. All methods are
// direct passthroughs to [os].
type Real struct{}

// NewReal returns a new [Real] filesystem.
func NewReal() *Real { return &Real{} }

func (r *Real) Open(path string) (File, error) { return os.Open(path) }

func (r *Real) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(path, flag, perm)
}

func (r *Real) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (r *Real) Remove(path string) error { return os.Remove(path) }

func (r *Real) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

func (r *Real) Lstat(path string) (os.FileInfo, error) { return os.Lstat(path) }

func (r *Real) Readlink(path string) (string, error) { return os.Readlink(path) }

var _ FS = (*Real)(nil)
var _ File = (*os.File)(nil)

// Locker is an optional extension to [FS]: a filesystem that can take
// an advisory exclusive lock on a path for the duration of a call.
// [internal/fileworker] checks for it with a type assertion and skips
// locking entirely when the underlying FS does not implement it
// (e.g. [Chaos] in tests) — locking is a best-effort addition on top
// of the content-hash verification that already makes concurrent
// writers safe, never a substitute for it.
//
// Adapted from the teacher's `internal/ticket/lock.go` fileLock, which
// used a sibling `.locks/<name>` file opened with O_CREATE|O_EXCL;
// here the lock is taken directly on the target file via flock(2)
// since this package has no ticket-cache mtime to protect.
type Locker interface {
	// Flock takes an advisory exclusive lock on path, blocking until
	// acquired or ctx-independent I/O error. The returned func
	// releases it.
	Flock(path string) (unlock func() error, err error)
}

// Flock implements [Locker] for [Real] using flock(2).
func (r *Real) Flock(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()

		return nil, err
	}

	return func() error {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)

		return f.Close()
	}, nil
}

var _ Locker = (*Real)(nil)
