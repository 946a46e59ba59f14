package fileworker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unicode/utf8"

	"github.com/ploke/ploke-io/internal/ioerr"
	"github.com/ploke/ploke-io/internal/iofs"
	"github.com/ploke/ploke-io/internal/iotypes"
	"github.com/ploke/ploke-io/internal/permitpool"
	"github.com/ploke/ploke-io/internal/tokenhash"
)

// Durability configures the write-stage temp+fsync+rename sequence,
// per spec.md §6's Policy.durability.
type Durability struct {
	// FsyncParent controls whether the parent directory is fsynced
	// after rename. Default true on Unix-like systems.
	FsyncParent bool

	// AdvisoryLock enables a best-effort flock(2) on the target path
	// for the duration of the write, per spec.md §9 Open Question #2.
	// Disabled by default: the content-hash verification already
	// rejects a write against a file another writer changed
	// concurrently, so this only narrows the race window further when
	// the underlying [iofs.FS] supports it ([iofs.Locker]).
	AdvisoryLock bool

	// FilePerm is the permission bits used for the temp file that
	// replaces canonicalPath on a successful rename. Zero means 0o644.
	FilePerm os.FileMode
}

// DefaultDurability returns the spec's default durability settings.
func DefaultDurability() Durability { return Durability{FsyncParent: true, FilePerm: 0o644} }

func (d Durability) filePerm() os.FileMode {
	if d.FilePerm == 0 {
		return 0o644
	}

	return d.FilePerm
}

// Write executes spec.md §4.3's write algorithm for one or more
// [iotypes.WriteRequest]s targeting the same canonical path. All
// writes in the group succeed or fail together: on any validation or
// durability failure, every position in the result carries the same
// error and no bytes are changed on disk.
func Write(
	ctx context.Context,
	fsys iofs.FS,
	pool *permitpool.Pool,
	hasher tokenhash.Hasher,
	canonicalPath string,
	reqs []iotypes.WriteRequest,
	durability Durability,
) []iotypes.Outcome[iotypes.WriteResult] {
	out := make([]iotypes.Outcome[iotypes.WriteResult], len(reqs))

	if err := pool.Acquire(ctx); err != nil {
		return failAll[iotypes.WriteResult](out, err)
	}
	defer pool.Release()

	if durability.AdvisoryLock {
		if locker, ok := fsys.(iofs.Locker); ok {
			unlock, err := locker.Flock(canonicalPath)
			if err == nil {
				defer func() { _ = unlock() }()
			}
		}
	}

	body, err := fsys.ReadFile(canonicalPath)
	if err != nil {
		return failAll[iotypes.WriteResult](out, mapReadErr(canonicalPath, err))
	}

	if !utf8.Valid(body) {
		return failAll[iotypes.WriteResult](out, ioerr.NewUtf8Decode(canonicalPath))
	}

	namespace := reqs[0].Namespace
	for _, r := range reqs {
		if r.Namespace != namespace {
			return failAll[iotypes.WriteResult](out, ioerr.NewBatchInconsistent(canonicalPath, "conflicting namespaces in write group"))
		}
	}

	actual := hasher.Hash(namespace, canonicalPath, body)

	for _, r := range reqs {
		if !r.ExpectedFileHash.Equal(actual) {
			return failAll[iotypes.WriteResult](out, ioerr.NewContentMismatch(canonicalPath, r.ExpectedFileHash, actual))
		}
	}

	if err := validateWrites(canonicalPath, body, reqs); err != nil {
		return failAll[iotypes.WriteResult](out, err)
	}

	newBody := splice(body, sortDescendingByStart(reqs))

	if !utf8.Valid(newBody) {
		return failAll[iotypes.WriteResult](out, ioerr.NewInvalidState("spliced write body is not valid UTF-8"))
	}

	newHash := hasher.Hash(namespace, canonicalPath, newBody)

	if err := durableWrite(fsys, canonicalPath, newBody, durability); err != nil {
		return failAll[iotypes.WriteResult](out, err)
	}

	for i, r := range reqs {
		out[i] = iotypes.Outcome[iotypes.WriteResult]{Value: iotypes.WriteResult{ID: r.ID, NewFileHash: newHash}}
	}

	return out
}

// validateWrites checks every request's range is well-formed and
// UTF-8 aligned, and that ranges are pairwise non-overlapping. On the
// first offending request (in input order), returns that request's
// error; range/boundary problems are checked before the cross-request
// overlap pass.
func validateWrites(path string, body []byte, reqs []iotypes.WriteRequest) error {
	for _, r := range reqs {
		if err := checkRange(path, r.StartByte, r.EndByte, len(body)); err != nil {
			return err
		}

		if err := checkBoundary(path, body, r.StartByte, r.EndByte); err != nil {
			return err
		}
	}

	for i := range reqs {
		for j := i + 1; j < len(reqs); j++ {
			if overlaps(reqs[i], reqs[j]) {
				return ioerr.NewBatchInconsistent(path, fmt.Sprintf(
					"overlapping write ranges [%d,%d) and [%d,%d)",
					reqs[i].StartByte, reqs[i].EndByte, reqs[j].StartByte, reqs[j].EndByte,
				))
			}
		}
	}

	return nil
}

func overlaps(a, b iotypes.WriteRequest) bool {
	return a.StartByte < b.EndByte && b.StartByte < a.EndByte
}

// splice applies writes (already sorted descending by StartByte) to
// body, highest offset first, so earlier offsets remain valid
// reference points into the not-yet-modified prefix.
func splice(body []byte, writes []iotypes.WriteRequest) []byte {
	result := body

	for _, w := range writes {
		replacement := []byte(w.Replacement)
		out := make([]byte, 0, len(result)-(w.EndByte-w.StartByte)+len(replacement))
		out = append(out, result[:w.StartByte]...)
		out = append(out, replacement...)
		out = append(out, result[w.EndByte:]...)
		result = out
	}

	return result
}

const atomicWriteMaxAttempts = 10000

var atomicWriteCounter atomic.Uint64

// durableWrite writes newBody to canonicalPath via temp-file +
// fsync + rename (+ best-effort parent directory fsync), never
// touching canonicalPath itself until rename succeeds.
//
// Adapted from the teacher's pkg/fs/atomic_write.go: same O_EXCL
// retry loop for the temp name, same Sync-then-Rename-then-dirsync
// sequence, same "delete the temp file on any failure, never the
// target" cleanup discipline.
func durableWrite(fsys iofs.FS, canonicalPath string, newBody []byte, durability Durability) error {
	dir := filepath.Dir(canonicalPath)
	base := filepath.Base(canonicalPath)

	tmpFile, tmpPath, err := createTempFile(fsys, dir, base, durability.filePerm())
	if err != nil {
		return ioerr.NewDurability("tempfile", canonicalPath, err)
	}

	cleanup := func() {
		_ = tmpFile.Close()
		_ = fsys.Remove(tmpPath)
	}

	if _, err := tmpFile.Write(newBody); err != nil {
		cleanup()

		return ioerr.NewDurability("write", canonicalPath, err)
	}

	if err := tmpFile.Sync(); err != nil {
		cleanup()

		return ioerr.NewDurability("fsync", canonicalPath, err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = fsys.Remove(tmpPath)

		return ioerr.NewDurability("fsync", canonicalPath, err)
	}

	if err := fsys.Rename(tmpPath, canonicalPath); err != nil {
		_ = fsys.Remove(tmpPath)

		return ioerr.NewDurability("rename", canonicalPath, err)
	}

	if durability.FsyncParent {
		// Best-effort: the rename has already replaced the target, so
		// a directory fsync failure is not reported as a failed write.
		_ = fsyncDir(fsys, dir)
	}

	return nil
}

func createTempFile(fsys iofs.FS, dir, base string, perm os.FileMode) (iofs.File, string, error) {
	for range atomicWriteMaxAttempts {
		seq := atomicWriteCounter.Add(1)
		path := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d", base, seq))

		file, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if err == nil {
			return file, path, nil
		}

		if os.IsExist(err) {
			continue
		}

		return nil, "", fmt.Errorf("create temp file: %w", err)
	}

	return nil, "", fmt.Errorf("exhausted temp file attempts in %q", dir)
}

func fsyncDir(fsys iofs.FS, dir string) error {
	dirFile, err := fsys.Open(dir)
	if err != nil {
		return err
	}
	defer dirFile.Close()

	return dirFile.Sync()
}
