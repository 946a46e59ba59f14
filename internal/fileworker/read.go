// Package fileworker implements spec.md §4.3: all operations for a
// single canonical path, executed atomically with respect to that
// file — one read/parse/hash serving every snippet request in the
// group, or one atomic write splice with durability.
//
// The durable-write sequence is grounded on the teacher's
// `pkg/fs/atomic_write.go` (`AtomicWriter.Write`): temp file in the
// same directory via O_EXCL retry loop, explicit Sync, Rename, and
// best-effort parent-directory fsync with cleanup-on-failure — here
// generalized from "replace the whole file" to "splice N verified byte
// ranges into the body, highest offset first."
package fileworker

import (
	"context"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/ploke/ploke-io/internal/ioerr"
	"github.com/ploke/ploke-io/internal/iofs"
	"github.com/ploke/ploke-io/internal/iotypes"
	"github.com/ploke/ploke-io/internal/permitpool"
	"github.com/ploke/ploke-io/internal/tokenhash"
)

// Read executes spec.md §4.3's read/extract algorithm for one group of
// [iotypes.SnippetRequest]s that all target the same canonical path.
// The result slice has the same length and order as reqs.
func Read(
	ctx context.Context,
	fs iofs.FS,
	pool *permitpool.Pool,
	hasher tokenhash.Hasher,
	canonicalPath string,
	reqs []iotypes.SnippetRequest,
) []iotypes.Outcome[string] {
	out := make([]iotypes.Outcome[string], len(reqs))

	if err := pool.Acquire(ctx); err != nil {
		return failAll[string](out, err)
	}
	defer pool.Release()

	body, err := fs.ReadFile(canonicalPath)
	if err != nil {
		return failAll[string](out, mapReadErr(canonicalPath, err))
	}

	if !utf8.Valid(body) {
		return failAll[string](out, ioerr.NewUtf8Decode(canonicalPath))
	}

	namespace := reqs[0].Namespace
	for _, r := range reqs {
		if r.Namespace != namespace {
			return failAll[string](out, ioerr.NewBatchInconsistent(canonicalPath, "conflicting namespaces in read group"))
		}
	}

	actual := hasher.Hash(namespace, canonicalPath, body)

	for i, r := range reqs {
		out[i] = extractOne(canonicalPath, body, actual, r)
	}

	return out
}

func extractOne(path string, body []byte, actual tokenhash.Hash, r iotypes.SnippetRequest) iotypes.Outcome[string] {
	if !r.ExpectedFileHash.Equal(actual) {
		return iotypes.Outcome[string]{Err: ioerr.NewContentMismatch(path, r.ExpectedFileHash, actual)}
	}

	if err := checkRange(path, r.StartByte, r.EndByte, len(body)); err != nil {
		return iotypes.Outcome[string]{Err: err}
	}

	if err := checkBoundary(path, body, r.StartByte, r.EndByte); err != nil {
		return iotypes.Outcome[string]{Err: err}
	}

	return iotypes.Outcome[string]{Value: string(body[r.StartByte:r.EndByte])}
}

// Scan executes spec.md §4.3's verification step without extraction,
// for a group of [iotypes.ScanRequest]s targeting the same canonical
// path. Position i of the result is nil iff the file's hash still
// matches ScanRequest[i].ExpectedFileHash.
func Scan(
	ctx context.Context,
	fs iofs.FS,
	pool *permitpool.Pool,
	hasher tokenhash.Hasher,
	canonicalPath string,
	reqs []iotypes.ScanRequest,
) []iotypes.Outcome[*iotypes.ChangedFile] {
	out := make([]iotypes.Outcome[*iotypes.ChangedFile], len(reqs))

	if err := pool.Acquire(ctx); err != nil {
		return failAll[*iotypes.ChangedFile](out, err)
	}
	defer pool.Release()

	body, err := fs.ReadFile(canonicalPath)
	if err != nil {
		return failAll[*iotypes.ChangedFile](out, mapReadErr(canonicalPath, err))
	}

	if !utf8.Valid(body) {
		return failAll[*iotypes.ChangedFile](out, ioerr.NewUtf8Decode(canonicalPath))
	}

	namespace := reqs[0].Namespace
	for _, r := range reqs {
		if r.Namespace != namespace {
			return failAll[*iotypes.ChangedFile](out, ioerr.NewBatchInconsistent(canonicalPath, "conflicting namespaces in scan group"))
		}
	}

	actual := hasher.Hash(namespace, canonicalPath, body)

	for i, r := range reqs {
		if r.ExpectedFileHash.Equal(actual) {
			out[i] = iotypes.Outcome[*iotypes.ChangedFile]{Value: nil}

			continue
		}

		out[i] = iotypes.Outcome[*iotypes.ChangedFile]{
			Value: &iotypes.ChangedFile{FilePath: canonicalPath, ObservedHash: actual},
		}
	}

	return out
}

func checkRange(path string, start, end, length int) error {
	if start > end || end > length || start < 0 {
		return ioerr.NewOutOfRange(path, start, end, length)
	}

	return nil
}

func checkBoundary(path string, body []byte, start, end int) error {
	if !isBoundary(body, start) {
		return ioerr.NewUtf8Boundary(path, start)
	}

	if !isBoundary(body, end) {
		return ioerr.NewUtf8Boundary(path, end)
	}

	return nil
}

// isBoundary reports whether i is a valid UTF-8 character boundary in
// body: the start, the end, or the first byte of a rune.
func isBoundary(body []byte, i int) bool {
	if i == 0 || i == len(body) {
		return true
	}

	if i < 0 || i > len(body) {
		return false
	}

	return utf8.RuneStart(body[i])
}

func mapReadErr(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return ioerr.NewFileNotFound(path, err)
	case os.IsPermission(err):
		return ioerr.NewPermissionDenied(path, err)
	default:
		return ioerr.NewFileOperation("read", path, err)
	}
}

func failAll[T any](out []iotypes.Outcome[T], err error) []iotypes.Outcome[T] {
	for i := range out {
		out[i] = iotypes.Outcome[T]{Err: err}
	}

	return out
}

// sortDescendingByStart is used by Write to splice writes highest
// offset first; kept here so read.go and write.go share one
// implementation of the ordering rule spec.md §4.3 step 6 requires.
func sortDescendingByStart(writes []iotypes.WriteRequest) []iotypes.WriteRequest {
	out := append([]iotypes.WriteRequest(nil), writes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartByte > out[j].StartByte })

	return out
}
