// Package iotypes holds the actor's wire-level data model (spec.md
// §3): requests, results, and the batch message shapes, shared between
// the root package's public facade and every internal/ package that
// processes a batch.
//
// Living in its own internal package lets the root package re-export
// these types as aliases for its public API without internal/actor,
// internal/dispatcher, or internal/fileworker needing to import the
// root package back (which would cycle).
package iotypes

import "github.com/ploke/ploke-io/internal/tokenhash"

// Hash re-exports [tokenhash.Hash] so callers of this package never
// need to import tokenhash directly.
type Hash = tokenhash.Hash

// SnippetRequest asks for one byte range of one file, verified against
// expected_file_hash. ID is caller-supplied and opaque; it is never
// interpreted and is not copied into the result, which is matched to
// its request by position.
type SnippetRequest struct {
	ID                 any
	FilePath           string
	ExpectedFileHash   Hash
	StartByte, EndByte int
	Namespace          string
}

// ScanRequest asks whether a file's content hash still matches
// ExpectedFileHash.
type ScanRequest struct {
	FilePath         string
	ExpectedFileHash Hash
	Namespace        string
}

// WriteRequest asks for one byte range of one file to be replaced with
// Replacement, verified against ExpectedFileHash. StartByte and EndByte
// must fall on UTF-8 character boundaries of the file's current body;
// Replacement must be valid UTF-8.
type WriteRequest struct {
	ID                 any
	FilePath           string
	ExpectedFileHash   Hash
	StartByte, EndByte int
	Replacement        string
	Namespace          string
}

// WriteResult is the successful outcome of one [WriteRequest]: the
// file's content hash after the write landed.
type WriteResult struct {
	ID          any
	NewFileHash Hash
}

// ChangedFile is the outcome of a [ScanRequest] whose hash no longer
// matches — i.e. the file changed. Unchanged files produce a nil
// *ChangedFile, never an empty one.
type ChangedFile struct {
	FilePath     string
	ObservedHash Hash
}

// Outcome pairs a request's result with any error,
// exactly as spec.md §6 describes "Result<T, Error>": the result
// arrays returned by a batch are strictly positional, so Outcome[T]
// never carries a position — the enclosing slice index is the
// position.
type Outcome[T any] struct {
	Value T
	Err   error
}
