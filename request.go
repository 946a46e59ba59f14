package plokeio

import "github.com/ploke/ploke-io/internal/iotypes"

// SnippetRequest asks for one byte range of one file, verified against
// ExpectedFileHash before extraction. ID is caller-supplied and
// opaque: it is never interpreted and is not copied into the result;
// the matching result is the one at the same position.
type SnippetRequest = iotypes.SnippetRequest

// ScanRequest asks whether a file's content hash still matches
// ExpectedFileHash, without extracting anything.
type ScanRequest = iotypes.ScanRequest

// WriteRequest asks for one byte range of one file to be replaced with
// Replacement, verified against ExpectedFileHash. StartByte and
// EndByte must fall on UTF-8 character boundaries of the file's
// current body; Replacement must itself be valid UTF-8.
type WriteRequest = iotypes.WriteRequest

// WriteResult is the successful outcome of one [WriteRequest]: the
// file's content hash after the write landed. Every request in a
// write batch that touches the same file receives the same
// NewFileHash, since they land as a single atomic write.
type WriteResult = iotypes.WriteResult

// ChangedFile is the outcome of a [ScanRequest] whose hash no longer
// matches. An unchanged file produces a nil *ChangedFile.
type ChangedFile = iotypes.ChangedFile

// Outcome pairs one request's result with any error. The result slice
// returned by a batch method has the same length and order as the
// request slice submitted; Outcome never carries its own position.
type Outcome[T any] = iotypes.Outcome[T]
