// Package plokeio implements an asynchronous file-I/O actor for a
// code-indexing pipeline: a single long-lived [Handle] accepts batches
// of snippet reads, change scans, and range writes against a set of
// configured roots, verifies every access against a content hash
// before touching bytes, and applies writes durably (temp file, fsync,
// rename).
//
// Construct a [Handle] with [NewPolicyBuilder], submit batches with
// [Handle.ReadSnippetsBatch], [Handle.ScanChangesBatch], and
// [Handle.WriteSnippetsBatch], and release it with [Handle.Shutdown]
// once the pipeline is done with it.
package plokeio
