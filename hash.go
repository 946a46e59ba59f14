package plokeio

import "github.com/ploke/ploke-io/internal/tokenhash"

// Hash is an opaque 128-bit content identifier, as returned by a
// [Hasher] and carried on every request and result. See
// [tokenhash.Hash] for its equality contract.
type Hash = tokenhash.Hash

// Hasher turns a namespace, path, and file body into a [Hash]. The
// production hasher that digests a parsed token stream lives outside
// this module; supply it via [PolicyBuilder.WithHasher]. [NewFNVHasher]
// provides a deterministic byte-level reference implementation
// suitable for tests and for callers that have no token-stream hasher
// yet.
type Hasher = tokenhash.Hasher

// NewFNVHasher returns a reference [Hasher] over raw file bytes. It is
// not whitespace/comment insensitive the way the production
// token-stream hasher is expected to be — see [tokenhash.FNV].
func NewFNVHasher() Hasher { return tokenhash.FNV{} }
