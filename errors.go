package plokeio

import "github.com/ploke/ploke-io/internal/ioerr"

// Fatal marks a per-request fault caused by the request's own input or
// the filesystem's state (bad path, stale hash, invalid range, I/O
// failure, ...). Test with errors.Is(err, plokeio.Fatal).
var Fatal = ioerr.Fatal

// Internal marks a fault attributable to the actor's own lifecycle
// ([ShuttingDown], [ChannelClosed], [InvalidState]) rather than to
// caller input. Test with errors.Is(err, plokeio.Internal).
var Internal = ioerr.Internal

// Concrete error kinds. Recover their fields with errors.As against
// the pointer type, e.g.:
//
//	var mismatch *plokeio.ContentMismatch
//	if errors.As(err, &mismatch) {
//	    // mismatch.Expected, mismatch.Actual
//	}
type (
	FileOperation          = ioerr.FileOperation
	PermissionDenied       = ioerr.PermissionDenied
	FileNotFound           = ioerr.FileNotFound
	Utf8Decode             = ioerr.Utf8Decode
	Utf8Boundary           = ioerr.Utf8Boundary
	OutOfRange             = ioerr.OutOfRange
	ContentMismatch        = ioerr.ContentMismatch
	PathNotAllowed         = ioerr.PathNotAllowed
	SymlinkPolicyViolation = ioerr.SymlinkPolicyViolation
	Durability             = ioerr.Durability
	BatchInconsistent      = ioerr.BatchInconsistent
	ShuttingDown           = ioerr.ShuttingDown
	ChannelClosed          = ioerr.ChannelClosed
	InvalidState           = ioerr.InvalidState
)
