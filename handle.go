package plokeio

import (
	"context"

	"github.com/ploke/ploke-io/internal/actor"
	"github.com/ploke/ploke-io/internal/dispatcher"
	"github.com/ploke/ploke-io/internal/fileworker"
	"github.com/ploke/ploke-io/internal/iofs"
	"github.com/ploke/ploke-io/internal/pathpolicy"
	"github.com/ploke/ploke-io/internal/permitpool"
)

// Handle is the actor's public client, per spec.md §4.5. It is a thin
// wrapper over pointers, safe to copy and share across goroutines: all
// copies of a Handle address the same mailbox, the same permit pool,
// and the same background loop.
//
// Grounded on the teacher's cmd/tk/main.go -> internal/cli.Run
// boundary: construction (here, [PolicyBuilder.Build]) is separate
// from the long-lived loop it starts, and the loop is stopped
// explicitly rather than implicitly on garbage collection.
type Handle struct {
	actor *actor.Actor
	pool  *permitpool.Pool
	stop  context.CancelFunc
}

func newHandle(fs iofs.FS, pool *permitpool.Pool, hasher Hasher, policy *pathpolicy.Policy, durability fileworker.Durability) *Handle {
	d := dispatcher.New(fs, pool, hasher, policy, durability)
	a := actor.New(d)

	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)

	return &Handle{actor: a, pool: pool, stop: cancel}
}

// PermitSource reports which precedence tier chose the effective
// permit count, for diagnostics (spec.md §4.2).
func (h *Handle) PermitSource() permitpool.Source { return h.pool.Source() }

// Permits reports the effective permit count.
func (h *Handle) Permits() int { return h.pool.Size() }

// ReadSnippetsBatch canonicalizes, verifies, and extracts every
// request in reqs. The result slice has the same length and order as
// reqs; a single request's failure never prevents its siblings from
// succeeding, except where spec.md §7 scopes a fault to the whole
// file (e.g. [Utf8Decode], [BatchInconsistent]).
func (h *Handle) ReadSnippetsBatch(ctx context.Context, reqs []SnippetRequest) ([]Outcome[string], error) {
	return h.actor.ReadBatch(ctx, reqs)
}

// ScanChangesBatch checks every request's expected hash against the
// file's current content hash, without extracting anything.
func (h *Handle) ScanChangesBatch(ctx context.Context, reqs []ScanRequest) ([]Outcome[*ChangedFile], error) {
	return h.actor.ScanBatch(ctx, reqs)
}

// WriteSnippetsBatch verifies and applies every request in reqs. All
// writes targeting the same file land as a single atomic splice;
// writes to different files proceed independently and concurrently.
func (h *Handle) WriteSnippetsBatch(ctx context.Context, reqs []WriteRequest) ([]Outcome[WriteResult], error) {
	return h.actor.WriteBatch(ctx, reqs)
}

// Shutdown stops accepting new batches, waits for every
// already-accepted batch to finish, closes the PermitPool so any
// caller still holding a reference to it observes [ioerr.ShuttingDown]
// on the next Acquire, and stops the background loop, per spec.md:120.
// Shutdown is idempotent.
func (h *Handle) Shutdown(ctx context.Context) error {
	err := h.actor.Shutdown(ctx)
	h.stop()

	return err
}
