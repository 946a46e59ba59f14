// Package actor implements spec.md §4.5: a single-threaded mailbox
// loop that serializes the acceptance of batches (so two overlapping
// write batches to the same file are never dispatched concurrently
// against each other) while letting [internal/dispatcher] fan each
// accepted batch out in parallel across files.
//
// Grounded on the teacher's `seed-bench.go` worker-channel idiom
// (`for range ticketsChan`-driven goroutine), turned from a fixed
// worker pool into one goroutine draining a single mailbox channel of
// typed messages, each carrying its own reply channel.
package actor

import (
	"context"
	"sync"

	"github.com/ploke/ploke-io/internal/dispatcher"
	"github.com/ploke/ploke-io/internal/ioerr"
	"github.com/ploke/ploke-io/internal/iotypes"
)

// message is the mailbox's internal envelope type. Every concrete
// message carries the reply channel its sender blocks on.
type message interface{ handle(ctx context.Context, d *dispatcher.Dispatcher) }

type readMsg struct {
	reqs  []iotypes.SnippetRequest
	reply chan []iotypes.Outcome[string]
}

func (m readMsg) handle(ctx context.Context, d *dispatcher.Dispatcher) {
	m.reply <- d.ReadBatch(ctx, m.reqs)
}

type scanMsg struct {
	reqs  []iotypes.ScanRequest
	reply chan []iotypes.Outcome[*iotypes.ChangedFile]
}

func (m scanMsg) handle(ctx context.Context, d *dispatcher.Dispatcher) {
	m.reply <- d.ScanBatch(ctx, m.reqs)
}

type writeMsg struct {
	reqs  []iotypes.WriteRequest
	reply chan []iotypes.Outcome[iotypes.WriteResult]
}

func (m writeMsg) handle(ctx context.Context, d *dispatcher.Dispatcher) {
	m.reply <- d.WriteBatch(ctx, m.reqs)
}

type shutdownMsg struct {
	done chan struct{}
}

func (m shutdownMsg) handle(_ context.Context, _ *dispatcher.Dispatcher) {
	close(m.done)
}

// Actor owns the mailbox loop. Callers never touch the mailbox
// directly; they call [Actor.ReadBatch], [Actor.ScanBatch],
// [Actor.WriteBatch], or [Actor.Shutdown].
type Actor struct {
	dispatcher *dispatcher.Dispatcher
	mailbox    chan message

	closeOnce sync.Once
	closed    chan struct{}
	stopped   chan struct{}
}

// New builds an Actor around d. Run must be started in its own
// goroutine before any batch method is called.
func New(d *dispatcher.Dispatcher) *Actor {
	return &Actor{
		dispatcher: d,
		mailbox:    make(chan message),
		closed:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run drains the mailbox until ctx is canceled or [Actor.Shutdown] is
// received, handling exactly one message at a time. Each message's
// handle call may itself fan out across files via [dispatcher.Dispatcher],
// so single-threaded acceptance does not mean single-threaded I/O.
//
// Because the mailbox is drained strictly in order, every message
// accepted before a shutdownMsg has already returned from its
// dispatcher fan-out by the time that shutdownMsg is handled. Run's
// deferred close of the Dispatcher's PermitPool therefore always runs
// after the last in-flight dispatcher task completes, matching
// spec.md:120's ordered shutdown.
func (a *Actor) Run(ctx context.Context) {
	defer func() {
		a.dispatcher.Close()
		close(a.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.mailbox:
			msg.handle(ctx, a.dispatcher)

			if _, isShutdown := msg.(shutdownMsg); isShutdown {
				return
			}
		}
	}
}

// send delivers msg to the mailbox, failing fast with
// [ioerr.ShuttingDown] if the actor is already closed, and respecting
// ctx cancellation while waiting for the mailbox to accept it.
func (a *Actor) send(ctx context.Context, msg message) error {
	select {
	case <-a.closed:
		return ioerr.NewShuttingDown()
	default:
	}

	select {
	case a.mailbox <- msg:
		return nil
	case <-a.closed:
		return ioerr.NewShuttingDown()
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stopped:
		return ioerr.NewShuttingDown()
	}
}

// ReadBatch submits reqs and blocks for the single reply covering the
// whole batch, positional and ordered per spec.md §4.5.
func (a *Actor) ReadBatch(ctx context.Context, reqs []iotypes.SnippetRequest) ([]iotypes.Outcome[string], error) {
	reply := make(chan []iotypes.Outcome[string], 1)

	if err := a.send(ctx, readMsg{reqs: reqs, reply: reply}); err != nil {
		return nil, err
	}

	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ScanBatch submits reqs and blocks for the single reply.
func (a *Actor) ScanBatch(ctx context.Context, reqs []iotypes.ScanRequest) ([]iotypes.Outcome[*iotypes.ChangedFile], error) {
	reply := make(chan []iotypes.Outcome[*iotypes.ChangedFile], 1)

	if err := a.send(ctx, scanMsg{reqs: reqs, reply: reply}); err != nil {
		return nil, err
	}

	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteBatch submits reqs and blocks for the single reply.
func (a *Actor) WriteBatch(ctx context.Context, reqs []iotypes.WriteRequest) ([]iotypes.Outcome[iotypes.WriteResult], error) {
	reply := make(chan []iotypes.Outcome[iotypes.WriteResult], 1)

	if err := a.send(ctx, writeMsg{reqs: reqs, reply: reply}); err != nil {
		return nil, err
	}

	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown marks the actor closed to new submissions, then waits for
// the mailbox loop to process every message already accepted before
// this call and exit. Shutdown is idempotent; a second call observes
// the same closed state and returns immediately once the loop has
// stopped.
func (a *Actor) Shutdown(ctx context.Context) error {
	a.closeOnce.Do(func() { close(a.closed) })

	done := make(chan struct{})

	select {
	case a.mailbox <- shutdownMsg{done: done}:
	case <-a.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Wait for Run to exit: its deferred Dispatcher.Close runs before
	// stopped is closed, so the PermitPool is closed when this returns.
	select {
	case <-a.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
