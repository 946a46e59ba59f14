// Package permitpool implements spec.md §4.2: a bounded semaphore that
// caps concurrent open files, sized by the first matching source in
// builder > env > heuristic > default precedence.
//
// Grounded on the teacher's `cmd/tk-seed/main.go` / `seed-bench.go`
// worker-pool shape (a buffered channel sized to the desired
// concurrency, drained by goroutines), turned into a pure
// acquire/release semaphore instead of a fixed worker pool, and on
// `internal/ticket/lock.go`'s low-level `golang.org/x/sys` usage for
// reading the process's soft NOFILE limit.
package permitpool

import (
	"context"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/ploke/ploke-io/internal/ioerr"
)

// EnvVar is the environment variable consulted for an explicit permit
// count, per spec.md §6.
const EnvVar = "PLOKE_IO_FD_LIMIT"

const (
	minBuilderPermits = 1
	maxBuilderPermits = 4096

	minEnvPermits = 4
	maxEnvPermits = 1024

	heuristicCap     = 100
	heuristicDivisor = 3

	defaultPermits = 50
)

// Source identifies which precedence tier decided the effective permit
// count, recorded for diagnostics (spec.md §4.2: "Record the chosen
// source for diagnostics").
type Source string

const (
	SourceBuilder   Source = "builder"
	SourceEnv       Source = "env"
	SourceHeuristic Source = "heuristic"
	SourceDefault   Source = "default"
)

// Resolve computes the effective permit count and its source, following
// builder > env > heuristic > default precedence.
//
//   - builderValue > 0: clamped to [1, 4096].
//   - else, if consultEnv and env[EnvVar] parses as an integer: clamped
//     to [4, 1024].
//   - else: min(100, soft NOFILE / 3).
//   - else (soft NOFILE unavailable): 50.
func Resolve(builderValue int, consultEnv bool, env map[string]string) (int, Source) {
	if builderValue > 0 {
		return clamp(builderValue, minBuilderPermits, maxBuilderPermits), SourceBuilder
	}

	if consultEnv {
		if raw, ok := env[EnvVar]; ok {
			if n, err := strconv.Atoi(raw); err == nil {
				return clamp(n, minEnvPermits, maxEnvPermits), SourceEnv
			}
		}
	}

	if soft, ok := softNoFile(); ok {
		return min(heuristicCap, soft/heuristicDivisor), SourceHeuristic
	}

	return defaultPermits, SourceDefault
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}

	if n > hi {
		return hi
	}

	return n
}

// softNoFile reads the process's soft RLIMIT_NOFILE.
func softNoFile() (int, bool) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return 0, false
	}

	if limit.Cur <= 0 {
		return 0, false
	}

	return int(limit.Cur), true
}

// EnvFromOS snapshots the subset of os.Environ() permitpool reads, so
// construction only touches the real environment once, per spec.md §5
// ("std::env reads happen only at construction").
func EnvFromOS() map[string]string {
	if v, ok := os.LookupEnv(EnvVar); ok {
		return map[string]string{EnvVar: v}
	}

	return nil
}

// Pool is a bounded semaphore: acquiring a permit is required for any
// operation that opens a file handle.
type Pool struct {
	sem    chan struct{}
	n      int
	source Source
	closed chan struct{}
}

// New creates a Pool with n permits and records source for
// diagnostics.
func New(n int, source Source) *Pool {
	return &Pool{
		sem:    make(chan struct{}, n),
		n:      n,
		source: source,
		closed: make(chan struct{}),
	}
}

// Size returns the effective permit count.
func (p *Pool) Size() int { return p.n }

// Source returns which precedence tier chose Size.
func (p *Pool) Source() Source { return p.source }

// Acquire blocks until a permit is available, ctx is canceled, or the
// pool is closed. Every successful Acquire must be paired with a
// Release.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case <-p.closed:
		return ioerr.NewShuttingDown()
	default:
	}

	select {
	case p.sem <- struct{}{}:
		return nil
	case <-p.closed:
		return ioerr.NewShuttingDown()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit acquired with Acquire.
func (p *Pool) Release() {
	select {
	case <-p.sem:
	default:
		panic("permitpool: Release called without a matching Acquire")
	}
}

// Close marks the pool as shut down: pending and future Acquire calls
// fail with [ioerr.ShuttingDown]. Close is idempotent.
func (p *Pool) Close() {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
}
