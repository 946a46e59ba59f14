package plokeio

import (
	"github.com/ploke/ploke-io/internal/fileworker"
	"github.com/ploke/ploke-io/internal/iofs"
	"github.com/ploke/ploke-io/internal/pathpolicy"
	"github.com/ploke/ploke-io/internal/permitpool"
)

// Symlink controls how a configured root's symlink components are
// treated while canonicalizing a request path.
type Symlink = pathpolicy.Symlink

const (
	// SymlinkDeny fails any path containing a symlink component.
	SymlinkDeny = pathpolicy.Deny

	// SymlinkDenyCrossRoot allows a symlink only if its resolved
	// target remains within the same root that contains the symlink
	// itself. This is the default.
	SymlinkDenyCrossRoot = pathpolicy.DenyCrossRoot

	// SymlinkAllow permits any symlink whose fully resolved target
	// lands within an allowed root, even a different one than the
	// symlink itself.
	SymlinkAllow = pathpolicy.Allow
)

// PolicyBuilder builds a [Handle] from the enumerated configuration
// options of spec.md §6: permits, fd_limit_env, roots_read,
// roots_write, symlink, durability.fsync_parent. The zero value is not
// usable; construct one with [NewPolicyBuilder].
//
// Grounded on the teacher's internal/ticket.LoadConfig: explicit
// fields plus an Env injection point instead of reading os.Environ()
// directly, so permit-limit resolution stays testable without
// mutating the real process environment.
type PolicyBuilder struct {
	permits      int
	consultEnv   bool
	readRoots    []string
	writeRoots   []string
	symlink      Symlink
	fsyncParent  bool
	advisoryLock bool
	hasher       Hasher
	fs           iofs.FS
	env          map[string]string
}

// NewPolicyBuilder returns a [PolicyBuilder] with the spec's defaults:
// fd_limit_env consulted, DenyCrossRoot symlink policy,
// fsync_parent true, the real filesystem, the real OS environment, and
// [NewFNVHasher] as a placeholder for the external token-stream
// hasher (override with [PolicyBuilder.WithHasher]).
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{
		consultEnv:  true,
		symlink:     SymlinkDenyCrossRoot,
		fsyncParent: true,
		hasher:      NewFNVHasher(),
		fs:          iofs.NewReal(),
		env:         permitpool.EnvFromOS(),
	}
}

// WithPermits sets an explicit permit count (clamped 1..=4096),
// taking precedence over fd_limit_env and every other source.
func (b *PolicyBuilder) WithPermits(n int) *PolicyBuilder {
	b.permits = n

	return b
}

// WithFDLimitEnv controls whether PLOKE_IO_FD_LIMIT is consulted when
// no explicit permit count is set. Defaults to true.
func (b *PolicyBuilder) WithFDLimitEnv(consult bool) *PolicyBuilder {
	b.consultEnv = consult

	return b
}

// WithReadRoots sets the absolute-path roots allowed for reads and
// scans.
func (b *PolicyBuilder) WithReadRoots(roots ...string) *PolicyBuilder {
	b.readRoots = append(b.readRoots, roots...)

	return b
}

// WithWriteRoots sets the absolute-path roots allowed for writes.
func (b *PolicyBuilder) WithWriteRoots(roots ...string) *PolicyBuilder {
	b.writeRoots = append(b.writeRoots, roots...)

	return b
}

// WithSymlinkPolicy overrides the default [SymlinkDenyCrossRoot]
// policy.
func (b *PolicyBuilder) WithSymlinkPolicy(s Symlink) *PolicyBuilder {
	b.symlink = s

	return b
}

// WithFsyncParent controls whether a successful write fsyncs its
// parent directory after rename. Defaults to true.
func (b *PolicyBuilder) WithFsyncParent(v bool) *PolicyBuilder {
	b.fsyncParent = v

	return b
}

// WithAdvisoryLock enables the best-effort flock(2) hook on writes
// (spec.md §9 Open Question #2). Disabled by default.
func (b *PolicyBuilder) WithAdvisoryLock(v bool) *PolicyBuilder {
	b.advisoryLock = v

	return b
}

// WithHasher overrides the content-hashing collaborator. Production
// callers should supply the external token-stream hasher here; the
// default is [NewFNVHasher].
func (b *PolicyBuilder) WithHasher(h Hasher) *PolicyBuilder {
	b.hasher = h

	return b
}

// WithFS overrides the filesystem implementation. Tests substitute an
// [iofs.Chaos]-wrapped filesystem here to exercise fault injection
// end to end through the Handle.
func (b *PolicyBuilder) WithFS(fs iofs.FS) *PolicyBuilder {
	b.fs = fs

	return b
}

// WithEnv overrides the environment snapshot consulted for
// PLOKE_IO_FD_LIMIT, bypassing the real process environment. Intended
// for tests.
func (b *PolicyBuilder) WithEnv(env map[string]string) *PolicyBuilder {
	b.env = env

	return b
}

// Build validates the configuration, starts the actor's mailbox loop,
// and returns a ready-to-use [Handle]. The returned Handle's
// background goroutine runs until [Handle.Shutdown] is called.
func (b *PolicyBuilder) Build() (*Handle, error) {
	policy, err := pathpolicy.NewBuilder().
		WithFS(b.fs).
		WithReadRoots(b.readRoots...).
		WithWriteRoots(b.writeRoots...).
		WithSymlinkPolicy(b.symlink).
		Build()
	if err != nil {
		return nil, err
	}

	permits, source := permitpool.Resolve(b.permits, b.consultEnv, b.env)
	pool := permitpool.New(permits, source)

	durability := fileworker.Durability{FsyncParent: b.fsyncParent, AdvisoryLock: b.advisoryLock}

	return newHandle(b.fs, pool, b.hasher, policy, durability), nil
}
