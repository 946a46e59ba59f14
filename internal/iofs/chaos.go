package iofs

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
)

// ChaosConfig controls fault injection probabilities. Each rate is a
// float64 from 0.0 (never) to 1.0 (always). The zero value disables
// all fault injection.
//
// Adapted from the teacher's pkg/fs.ChaosConfig, trimmed to the fault
// points [internal/fileworker]'s durable-write sequence actually
// passes through: opening the temp file, writing it, syncing it,
// renaming over the target, and syncing the parent directory.
type ChaosConfig struct {
	OpenFailRate   float64
	WriteFailRate  float64
	SyncFailRate   float64
	RenameFailRate float64
	ReadFailRate   float64
}

// ErrChaos marks an error as intentionally injected by [Chaos]. Use
// [errors.Is] to distinguish injected faults from real ones in tests.
var ErrChaos = errors.New("iofs: injected fault")

// Chaos wraps an [FS] and injects faults according to [ChaosConfig], for
// exercising spec.md §8's Durability and Atomic-writes-per-file
// properties: every failure point in a write must leave the target
// file untouched.
type Chaos struct {
	inner  FS
	cfg    ChaosConfig
	rng    *rand.Rand
	mu     sync.Mutex
	events []string
}

// NewChaos wraps inner with the given config. seed makes fault
// injection reproducible across test runs.
func NewChaos(inner FS, cfg ChaosConfig, seed uint64) *Chaos {
	return &Chaos{inner: inner, cfg: cfg, rng: rand.New(rand.NewPCG(seed, seed))}
}

// Events returns a copy of the operations Chaos has observed, in order,
// for failure diagnostics in tests.
func (c *Chaos) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.events...)
}

func (c *Chaos) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)
}

func (c *Chaos) roll(rate float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return rate > 0 && c.rng.Float64() < rate
}

func (c *Chaos) Open(path string) (File, error) {
	if c.roll(c.cfg.OpenFailRate) {
		c.record("open:fail:" + path)

		return nil, fmt.Errorf("%w: open %q", ErrChaos, path)
	}

	c.record("open:" + path)

	f, err := c.inner.Open(path)
	if err != nil {
		return nil, err
	}

	return &chaosFile{inner: f, chaos: c, path: path}, nil
}

func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if c.roll(c.cfg.OpenFailRate) {
		c.record("openfile:fail:" + path)

		return nil, fmt.Errorf("%w: openfile %q", ErrChaos, path)
	}

	c.record("openfile:" + path)

	f, err := c.inner.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &chaosFile{inner: f, chaos: c, path: path}, nil
}

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if c.roll(c.cfg.ReadFailRate) {
		c.record("readfile:fail:" + path)

		return nil, fmt.Errorf("%w: read %q", ErrChaos, path)
	}

	c.record("readfile:" + path)

	return c.inner.ReadFile(path)
}

func (c *Chaos) Remove(path string) error {
	c.record("remove:" + path)

	return c.inner.Remove(path)
}

func (c *Chaos) Rename(oldpath, newpath string) error {
	if c.roll(c.cfg.RenameFailRate) {
		c.record("rename:fail:" + oldpath + "->" + newpath)

		return fmt.Errorf("%w: rename %q -> %q", ErrChaos, oldpath, newpath)
	}

	c.record("rename:" + oldpath + "->" + newpath)

	return c.inner.Rename(oldpath, newpath)
}

func (c *Chaos) Lstat(path string) (os.FileInfo, error) { return c.inner.Lstat(path) }

func (c *Chaos) Readlink(path string) (string, error) { return c.inner.Readlink(path) }

var _ FS = (*Chaos)(nil)

// chaosFile wraps a [File] to inject write/sync faults.
type chaosFile struct {
	inner File
	chaos *Chaos
	path  string
}

func (f *chaosFile) Read(p []byte) (int, error) {
	if f.chaos.roll(f.chaos.cfg.ReadFailRate) {
		f.chaos.record("file.read:fail:" + f.path)

		return 0, fmt.Errorf("%w: read %q", ErrChaos, f.path)
	}

	return f.inner.Read(p)
}

func (f *chaosFile) Write(p []byte) (int, error) {
	if f.chaos.roll(f.chaos.cfg.WriteFailRate) {
		f.chaos.record("file.write:fail:" + f.path)

		return 0, fmt.Errorf("%w: write %q", ErrChaos, f.path)
	}

	f.chaos.record("file.write:" + f.path)

	return f.inner.Write(p)
}

func (f *chaosFile) Close() error {
	f.chaos.record("file.close:" + f.path)

	return f.inner.Close()
}

func (f *chaosFile) Sync() error {
	if f.chaos.roll(f.chaos.cfg.SyncFailRate) {
		f.chaos.record("file.sync:fail:" + f.path)

		return fmt.Errorf("%w: sync %q", ErrChaos, f.path)
	}

	f.chaos.record("file.sync:" + f.path)

	return f.inner.Sync()
}

var _ File = (*chaosFile)(nil)
