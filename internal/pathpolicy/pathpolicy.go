// Package pathpolicy implements spec.md §4.1: every path the actor
// touches is canonicalized and proven to lie within a configured root
// before any further filesystem access happens.
//
// Grounded on the teacher's `internal/ticket.LoadConfig`
// (`filepath.Abs` + `filepath.Clean` + explicit root containment) and
// `pkg/fs/atomic_write.go`'s `filepath.Split`/`filepath.Clean`
// discipline, extended with a component-by-component symlink walk.
package pathpolicy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ploke/ploke-io/internal/ioerr"
	"github.com/ploke/ploke-io/internal/iofs"
)

// Op distinguishes a read access from a write access; reads and writes
// may be checked against different root sets.
type Op int

const (
	Read Op = iota
	Write
)

func (o Op) String() string {
	if o == Write {
		return "write"
	}

	return "read"
}

// Symlink controls how [Policy.CanonicalizeAndCheck] treats symlink
// components encountered while resolving a path.
type Symlink int

const (
	// Deny fails any path containing a symlink component.
	Deny Symlink = iota

	// DenyCrossRoot allows a symlink only if its resolved target
	// remains within the same root that contains the symlink itself.
	DenyCrossRoot

	// Allow permits any symlink whose fully resolved target lands
	// within an allowed root, even a different one than the symlink.
	Allow
)

// CanonicalPath is an absolute, policy-checked path. FileWorker and
// Dispatcher use it as the unambiguous per-file coalescing key.
type CanonicalPath string

func (c CanonicalPath) String() string { return string(c) }

// maxSymlinkDepth bounds symlink-chain resolution to avoid spinning on
// a cycle.
const maxSymlinkDepth = 40

// Policy is the configured set of roots and symlink rules applied
// before any I/O, per spec.md §3/§4.1.
type Policy struct {
	fs         iofs.FS
	readRoots  []string
	writeRoots []string
	symlink    Symlink
}

// Builder constructs a [Policy]. The zero value is not usable; use
// [NewBuilder].
type Builder struct {
	fs         iofs.FS
	readRoots  []string
	writeRoots []string
	symlink    Symlink
	symlinkSet bool
}

// NewBuilder returns a [Builder] with the spec's default symlink
// policy ([DenyCrossRoot]) and the real filesystem.
func NewBuilder() *Builder {
	return &Builder{fs: iofs.NewReal(), symlink: DenyCrossRoot}
}

// WithFS overrides the filesystem used for canonicalization (tests
// substitute [iofs.Chaos] or an in-memory fake here).
func (b *Builder) WithFS(fs iofs.FS) *Builder {
	b.fs = fs

	return b
}

// WithReadRoots sets the roots allowed for [Read] operations. Roots
// must be absolute paths.
func (b *Builder) WithReadRoots(roots ...string) *Builder {
	b.readRoots = append(b.readRoots, roots...)

	return b
}

// WithWriteRoots sets the roots allowed for [Write] operations. Writes
// may require stricter roots than reads (spec.md §4.1 rationale).
func (b *Builder) WithWriteRoots(roots ...string) *Builder {
	b.writeRoots = append(b.writeRoots, roots...)

	return b
}

// WithSymlinkPolicy overrides the default [DenyCrossRoot] policy.
func (b *Builder) WithSymlinkPolicy(s Symlink) *Builder {
	b.symlink = s
	b.symlinkSet = true

	return b
}

// Build validates and returns the [Policy]. At least one read root or
// write root must be configured, and every configured root must be
// absolute.
func (b *Builder) Build() (*Policy, error) {
	if len(b.readRoots) == 0 && len(b.writeRoots) == 0 {
		return nil, ioerr.NewInvalidState("pathpolicy: at least one read or write root is required")
	}

	for _, root := range append(append([]string{}, b.readRoots...), b.writeRoots...) {
		if !filepath.IsAbs(root) {
			return nil, ioerr.NewInvalidState(fmt.Sprintf("pathpolicy: root %q must be absolute", root))
		}
	}

	return &Policy{
		fs:         b.fs,
		readRoots:  cleanAll(b.readRoots),
		writeRoots: cleanAll(b.writeRoots),
		symlink:    b.symlink,
	}, nil
}

func cleanAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Clean(p)
	}

	return out
}

// CanonicalizeAndCheck transforms raw into a [CanonicalPath] and
// proves it lies within an allowed root for op, following the
// configured symlink policy. No filesystem access for the request
// itself happens before this check succeeds.
func (p *Policy) CanonicalizeAndCheck(raw string, op Op) (CanonicalPath, error) {
	roots := p.readRoots
	if op == Write {
		roots = p.writeRoots
	}

	if len(roots) == 0 {
		return "", ioerr.NewPathNotAllowed(raw)
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", ioerr.NewPathNotAllowed(raw)
	}

	abs = filepath.Clean(abs)

	resolved, err := p.walk(raw, abs, roots)
	if err != nil {
		return "", err
	}

	if _, ok := containingRoot(resolved, roots); !ok {
		return "", ioerr.NewPathNotAllowed(raw)
	}

	return CanonicalPath(resolved), nil
}

// walk resolves abs component by component, applying the symlink
// policy to each symlink encountered.
func (p *Policy) walk(raw, abs string, roots []string) (string, error) {
	vol := filepath.VolumeName(abs)
	rest := strings.TrimPrefix(abs[len(vol):], string(filepath.Separator))
	components := strings.Split(rest, string(filepath.Separator))

	resolved := vol + string(filepath.Separator)
	depth := 0

	for _, comp := range components {
		if comp == "" {
			continue
		}

		next := filepath.Join(resolved, comp)

		target, err := p.resolveSymlinkChain(raw, next, resolved, roots, &depth)
		if err != nil {
			return "", err
		}

		resolved = target
	}

	return resolved, nil
}

// resolveSymlinkChain follows next's symlink chain (if any), applying
// the configured policy at every hop, and returns the final real path.
// parent is the already-resolved path that contains next, used by
// [DenyCrossRoot] to determine which root the symlink itself lives in.
func (p *Policy) resolveSymlinkChain(raw, next, parent string, roots []string, depth *int) (string, error) {
	current := next
	currentParent := parent

	for {
		info, err := p.fs.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				return "", ioerr.NewFileNotFound(raw, err)
			}

			if os.IsPermission(err) {
				return "", ioerr.NewPermissionDenied(raw, err)
			}

			return "", ioerr.NewFileOperation("lstat", raw, err)
		}

		if info.Mode()&os.ModeSymlink == 0 {
			return current, nil
		}

		*depth++
		if *depth > maxSymlinkDepth {
			return "", ioerr.NewSymlinkPolicyViolation(raw)
		}

		if p.symlink == Deny {
			return "", ioerr.NewSymlinkPolicyViolation(raw)
		}

		linkTarget, err := p.fs.Readlink(current)
		if err != nil {
			return "", ioerr.NewFileOperation("readlink", raw, err)
		}

		if !filepath.IsAbs(linkTarget) {
			linkTarget = filepath.Join(filepath.Dir(current), linkTarget)
		}

		linkTarget = filepath.Clean(linkTarget)

		if p.symlink == DenyCrossRoot {
			if root, ok := containingRoot(currentParent, roots); ok {
				if !within(linkTarget, root) {
					return "", ioerr.NewSymlinkPolicyViolation(raw)
				}
			}
		}

		currentParent = filepath.Dir(current)
		current = linkTarget
	}
}

// containingRoot returns the longest root in roots that contains path,
// component-wise.
func containingRoot(path string, roots []string) (string, bool) {
	var best string

	found := false

	for _, root := range roots {
		if within(path, root) {
			if !found || len(root) > len(best) {
				best = root
				found = true
			}
		}
	}

	return best, found
}

// within reports whether path is root itself or a descendant of root,
// matching whole path components only (so "/a/bb" is not considered
// within "/a/b").
func within(path, root string) bool {
	if path == root {
		return true
	}

	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	return strings.HasPrefix(path, prefix)
}
