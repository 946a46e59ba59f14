package pathpolicy_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ploke/ploke-io/internal/ioerr"
	"github.com/ploke/ploke-io/internal/pathpolicy"
)

func Test_CanonicalizeAndCheck_Allows_Path_Inside_Root(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	pol, err := pathpolicy.NewBuilder().WithReadRoots(dir).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := pol.CanonicalizeAndCheck(path, pathpolicy.Read)
	if err != nil {
		t.Fatalf("CanonicalizeAndCheck: %v", err)
	}

	if got.String() != path {
		t.Fatalf("got %q, want %q", got, path)
	}
}

func Test_CanonicalizeAndCheck_Rejects_Path_Outside_Root(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	path := filepath.Join(outside, "a.txt")

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	pol, err := pathpolicy.NewBuilder().WithReadRoots(dir).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, err = pol.CanonicalizeAndCheck(path, pathpolicy.Read)

	var pathErr *ioerr.PathNotAllowed
	if !errors.As(err, &pathErr) {
		t.Fatalf("got %v, want PathNotAllowed", err)
	}
}

func Test_CanonicalizeAndCheck_Rejects_Missing_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.txt")

	pol, err := pathpolicy.NewBuilder().WithReadRoots(dir).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, err = pol.CanonicalizeAndCheck(path, pathpolicy.Read)

	var notFound *ioerr.FileNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want FileNotFound", err)
	}
}

func Test_CanonicalizeAndCheck_Read_And_Write_Roots_Are_Independent(t *testing.T) {
	readDir := t.TempDir()
	writeDir := t.TempDir()

	readPath := filepath.Join(readDir, "a.txt")
	if err := os.WriteFile(readPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	pol, err := pathpolicy.NewBuilder().WithReadRoots(readDir).WithWriteRoots(writeDir).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := pol.CanonicalizeAndCheck(readPath, pathpolicy.Read); err != nil {
		t.Fatalf("read should be allowed: %v", err)
	}

	_, err = pol.CanonicalizeAndCheck(readPath, pathpolicy.Write)

	var pathErr *ioerr.PathNotAllowed
	if !errors.As(err, &pathErr) {
		t.Fatalf("got %v, want PathNotAllowed (read root is not a write root)", err)
	}
}

func Test_CanonicalizeAndCheck_Deny_Rejects_Any_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")

	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	pol, err := pathpolicy.NewBuilder().WithReadRoots(dir).WithSymlinkPolicy(pathpolicy.Deny).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, err = pol.CanonicalizeAndCheck(link, pathpolicy.Read)

	var symErr *ioerr.SymlinkPolicyViolation
	if !errors.As(err, &symErr) {
		t.Fatalf("got %v, want SymlinkPolicyViolation", err)
	}
}

func Test_CanonicalizeAndCheck_DenyCrossRoot_Allows_Symlink_Within_Same_Root(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")

	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	pol, err := pathpolicy.NewBuilder().WithReadRoots(dir).WithSymlinkPolicy(pathpolicy.DenyCrossRoot).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := pol.CanonicalizeAndCheck(link, pathpolicy.Read)
	if err != nil {
		t.Fatalf("CanonicalizeAndCheck: %v", err)
	}

	if got.String() != target {
		t.Fatalf("got %q, want resolved target %q", got, target)
	}
}

func Test_CanonicalizeAndCheck_DenyCrossRoot_Rejects_Symlink_Escaping_Root(t *testing.T) {
	rootDir := t.TempDir()
	outsideDir := t.TempDir()

	target := filepath.Join(outsideDir, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	link := filepath.Join(rootDir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	pol, err := pathpolicy.NewBuilder().WithReadRoots(rootDir).WithSymlinkPolicy(pathpolicy.DenyCrossRoot).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, err = pol.CanonicalizeAndCheck(link, pathpolicy.Read)

	var symErr *ioerr.SymlinkPolicyViolation
	if !errors.As(err, &symErr) {
		t.Fatalf("got %v, want SymlinkPolicyViolation", err)
	}
}

func Test_CanonicalizeAndCheck_Allow_Permits_Symlink_Escaping_Root_If_Target_In_Allowed_Root(t *testing.T) {
	rootDir := t.TempDir()
	otherAllowedDir := t.TempDir()

	target := filepath.Join(otherAllowedDir, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	link := filepath.Join(rootDir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	pol, err := pathpolicy.NewBuilder().
		WithReadRoots(rootDir, otherAllowedDir).
		WithSymlinkPolicy(pathpolicy.Allow).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := pol.CanonicalizeAndCheck(link, pathpolicy.Read)
	if err != nil {
		t.Fatalf("CanonicalizeAndCheck: %v", err)
	}

	if got.String() != target {
		t.Fatalf("got %q, want resolved target %q", got, target)
	}
}

func Test_Build_Requires_At_Least_One_Root(t *testing.T) {
	_, err := pathpolicy.NewBuilder().Build()
	if err == nil {
		t.Fatalf("expected error for empty roots")
	}
}
