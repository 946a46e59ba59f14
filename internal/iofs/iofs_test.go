package iofs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ploke/ploke-io/internal/iofs"
)

func Test_Real_ReadFile_Roundtrips_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	fs := iofs.NewReal()

	got, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func Test_Chaos_Injects_Rename_Failure(t *testing.T) {
	dir := t.TempDir()
	real := iofs.NewReal()
	chaos := iofs.NewChaos(real, iofs.ChaosConfig{RenameFailRate: 1.0}, 1)

	src := filepath.Join(dir, "src.tmp")
	dst := filepath.Join(dir, "dst.txt")

	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	err := chaos.Rename(src, dst)
	if !errors.Is(err, iofs.ErrChaos) {
		t.Fatalf("got %v, want ErrChaos", err)
	}

	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("dst should not exist after injected rename failure, stat err=%v", statErr)
	}
}

func Test_Chaos_Passes_Through_When_Rate_Is_Zero(t *testing.T) {
	dir := t.TempDir()
	real := iofs.NewReal()
	chaos := iofs.NewChaos(real, iofs.ChaosConfig{}, 1)

	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hi"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got, err := chaos.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}
}

func Test_Chaos_Injects_Write_Failure_On_Open_File(t *testing.T) {
	dir := t.TempDir()
	real := iofs.NewReal()
	chaos := iofs.NewChaos(real, iofs.ChaosConfig{WriteFailRate: 1.0}, 2)

	path := filepath.Join(dir, "tmp.tmp")

	f, err := chaos.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	defer f.Close()

	_, writeErr := f.Write([]byte("data"))
	if !errors.Is(writeErr, iofs.ErrChaos) {
		t.Fatalf("got %v, want ErrChaos", writeErr)
	}
}
