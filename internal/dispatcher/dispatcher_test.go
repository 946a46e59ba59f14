package dispatcher_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ploke/ploke-io/internal/dispatcher"
	"github.com/ploke/ploke-io/internal/fileworker"
	"github.com/ploke/ploke-io/internal/ioerr"
	"github.com/ploke/ploke-io/internal/iofs"
	"github.com/ploke/ploke-io/internal/iotypes"
	"github.com/ploke/ploke-io/internal/pathpolicy"
	"github.com/ploke/ploke-io/internal/permitpool"
	"github.com/ploke/ploke-io/internal/tokenhash"
)

const namespace = "test-ns"

func newDispatcher(t *testing.T, root string) *dispatcher.Dispatcher {
	t.Helper()

	fs := iofs.NewReal()

	policy, err := pathpolicy.NewBuilder().
		WithFS(fs).
		WithReadRoots(root).
		WithWriteRoots(root).
		Build()
	if err != nil {
		t.Fatalf("policy build: %v", err)
	}

	pool := permitpool.New(8, permitpool.SourceDefault)
	hasher := tokenhash.FNV{}

	return dispatcher.New(fs, pool, hasher, policy, fileworker.DefaultDurability())
}

func Test_ReadBatch_Groups_Requests_By_File_And_Preserves_Order(t *testing.T) {
	dir := t.TempDir()
	hasher := tokenhash.FNV{}

	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")

	if err := os.WriteFile(pathA, []byte("aaaa"), 0o644); err != nil {
		t.Fatalf("setup a: %v", err)
	}

	if err := os.WriteFile(pathB, []byte("bbbb"), 0o644); err != nil {
		t.Fatalf("setup b: %v", err)
	}

	hA := hasher.Hash(namespace, pathA, []byte("aaaa"))
	hB := hasher.Hash(namespace, pathB, []byte("bbbb"))

	d := newDispatcher(t, dir)

	results := d.ReadBatch(context.Background(), []iotypes.SnippetRequest{
		{ID: 1, FilePath: pathA, ExpectedFileHash: hA, StartByte: 0, EndByte: 2, Namespace: namespace},
		{ID: 2, FilePath: pathB, ExpectedFileHash: hB, StartByte: 0, EndByte: 2, Namespace: namespace},
		{ID: 3, FilePath: pathA, ExpectedFileHash: hA, StartByte: 2, EndByte: 4, Namespace: namespace},
	})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("position %d: %v", i, r.Err)
		}
	}

	if results[0].Value != "aa" || results[1].Value != "bb" || results[2].Value != "aa" {
		t.Fatalf("got %+v", results)
	}
}

func Test_ReadBatch_Path_Outside_Root_Fails_Only_That_Position(t *testing.T) {
	dir := t.TempDir()
	hasher := tokenhash.FNV{}

	inside := filepath.Join(dir, "inside.txt")
	if err := os.WriteFile(inside, []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	hInside := hasher.Hash(namespace, inside, []byte("hello"))

	outsideDir := t.TempDir()
	outside := filepath.Join(outsideDir, "outside.txt")

	if err := os.WriteFile(outside, []byte("nope"), 0o644); err != nil {
		t.Fatalf("setup outside: %v", err)
	}

	d := newDispatcher(t, dir)

	results := d.ReadBatch(context.Background(), []iotypes.SnippetRequest{
		{ID: 1, FilePath: outside, ExpectedFileHash: tokenhash.Hash{}, StartByte: 0, EndByte: 2, Namespace: namespace},
		{ID: 2, FilePath: inside, ExpectedFileHash: hInside, StartByte: 0, EndByte: 5, Namespace: namespace},
	})

	var notAllowed *ioerr.PathNotAllowed
	if !errors.As(results[0].Err, &notAllowed) {
		t.Fatalf("position 0: got %v, want PathNotAllowed", results[0].Err)
	}

	if results[1].Err != nil || results[1].Value != "hello" {
		t.Fatalf("position 1: got %+v, want unaffected success", results[1])
	}
}

func Test_WriteBatch_Runs_Independent_Files_Concurrently_And_Preserves_Order(t *testing.T) {
	dir := t.TempDir()
	hasher := tokenhash.FNV{}

	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")

	if err := os.WriteFile(pathA, []byte("foo"), 0o644); err != nil {
		t.Fatalf("setup a: %v", err)
	}

	if err := os.WriteFile(pathB, []byte("bar"), 0o644); err != nil {
		t.Fatalf("setup b: %v", err)
	}

	hA := hasher.Hash(namespace, pathA, []byte("foo"))
	hB := hasher.Hash(namespace, pathB, []byte("bar"))

	d := newDispatcher(t, dir)

	results := d.WriteBatch(context.Background(), []iotypes.WriteRequest{
		{ID: "a", FilePath: pathA, ExpectedFileHash: hA, StartByte: 0, EndByte: 3, Replacement: "FOO", Namespace: namespace},
		{ID: "b", FilePath: pathB, ExpectedFileHash: hB, StartByte: 0, EndByte: 3, Replacement: "BAR", Namespace: namespace},
	})

	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("position %d: %v", i, r.Err)
		}
	}

	gotA, err := os.ReadFile(pathA)
	if err != nil {
		t.Fatalf("readback a: %v", err)
	}

	gotB, err := os.ReadFile(pathB)
	if err != nil {
		t.Fatalf("readback b: %v", err)
	}

	if string(gotA) != "FOO" || string(gotB) != "BAR" {
		t.Fatalf("got a=%q b=%q", gotA, gotB)
	}
}

func Test_ScanBatch_Reports_Per_File_Change_Status(t *testing.T) {
	dir := t.TempDir()
	hasher := tokenhash.FNV{}

	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")

	if err := os.WriteFile(pathA, []byte("unchanged"), 0o644); err != nil {
		t.Fatalf("setup a: %v", err)
	}

	if err := os.WriteFile(pathB, []byte("original"), 0o644); err != nil {
		t.Fatalf("setup b: %v", err)
	}

	hA := hasher.Hash(namespace, pathA, []byte("unchanged"))
	hB := hasher.Hash(namespace, pathB, []byte("original"))

	if err := os.WriteFile(pathB, []byte("drifted"), 0o644); err != nil {
		t.Fatalf("drift b: %v", err)
	}

	d := newDispatcher(t, dir)

	results := d.ScanBatch(context.Background(), []iotypes.ScanRequest{
		{FilePath: pathA, ExpectedFileHash: hA, Namespace: namespace},
		{FilePath: pathB, ExpectedFileHash: hB, Namespace: namespace},
	})

	if results[0].Err != nil || results[0].Value != nil {
		t.Fatalf("position 0: got %+v, want unchanged (nil)", results[0])
	}

	if results[1].Err != nil || results[1].Value == nil {
		t.Fatalf("position 1: got %+v, want a ChangedFile", results[1])
	}
}
