package ioerr_test

import (
	"errors"
	"testing"

	"github.com/ploke/ploke-io/internal/ioerr"
	"github.com/ploke/ploke-io/internal/tokenhash"
)

func Test_ContentMismatch_Is_Fatal(t *testing.T) {
	var expected, actual tokenhash.Hash
	actual[0] = 1

	err := ioerr.NewContentMismatch("a.go", expected, actual)

	if !errors.Is(err, ioerr.Fatal) {
		t.Fatalf("got not-Fatal for %v", err)
	}

	if errors.Is(err, ioerr.Internal) {
		t.Fatalf("got Internal for %v, want only Fatal", err)
	}

	var asErr *ioerr.ContentMismatch
	if !errors.As(err, &asErr) {
		t.Fatalf("errors.As failed for %v", err)
	}

	if asErr.Expected != expected || asErr.Actual != actual {
		t.Fatalf("got expected=%v actual=%v, want %v/%v", asErr.Expected, asErr.Actual, expected, actual)
	}
}

func Test_ShuttingDown_Is_Internal_Not_Fatal(t *testing.T) {
	err := ioerr.NewShuttingDown()

	if !errors.Is(err, ioerr.Internal) {
		t.Fatalf("got not-Internal for %v", err)
	}

	if errors.Is(err, ioerr.Fatal) {
		t.Fatalf("got Fatal for %v, want only Internal", err)
	}
}

func Test_FileOperation_Unwraps_To_Cause(t *testing.T) {
	cause := errors.New("disk full")
	err := ioerr.NewFileOperation("write", "a.go", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("got %v, want wrapping %v", err, cause)
	}

	if !errors.Is(err, ioerr.Fatal) {
		t.Fatalf("got not-Fatal for %v", err)
	}
}

func Test_Utf8Boundary_Fields(t *testing.T) {
	err := ioerr.NewUtf8Boundary("a.go", 1)

	var asErr *ioerr.Utf8Boundary
	if !errors.As(err, &asErr) {
		t.Fatalf("errors.As failed for %v", err)
	}

	if asErr.Offset != 1 || asErr.Path != "a.go" {
		t.Fatalf("got %+v, want offset=1 path=a.go", asErr)
	}
}
