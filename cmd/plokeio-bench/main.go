// Package main provides plokeio-bench, a small harness that exercises
// a [plokeio.Handle] end to end against a scratch directory tree: seed
// N files, run a read batch and a write batch over all of them, and
// report elapsed time and the effective permit pool size.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	plokeio "github.com/ploke/ploke-io"
)

const namespace = "plokeio-bench"

func main() {
	root := flag.String("root", filepath.Join(os.TempDir(), "plokeio-bench"), "scratch directory to seed and exercise")
	count := flag.Int("count", 1000, "number of files to seed")
	permits := flag.Int("permits", 0, "explicit permit count (0 = let the Policy builder resolve one)")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: plokeio-bench [flags]\n\n")
		fmt.Fprint(os.Stderr, "Seeds --count files under --root and runs a read batch then a write batch over all of them.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if err := run(*root, *count, *permits); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(root string, count, permits int) error {
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("clearing scratch root: %w", err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating scratch root: %w", err)
	}

	paths, err := seed(root, count)
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}

	builder := plokeio.NewPolicyBuilder().WithReadRoots(root).WithWriteRoots(root)
	if permits > 0 {
		builder = builder.WithPermits(permits)
	}

	handle, err := builder.Build()
	if err != nil {
		return fmt.Errorf("building handle: %w", err)
	}

	defer func() { _ = handle.Shutdown(context.Background()) }()

	fmt.Fprintf(os.Stderr, "permits: %d (source=%s)\n", handle.Permits(), handle.PermitSource())

	hasher := plokeio.NewFNVHasher()

	readReqs := make([]plokeio.SnippetRequest, len(paths))
	for i, p := range paths {
		readReqs[i] = plokeio.SnippetRequest{
			ID:               i,
			FilePath:         p,
			ExpectedFileHash: hasher.Hash(namespace, p, []byte(seedBody(i))),
			StartByte:        0,
			EndByte:          len(seedBody(i)),
			Namespace:        namespace,
		}
	}

	start := time.Now()

	readResults, err := handle.ReadSnippetsBatch(context.Background(), readReqs)
	if err != nil {
		return fmt.Errorf("read batch: %w", err)
	}

	readElapsed := time.Since(start)

	failures := 0

	for _, r := range readResults {
		if r.Err != nil {
			failures++
		}
	}

	fmt.Fprintf(os.Stderr, "read batch: %d requests, %d failures, %s\n", len(readReqs), failures, readElapsed)

	writeReqs := make([]plokeio.WriteRequest, len(paths))
	for i, p := range paths {
		body := seedBody(i)
		writeReqs[i] = plokeio.WriteRequest{
			ID:               i,
			FilePath:         p,
			ExpectedFileHash: hasher.Hash(namespace, p, []byte(body)),
			StartByte:        0,
			EndByte:          len(body),
			Replacement:      body + " (touched)",
			Namespace:        namespace,
		}
	}

	start = time.Now()

	writeResults, err := handle.WriteSnippetsBatch(context.Background(), writeReqs)
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	writeElapsed := time.Since(start)

	failures = 0

	for _, r := range writeResults {
		if r.Err != nil {
			failures++
		}
	}

	fmt.Fprintf(os.Stderr, "write batch: %d requests, %d failures, %s\n", len(writeReqs), failures, writeElapsed)

	return nil
}

func seed(root string, count int) ([]string, error) {
	paths := make([]string, count)

	for i := range count {
		path := filepath.Join(root, fmt.Sprintf("file-%06d.txt", i))
		if err := os.WriteFile(path, []byte(seedBody(i)), 0o644); err != nil {
			return nil, err
		}

		paths[i] = path
	}

	return paths, nil
}

func seedBody(i int) string {
	return fmt.Sprintf("line %d\n", i)
}
