package ingest

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// candidateSink collects leaf candidates from concurrently expanding
// subtrees. Expansion goroutines share it instead of a result slice.
type candidateSink struct {
	mu    sync.Mutex
	items []Candidate
}

func (s *candidateSink) add(c Candidate) {
	s.mu.Lock()
	s.items = append(s.items, c)
	s.mu.Unlock()
}

// normalizeRelPath converts a relative path to forward slashes and
// applies Unicode NFC normalization, so paths produced on macOS
// (NFD-decomposed) compare equal to the same path typed elsewhere.
func normalizeRelPath(rel string) string {
	return norm.NFC.String(filepath.ToSlash(rel))
}

// detectMIME guesses a candidate's MIME type from its filename.
func detectMIME(name string) string {
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		return mt
	}

	return "application/octet-stream"
}

// ExpandDrop turns a set of dropped filesystem entries into a flat
// sequence of leaf candidates. Dropped files pass through directly.
// Dropped directories expand recursively, sibling subtrees listing
// concurrently; every reachable leaf is visited exactly once and empty
// directories contribute nothing. Leaves from directory expansion carry
// a RelativePath rooted at the dropped directory's name, used for
// display grouping only.
//
// The result order is complete but not deterministic across runs; the
// ledger's arrival order is fixed only once candidates are submitted.
func ExpandDrop(ctx context.Context, paths []string) ([]Candidate, error) {
	sink := &candidateSink{}
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range paths {
		info, err := os.Lstat(p)
		if err != nil {
			return nil, fmt.Errorf("inspecting dropped entry %s: %w", p, err)
		}

		switch {
		case info.IsDir():
			root := p

			g.Go(func() error {
				return expandTree(gctx, g, sink, root, filepath.Base(root))
			})

		case info.Mode().IsRegular():
			leaf := p

			g.Go(func() error {
				return readLeaf(gctx, sink, leaf, "")
			})

		default:
			// Symlinks, sockets, devices: not uploadable content.
			continue
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return sink.items, nil
}

// expandTree lists one directory and fans out: leaf files are read
// inline, each subdirectory becomes its own errgroup task. rel is the
// slash path of dir relative to the drop root, always non-empty here.
func expandTree(ctx context.Context, g *errgroup.Group, sink *candidateSink, dir, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		childPath := filepath.Join(dir, entry.Name())
		childRel := rel + "/" + entry.Name()

		switch {
		case entry.IsDir():
			g.Go(func() error {
				return expandTree(ctx, g, sink, childPath, childRel)
			})

		case entry.Type().IsRegular():
			if err := readLeaf(ctx, sink, childPath, childRel); err != nil {
				return err
			}
		}
	}

	return nil
}

// readLeaf reads one file into a candidate. rel is empty for files
// dropped directly (no directory chain to record).
func readLeaf(ctx context.Context, sink *candidateSink, path, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading dropped file %s: %w", path, err)
	}

	name := filepath.Base(path)

	sink.add(Candidate{
		Name:         name,
		MIMEType:     detectMIME(name),
		Content:      content,
		RelativePath: normalizeRelPath(rel),
		Provenance:   LocalProvenance{},
	})

	return nil
}
