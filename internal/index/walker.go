// Package index turns a list-only remote vault into a flat file index and
// caches the full-vault result for a bounded time.
package index

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultmcp/internal/vault"
)

// Failure records a subtree that could not be listed.
type Failure struct {
	Path string
	Err  error
}

// WalkResult holds every file reached by a walk together with the subtrees
// that were dropped along the way.
type WalkResult struct {
	Files    []string
	Failures []Failure
}

// Walker recursively expands single-level listings into file paths.
type Walker struct {
	lister vault.Lister
	logger *slog.Logger
}

// NewWalker creates a walker over lister.
func NewWalker(lister vault.Lister, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{lister: lister, logger: logger}
}

// Walk returns every file under start (the vault root when empty), sorted.
//
// Sibling folders are listed concurrently. A folder whose listing fails is
// left out of Files and reported in Failures; only a failure to list start
// itself is returned as an error.
func (w *Walker) Walk(ctx context.Context, start string) (*WalkResult, error) {
	res, err := w.walk(ctx, strings.TrimSuffix(start, "/"))
	if err != nil {
		return nil, err
	}
	sort.Strings(res.Files)
	return res, nil
}

func (w *Walker) walk(ctx context.Context, dir string) (*WalkResult, error) {
	listing, err := w.lister.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	res := &WalkResult{Files: make([]string, 0, len(listing.Files))}
	for _, f := range listing.Files {
		res.Files = append(res.Files, vault.Join(dir, f))
	}
	if len(listing.Folders) == 0 {
		return res, nil
	}

	subs := make([]*WalkResult, len(listing.Folders))
	errs := make([]error, len(listing.Folders))

	// Every branch returns nil to the group so a failure never cancels its siblings.
	var g errgroup.Group
	for i, folder := range listing.Folders {
		g.Go(func() error {
			subs[i], errs[i] = w.walk(ctx, vault.Join(dir, folder))
			return nil
		})
	}
	_ = g.Wait()

	var failed []Failure
	for i, folder := range listing.Folders {
		if errs[i] != nil {
			failed = append(failed, Failure{Path: vault.Join(dir, folder), Err: errs[i]})
			continue
		}
		res.Files = append(res.Files, subs[i].Files...)
		res.Failures = append(res.Failures, subs[i].Failures...)
	}

	if len(failed) > 0 {
		w.logger.Warn("walk: failed to scan folders",
			slog.String("folder", dir),
			slog.Int("total_folders", len(listing.Folders)),
			slog.Int("failed_count", len(failed)),
			slog.String("error", failed[0].Err.Error()))
		res.Failures = append(res.Failures, failed...)
	}
	return res, nil
}
