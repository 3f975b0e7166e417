package fileservice

import (
	"context"
	"log/slog"

	"github.com/starford/vaultmcp/internal/search"
)

// FindRequest describes a filename search.
type FindRequest struct {
	Query      string
	Fuzzy      bool
	MaxResults int
}

// FindResult is the response of FindFiles.
type FindResult struct {
	Query        string             `json:"query"`
	TotalMatches int                `json:"total_matches"`
	Matches      []search.FileMatch `json:"matches"`
}

// FindFiles ranks cached vault paths against a filename query.
func (s *Service) FindFiles(ctx context.Context, req FindRequest) (*FindResult, error) {
	if err := required("query", req.Query); err != nil {
		return nil, err
	}
	paths, err := s.cache.Paths(ctx)
	if err != nil {
		return nil, err
	}
	matches := search.FindFiles(req.Query, paths, search.FindOptions{Fuzzy: req.Fuzzy, MaxResults: req.MaxResults})
	matches = nonNil(matches)
	return &FindResult{Query: req.Query, TotalMatches: len(matches), Matches: matches}, nil
}

// SearchResult is the response of Search.
type SearchResult struct {
	Matches      []search.ContentMatch `json:"matches"`
	TotalMatches int                   `json:"total_matches"`
}

// Search greps note contents. Invalid queries fail before the vault is
// touched.
func (s *Service) Search(ctx context.Context, q search.ContentQuery) (*SearchResult, error) {
	res, err := s.grep.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(res.Skipped) > 0 || len(res.FailedFolders) > 0 {
		s.logger.Info("search: partial scan",
			slog.Int("files_scanned", res.FilesScanned),
			slog.Int("skipped_files", len(res.Skipped)),
			slog.Int("failed_folders", len(res.FailedFolders)))
	}
	matches := nonNil(res.Matches)
	return &SearchResult{Matches: matches, TotalMatches: len(matches)}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
