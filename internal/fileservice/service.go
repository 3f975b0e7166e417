// Package fileservice implements the vault file operations exposed to agents.
// Every operation that adds, removes or renames a file invalidates the
// filename index.
package fileservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/starford/vaultmcp/internal/apperr"
	"github.com/starford/vaultmcp/internal/checksum"
	"github.com/starford/vaultmcp/internal/index"
	"github.com/starford/vaultmcp/internal/search"
	"github.com/starford/vaultmcp/internal/vault"
)

// DefaultTrashDir holds soft-deleted files.
const DefaultTrashDir = ".trash-http-mcp"

// EventCallback is notified after a successful mutation.
// kind is one of "created", "updated", "deleted", "moved".
type EventCallback func(kind, path string)

// Service coordinates the vault, the filename index and content search.
type Service struct {
	vault    vault.Provider
	walker   *index.Walker
	cache    *index.Cache
	grep     *search.Grep
	logger   *slog.Logger
	trashDir string
	now      func() time.Time
	onChange EventCallback
}

// Option configures a Service.
type Option func(*Service)

// TrashDir normalises a configured soft-delete directory: surrounding slashes
// are dropped and an empty value falls back to DefaultTrashDir.
func TrashDir(dir string) string {
	if dir = strings.Trim(dir, "/"); dir != "" {
		return dir
	}
	return DefaultTrashDir
}

// WithTrashDir sets the soft-delete directory.
func WithTrashDir(dir string) Option {
	return func(s *Service) { s.trashDir = TrashDir(dir) }
}

// WithEvents registers a mutation callback.
func WithEvents(cb EventCallback) Option {
	return func(s *Service) { s.onChange = cb }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(p vault.Provider, walker *index.Walker, cache *index.Cache, grep *search.Grep, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		vault:    p,
		walker:   walker,
		cache:    cache,
		grep:     grep,
		logger:   logger,
		trashDir: DefaultTrashDir,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InvalidateFilesCache drops the cached filename index.
func (s *Service) InvalidateFilesCache() {
	s.cache.Invalidate()
}

func (s *Service) changed(kind, path string) {
	s.cache.Invalidate()
	if s.onChange != nil {
		s.onChange(kind, path)
	}
}

func required(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s parameter is required", apperr.ErrInvalidArgument, name)
	}
	return nil
}

// ListDirResult is the response of ListDir.
type ListDirResult struct {
	Path    string   `json:"path"`
	Folders []string `json:"folders"`
	Count   int      `json:"count"`
}

// ListDir returns the immediate subdirectories of path.
func (s *Service) ListDir(ctx context.Context, path string) (*ListDirResult, error) {
	l, err := s.vault.List(ctx, path)
	if err != nil {
		return nil, err
	}
	folders := nonNil(l.Folders)
	return &ListDirResult{Path: path, Folders: folders, Count: len(folders)}, nil
}

// ListFilesResult is the response of ListFiles.
type ListFilesResult struct {
	Path  string   `json:"path"`
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// ListFiles returns the immediate files of path, optionally restricted to an
// extension given with or without its leading dot.
func (s *Service) ListFiles(ctx context.Context, path, extension string) (*ListFilesResult, error) {
	l, err := s.vault.List(ctx, path)
	if err != nil {
		return nil, err
	}
	files := withExtension(l.Files, extension)
	return &ListFilesResult{Path: path, Files: files, Count: len(files)}, nil
}

// FolderListing holds both halves of one directory listing.
type FolderListing struct {
	Path    string   `json:"path" example:"Projects"`
	Folders []string `json:"folders" validate:"required"`
	Files   []string `json:"files" validate:"required"`
}

// ListFolder returns the subdirectories and files of path from a single
// vault listing. extension filters files the way ListFiles does.
func (s *Service) ListFolder(ctx context.Context, path, extension string) (*FolderListing, error) {
	l, err := s.vault.List(ctx, path)
	if err != nil {
		return nil, err
	}
	return &FolderListing{
		Path:    path,
		Folders: nonNil(l.Folders),
		Files:   withExtension(l.Files, extension),
	}, nil
}

func withExtension(files []string, extension string) []string {
	if ext := strings.TrimPrefix(extension, "."); ext != "" {
		suffix := "." + strings.ToLower(ext)
		files = lo.Filter(files, func(f string, _ int) bool {
			return strings.HasSuffix(strings.ToLower(f), suffix)
		})
	}
	return nonNil(files)
}

// FileContent is the response of ReadFile.
type FileContent struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

// NotFoundError carries "did you mean" hints for a missing file.
type NotFoundError struct {
	Path        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := "file not found: " + e.Path
	if len(e.Suggestions) > 0 {
		msg += " (did you mean: " + strings.Join(e.Suggestions, ", ") + "?)"
	}
	return msg
}

func (e *NotFoundError) Unwrap() error { return apperr.ErrNotFound }

// notFound decorates a not-found error with similar paths from the cached
// index. A failing index lookup still yields the plain error.
func (s *Service) notFound(ctx context.Context, path string) error {
	e := &NotFoundError{Path: path}
	if paths, err := s.cache.Paths(ctx); err == nil {
		e.Suggestions = search.Suggest(path, paths, 3)
	}
	return e
}

// ReadFile returns the content of path and its checksum.
func (s *Service) ReadFile(ctx context.Context, path string) (*FileContent, error) {
	if err := required("path", path); err != nil {
		return nil, err
	}
	content, err := s.vault.Read(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, s.notFound(ctx, path)
		}
		return nil, err
	}
	return &FileContent{Path: path, Content: content, Checksum: checksum.SumString(content)}, nil
}
