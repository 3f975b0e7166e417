package fileservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultmcp/internal/apperr"
	"github.com/starford/vaultmcp/internal/vault"
)

// deleteConcurrency bounds the per-file requests of DeleteFolder.
const deleteConcurrency = 8

// DeleteResult is the response of DeleteFile.
type DeleteResult struct {
	Path      string `json:"path"`
	Permanent bool   `json:"permanent"`
	TrashPath string `json:"trash_path,omitempty"`
	Message   string `json:"message"`
}

// DeleteFile removes path. Unless permanent, the content is first copied to
// "<trash>/<timestamp>_<name>".
func (s *Service) DeleteFile(ctx context.Context, path string, confirm, permanent bool) (*DeleteResult, error) {
	if err := required("path", path); err != nil {
		return nil, err
	}
	if !confirm {
		return nil, fmt.Errorf("%w: confirm=true is required to delete a file", apperr.ErrInvalidArgument)
	}

	res := &DeleteResult{Path: path, Permanent: permanent}
	if permanent {
		if err := s.vault.Delete(ctx, path); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, s.notFound(ctx, path)
			}
			return nil, err
		}
		res.Message = fmt.Sprintf("Permanently deleted %q", path)
	} else {
		stamp := strings.NewReplacer(":", "-", ".", "-").
			Replace(s.now().UTC().Format("2006-01-02T15:04:05.000Z"))
		res.TrashPath = vault.Join(s.trashDir, stamp+"_"+vault.Base(path))
		if err := s.trash(ctx, path, res.TrashPath); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, s.notFound(ctx, path)
			}
			return nil, err
		}
		res.Message = fmt.Sprintf("Moved %q to trash at %q", path, res.TrashPath)
	}

	s.changed("deleted", path)
	return res, nil
}

// trash copies path to dest and deletes the original.
func (s *Service) trash(ctx context.Context, path, dest string) error {
	content, err := s.vault.Read(ctx, path)
	if err != nil {
		return err
	}
	if err := s.vault.Write(ctx, dest, content); err != nil {
		return fmt.Errorf("copy %s to trash: %w", path, err)
	}
	if err := s.vault.Delete(ctx, path); err != nil {
		if rmErr := s.vault.Delete(ctx, dest); rmErr != nil {
			s.logger.Warn("trash: could not remove copy",
				slog.String("file", dest), slog.String("error", rmErr.Error()))
			s.cache.Invalidate()
		}
		return err
	}
	return nil
}

// DeleteFolderResult is the response of DeleteFolder.
type DeleteFolderResult struct {
	Path          string   `json:"path"`
	Permanent     bool     `json:"permanent"`
	FilesDeleted  int      `json:"files_deleted"`
	TrashPath     string   `json:"trash_path,omitempty"`
	FailedFiles   []string `json:"failed_files,omitempty"`
	FailedFolders []string `json:"failed_folders,omitempty"`
	Message       string   `json:"message"`
}

// DeleteFolder removes every file under path. The subtree is walked fresh,
// bypassing the cache. Unless permanent, files are moved under
// "<trash>/<unix-millis>/" keeping their vault-relative paths.
//
// Files are removed concurrently. Per-file failures are reported in the
// result; the call fails only when nothing could be removed.
func (s *Service) DeleteFolder(ctx context.Context, path string, confirm, permanent bool) (*DeleteFolderResult, error) {
	if err := required("path", path); err != nil {
		return nil, err
	}
	if !confirm {
		return nil, fmt.Errorf("%w: confirm=true is required to delete a folder", apperr.ErrInvalidArgument)
	}
	path = strings.Trim(path, "/")
	if !permanent && (path == s.trashDir || strings.HasPrefix(path, s.trashDir+"/")) {
		return nil, fmt.Errorf("%w: the trash folder can only be deleted with permanent=true", apperr.ErrInvalidArgument)
	}

	walked, err := s.walker.Walk(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: folder empty or not found: %s", apperr.ErrNotFound, path)
		}
		return nil, err
	}
	if len(walked.Files) == 0 {
		return nil, fmt.Errorf("%w: folder empty or not found: %s", apperr.ErrNotFound, path)
	}

	res := &DeleteFolderResult{Path: path, Permanent: permanent}
	for _, f := range walked.Failures {
		res.FailedFolders = append(res.FailedFolders, f.Path)
	}
	if !permanent {
		res.TrashPath = vault.Join(s.trashDir, strconv.FormatInt(s.now().UnixMilli(), 10))
	}

	var (
		mu     sync.Mutex
		failed []string
		first  error
	)
	g := new(errgroup.Group)
	g.SetLimit(deleteConcurrency)
	for _, file := range walked.Files {
		g.Go(func() error {
			var err error
			if permanent {
				err = s.vault.Delete(ctx, file)
			} else {
				err = s.trash(ctx, file, vault.Join(res.TrashPath, file))
			}
			if err != nil {
				s.logger.Warn("delete folder: file failed",
					slog.String("file", file), slog.String("error", err.Error()))
				mu.Lock()
				failed = append(failed, file)
				if first == nil {
					first = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	res.FilesDeleted = len(walked.Files) - len(failed)
	res.FailedFiles = failed
	if res.FilesDeleted == 0 {
		return nil, fmt.Errorf("delete folder %s: %w", path, first)
	}

	s.changed("deleted", path)
	if permanent {
		res.Message = fmt.Sprintf("Permanently deleted %d files from %q", res.FilesDeleted, path)
	} else {
		res.Message = fmt.Sprintf("Moved %d files from %q to trash at %q", res.FilesDeleted, path, res.TrashPath)
	}
	return res, nil
}
