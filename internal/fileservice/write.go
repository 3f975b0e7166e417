package fileservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/starford/vaultmcp/internal/apperr"
	"github.com/starford/vaultmcp/internal/checksum"
	"github.com/starford/vaultmcp/internal/vault"
)

// Write modes.
const (
	ModeCreate    = "create"
	ModeOverwrite = "overwrite"
	ModeAppend    = "append"
)

// keepFile is written to materialise a directory, since the vault has no
// notion of an empty folder.
const keepFile = "keep.md"

// WriteRequest describes a write.
type WriteRequest struct {
	Path    string
	Content string
	Mode    string
	// IfMatch, when set, must equal the checksum of the current content.
	IfMatch string
}

// WriteResult is the response of WriteFile.
type WriteResult struct {
	Path     string `json:"path"`
	Mode     string `json:"mode"`
	Checksum string `json:"checksum,omitempty"`
	Message  string `json:"message"`
}

// WriteFile creates, overwrites or appends to a file. When the vault rejects
// the write because the parent folder is missing, the folder is created and
// the write retried once.
func (s *Service) WriteFile(ctx context.Context, req WriteRequest) (*WriteResult, error) {
	if err := required("path", req.Path); err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeCreate
	}
	if mode != ModeCreate && mode != ModeOverwrite && mode != ModeAppend {
		return nil, fmt.Errorf("%w: mode must be one of create, overwrite, append", apperr.ErrInvalidArgument)
	}

	exists, err := s.vault.Exists(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	if mode == ModeCreate && exists {
		return nil, fmt.Errorf("%w: file already exists: %s. Use mode='overwrite' to replace",
			apperr.ErrAlreadyExists, req.Path)
	}
	if req.IfMatch != "" {
		if !exists {
			return nil, s.notFound(ctx, req.Path)
		}
		current, err := s.vault.Read(ctx, req.Path)
		if err != nil {
			return nil, err
		}
		if checksum.SumString(current) != req.IfMatch {
			return nil, fmt.Errorf("%w: checksum mismatch for %s", apperr.ErrConflict, req.Path)
		}
	}

	if err := s.put(ctx, mode, req.Path, req.Content); err != nil {
		if !parentMissing(err) {
			return nil, err
		}
		if fixErr := s.ensureParent(ctx, req.Path); fixErr != nil {
			return nil, err
		}
		if retryErr := s.put(ctx, mode, req.Path, req.Content); retryErr != nil {
			return nil, err
		}
	}

	kind := "updated"
	if !exists {
		kind = "created"
	}
	s.changed(kind, req.Path)

	res := &WriteResult{Path: req.Path, Mode: mode}
	if mode == ModeAppend {
		res.Message = fmt.Sprintf("Successfully appended to file %q", req.Path)
	} else {
		res.Checksum = checksum.SumString(req.Content)
		res.Message = fmt.Sprintf("Successfully wrote file %q", req.Path)
	}
	return res, nil
}

func (s *Service) put(ctx context.Context, mode, path, content string) error {
	if mode == ModeAppend {
		return s.vault.Append(ctx, path, content)
	}
	return s.vault.Write(ctx, path, content)
}

func parentMissing(err error) bool {
	var se *vault.StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, apperr.ErrNotFound)
}

// ensureParent creates the parent folder of path via a keep file. It fails
// when path is at the root or the parent already exists, since the write
// error then has some other cause.
func (s *Service) ensureParent(ctx context.Context, path string) error {
	parent := vault.Dir(path)
	if parent == "" {
		return errors.New("no parent folder")
	}
	ok, err := s.vault.DirExists(ctx, parent)
	if err != nil {
		return err
	}
	if ok {
		return errors.New("parent folder exists")
	}
	s.logger.Info("write: creating parent folder", slog.String("folder", parent))
	keep := vault.Join(parent, keepFile)
	if err := s.vault.Write(ctx, keep, ""); err != nil {
		return err
	}
	// The keep file exists now whether or not the retried write succeeds.
	s.changed("created", keep)
	return nil
}
