package fileservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/vaultmcp/internal/apperr"
	"github.com/starford/vaultmcp/internal/vault"
)

// CreateDirectoryResult is the response of CreateDirectory.
type CreateDirectoryResult struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// CreateDirectory materialises path by writing an empty keep file into it.
// An existing directory is left untouched.
func (s *Service) CreateDirectory(ctx context.Context, path string) (*CreateDirectoryResult, error) {
	if err := required("path", path); err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, "/") {
		return nil, fmt.Errorf(`%w: path must not end with "/" (use "Notes" not "Notes/")`, apperr.ErrInvalidArgument)
	}
	if err := vault.ValidatePath(path); err != nil {
		return nil, err
	}

	exists, err := s.vault.DirExists(ctx, path)
	if err != nil {
		return nil, err
	}
	if exists {
		return &CreateDirectoryResult{Path: path, Message: fmt.Sprintf("Directory %q already exists", path)}, nil
	}

	keep := vault.Join(path, keepFile)
	if err := s.vault.Write(ctx, keep, ""); err != nil {
		return nil, err
	}
	s.changed("created", keep)
	return &CreateDirectoryResult{Path: path, Created: true, Message: fmt.Sprintf("Created directory %q", path)}, nil
}
