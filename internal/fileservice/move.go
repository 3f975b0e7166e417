package fileservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/vaultmcp/internal/apperr"
)

// MoveResult is the response of MoveFile.
type MoveResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Message     string `json:"message"`
}

// MoveFile copies source to destination and then deletes source. The vault
// has no rename call, so a failed delete leaves both copies in place.
func (s *Service) MoveFile(ctx context.Context, source, destination string, overwrite bool) (*MoveResult, error) {
	if err := required("source", source); err != nil {
		return nil, err
	}
	if err := required("destination", destination); err != nil {
		return nil, err
	}
	if source == destination {
		return nil, fmt.Errorf("%w: source and destination are the same", apperr.ErrInvalidArgument)
	}

	content, err := s.vault.Read(ctx, source)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, s.notFound(ctx, source)
		}
		return nil, err
	}

	if !overwrite {
		exists, err := s.vault.Exists(ctx, destination)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: destination already exists: %s. Use overwrite=true to replace",
				apperr.ErrAlreadyExists, destination)
		}
	}

	if err := s.vault.Write(ctx, destination, content); err != nil {
		if !parentMissing(err) || s.ensureParent(ctx, destination) != nil {
			return nil, err
		}
		if retryErr := s.vault.Write(ctx, destination, content); retryErr != nil {
			return nil, err
		}
	}
	if err := s.vault.Delete(ctx, source); err != nil {
		s.changed("created", destination)
		return nil, fmt.Errorf("copied to %s but could not delete %s: %w", destination, source, err)
	}

	s.changed("moved", destination)
	return &MoveResult{
		Source:      source,
		Destination: destination,
		Message:     fmt.Sprintf("Moved %q to %q", source, destination),
	}, nil
}
