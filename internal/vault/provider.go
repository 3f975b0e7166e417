// Package vault defines the vault access boundary: single-level directory
// listings and whole-file reads, writes and deletes against a note vault.
package vault

import "context"

// Listing is the content of one directory level. Names are relative to the
// listed directory and never carry a trailing slash.
type Listing struct {
	Files   []string `json:"files"`
	Folders []string `json:"folders"`
}

// Lister lists a single directory level. The empty path is the vault root.
type Lister interface {
	List(ctx context.Context, dir string) (Listing, error)
}

// Reader returns the full content of a file.
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

// Provider is the full set of vault operations.
type Provider interface {
	Lister
	Reader
	// Write creates or replaces the file at path.
	Write(ctx context.Context, path, content string) error
	// Append adds content to the end of the file at path, creating it if missing.
	Append(ctx context.Context, path, content string) error
	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error
	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)
	// DirExists reports whether a directory exists at path.
	DirExists(ctx context.Context, path string) (bool, error)
}
