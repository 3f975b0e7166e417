package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/vaultmcp/internal/apperr"
)

const tmpPrefix = ".vaultmcp-tmp-"

// FS implements Provider over a local directory. It serves vaults that are
// mounted on the same host and backs the integration tests.
type FS struct {
	root string // absolute path to vault directory
}

var _ Provider = (*FS)(nil)

// NewFS creates an FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// resolve maps a vault path onto the file system and refuses anything that
// escapes the root.
func (f *FS) resolve(rel string) (string, error) {
	if err := ValidatePath(rel); err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, "/")
	if rel == "" {
		return f.root, nil
	}
	abs := filepath.Join(f.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: escapes vault root: %s", apperr.ErrInvalidPath, rel)
	}
	return abs, nil
}

func notFound(err error, path string) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("vault: %s: %w", path, apperr.ErrNotFound)
	}
	return fmt.Errorf("vault: %s: %w", path, err)
}

// List returns the immediate files and folders of dir.
func (f *FS) List(_ context.Context, dir string) (Listing, error) {
	abs, err := f.resolve(dir)
	if err != nil {
		return Listing{}, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return Listing{}, notFound(err, dir)
	}
	var out Listing
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		if e.IsDir() {
			out.Folders = append(out.Folders, name)
		} else {
			out.Files = append(out.Files, name)
		}
	}
	return out, nil
}

// Read returns the content of a vault file.
func (f *FS) Read(_ context.Context, path string) (string, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", notFound(err, path)
	}
	return string(data), nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(_ context.Context, path, content string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}

// Append adds content to the end of path, creating the file and its parents.
func (f *FS) Append(_ context.Context, path, content string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}
	fh, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("vault: open %s: %w", path, err)
	}
	if _, err := fh.WriteString(content); err != nil {
		_ = fh.Close()
		return fmt.Errorf("vault: append %s: %w", path, err)
	}
	return fh.Close()
}

// Delete removes a file from the vault.
func (f *FS) Delete(_ context.Context, path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("%w: refusing to delete vault root", apperr.ErrInvalidPath)
	}
	if err := os.Remove(abs); err != nil {
		return notFound(err, path)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func (f *FS) Exists(_ context.Context, path string) (bool, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vault: stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

// DirExists reports whether a directory exists at path.
func (f *FS) DirExists(_ context.Context, path string) (bool, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vault: stat %s: %w", path, err)
	}
	return info.IsDir(), nil
}
