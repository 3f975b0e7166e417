// Package testutil provides an in-memory vault with failure injection and
// call accounting for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/starford/vaultmcp/internal/apperr"
	"github.com/starford/vaultmcp/internal/vault"
)

// MemVault implements vault.Provider over a map of path → content.
// Directories are derived from file path prefixes, plus any created explicitly.
type MemVault struct {
	mu        sync.Mutex
	files     map[string]string
	dirs      map[string]struct{}
	listErr   map[string]error
	readErr   map[string]error
	writeErr  map[string][]error
	deleteErr map[string]error
	listCalls int
	readCalls int
	reads     []string
}

var _ vault.Provider = (*MemVault)(nil)

// NewMemVault returns a vault seeded with files.
func NewMemVault(files map[string]string) *MemVault {
	m := &MemVault{
		files:     make(map[string]string, len(files)),
		dirs:      make(map[string]struct{}),
		listErr:   make(map[string]error),
		readErr:   make(map[string]error),
		writeErr:  make(map[string][]error),
		deleteErr: make(map[string]error),
	}
	for p, c := range files {
		m.files[p] = c
	}
	return m
}

// FailList makes List(dir) fail with err.
func (m *MemVault) FailList(dir string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr[strings.TrimSuffix(dir, "/")] = err
}

// FailRead makes Read(path) fail with err.
func (m *MemVault) FailRead(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr[path] = err
}

// FailWrite makes the next Write(path) or Append(path) fail with err.
// Calling it again queues one more failure.
func (m *MemVault) FailWrite(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr[path] = append(m.writeErr[path], err)
}

// FailDelete makes Delete(path) fail with err.
func (m *MemVault) FailDelete(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr[path] = err
}

// ListCalls returns how many List calls were made.
func (m *MemVault) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// ReadCalls returns how many Read calls were made.
func (m *MemVault) ReadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCalls
}

// Reads returns the paths passed to Read, in call order.
func (m *MemVault) Reads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reads...)
}

// Files returns a sorted copy of every stored path.
func (m *MemVault) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Content returns the stored content of path.
func (m *MemVault) Content(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.files[path]
	return c, ok
}

func (m *MemVault) dirExistsLocked(dir string) bool {
	if dir == "" {
		return true
	}
	if _, ok := m.dirs[dir]; ok {
		return true
	}
	for p := range m.files {
		if strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}

// List implements vault.Lister.
func (m *MemVault) List(_ context.Context, dir string) (vault.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	dir = strings.TrimSuffix(dir, "/")
	if err, ok := m.listErr[dir]; ok {
		return vault.Listing{}, err
	}
	if !m.dirExistsLocked(dir) {
		return vault.Listing{}, fmt.Errorf("memvault: list %q: %w", dir, apperr.ErrNotFound)
	}

	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	var out vault.Listing
	seen := map[string]bool{}
	addFolder := func(name string) {
		if !seen[name] {
			seen[name] = true
			out.Folders = append(out.Folders, name)
		}
	}
	for p := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			addFolder(rest[:i])
		} else {
			out.Files = append(out.Files, rest)
		}
	}
	for d := range m.dirs {
		if strings.HasPrefix(d, prefix) && d != dir {
			rest := strings.TrimPrefix(d, prefix)
			if i := strings.Index(rest, "/"); i >= 0 {
				rest = rest[:i]
			}
			addFolder(rest)
		}
	}
	sort.Strings(out.Files)
	sort.Strings(out.Folders)
	return out, nil
}

// Read implements vault.Reader.
func (m *MemVault) Read(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls++
	m.reads = append(m.reads, path)
	if err, ok := m.readErr[path]; ok {
		return "", err
	}
	c, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("memvault: read %q: %w", path, apperr.ErrNotFound)
	}
	return c, nil
}

func (m *MemVault) takeWriteErr(path string) error {
	errs := m.writeErr[path]
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		delete(m.writeErr, path)
	} else {
		m.writeErr[path] = errs[1:]
	}
	return errs[0]
}

// Write implements vault.Provider.
func (m *MemVault) Write(_ context.Context, path, content string) error {
	if err := vault.ValidatePath(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeWriteErr(path); err != nil {
		return err
	}
	m.files[path] = content
	return nil
}

// Append implements vault.Provider.
func (m *MemVault) Append(_ context.Context, path, content string) error {
	if err := vault.ValidatePath(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeWriteErr(path); err != nil {
		return err
	}
	m.files[path] += content
	return nil
}

// Delete implements vault.Provider.
func (m *MemVault) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.deleteErr[path]; ok {
		return err
	}
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("memvault: delete %q: %w", path, apperr.ErrNotFound)
	}
	delete(m.files, path)
	return nil
}

// Exists implements vault.Provider.
func (m *MemVault) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok, nil
}

// DirExists implements vault.Provider.
func (m *MemVault) DirExists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirExistsLocked(strings.TrimSuffix(path, "/")), nil
}

// MakeDir registers an empty directory.
func (m *MemVault) MakeDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[strings.TrimSuffix(dir, "/")] = struct{}{}
}

// ErrBroken is a generic injected failure.
var ErrBroken = errors.New("injected failure")

// TestVault creates a temporary on-disk vault.
func TestVault(t *testing.T) (string, *vault.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := vault.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
