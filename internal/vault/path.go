package vault

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/vaultmcp/internal/apperr"
)

// ValidatePath rejects traversal and absolute paths. The path is URL-decoded
// first so that encoded forms such as %2e%2e are caught too.
func ValidatePath(p string) error {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		decoded = p
	}
	if strings.HasPrefix(decoded, "/") || strings.Contains(decoded, "//") {
		return fmt.Errorf("%w: traversal not allowed: %s", apperr.ErrInvalidPath, p)
	}
	// Only whole ".." segments climb; names such as "v1..2" are ordinary.
	for _, seg := range strings.Split(decoded, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: traversal not allowed: %s", apperr.ErrInvalidPath, p)
		}
	}
	return nil
}

// EscapePath escapes every segment independently so that separators survive
// and segments holding spaces or emoji are safe in a URL.
func EscapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if s != "" {
			segs[i] = url.PathEscape(s)
		}
	}
	return strings.Join(segs, "/")
}

// Join joins a directory and a name, omitting the separator for the root.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// Base returns the last segment of p.
func Base(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dir returns everything before the last segment of p, or "" at the root.
func Dir(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}
