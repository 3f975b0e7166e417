package vault

import (
	"errors"
	"testing"

	"github.com/starford/vaultmcp/internal/apperr"
)

func TestValidatePath(t *testing.T) {
	ok := []string{"", "note.md", "a/b/c.md", "🧪Test.md", "My Notes/daily 1.md",
		"Ideas... draft.md", "v1..2/n.md", "..hidden.md", "notes/end..", "a/..b/c.md"}
	for _, p := range ok {
		if err := ValidatePath(p); err != nil {
			t.Errorf("ValidatePath(%q) = %v", p, err)
		}
	}
	bad := []string{"../etc", "a/../b", "/abs.md", "a//b.md", "%2e%2e/secret", "a/%2E%2E/b", "..", "a/..", "a/../", "..%2Fsecret"}
	for _, p := range bad {
		err := ValidatePath(p)
		if !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("ValidatePath(%q) = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestEscapePath(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"Notes/":          "Notes/",
		"a b/c d.md":      "a%20b/c%20d.md",
		"🧪Test.md":        "%F0%9F%A7%AATest.md",
		"x/y#z.md":        "x/y%23z.md",
		"plain/path.md":   "plain/path.md",
	}
	for in, want := range cases {
		if got := EscapePath(in); got != want {
			t.Errorf("EscapePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinBaseDir(t *testing.T) {
	if got := Join("", "a.md"); got != "a.md" {
		t.Errorf("Join root = %q", got)
	}
	if got := Join("x/y", "a.md"); got != "x/y/a.md" {
		t.Errorf("Join = %q", got)
	}
	if got := Base("x/y/a.md"); got != "a.md" {
		t.Errorf("Base = %q", got)
	}
	if got := Dir("x/y/a.md"); got != "x/y" {
		t.Errorf("Dir = %q", got)
	}
	if got := Dir("a.md"); got != "" {
		t.Errorf("Dir root = %q", got)
	}
}
