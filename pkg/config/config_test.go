package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExpand(t *testing.T) {
	t.Setenv("CFG_SET", "value")
	t.Setenv("CFG_EMPTY", "")

	assert.Equal(t, "value", Expand("${CFG_SET}"))
	assert.Equal(t, "value", Expand("${CFG_SET:-other}"))
	assert.Equal(t, "fallback", Expand("${CFG_EMPTY:-fallback}"))
	assert.Equal(t, "fallback", Expand("${CFG_UNSET_X:-fallback}"))
	assert.Equal(t, "", Expand("${CFG_UNSET_X}"))
}

func TestReadExpandsEnv(t *testing.T) {
	t.Setenv("CFG_PORT", "8081")
	var s sample
	require.NoError(t, Read(write(t, "name: ${CFG_NAME:-vault}\nport: ${CFG_PORT}\n"), &s))
	assert.Equal(t, sample{Name: "vault", Port: 8081}, s)
	assert.NoError(t, Validate(&s))
}

func TestValidateAfterRead(t *testing.T) {
	var s sample
	require.NoError(t, Read(write(t, "name: x\n"), &s))
	err := Validate(&s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port is required")
}

func TestReadKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 1}
	require.NoError(t, Read(write(t, "port: 2\n"), &s))
	assert.Equal(t, sample{Name: "default", Port: 2}, s)
}

func TestReadMissingFile(t *testing.T) {
	var s sample
	err := Read(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
