package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort(t *testing.T) {
	t.Setenv("SB_PORT", "8083")
	p, err := Port("SB_PORT", "1")
	require.NoError(t, err)
	assert.Equal(t, "8083", p)

	t.Setenv("SB_PORT", "99999")
	_, err = Port("SB_PORT", "1")
	assert.Error(t, err)
}

func TestRequiredString(t *testing.T) {
	t.Setenv("SB_REQUIRED", "  ")
	_, err := RequiredString("SB_REQUIRED")
	assert.Error(t, err)

	t.Setenv("SB_REQUIRED", "postgres://x")
	v, err := RequiredString("SB_REQUIRED")
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", v)
}

func TestTypedHelpers(t *testing.T) {
	t.Setenv("SB_INT", "42")
	t.Setenv("SB_BAD_INT", "forty")
	t.Setenv("SB_BOOL", "yes")
	t.Setenv("SB_DUR", "90s")
	t.Setenv("SB_DUR_SECS", "15")
	t.Setenv("SB_LIST", "a, b,,c ")

	assert.Equal(t, 42, Int("SB_INT", 1))
	assert.Equal(t, 7, Int("SB_BAD_INT", 7))
	assert.True(t, Bool("SB_BOOL", false))
	assert.True(t, Bool("SB_UNSET_BOOL", true))
	assert.Equal(t, 90*time.Second, Duration("SB_DUR", time.Second))
	assert.Equal(t, 15*time.Second, Duration("SB_DUR_SECS", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, List("SB_LIST", ""))
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SB_DOTENV_VALUE=from-file\n"), 0o600))

	t.Setenv("SB_DOTENV_VALUE", "")
	require.NoError(t, os.Unsetenv("SB_DOTENV_VALUE"))
	require.NoError(t, LoadDotenv(path))
	assert.Equal(t, "from-file", os.Getenv("SB_DOTENV_VALUE"))

	require.NoError(t, LoadDotenv(filepath.Join(dir, "missing.env")))
}
