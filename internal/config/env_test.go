package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TTYG_TEST_DOTENV=from-file\nTTYG_TEST_PRESET=from-file\n"), 0600))

	orig := EnvFiles
	EnvFiles = []string{filepath.Join(dir, ".env.local"), envFile}
	t.Cleanup(func() { EnvFiles = orig })

	t.Setenv("TTYG_TEST_PRESET", "from-env")
	t.Setenv("TTYG_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("TTYG_TEST_DOTENV"))

	require.NoError(t, LoadEnvFiles())

	assert.Equal(t, "from-file", os.Getenv("TTYG_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("TTYG_TEST_PRESET"))
}
