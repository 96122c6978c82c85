package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `openai:
  api_key: sk-file-key
  api_url: https://my-resource.openai.azure.com/
  azure_api_version: 2024-05-01-preview
graphdb:
  url: http://localhost:7200
  username: alice
  password: secret
  installation_id: inst-1
`

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/client.yaml")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/client.yaml", loader.configPath)
	assert.Equal(t, "/path/to/client.yaml", loader.Path())

	assert.Equal(t, DefaultConfigFile, NewLoader("").Path())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("missing file is an error", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		cfg, err := loader.Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("load config from file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "client.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(sampleConfig), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, "sk-file-key", cfg.OpenAI.APIKey)
		assert.Equal(t, "2024-05-01-preview", cfg.OpenAI.AzureAPIVersion)
		assert.Equal(t, "http://localhost:7200", cfg.GraphDB.URL)
		assert.Equal(t, "alice", cfg.GraphDB.Username)
		assert.Equal(t, "secret", cfg.GraphDB.Password)
		assert.Empty(t, cfg.GraphDB.AuthHeader)
		assert.Equal(t, "inst-1", cfg.GraphDB.InstallationID)
		assert.True(t, cfg.IsAzure())

		// Defaults survive for keys absent from the file
		assert.Equal(t, "threads.yaml", cfg.ThreadsFile)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "client.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(sampleConfig), 0644))

		t.Setenv("TTYG_GRAPHDB_AUTH_HEADER", "Bearer from-env")
		t.Setenv("TTYG_OPENAI_API_KEY", "sk-env-key")

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, "sk-env-key", cfg.OpenAI.APIKey)
		assert.Equal(t, "Bearer from-env", cfg.GraphDB.AuthHeader)
	})

	t.Run("invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("openai: [unterminated"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}
