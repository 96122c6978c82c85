package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk-test-key-0123456789abcdefghij"
	cfg.GraphDB.URL = "http://localhost:7200"
	cfg.GraphDB.Username = "alice"
	cfg.GraphDB.InstallationID = "inst-1"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "ttyg.log", cfg.Logging.File)
	assert.True(t, cfg.Logging.Redaction)
	assert.Equal(t, "threads.yaml", cfg.ThreadsFile)
	assert.Empty(t, cfg.Metrics.Address)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing api key", func(c *Config) { c.OpenAI.APIKey = "" }, "openai.api_key"},
		{"bad api url", func(c *Config) { c.OpenAI.APIURL = "not a url" }, "openai.api_url"},
		{"azure without version", func(c *Config) { c.OpenAI.APIURL = "https://x.openai.azure.com" }, "azure_api_version"},
		{"missing graphdb url", func(c *Config) { c.GraphDB.URL = "" }, "graphdb.url"},
		{"missing username", func(c *Config) { c.GraphDB.Username = "" }, "graphdb.username"},
		{"missing installation id", func(c *Config) { c.GraphDB.InstallationID = "" }, "graphdb.installation_id"},
		{"empty threads file", func(c *Config) { c.ThreadsFile = "" }, "threads_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("azure with version", func(t *testing.T) {
		cfg := validConfig()
		cfg.OpenAI.APIURL = "https://x.openai.azure.com"
		cfg.OpenAI.AzureAPIVersion = "2024-05-01-preview"
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfigIsAzure(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.IsAzure())

	cfg.OpenAI.APIURL = "https://api.openai.com/v1"
	assert.False(t, cfg.IsAzure())

	cfg.OpenAI.APIURL = "https://my-resource.openai.azure.com/"
	assert.True(t, cfg.IsAzure())
}

func TestConfigString(t *testing.T) {
	cfg := validConfig()
	cfg.GraphDB.Password = "hunter2"
	cfg.GraphDB.AuthHeader = "Bearer abc"

	out := cfg.String()

	assert.NotContains(t, out, "sk-test-key")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "Bearer abc")
	assert.Contains(t, out, "inst-1")
	assert.Contains(t, out, "********")
}
