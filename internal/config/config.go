package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Config represents the ttyg client configuration
type Config struct {
	// OpenAI Assistants backend
	OpenAI OpenAIConfig `json:"openai" yaml:"openai" mapstructure:"openai"`

	// GraphDB tool backend and tenant identity
	GraphDB GraphDBConfig `json:"graphdb" yaml:"graphdb" mapstructure:"graphdb"`

	// Logging
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Local thread registry file
	ThreadsFile string `json:"threads_file" yaml:"threads_file" mapstructure:"threads_file"`

	// Dispatch the tool calls of one run pause concurrently
	ParallelTools bool `json:"parallel_tools" yaml:"parallel_tools" mapstructure:"parallel_tools"`
}

// OpenAIConfig holds the LLM backend settings
type OpenAIConfig struct {
	APIKey          string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	APIURL          string `json:"api_url" yaml:"api_url" mapstructure:"api_url"`
	AzureAPIVersion string `json:"azure_api_version" yaml:"azure_api_version" mapstructure:"azure_api_version"`
}

// GraphDBConfig holds the tool backend settings
type GraphDBConfig struct {
	URL            string `json:"url" yaml:"url" mapstructure:"url"`
	Username       string `json:"username" yaml:"username" mapstructure:"username"`
	Password       string `json:"password" yaml:"password" mapstructure:"password"`
	AuthHeader     string `json:"auth_header" yaml:"auth_header" mapstructure:"auth_header"`
	InstallationID string `json:"installation_id" yaml:"installation_id" mapstructure:"installation_id"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" yaml:"level" mapstructure:"level"`
	File      string `json:"file" yaml:"file" mapstructure:"file"`
	Redaction bool   `json:"redaction" yaml:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the optional Prometheus endpoint. Empty address disables it.
type MetricsConfig struct {
	Address string `json:"address" yaml:"address" mapstructure:"address"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			File:      "ttyg.log",
			Redaction: true,
		},
		ThreadsFile: "threads.yaml",
	}
}

// IsAzure reports whether the OpenAI URL points at an Azure OpenAI deployment
func (c *Config) IsAzure() bool {
	return strings.Contains(c.OpenAI.APIURL, "azure.com")
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	masked.OpenAI.APIKey = mask(c.OpenAI.APIKey)
	masked.GraphDB.Password = mask(c.GraphDB.Password)
	masked.GraphDB.AuthHeader = mask(c.GraphDB.AuthHeader)
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.OpenAI.APIURL != "" {
		if _, err := url.ParseRequestURI(c.OpenAI.APIURL); err != nil {
			return fmt.Errorf("invalid openai.api_url %q: %w", c.OpenAI.APIURL, err)
		}
	}
	if c.IsAzure() && c.OpenAI.AzureAPIVersion == "" {
		return fmt.Errorf("openai.azure_api_version is required for Azure endpoints")
	}

	if c.GraphDB.URL == "" {
		return fmt.Errorf("graphdb.url is required")
	}
	if _, err := url.ParseRequestURI(c.GraphDB.URL); err != nil {
		return fmt.Errorf("invalid graphdb.url %q: %w", c.GraphDB.URL, err)
	}
	if c.GraphDB.Username == "" {
		return fmt.Errorf("graphdb.username is required")
	}
	if c.GraphDB.InstallationID == "" {
		return fmt.Errorf("graphdb.installation_id is required")
	}

	if c.ThreadsFile == "" {
		return fmt.Errorf("threads_file cannot be empty")
	}

	return nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
