package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFile is read from the working directory when no path is given
const DefaultConfigFile = "client.yaml"

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	if l.configPath == "" {
		return DefaultConfigFile
	}
	return l.configPath
}

// Load loads the configuration from file. A missing file is an error:
// the client cannot talk to any backend without credentials.
func (l *Loader) Load() (*Config, error) {
	configPath := l.Path()

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", configPath, err)
	}

	// Setup viper
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// TTYG_GRAPHDB_PASSWORD overrides graphdb.password and so on
	v.SetEnvPrefix("TTYG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// bindEnv registers keys that may be absent from the file so AutomaticEnv
// still picks them up during Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"openai.api_key",
		"openai.api_url",
		"openai.azure_api_version",
		"graphdb.url",
		"graphdb.username",
		"graphdb.password",
		"graphdb.auth_header",
		"graphdb.installation_id",
		"logging.level",
		"logging.file",
		"metrics.address",
		"threads_file",
		"parallel_tools",
	} {
		_ = v.BindEnv(key)
	}
}
