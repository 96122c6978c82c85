package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// EnvFiles are loaded, when present, before the config file is read so
// TTYG_* overrides can live next to client.yaml.
var EnvFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads EnvFiles into the process environment without
// overriding variables that are already set.
func LoadEnvFiles() error {
	for _, file := range EnvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}
