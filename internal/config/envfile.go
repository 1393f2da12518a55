package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads process environment variables from .env files before
// Load/ApplyEnv run, in priority order .env.local (highest) then .env,
// grounded on the pack's config/env.go LoadEnvFiles (kadirpekel-hector):
// a missing file is not an error, but a malformed one is.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
