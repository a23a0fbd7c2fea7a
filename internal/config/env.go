package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFileNames are tried in order; existing process variables are never overridden.
var envFileNames = []string{".env", ".env.local"}

// loadEnvFiles loads .env files from dir. Missing files are not an error.
func loadEnvFiles(dir string) error {
	for _, name := range envFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
		slog.Debug("Loaded environment variables", "path", path)
	}
	return nil
}
