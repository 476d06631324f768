package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads environment variables from .env/.env.local if present.
// Existing process environment variables are never overwritten.
func loadEnvFiles() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", "path", path, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", path)
	}
}

// Hosted reports whether the build runs under a hosted documentation service.
// Read the Docs sets READTHEDOCS to the exact string "True"; MAPDOC_HOSTED=1
// forces hosted behavior on other services.
func Hosted() bool {
	if os.Getenv("READTHEDOCS") == "True" {
		return true
	}
	return os.Getenv("MAPDOC_HOSTED") == "1"
}
