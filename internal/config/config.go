package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
	Output   string `yaml:"output"`
}

// LocalDBPath is the project-local database used when present.
const LocalDBPath = ".recmerge/recmerge.db"

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/recmerge/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Output:   "json",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional; a malformed one is not
	if err := loadYAMLConfig(cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if dbPath := getEnvOrFile("RECMERGE_DB_PATH", "RECMERGE_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel := os.Getenv("RECMERGE_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("RECMERGE_OUTPUT"); output != "" {
		cfg.Output = output
	}

	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(LocalDBPath); err == nil {
			cfg.DBPath = LocalDBPath
		} else {
			// Fall back to user-global database
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "recmerge", "recmerge.db")
		}
	}

	return cfg, nil
}

// loadYAMLConfig loads configuration from ~/.config/recmerge/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "recmerge", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Clean paths for reliable comparison
	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		// Get parent directory
		parent := filepath.Dir(dir)

		// Stop if we've reached the filesystem root
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
