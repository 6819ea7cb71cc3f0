package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/recmerge/internal/db"
)

// TempDB creates a temporary migrated SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// WriteFile writes content to a file in dir and returns its path
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// AssertStringContains asserts that a string contains a substring
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Fatalf("Expected string to contain %q, got %q", substr, str)
	}
}
