// Package testutil provides helpers for testing vdlaunch in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points every vdlaunch path at a fresh temp directory and clears
// variables that would change behaviour, so tests never touch a real install
// or hit GitHub with a user's token. It returns the temp root.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	t.Setenv("VDLAUNCH_CONFIG", filepath.Join(tmpDir, "config", "vdlaunch.lua"))
	t.Setenv("VDLAUNCH_DATA_DIR", filepath.Join(tmpDir, "data"))
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("DEBUG", "")

	for _, dir := range []string{filepath.Join(tmpDir, "config"), filepath.Join(tmpDir, "data")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return tmpDir
}
