package testutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	root := testutil.SetupTestEnv(t)

	dataDir := os.Getenv("VDLAUNCH_DATA_DIR")
	if dataDir != filepath.Join(root, "data") {
		t.Errorf("VDLAUNCH_DATA_DIR = %q, want under %q", dataDir, root)
	}
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		t.Errorf("data dir not created: %v", err)
	}

	configPath := os.Getenv("VDLAUNCH_CONFIG")
	if !strings.HasPrefix(configPath, root) {
		t.Errorf("VDLAUNCH_CONFIG = %q, want under %q", configPath, root)
	}
	if info, err := os.Stat(filepath.Dir(configPath)); err != nil || !info.IsDir() {
		t.Errorf("config dir not created: %v", err)
	}

	if os.Getenv("GITHUB_TOKEN") != "" {
		t.Error("GITHUB_TOKEN not cleared")
	}
}

func TestArchiveBuilders(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"bin/ffmpeg": "x"}

	for _, path := range []string{
		testutil.WriteZip(t, filepath.Join(dir, "a.zip"), files),
		testutil.WriteTarGz(t, filepath.Join(dir, "a.tar.gz"), files),
		testutil.WriteTar(t, filepath.Join(dir, "a.tar"), files),
	} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("archive %s not written: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("archive %s is empty", path)
		}
	}
}
