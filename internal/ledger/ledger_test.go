package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/failure"
)

func TestSetGetRoundTrip(t *testing.T) {
	l := InDir(t.TempDir())

	tests := []struct {
		name    string
		version string
	}{
		{"yt-dlp", "2024-04-09T15:13:30Z"},
		{"ffmpeg", "2024-05-02T12:00:00Z"},
		{"yt-dlp", "2024-06-01T00:00:00Z"},
	}

	for _, tt := range tests {
		if err := l.Set(tt.name, tt.version); err != nil {
			t.Fatalf("Set(%s) error = %v", tt.name, err)
		}
		got, ok, err := l.Get(tt.name)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", tt.name, err)
		}
		if !ok || got != tt.version {
			t.Errorf("Get(%s) = %q, %v; want %q, true", tt.name, got, ok, tt.version)
		}
	}

	all, err := l.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	want := map[string]string{"yt-dlp": "2024-06-01T00:00:00Z", "ffmpeg": "2024-05-02T12:00:00Z"}
	if len(all) != len(want) {
		t.Fatalf("All() = %v, want %v", all, want)
	}
	for k, v := range want {
		if all[k] != v {
			t.Errorf("All()[%s] = %q, want %q", k, all[k], v)
		}
	}
}

func TestGetAbsent(t *testing.T) {
	l := InDir(t.TempDir())

	if err := l.Set("ffmpeg", "2024-05-02T12:00:00Z"); err != nil {
		t.Fatal(err)
	}

	got, ok, err := l.Get("yt-dlp")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || got != "" {
		t.Errorf("Get() = %q, %v; want absent", got, ok)
	}
}

func TestMissingFileIsEmpty(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "nested", FileName))

	all, err := l.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("All() = %v, want empty", all)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("reading created the ledger file")
	}
}

func TestEnsure(t *testing.T) {
	dir := t.TempDir()
	l := InDir(dir)

	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("ledger not created: %v", err)
	}
	if strings.TrimSpace(string(data)) != "{}" {
		t.Errorf("new ledger = %q, want {}", data)
	}

	// Existing content is preserved
	if err := l.Set("yt-dlp", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Ensure(); err != nil {
		t.Fatal(err)
	}
	if got, ok, _ := l.Get("yt-dlp"); !ok || got != "v1" {
		t.Errorf("Ensure() clobbered existing ledger: %q, %v", got, ok)
	}
}

func TestDocumentFormat(t *testing.T) {
	dir := t.TempDir()
	l := InDir(dir)

	if err := l.Set("yt-dlp", "2024-04-09T15:13:30Z"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n    \"yt-dlp\": \"2024-04-09T15:13:30Z\"\n}"
	if string(data) != want {
		t.Errorf("document = %q, want %q", data, want)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName+".tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
	if _, err := os.Stat(filepath.Join(dir, FileName+".lock")); !os.IsNotExist(err) {
		t.Error("lock file left behind")
	}
}

func TestCorruptDocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"not_json", "this is not json", true},
		{"wrong_shape", `["yt-dlp"]`, true},
		{"empty_file", "", false},
		{"whitespace_only", "\n  \n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, _, err := InDir(dir).Get("yt-dlp")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, failure.ErrPersistence) {
				t.Errorf("error = %v, want persistence failure", err)
			}
		})
	}
}

func TestSetRepairsCorruptDocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not_json", "{broken"},
		{"wrong_shape", `["yt-dlp"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, FileName)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			l := InDir(dir)

			if err := l.Set("yt-dlp", "v1"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			all, err := l.All()
			if err != nil {
				t.Fatalf("All() after repair error = %v", err)
			}
			if len(all) != 1 || all["yt-dlp"] != "v1" {
				t.Errorf("All() = %v, want only yt-dlp=v1", all)
			}

			backup, err := os.ReadFile(path + CorruptSuffix)
			if err != nil {
				t.Fatalf("corrupt document not kept: %v", err)
			}
			if string(backup) != tt.content {
				t.Errorf("backup = %q, want %q", backup, tt.content)
			}
		})
	}
}

func TestSetUnreadableDocumentFails(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("file mode does not deny reads here")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(`{"ffmpeg": "v0"}`), 0000); err != nil {
		t.Fatal(err)
	}

	err := InDir(dir).Set("yt-dlp", "v1")
	if failure.KindOf(err) != failure.KindPersistence {
		t.Fatalf("Set() error = %v, want persistence failure", err)
	}
	if _, err := os.Stat(path + CorruptSuffix); !os.IsNotExist(err) {
		t.Error("unreadable document was treated as corrupt")
	}
}

func TestConcurrentSetsDisjointKeys(t *testing.T) {
	l := InDir(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := l.Set(fmt.Sprintf("dep-%d", i), fmt.Sprintf("v%d", i)); err != nil {
				t.Errorf("Set() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 20 {
		t.Errorf("ledger has %d entries, want 20", len(all))
	}
}

func TestSetWaitsForForeignLock(t *testing.T) {
	dir := t.TempDir()
	l := InDir(dir)
	l.lockWait = 50 * time.Millisecond

	lockPath := l.Path() + ".lock"
	if err := os.WriteFile(lockPath, []byte("pid=1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	err := l.Set("yt-dlp", "v1")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Set() error = %v, want ErrLocked", err)
	}

	// A stale lock is broken
	old := time.Now().Add(-2 * StaleLockThreshold)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatal(err)
	}
	if err := l.Set("yt-dlp", "v1"); err != nil {
		t.Fatalf("Set() with stale lock error = %v", err)
	}

	var doc map[string]string
	data, _ := os.ReadFile(l.Path())
	if err := json.Unmarshal(data, &doc); err != nil || doc["yt-dlp"] != "v1" {
		t.Errorf("document = %s", data)
	}
}
