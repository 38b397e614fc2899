// Package ledger persists the version of every installed dependency.
//
// The ledger is a single pretty-printed JSON object mapping dependency name to
// the publish timestamp of the release that was last installed:
//
//	{
//	    "ffmpeg": "2024-05-02T12:00:00Z",
//	    "yt-dlp": "2024-04-09T15:13:30Z"
//	}
//
// Every call reads the document from disk; nothing is cached, so the file may
// be inspected or edited while the program runs. Writes go through a temp file
// and a rename, under a process-local mutex and a lock file so two writers
// updating different names cannot lose each other's update.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/failure"
)

// FileName is the ledger's file name inside the data directory.
const FileName = "version_info.json"

// CorruptSuffix is appended to the ledger path to keep a document that could
// not be parsed when Set replaces it.
const CorruptSuffix = ".corrupt"

// Ledger reads and writes the version document at a fixed path.
type Ledger struct {
	path     string
	lockWait time.Duration
	mu       sync.Mutex
}

// New returns a ledger backed by path. The file does not need to exist.
func New(path string) *Ledger {
	return &Ledger{path: path, lockWait: DefaultLockWait}
}

// InDir returns a ledger backed by dir/version_info.json.
func InDir(dir string) *Ledger {
	return New(filepath.Join(dir, FileName))
}

// Path returns the document path.
func (l *Ledger) Path() string {
	return l.path
}

// Ensure creates an empty document if none exists.
func (l *Ledger) Ensure() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return failure.New(failure.KindPersistence, "stat version ledger", err)
	}
	return l.write(map[string]string{})
}

// Get returns the recorded version for name. ok is false when no version
// was recorded.
func (l *Ledger) Get(name string) (version string, ok bool, err error) {
	versions, err := l.read()
	if err != nil {
		return "", false, err
	}
	version, ok = versions[name]
	return version, ok, nil
}

// All returns every recorded version.
func (l *Ledger) All() (map[string]string, error) {
	return l.read()
}

// Set records version for name, keeping all other entries. A document that
// is not a JSON object is moved aside to path+CorruptSuffix and replaced by one
// holding only name, so a single successful install repairs the ledger.
func (l *Ledger) Set(name, version string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return failure.New(failure.KindPersistence, "create ledger directory", err)
	}

	lock, err := acquireLock(l.path+".lock", l.lockWait)
	if err != nil {
		return failure.New(failure.KindPersistence, "lock version ledger", err)
	}
	defer lock.release()

	versions, parseErr, err := l.load()
	if err != nil {
		return err
	}
	if parseErr != nil {
		if err := os.Rename(l.path, l.path+CorruptSuffix); err != nil {
			return failure.New(failure.KindPersistence, "move corrupt ledger aside", err)
		}
		versions = map[string]string{}
	}
	versions[name] = version
	return l.write(versions)
}

// read loads the document. A missing file is an empty mapping.
func (l *Ledger) read() (map[string]string, error) {
	versions, parseErr, err := l.load()
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, failure.New(failure.KindPersistence, "parse version ledger", parseErr)
	}
	return versions, nil
}

// load separates I/O failures (err) from a document that exists but does not
// decode (parseErr).
func (l *Ledger) load() (versions map[string]string, parseErr, err error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil, nil
	}
	if err != nil {
		return nil, nil, failure.New(failure.KindPersistence, "read version ledger", err)
	}

	versions = map[string]string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return versions, nil, nil
	}
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, err, nil
	}
	return versions, nil, nil
}

// write replaces the document atomically.
func (l *Ledger) write(versions map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return failure.New(failure.KindPersistence, "create ledger directory", err)
	}

	data, err := json.MarshalIndent(versions, "", "    ")
	if err != nil {
		return failure.New(failure.KindPersistence, "marshal version ledger", err)
	}

	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return failure.New(failure.KindPersistence, "write temporary ledger file", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return failure.New(failure.KindPersistence, "rename ledger file", fmt.Errorf("%s: %w", l.path, err))
	}
	return nil
}
