package testutil

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ulikunitz/xz"
)

// WriteZip creates a zip archive at path holding files (name -> content).
// Entries are written in sorted name order.
func WriteZip(t *testing.T, path string, files map[string]string) string {
	t.Helper()

	f := create(t, path)
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	for _, name := range sortedNames(files) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s to zip: %v", name, err)
		}
		if _, err := io.WriteString(w, files[name]); err != nil {
			t.Fatalf("failed to write %s to zip: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish zip: %v", err)
	}
	return path
}

// WriteTarGz creates a gzip-compressed tar archive at path.
func WriteTarGz(t *testing.T, path string, files map[string]string) string {
	t.Helper()

	f := create(t, path)
	defer func() { _ = f.Close() }()

	gw := gzip.NewWriter(f)
	writeTar(t, gw, files)
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to finish gzip: %v", err)
	}
	return path
}

// WriteTarXz creates an xz-compressed tar archive at path, the format of the
// Linux ffmpeg builds.
func WriteTarXz(t *testing.T, path string, files map[string]string) string {
	t.Helper()

	f := create(t, path)
	defer func() { _ = f.Close() }()

	xw, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	writeTar(t, xw, files)
	if err := xw.Close(); err != nil {
		t.Fatalf("failed to finish xz: %v", err)
	}
	return path
}

// WriteTar creates an uncompressed tar archive at path.
func WriteTar(t *testing.T, path string, files map[string]string) string {
	t.Helper()

	f := create(t, path)
	defer func() { _ = f.Close() }()

	writeTar(t, f, files)
	return path
}

func writeTar(t *testing.T, w io.Writer, files map[string]string) {
	t.Helper()

	tw := tar.NewWriter(w)
	for _, name := range sortedNames(files) {
		content := files[name]
		header := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", name, err)
		}
		if _, err := io.WriteString(tw, content); err != nil {
			t.Fatalf("failed to write content for %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to finish tar: %v", err)
	}
}

func create(t *testing.T, path string) *os.File {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	return f
}

func sortedNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
