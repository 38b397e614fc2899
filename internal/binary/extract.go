package binary

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/failure"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/logging"
)

// ExtractSuffix is appended to the archive path to name its scratch directory.
const ExtractSuffix = ".extract"

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// Installer extracts archives and installs the executables they contain.
type Installer struct {
	posix  bool
	logger logging.Logger
}

// NewInstaller creates a new installer. When posix is true installed files
// get execute permission for owner, group and others.
func NewInstaller(posix bool, logger logging.Logger) *Installer {
	return &Installer{posix: posix, logger: logging.OrNoop(logger)}
}

// InstallFrom extracts archivePath and copies every file whose base name
// matches one of wanted (case-insensitive) into destDir. It returns the sorted
// names of the installed files.
//
// The archive is removed, together with its scratch directory, whatever the
// outcome.
func (in *Installer) InstallFrom(archivePath string, wanted []string, destDir string) (installed []string, err error) {
	scratch := archivePath + ExtractSuffix

	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			in.logger.Warn("remove extract dir", "path", scratch, "error", rmErr)
		}
		if rmErr := os.Remove(archivePath); rmErr != nil && !os.IsNotExist(rmErr) {
			in.logger.Warn("remove archive", "path", archivePath, "error", rmErr)
		}
	}()

	// A previous failed run may have left the scratch directory behind
	if err := os.RemoveAll(scratch); err != nil {
		return nil, failure.New(failure.KindExtraction, "clear stale extract dir", err)
	}

	if err := in.Extract(archivePath, scratch); err != nil {
		return nil, err
	}

	matches, err := findWanted(scratch, wanted)
	if err != nil {
		return nil, failure.New(failure.KindInstall, "scan extracted files", err)
	}
	if len(matches) == 0 {
		return nil, failure.Newf(failure.KindInstall, "", "none of %s found in archive", strings.Join(wanted, ", "))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, failure.New(failure.KindInstall, "create install dir", err)
	}

	for name, src := range matches {
		dest := filepath.Join(destDir, name)
		if err := in.installFile(src, dest); err != nil {
			return installed, failure.New(failure.KindInstall, fmt.Sprintf("install %s", name), err)
		}
		installed = append(installed, name)
	}
	sort.Strings(installed)

	in.logger.Debug("installed from archive", "archive", filepath.Base(archivePath), "files", installed)
	return installed, nil
}

// Install moves a downloaded executable into place at destPath and marks it
// executable. src and destPath may be the same file.
func (in *Installer) Install(src, destPath string) error {
	if src != destPath {
		if err := os.Rename(src, destPath); err != nil {
			return failure.New(failure.KindInstall, "move executable", err)
		}
	}
	if in.posix {
		if err := SetExecutable(destPath); err != nil {
			return failure.New(failure.KindInstall, "", err)
		}
	}
	return nil
}

// Extract unpacks archivePath into destDir. Zip is tried first, then tar
// (uncompressed, gzip or xz, detected from the content).
func (in *Installer) Extract(archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return failure.New(failure.KindExtraction, "create extract dir", err)
	}

	zipErr := extractZip(archivePath, destDir)
	if zipErr == nil {
		return nil
	}

	// Partially written entries from the zip attempt must not leak into the
	// tar attempt.
	if err := resetDir(destDir); err != nil {
		return failure.New(failure.KindExtraction, "reset extract dir", err)
	}

	tarErr := extractTar(archivePath, destDir)
	if tarErr == nil {
		return nil
	}

	return failure.Newf(failure.KindExtraction, "", "unsupported or corrupt archive %s (zip: %v; tar: %v)",
		filepath.Base(archivePath), zipErr, tarErr)
}

// extractZip extracts a zip archive to a destination directory
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		err = writeFile(target, rc, 0644)
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// extractTar extracts a tar archive, optionally gzip or xz compressed
func extractTar(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	br := bufio.NewReader(archiveFile)
	head, _ := br.Peek(len(xzMagic))

	var src io.Reader = br
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gzipReader, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		src = gzipReader
	case bytes.HasPrefix(head, xzMagic):
		xzReader, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("create xz reader: %w", err)
		}
		src = xzReader
	}

	tarReader := tar.NewReader(src)
	entries := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		entries++

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tarReader, os.FileMode(header.Mode).Perm()|0600); err != nil {
				return err
			}
		default:
			// Symlinks and devices are never needed for the executables we install
			continue
		}
	}

	if entries == 0 {
		return fmt.Errorf("empty or unrecognised tar archive")
	}
	return nil
}

// findWanted walks root and maps each wanted base name (as spelled in wanted)
// to the first matching regular file in lexical walk order.
func findWanted(root string, wanted []string) (map[string]string, error) {
	lookup := make(map[string]string, len(wanted))
	for _, w := range wanted {
		lookup[strings.ToLower(w)] = w
	}

	matches := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name, ok := lookup[strings.ToLower(d.Name())]
		if !ok {
			return nil
		}
		if _, seen := matches[name]; !seen {
			matches[name] = path
		}
		return nil
	})

	return matches, err
}

// installFile copies src to dest through a ".part" file and a rename.
func (in *Installer) installFile(src, dest string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open extracted file: %w", err)
	}
	defer srcFile.Close()

	tmp := dest + PartSuffix
	if err := writeFile(tmp, srcFile, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if in.posix {
		if err := SetExecutable(tmp); err != nil {
			os.Remove(tmp)
			return err
		}
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// writeFile creates path (and its parent directories) with the content of r.
func writeFile(path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", path, err)
	}
	return nil
}

// safeJoin joins name onto dir and rejects entries that would escape it.
func safeJoin(dir, name string) (string, error) {
	root := filepath.Clean(dir)
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path: %s", name)
	}
	return target, nil
}

// resetDir empties dir, recreating it.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// SetExecutable adds execute permission for owner, group and others
func SetExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	if err := os.Chmod(path, info.Mode().Perm()|0111); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
