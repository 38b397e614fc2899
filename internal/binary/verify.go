package binary

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Verifier checks downloads against release checksum files and, when a
// keyring is configured, the checksum file's detached OpenPGP signature.
type Verifier struct {
	keyringPath string
}

// NewVerifier creates a new verifier. keyringPath may be empty, in which case
// signatures are never checked.
func NewVerifier(keyringPath string) *Verifier {
	return &Verifier{keyringPath: keyringPath}
}

// CanVerifySignatures reports whether a keyring is configured.
func (v *Verifier) CanVerifySignatures() bool {
	return v.keyringPath != ""
}

// VerifyChecksum checks that the SHA-256 of filePath matches the entry for
// assetName in checksumPath. The file uses the sha256sum layout: "<hex>  <name>"
// with an optional "*" before binary-mode names.
func (v *Verifier) VerifyChecksum(filePath, checksumPath, assetName string) error {
	sums, err := readChecksums(checksumPath)
	if err != nil {
		return fmt.Errorf("find checksum: %w", err)
	}
	expected, ok := sums[assetName]
	if !ok {
		return fmt.Errorf("find checksum: no entry for %s", assetName)
	}

	actual, err := calculateSHA256(filePath)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch for %s: actual %s, expected %s", assetName, actual, expected)
	}
	return nil
}

// VerifySignature checks the detached signature sigPath over signedPath
// against the configured keyring. Armored and binary signatures are accepted.
func (v *Verifier) VerifySignature(signedPath, sigPath string) error {
	if !v.CanVerifySignatures() {
		return errors.New("no keyring configured")
	}

	keyring, err := v.loadKeyring()
	if err != nil {
		return err
	}
	signed, err := os.ReadFile(signedPath)
	if err != nil {
		return fmt.Errorf("read signed file: %w", err)
	}
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("read signature: %w", err)
	}

	if _, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(signed), bytes.NewReader(sig), nil); err == nil {
		return nil
	}
	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(signed), bytes.NewReader(sig), nil); err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

// loadKeyring reads the configured keyring, armored or binary.
func (v *Verifier) loadKeyring() (openpgp.EntityList, error) {
	raw, err := os.ReadFile(v.keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(raw))
	if err != nil {
		if keyring, err = openpgp.ReadKeyRing(bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, errors.New("keyring is empty")
	}
	return keyring, nil
}

func calculateSHA256(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readChecksums indexes a checksum file by asset name. Entries written with a
// directory prefix are indexed under their base name too; the first entry for
// a name wins.
func readChecksums(checksumPath string) (map[string]string, error) {
	f, err := os.Open(checksumPath)
	if err != nil {
		return nil, fmt.Errorf("open checksum file: %w", err)
	}
	defer f.Close()

	sums := make(map[string]string)
	add := func(name, sum string) {
		if _, seen := sums[name]; !seen {
			sums[name] = sum
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		name := strings.TrimPrefix(fields[1], "*")
		add(name, fields[0])
		add(path.Base(name), fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan checksum file: %w", err)
	}
	return sums, nil
}
