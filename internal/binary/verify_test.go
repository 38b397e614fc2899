package binary

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestVerifyChecksum(t *testing.T) {
	dir := t.TempDir()
	binaryPath := writeTestFile(t, dir, "yt-dlp_linux", "yt-dlp linux build")
	checksums := writeTestFile(t, dir, "SHA2-256SUMS", strings.Join([]string{
		sha256Hex("yt-dlp linux build") + "  yt-dlp_linux",
		sha256Hex("something else") + " *yt-dlp.exe",
		strings.ToUpper(sha256Hex("yt-dlp linux build")) + "  upper/yt-dlp_upper",
		"malformed-line",
		"",
	}, "\n"))

	verifier := NewVerifier("")

	tests := []struct {
		name      string
		assetName string
		checksums string
		wantErr   bool
	}{
		{
			name:      "valid_checksum",
			assetName: "yt-dlp_linux",
			checksums: checksums,
		},
		{
			name:      "uppercase_hex_with_directory",
			assetName: "yt-dlp_upper",
			checksums: checksums,
		},
		{
			name:      "checksum_mismatch_binary_marker",
			assetName: "yt-dlp.exe",
			checksums: checksums,
			wantErr:   true,
		},
		{
			name:      "checksum_not_found",
			assetName: "yt-dlp_macos",
			checksums: checksums,
			wantErr:   true,
		},
		{
			name:      "missing_checksum_file",
			assetName: "yt-dlp_linux",
			checksums: filepath.Join(dir, "nonexistent"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.VerifyChecksum(binaryPath, tt.checksums, tt.assetName)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyChecksum() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCalculateSHA256(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "file", "hello")

	got, err := calculateSHA256(path)
	if err != nil {
		t.Fatalf("calculateSHA256() error = %v", err)
	}
	if got != sha256Hex("hello") {
		t.Errorf("calculateSHA256() = %s, want %s", got, sha256Hex("hello"))
	}

	if _, err := calculateSHA256(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

// signingFixture holds a freshly generated key, its exported public keyring
// and a signed checksum file.
type signingFixture struct {
	dir       string
	keyring   string
	signed    string
	armored   string
	binarySig string
}

func newSigningFixture(t *testing.T) signingFixture {
	t.Helper()

	entity, err := openpgp.NewEntity("Release Signer", "test", "signer@example.com", nil)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	dir := t.TempDir()
	fx := signingFixture{dir: dir}

	var pub bytes.Buffer
	w, err := armor.Encode(&pub, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("failed to export public key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	fx.keyring = writeTestFile(t, dir, "release.asc", pub.String())

	message := sha256Hex("yt-dlp linux build") + "  yt-dlp_linux\n"
	fx.signed = writeTestFile(t, dir, "SHA2-256SUMS", message)

	var armored bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&armored, entity, strings.NewReader(message), nil); err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	fx.armored = writeTestFile(t, dir, "SHA2-256SUMS.asc", armored.String())

	var raw bytes.Buffer
	if err := openpgp.DetachSign(&raw, entity, strings.NewReader(message), nil); err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	fx.binarySig = writeTestFile(t, dir, "SHA2-256SUMS.sig", raw.String())

	return fx
}

func TestVerifySignature(t *testing.T) {
	fx := newSigningFixture(t)
	tampered := writeTestFile(t, fx.dir, "tampered", "0000  yt-dlp_linux\n")

	tests := []struct {
		name    string
		keyring string
		signed  string
		sig     string
		wantErr bool
	}{
		{
			name:    "valid_armored_signature",
			keyring: fx.keyring,
			signed:  fx.signed,
			sig:     fx.armored,
		},
		{
			name:    "valid_binary_signature",
			keyring: fx.keyring,
			signed:  fx.signed,
			sig:     fx.binarySig,
		},
		{
			name:    "tampered_content",
			keyring: fx.keyring,
			signed:  tampered,
			sig:     fx.binarySig,
			wantErr: true,
		},
		{
			name:    "missing_signature",
			keyring: fx.keyring,
			signed:  fx.signed,
			sig:     filepath.Join(fx.dir, "nonexistent.sig"),
			wantErr: true,
		},
		{
			name:    "no_keyring_configured",
			signed:  fx.signed,
			sig:     fx.armored,
			wantErr: true,
		},
		{
			name:    "keyring_is_not_a_key",
			keyring: fx.signed,
			signed:  fx.signed,
			sig:     fx.armored,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewVerifier(tt.keyring).VerifySignature(tt.signed, tt.sig)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifySignature() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanVerifySignatures(t *testing.T) {
	if NewVerifier("").CanVerifySignatures() {
		t.Error("verifier without keyring claims it can verify signatures")
	}
	if !NewVerifier("/etc/vdlaunch/release.asc").CanVerifySignatures() {
		t.Error("verifier with keyring claims it cannot verify signatures")
	}
}
