// Package platform describes the machine the launcher runs on.
//
// The descriptor decides which release assets are picked (asset tags), how the
// managed executables are named (".exe" on Windows), and whether execute bits
// are applied after installation. It is also injected into the Lua config as a
// read-only table so users can write per-platform overrides.
package platform

import (
	"context"
	"fmt"
	"strings"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64", "386", "arm" (normalized)
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel", "arch")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsPOSIX returns true for every platform that uses POSIX permission bits.
func (i *Info) IsPOSIX() bool {
	return !i.IsWindows()
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// IsMusl returns true on Alpine, where glibc-linked builds do not run.
func (i *Info) IsMusl() bool {
	return i.IsLinux() && i.Family == FamilyAlpine
}

// AssetTags returns the ordered substrings used to recognise a release asset
// built for this platform, most specific first.
func (i *Info) AssetTags() []string {
	switch i.OS {
	case "windows":
		return []string{"win", "win64", ".exe"}
	case "darwin":
		return []string{"mac", "darwin"}
	default:
		return []string{"linux", "linux64", "x86_64", "glibc"}
	}
}

// ExecutableName returns the on-disk name of an executable called name.
func (i *Info) ExecutableName(name string) string {
	if i.IsWindows() && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

// ExecutableNames maps ExecutableName over names.
func (i *Info) ExecutableNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, i.ExecutableName(n))
	}
	return out
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// Static is a Detector that always returns the same Info.
// It lets callers force a platform descriptor (tests, cross-installs).
type Static struct {
	Info *Info
}

// Detect returns the configured Info.
func (s Static) Detect(ctx context.Context) (*Info, error) {
	return s.Info, nil
}

// Parse builds an Info from an "os/arch" descriptor such as "linux/arm64".
// Architecture aliases (x86_64, aarch64) are accepted.
func Parse(descriptor string) (*Info, error) {
	osName, arch, ok := strings.Cut(strings.ToLower(strings.TrimSpace(descriptor)), "/")
	if !ok || arch == "" {
		return nil, fmt.Errorf("invalid platform %q: want os/arch", descriptor)
	}
	switch osName {
	case "linux", "darwin", "windows":
	case "macos":
		osName = "darwin"
	default:
		return nil, fmt.Errorf("invalid platform %q: unsupported os %q", descriptor, osName)
	}
	return &Info{OS: osName, Arch: normalizeArch(arch), ArchRaw: arch}, nil
}
