package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/deps"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/platform"
)

// Config is the complete launcher configuration.
type Config struct {
	// DataDir holds the requirements directory and the version ledger.
	DataDir string `json:"data_dir"`

	API APIConfig `json:"api"`

	// Selection is "strict" or "legacy"; see binary.SelectMode.
	Selection string `json:"selection"`

	// Keyring is an OpenPGP public keyring used to check release signatures.
	// Empty disables signature checks.
	Keyring string `json:"keyring,omitempty"`

	EventBuffer int `json:"event_buffer"`

	// Dependencies overrides the built-in declarations by dependency name.
	Dependencies map[string]DependencyOverride `json:"dependencies,omitempty"`
}

// APIConfig configures the release API client and the asset fetcher.
type APIConfig struct {
	BaseURL               string        `json:"base_url"`
	Token                 string        `json:"-"`
	RequestTimeout        time.Duration `json:"request_timeout"`
	ProbeTimeout          time.Duration `json:"probe_timeout"`
	DownloadHeaderTimeout time.Duration `json:"download_header_timeout"`
}

// DependencyOverride replaces fields of a built-in dependency. Nil or empty
// fields keep the built-in value; Checksum and Signature may be set to ""
// to disable verification.
type DependencyOverride struct {
	Project   string   `json:"project,omitempty"`
	Keyword   string   `json:"keyword,omitempty"`
	Asset     string   `json:"asset,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Checksum  *string  `json:"checksum,omitempty"`
	Signature *string  `json:"signature,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		API: APIConfig{
			BaseURL:               DefaultBaseURL,
			RequestTimeout:        DefaultRequestTimeout,
			ProbeTimeout:          DefaultProbeTimeout,
			DownloadHeaderTimeout: DefaultDownloadHeaderTimeout,
		},
		Selection:   DefaultSelection,
		EventBuffer: DefaultEventBuffer,
	}
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if dir, err := os.UserCacheDir(); err == nil { // %LocalAppData%
			return filepath.Join(dir, "vdlaunch")
		}
	case "darwin":
		if dir, err := os.UserConfigDir(); err == nil { // ~/Library/Application Support
			return filepath.Join(dir, "vdlaunch")
		}
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, "vdlaunch")
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "share", "vdlaunch")
		}
	}
	return "data"
}

// DefaultPath returns the config file location: $VDLAUNCH_CONFIG, or
// vdlaunch/vdlaunch.lua under the user config directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "vdlaunch.lua"
	}
	return filepath.Join(dir, "vdlaunch", "vdlaunch.lua")
}

// RequirementsDir returns the directory executables are installed into.
func (c *Config) RequirementsDir() string {
	return filepath.Join(c.DataDir, RequirementsDirName)
}

// LedgerPath returns the version ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, LedgerFileName)
}

// SelectMode returns the parsed selection mode. Validate rejects unknown values.
func (c *Config) SelectMode() binary.SelectMode {
	mode, _ := binary.ParseSelectMode(c.Selection)
	return mode
}

// ApplyEnv overrides fields from environment variables via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := getenv(EnvToken); v != "" {
		c.API.Token = v
	}
}

// ResolveDependencies returns the built-in dependencies for info with the
// configured overrides applied, in built-in order.
func (c *Config) ResolveDependencies(info *platform.Info) ([]deps.Dependency, error) {
	defs := deps.DefaultDependencies(info)

	known := make(map[string]int, len(defs))
	for i, d := range defs {
		known[string(d.Name)] = i
	}

	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		i, ok := known[name]
		if !ok {
			return nil, &ValidationError{Field: "dependencies." + name, Message: "unknown dependency"}
		}
		defs[i] = c.Dependencies[name].apply(defs[i])
	}

	return defs, nil
}

func (o DependencyOverride) apply(d deps.Dependency) deps.Dependency {
	if o.Project != "" {
		d.Project = o.Project
		// Asset names and checksums belong to the original project
		d.AssetName = ""
		d.ChecksumAsset = ""
		d.SignatureAsset = ""
	}
	if o.Keyword != "" {
		d.Keyword = o.Keyword
	}
	if o.Asset != "" {
		d.AssetName = o.Asset
	}
	if len(o.Tags) > 0 {
		d.Tags = append([]string(nil), o.Tags...)
	}
	if o.Checksum != nil {
		d.ChecksumAsset = *o.Checksum
	}
	if o.Signature != nil {
		d.SignatureAsset = *o.Signature
	}
	return d
}

// Validate checks every field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return &ValidationError{Field: luaFieldDataDir, Message: "cannot be empty"}
	}

	if _, ok := binary.ParseSelectMode(c.Selection); !ok {
		return &ValidationError{Field: luaFieldSelection, Message: fmt.Sprintf("must be \"strict\" or \"legacy\" (got %q)", c.Selection)}
	}

	if c.EventBuffer < 1 || c.EventBuffer > MaxEventBuffer {
		return &ValidationError{Field: luaFieldEventBuffer, Message: fmt.Sprintf("must be between 1 and %d (got %d)", MaxEventBuffer, c.EventBuffer)}
	}

	if err := validateBaseURL(c.API.BaseURL); err != nil {
		return &ValidationError{Field: "api." + luaFieldBaseURL, Message: err.Error()}
	}

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{luaFieldRequestTO, c.API.RequestTimeout},
		{luaFieldProbeTO, c.API.ProbeTimeout},
		{luaFieldHeaderTO, c.API.DownloadHeaderTimeout},
	}
	for _, to := range timeouts {
		if to.value <= 0 || to.value > MaxTimeout {
			return &ValidationError{Field: "api." + to.field, Message: fmt.Sprintf("must be between 1s and %s (got %s)", MaxTimeout, to.value)}
		}
	}

	for name, o := range c.Dependencies {
		if o.Project != "" && strings.Count(strings.Trim(o.Project, "/"), "/") != 1 {
			return &ValidationError{Field: "dependencies." + name + "." + luaFieldProject, Message: fmt.Sprintf("must be owner/repo (got %q)", o.Project)}
		}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// validateBaseURL accepts absolute http(s) URLs.
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("must use https:// or http:// scheme (got: %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
