package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/logging"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/platform"
)

// MaxConfigSize bounds the config file size.
const MaxConfigSize = 1 << 20

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
	logger   logging.Logger
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table out of the VM.
func NewParser(detector platform.Detector, logger logging.Logger) *Parser {
	return &Parser{detector: detector, logger: logging.OrNoop(logger)}
}

// Load reads path (defaults when it does not exist), applies environment
// overrides through getenv and validates the result.
func (p *Parser) Load(ctx context.Context, path string, getenv func(string) string) (*Config, error) {
	cfg, err := p.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if getenv != nil {
		cfg.ApplyEnv(getenv)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseFile parses the config at path. A missing file yields Default().
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		p.logger.Debug("no config file, using defaults", "path", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxConfigSize {
		return nil, &ParseError{Message: "config file too large", Detail: fmt.Sprintf("%d bytes, maximum is %d", info.Size(), MaxConfigSize)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if findings := DetectSensitiveData(string(data)); len(findings) > 0 {
		for _, f := range findings {
			p.logger.Warn(f.Description, "path", path, "line", f.Line, "preview", f.Preview)
		}
	}

	cfg, err := p.ParseString(ctx, string(data))
	if err != nil {
		return nil, err
	}
	p.logger.Debug("loaded config", "path", path)
	return cfg, nil
}

// ParseString parses a Lua config from a string. Fields the script does not
// set keep their defaults.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global vdlaunch table over the defaults.
func extractConfig(L *lua.LState) (*Config, error) {
	cfg := Default()

	global := L.GetGlobal(luaGlobal)
	if global.Type() == lua.LTNil {
		return cfg, nil
	}
	table, ok := global.(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: "invalid 'vdlaunch' table",
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}

	r := reader{}
	if v, ok := r.str(table, luaFieldDataDir); ok {
		cfg.DataDir = expandHome(v)
	}
	if v, ok := r.str(table, luaFieldSelection); ok {
		cfg.Selection = v
	}
	if v, ok := r.str(table, luaFieldKeyring); ok {
		cfg.Keyring = expandHome(v)
	}
	if v, ok := r.number(table, luaFieldEventBuffer); ok {
		cfg.EventBuffer = int(v)
	}

	if api, ok := r.table(table, luaFieldAPI); ok {
		if v, ok := r.str(api, luaFieldBaseURL); ok {
			cfg.API.BaseURL = v
		}
		if v, ok := r.str(api, luaFieldToken); ok {
			cfg.API.Token = v
		}
		if v, ok := r.seconds(api, luaFieldRequestTO); ok {
			cfg.API.RequestTimeout = v
		}
		if v, ok := r.seconds(api, luaFieldProbeTO); ok {
			cfg.API.ProbeTimeout = v
		}
		if v, ok := r.seconds(api, luaFieldHeaderTO); ok {
			cfg.API.DownloadHeaderTimeout = v
		}
	}

	if depsTable, ok := r.table(table, luaFieldDependencies); ok {
		cfg.Dependencies = extractDependencies(&r, depsTable)
	}

	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

// extractDependencies reads name -> override entries. Entries that evaluate
// to nil (platform conditionals) are skipped.
func extractDependencies(r *reader, table *lua.LTable) map[string]DependencyOverride {
	out := make(map[string]DependencyOverride)

	table.ForEach(func(key, value lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			r.fail(luaFieldDependencies, "keys must be dependency names")
			return
		}
		entry, ok := value.(*lua.LTable)
		if !ok {
			r.fail(luaFieldDependencies+"."+string(name), fmt.Sprintf("expected table, got %s", value.Type()))
			return
		}

		var o DependencyOverride
		o.Project, _ = r.str(entry, luaFieldProject)
		o.Keyword, _ = r.str(entry, luaFieldKeyword)
		o.Asset, _ = r.str(entry, luaFieldAsset)
		o.Tags = r.stringList(entry, luaFieldTags)
		o.Checksum = r.optionalAsset(entry, luaFieldChecksum)
		o.Signature = r.optionalAsset(entry, luaFieldSignature)
		out[string(name)] = o
	})

	return out
}

// reader extracts typed fields and remembers the first type error.
type reader struct {
	err error
}

func (r *reader) fail(field, detail string) {
	if r.err == nil {
		r.err = &ParseError{Message: fmt.Sprintf("invalid field '%s'", field), Detail: detail}
	}
}

func (r *reader) str(t *lua.LTable, field string) (string, bool) {
	v := t.RawGetString(field)
	switch v := v.(type) {
	case lua.LString:
		return string(v), true
	default:
		if v.Type() != lua.LTNil {
			r.fail(field, fmt.Sprintf("expected string, got %s", v.Type()))
		}
		return "", false
	}
}

func (r *reader) number(t *lua.LTable, field string) (float64, bool) {
	v := t.RawGetString(field)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n), true
	}
	if v.Type() != lua.LTNil {
		r.fail(field, fmt.Sprintf("expected number, got %s", v.Type()))
	}
	return 0, false
}

func (r *reader) seconds(t *lua.LTable, field string) (time.Duration, bool) {
	n, ok := r.number(t, field)
	if !ok {
		return 0, false
	}
	return time.Duration(n * float64(time.Second)), true
}

func (r *reader) table(t *lua.LTable, field string) (*lua.LTable, bool) {
	v := t.RawGetString(field)
	if tbl, ok := v.(*lua.LTable); ok {
		return tbl, true
	}
	if v.Type() != lua.LTNil {
		r.fail(field, fmt.Sprintf("expected table, got %s", v.Type()))
	}
	return nil, false
}

// stringList reads an array of strings, skipping nils from platform conditionals.
func (r *reader) stringList(t *lua.LTable, field string) []string {
	tbl, ok := r.table(t, field)
	if !ok {
		return nil
	}
	var out []string
	tbl.ForEach(func(_, value lua.LValue) {
		if s, ok := value.(lua.LString); ok {
			out = append(out, string(s))
			return
		}
		r.fail(field, fmt.Sprintf("expected strings, got %s", value.Type()))
	})
	return out
}

// optionalAsset reads an asset name; false disables it.
func (r *reader) optionalAsset(t *lua.LTable, field string) *string {
	v := t.RawGetString(field)
	switch v := v.(type) {
	case lua.LString:
		s := string(v)
		return &s
	case lua.LBool:
		if !bool(v) {
			empty := ""
			return &empty
		}
	}
	if v.Type() != lua.LTNil {
		r.fail(field, fmt.Sprintf("expected string or false, got %s", v.Type()))
	}
	return nil
}

// expandHome expands a leading "~/".
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
