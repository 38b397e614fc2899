package config

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Generator writes a Config back out as a Lua config file.
type Generator struct {
	indent string
	now    func() time.Time
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{indent: "  ", now: time.Now}
}

// Generate renders cfg as Lua. The API token is never written; it belongs in
// the GITHUB_TOKEN environment variable.
func (g *Generator) Generate(cfg *Config) string {
	var buf bytes.Buffer

	buf.WriteString("-- vdlaunch configuration\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(g.now().UTC().Format(time.RFC3339))
	buf.WriteString("\n\n")

	buf.WriteString(luaGlobal + " = {\n")
	g.field(&buf, 1, luaFieldDataDir, quoteLuaString(cfg.DataDir))
	g.field(&buf, 1, luaFieldSelection, quoteLuaString(cfg.Selection))
	if cfg.Keyring != "" {
		g.field(&buf, 1, luaFieldKeyring, quoteLuaString(cfg.Keyring))
	}
	g.field(&buf, 1, luaFieldEventBuffer, strconv.Itoa(cfg.EventBuffer))

	g.open(&buf, 1, luaFieldAPI)
	g.field(&buf, 2, luaFieldBaseURL, quoteLuaString(cfg.API.BaseURL))
	g.field(&buf, 2, luaFieldRequestTO, seconds(cfg.API.RequestTimeout))
	g.field(&buf, 2, luaFieldProbeTO, seconds(cfg.API.ProbeTimeout))
	g.field(&buf, 2, luaFieldHeaderTO, seconds(cfg.API.DownloadHeaderTimeout))
	g.close(&buf, 1)

	if len(cfg.Dependencies) > 0 {
		g.open(&buf, 1, luaFieldDependencies)
		names := make([]string, 0, len(cfg.Dependencies))
		for name := range cfg.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			g.writeOverride(&buf, name, cfg.Dependencies[name])
		}
		g.close(&buf, 1)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func (g *Generator) writeOverride(buf *bytes.Buffer, name string, o DependencyOverride) {
	g.open(buf, 2, luaKey(name))
	if o.Project != "" {
		g.field(buf, 3, luaFieldProject, quoteLuaString(o.Project))
	}
	if o.Keyword != "" {
		g.field(buf, 3, luaFieldKeyword, quoteLuaString(o.Keyword))
	}
	if o.Asset != "" {
		g.field(buf, 3, luaFieldAsset, quoteLuaString(o.Asset))
	}
	if len(o.Tags) > 0 {
		quoted := make([]string, 0, len(o.Tags))
		for _, tag := range o.Tags {
			quoted = append(quoted, quoteLuaString(tag))
		}
		g.field(buf, 3, luaFieldTags, "{ "+strings.Join(quoted, ", ")+" }")
	}
	if o.Checksum != nil {
		g.field(buf, 3, luaFieldChecksum, optionalAsset(*o.Checksum))
	}
	if o.Signature != nil {
		g.field(buf, 3, luaFieldSignature, optionalAsset(*o.Signature))
	}
	g.close(buf, 2)
}

func (g *Generator) field(buf *bytes.Buffer, depth int, key, value string) {
	fmt.Fprintf(buf, "%s%s = %s,\n", strings.Repeat(g.indent, depth), key, value)
}

func (g *Generator) open(buf *bytes.Buffer, depth int, key string) {
	fmt.Fprintf(buf, "%s%s = {\n", strings.Repeat(g.indent, depth), key)
}

func (g *Generator) close(buf *bytes.Buffer, depth int) {
	buf.WriteString(strings.Repeat(g.indent, depth) + "},\n")
}

// luaKey returns name as a table key, bracketed when it is not an identifier
// (e.g. "yt-dlp").
func luaKey(name string) string {
	for i, r := range name {
		ident := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')
		if !ident {
			return "[" + quoteLuaString(name) + "]"
		}
	}
	return name
}

func optionalAsset(name string) string {
	if name == "" {
		return "false"
	}
	return quoteLuaString(name)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// quoteLuaString quotes a string for Lua, handling special characters.
func quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
