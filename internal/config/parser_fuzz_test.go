//go:build go1.18

package config

import (
	"context"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/platform"
)

func FuzzParser_ParseString(f *testing.F) {
	f.Add(`vdlaunch = { data_dir = "/srv/vdlaunch" }`)
	f.Add(`vdlaunch = { api = { request_timeout = 2.5 } }`)
	f.Add(`vdlaunch = { dependencies = { ffmpeg = { tags = { "x" }, checksum = false } } }`)
	f.Add(`vdlaunch = { dependencies = { ffmpeg = platform.is_macos and { project = "a/b" } or nil } }`)

	parser := NewParser(platform.Static{Info: &platform.Info{OS: "linux", Arch: "amd64"}}, nil)

	f.Fuzz(func(t *testing.T, luaCode string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = parser.ParseString(ctx, luaCode)
	})
}

func FuzzQuoteLuaString(f *testing.F) {
	f.Add("hello")
	f.Add(`say "hello"`)
	f.Add("line1\nline2")
	f.Add(`C:\\Users\\test`)

	f.Fuzz(func(t *testing.T, input string) {
		quoted := quoteLuaString(input)
		if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
			t.Errorf("quoteLuaString(%q) = %q, invalid format", input, quoted)
		}
	})
}
