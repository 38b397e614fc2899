package config

import (
	"strings"
	"testing"
)

func TestNewSandboxedVM(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		errMsg string // empty means the code must run
	}{
		{name: "string library", code: `x = string.upper("yt-dlp") .. string.format("%d", 5)`},
		{name: "table library", code: `t = {"a"}; table.insert(t, "b"); s = table.concat(t, ",")`},
		{name: "math library", code: `x = math.floor(math.sqrt(17))`},
		{name: "base functions", code: `x = type("s") .. tostring(1); for k, v in pairs({a = 1}) do end`},
		{name: "os.getenv", code: `x = os.getenv("GITHUB_TOKEN")`, errMsg: "attempt to index"},
		{name: "os.execute", code: `os.execute("true")`, errMsg: "attempt to index"},
		{name: "io.open", code: `f = io.open("/etc/passwd")`, errMsg: "attempt to index"},
		{name: "require", code: `m = require("socket")`, errMsg: "attempt to call"},
		{name: "dofile", code: `dofile("/tmp/x.lua")`, errMsg: "attempt to call"},
		{name: "loadfile", code: `f = loadfile("/tmp/x.lua")`, errMsg: "attempt to call"},
		{name: "load", code: `f = load("return 1")`, errMsg: "attempt to call"},
		{name: "loadstring", code: `f = loadstring("return 1")`, errMsg: "attempt to call"},
		{name: "debug", code: `debug.getinfo(1)`, errMsg: "attempt to index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L := newSandboxedVM()
			defer L.Close()

			err := L.DoString(tt.code)
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("DoString() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("DoString() succeeded, want sandbox error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}
