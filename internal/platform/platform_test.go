package platform

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestRealDetector_Detect(t *testing.T) {
	info, err := NewDetector().Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %v, want %v", info.OS, runtime.GOOS)
	}
	if info.ArchRaw != runtime.GOARCH {
		t.Errorf("ArchRaw = %v, want %v", info.ArchRaw, runtime.GOARCH)
	}
	if info.Arch == "" {
		t.Error("Arch should not be empty")
	}

	if runtime.GOOS == "linux" && info.Platform != "" && info.Family == "" {
		t.Error("Family should be set when Platform is set")
	}
	if runtime.GOOS != "linux" && info.Platform != "" {
		t.Errorf("Platform should be empty on non-Linux, got %v", info.Platform)
	}
}

func TestRealDetector_CancelledContext(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("distro detection only runs on Linux")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// gopsutil may answer from cache before looking at ctx; both outcomes
	// are acceptable as long as a returned Info is usable.
	info, err := NewDetector().Detect(ctx)
	if err == nil && info == nil {
		t.Fatal("Detect() returned nil info and nil error")
	}
}

func TestInfoAssetTags(t *testing.T) {
	tests := []struct {
		os   string
		want []string
	}{
		{"windows", []string{"win", "win64", ".exe"}},
		{"darwin", []string{"mac", "darwin"}},
		{"linux", []string{"linux", "linux64", "x86_64", "glibc"}},
		{"freebsd", []string{"linux", "linux64", "x86_64", "glibc"}},
	}

	for _, tt := range tests {
		t.Run(tt.os, func(t *testing.T) {
			info := &Info{OS: tt.os}
			if got := info.AssetTags(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AssetTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInfoExecutableName(t *testing.T) {
	tests := []struct {
		os   string
		name string
		want string
	}{
		{"windows", "ffmpeg", "ffmpeg.exe"},
		{"windows", "yt-dlp.exe", "yt-dlp.exe"},
		{"windows", "YT-DLP.EXE", "YT-DLP.EXE"},
		{"linux", "ffmpeg", "ffmpeg"},
		{"darwin", "ffprobe", "ffprobe"},
	}

	for _, tt := range tests {
		t.Run(tt.os+"_"+tt.name, func(t *testing.T) {
			info := &Info{OS: tt.os}
			if got := info.ExecutableName(tt.name); got != tt.want {
				t.Errorf("ExecutableName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}

	win := &Info{OS: "windows"}
	got := win.ExecutableNames([]string{"ffmpeg", "ffprobe", "ffplay"})
	want := []string{"ffmpeg.exe", "ffprobe.exe", "ffplay.exe"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExecutableNames() = %v, want %v", got, want)
	}
}

func TestInfoPredicates(t *testing.T) {
	alpine := &Info{OS: "linux", Arch: "arm64", Family: FamilyAlpine}
	if !alpine.IsMusl() || !alpine.IsARM64() || !alpine.IsPOSIX() {
		t.Errorf("alpine predicates wrong: %+v", alpine)
	}

	win := &Info{OS: "windows", Arch: "amd64"}
	if win.IsPOSIX() || !win.IsAMD64() || win.IsMusl() {
		t.Errorf("windows predicates wrong: %+v", win)
	}
}

func TestNormalizeArch(t *testing.T) {
	tests := map[string]string{
		"amd64":   "amd64",
		"x86_64":  "amd64",
		"aarch64": "arm64",
		"i686":    "386",
		"armv7l":  "arm",
		"riscv64": "riscv64",
		" ARM64 ": "arm64",
	}
	for in, want := range tests {
		if got := normalizeArch(in); got != want {
			t.Errorf("normalizeArch(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapFamily(t *testing.T) {
	tests := map[string]string{
		"debian":  FamilyDebian,
		"Ubuntu":  FamilyDebian,
		"rhel":    FamilyRHEL,
		"manjaro": FamilyArch,
		"alpine":  FamilyAlpine,
		"plan9":   FamilyUnknown,
		"":        FamilyUnknown,
	}
	for in, want := range tests {
		if got := mapFamily(in); got != want {
			t.Errorf("mapFamily(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStaticDetector(t *testing.T) {
	want := &Info{OS: "windows", Arch: "amd64"}
	got, err := Static{Info: want}.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != want {
		t.Errorf("Detect() = %p, want %p", got, want)
	}
}

func TestInjectPlatformTable(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{OS: "linux", Arch: "amd64", Platform: "ubuntu", Family: FamilyDebian, Version: "24.04"}
	if err := InjectPlatformTable(L, info); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	script := `
		result_os = platform.os
		result_linux = platform.is_linux
		result_distro = platform.distro.id
		result_first_tag = platform.asset_tags[1]
		result_when = platform.when(platform.is_windows, "yes")
		result_exe = platform.exe("ffmpeg")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	checks := map[string]string{
		"result_os":        "linux",
		"result_linux":     "true",
		"result_distro":    "ubuntu",
		"result_first_tag": "linux",
		"result_when":      "nil",
		"result_exe":       "ffmpeg",
	}
	for global, want := range checks {
		if got := L.GetGlobal(global).String(); got != want {
			t.Errorf("%s = %q, want %q", global, got, want)
		}
	}
}

func TestInjectPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: "darwin", Arch: "arm64"}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	err := L.DoString(`platform.os = "windows"`)
	if err == nil {
		t.Fatal("expected error writing to platform table")
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("error = %v, want read-only error", err)
	}

	if err := L.DoString(`d = platform.distro`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if L.GetGlobal("d") != lua.LNil {
		t.Errorf("distro on darwin = %v, want nil", L.GetGlobal("d"))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		wantOS   string
		wantArch string
		wantErr  bool
	}{
		{in: "linux/amd64", wantOS: "linux", wantArch: "amd64"},
		{in: "Linux/aarch64", wantOS: "linux", wantArch: "arm64"},
		{in: "macos/arm64", wantOS: "darwin", wantArch: "arm64"},
		{in: "windows/x86_64", wantOS: "windows", wantArch: "amd64"},
		{in: "linux", wantErr: true},
		{in: "linux/", wantErr: true},
		{in: "plan9/amd64", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if got.OS != tt.wantOS || got.Arch != tt.wantArch {
				t.Errorf("Parse(%q) = %s/%s, want %s/%s", tt.in, got.OS, got.Arch, tt.wantOS, tt.wantArch)
			}
		})
	}
}
