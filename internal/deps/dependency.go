package deps

import (
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/platform"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/release"
)

// Name identifies a managed dependency.
type Name string

// The dependencies managed by the launcher.
const (
	Downloader Name = "yt-dlp"
	Transcoder Name = "ffmpeg"
)

// Dependency declares where a tool is published and what gets installed.
type Dependency struct {
	Name    Name
	Project string // release project, "owner/repo"
	Keyword string // asset name must contain this (case-insensitive)

	// Files are the executables to install, without the ".exe" suffix.
	Files []string
	// Bundle means the asset is an archive holding Files. Otherwise the
	// asset is the executable itself and Files has one entry.
	Bundle bool

	// AssetName is the exact asset to install when the release has it.
	// Otherwise the asset is chosen by Keyword and tags.
	AssetName string
	// Tags overrides the platform's asset tags when non-empty.
	Tags []string

	// ChecksumAsset and SignatureAsset name the release assets holding
	// SHA-256 sums and their detached OpenPGP signature. Either may be empty.
	ChecksumAsset  string
	SignatureAsset string
}

// AssetTags returns the tags used to pick this dependency's asset on info.
func (d Dependency) AssetTags(info *platform.Info) []string {
	if len(d.Tags) > 0 {
		return d.Tags
	}
	return info.AssetTags()
}

// Select picks the asset of rel to install on info.
func (d Dependency) Select(rel *release.Release, info *platform.Info, mode binary.SelectMode) (release.Asset, bool) {
	if d.AssetName != "" {
		if a, ok := rel.FindAsset(d.AssetName); ok {
			return a, true
		}
	}
	return binary.Choose(rel.Assets, d.Keyword, d.AssetTags(info), mode)
}

// Executables returns the on-disk names of the installed files.
func (d Dependency) Executables(info *platform.Info) []string {
	return info.ExecutableNames(d.Files)
}

// DefaultDependencies returns yt-dlp and ffmpeg as published on GitHub for the
// given platform.
func DefaultDependencies(info *platform.Info) []Dependency {
	ytdlp := Dependency{
		Name:           Downloader,
		Project:        "yt-dlp/yt-dlp",
		Keyword:        "yt-dlp",
		Files:          []string{"yt-dlp"},
		ChecksumAsset:  "SHA2-256SUMS",
		SignatureAsset: "SHA2-256SUMS.sig",
	}

	ffmpeg := Dependency{
		Name:   Transcoder,
		Files:  []string{"ffmpeg", "ffprobe", "ffplay"},
		Bundle: true,
	}

	switch {
	case info.IsWindows():
		ytdlp.AssetName = "yt-dlp.exe"
		ytdlp.Tags = []string{".exe"}
		ffmpeg.Project = "GyanD/codexffmpeg"
		ffmpeg.Keyword = "essentials_build"
		// The same build is also published as .7z
		ffmpeg.Tags = []string{".zip"}
	case info.IsMacOS():
		ytdlp.AssetName = "yt-dlp_macos"
		ytdlp.Tags = []string{"_macos"}
		// BtbN publishes no macOS builds; the keyword matches nothing until
		// the config points ffmpeg at another project.
		ffmpeg.Project = "BtbN/FFmpeg-Builds"
		ffmpeg.Keyword = "master-latest-macos"
	default:
		ytdlp.AssetName = "yt-dlp_linux"
		ytdlp.Tags = []string{"_linux"}
		ffmpeg.Project = "BtbN/FFmpeg-Builds"
		ffmpeg.Keyword = "master-latest"
		ffmpeg.ChecksumAsset = "checksums.sha256"
		ffmpeg.Tags = []string{"linux64-gpl.tar"}
		if info.IsARM64() {
			ytdlp.AssetName = "yt-dlp_linux_aarch64"
			ytdlp.Tags = []string{"_linux_aarch64"}
			ffmpeg.Tags = []string{"linuxarm64-gpl.tar"}
		}
	}

	return []Dependency{ytdlp, ffmpeg}
}
