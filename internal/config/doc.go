// Package config loads the launcher configuration from a Lua file.
//
// The file runs in a sandboxed gopher-lua VM (no os, io, require or load) with
// a read-only platform table injected, and must assign a global vdlaunch table:
//
//	vdlaunch = {
//	    data_dir  = "/srv/vdlaunch",
//	    selection = "strict",           -- or "legacy"
//	    keyring   = "~/.config/vdlaunch/yt-dlp.asc",
//	    event_buffer = 64,
//	    api = {
//	        base_url = "https://api.github.com/",
//	        request_timeout = 20,        -- seconds
//	        probe_timeout = 5,
//	        download_header_timeout = 60,
//	    },
//	    dependencies = {
//	        ffmpeg = platform.is_macos and {
//	            project = "someone/ffmpeg-macos",
//	            keyword = "ffmpeg",
//	            tags = { platform.arch },
//	        } or nil,
//	    },
//	}
//
// Every field is optional. A missing file means defaults. Environment
// variables (VDLAUNCH_DATA_DIR, GITHUB_TOKEN) override the file; command-line
// flags override both.
package config
