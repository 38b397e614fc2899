package config

import "time"

// Lua schema field names and globals
const (
	luaGlobal            = "vdlaunch"
	luaFieldDataDir      = "data_dir"
	luaFieldSelection    = "selection"
	luaFieldKeyring      = "keyring"
	luaFieldEventBuffer  = "event_buffer"
	luaFieldAPI          = "api"
	luaFieldBaseURL      = "base_url"
	luaFieldToken        = "token"
	luaFieldRequestTO    = "request_timeout"
	luaFieldProbeTO      = "probe_timeout"
	luaFieldHeaderTO     = "download_header_timeout"
	luaFieldDependencies = "dependencies"
	luaFieldProject      = "project"
	luaFieldKeyword      = "keyword"
	luaFieldAsset        = "asset"
	luaFieldTags         = "tags"
	luaFieldChecksum     = "checksum"
	luaFieldSignature    = "signature"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig  = "VDLAUNCH_CONFIG"
	EnvDataDir = "VDLAUNCH_DATA_DIR"
	EnvToken   = "GITHUB_TOKEN"
)

// Defaults.
const (
	DefaultSelection             = "strict"
	DefaultRequestTimeout        = 20 * time.Second
	DefaultProbeTimeout          = 5 * time.Second
	DefaultDownloadHeaderTimeout = 60 * time.Second
	DefaultEventBuffer           = 64
	DefaultBaseURL               = "https://api.github.com/"

	// MaxEventBuffer bounds event_buffer.
	MaxEventBuffer = 4096
	// MaxTimeout bounds every configured timeout.
	MaxTimeout = 30 * time.Minute
)

// Layout of the data directory.
const (
	RequirementsDirName = "requirements"
	LedgerFileName      = "version_info.json"
)
