// Package config provides the configuration schema and loader for the
// stegovox server.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the stegovox server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to a slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Defaults applied by [ApplyDefaults] to unset fields.
const (
	DefaultListenAddr      = ":8080"
	DefaultTimeout         = 30 * time.Second
	DefaultCacheTTL        = 24 * time.Hour
	DefaultCacheEntries    = 1000
	DefaultMaxBodyBytes    = 25 << 20
	DefaultMaxInFlight     = 4
	DefaultMCPPath         = "/mcp"
	DefaultMinScanBytes    = 40000
	DefaultDownloadTimeout = 30 * time.Second
)

// Config is the root configuration structure for stegovox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	MCP       MCPConfig       `yaml:"mcp"`
	Discord   DiscordConfig   `yaml:"discord"`
	Transcode TranscodeConfig `yaml:"transcode"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// StoreConfig selects where cached buffers and conversation passwords live.
type StoreConfig struct {
	// PostgresDSN enables the PostgreSQL store. When empty, an in-memory
	// store is used and nothing survives a restart.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// CacheConfig bounds the encoded-buffer cache.
type CacheConfig struct {
	// TTL is how long a cached buffer may be used as a decode fallback.
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries caps the in-memory store. Ignored by PostgreSQL.
	MaxEntries int `yaml:"max_entries"`
}

// BridgeConfig limits the HTTP and WebSocket bridge.
type BridgeConfig struct {
	// MaxBodyBytes caps request bodies and WebSocket messages.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// MaxInFlight caps concurrent requests per WebSocket connection.
	MaxInFlight int `yaml:"max_in_flight"`

	// AllowedOrigins lists origin patterns accepted for WebSocket upgrades.
	// Empty means same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MCPConfig exposes the stego tools over streamable HTTP.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DiscordConfig configures the optional Discord bot.
type DiscordConfig struct {
	// Token is the bot token. The bot is disabled when empty.
	Token string `yaml:"token"`

	// GuildID scopes slash command registration to one guild.
	GuildID string `yaml:"guild_id"`

	// RoleID, when set, is required to store channel passwords.
	RoleID string `yaml:"role_id"`

	// MinScanBytes is the smallest attachment checked for a hidden message.
	MinScanBytes int `yaml:"min_scan_bytes"`

	// DownloadTimeout bounds attachment downloads.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

// TranscodeConfig controls conversion of WAV input to Ogg/Opus before
// encoding.
type TranscodeConfig struct {
	// WAVToOpus converts WAV uploads to Ogg/Opus so the payload is carried in
	// the comment header rather than a RIFF chunk.
	WAVToOpus bool `yaml:"wav_to_opus"`

	// Bitrate in bits per second; zero keeps the encoder default.
	Bitrate int `yaml:"bitrate"`
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultTimeout
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheEntries
	}
	if cfg.Bridge.MaxBodyBytes == 0 {
		cfg.Bridge.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Bridge.MaxInFlight == 0 {
		cfg.Bridge.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.MCP.Path == "" {
		cfg.MCP.Path = DefaultMCPPath
	}
	if cfg.Discord.MinScanBytes == 0 {
		cfg.Discord.MinScanBytes = DefaultMinScanBytes
	}
	if cfg.Discord.DownloadTimeout == 0 {
		cfg.Discord.DownloadTimeout = DefaultDownloadTimeout
	}
}
