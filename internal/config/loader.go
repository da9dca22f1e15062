package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. An empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout %s must not be negative", cfg.Server.ReadTimeout))
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout %s must not be negative", cfg.Server.WriteTimeout))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "") != (tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Store and cache
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; cached buffers and passwords are kept in memory only")
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl %s must not be negative", cfg.Cache.TTL))
	}
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries %d must not be negative", cfg.Cache.MaxEntries))
	}

	// Bridge
	if cfg.Bridge.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("bridge.max_body_bytes %d must not be negative", cfg.Bridge.MaxBodyBytes))
	}
	if cfg.Bridge.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("bridge.max_in_flight %d must not be negative", cfg.Bridge.MaxInFlight))
	}

	// MCP
	if cfg.MCP.Enabled && !strings.HasPrefix(cfg.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path %q must start with /", cfg.MCP.Path))
	}

	// Discord
	if cfg.Discord.Token != "" && cfg.Discord.GuildID == "" {
		errs = append(errs, errors.New("discord.guild_id is required when discord.token is set"))
	}
	if cfg.Discord.MinScanBytes < 0 {
		errs = append(errs, fmt.Errorf("discord.min_scan_bytes %d must not be negative", cfg.Discord.MinScanBytes))
	}
	if cfg.Discord.Token != "" && cfg.Discord.RoleID == "" {
		slog.Warn("discord.role_id is empty; any member may store channel passwords")
	}

	// Transcode
	if b := cfg.Transcode.Bitrate; b != 0 && (b < 6000 || b > 510000) {
		errs = append(errs, fmt.Errorf("transcode.bitrate %d is out of range [6000, 510000]", b))
	}

	return errors.Join(errs...)
}
