package config

import "time"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	CacheTTLChanged bool
	NewCacheTTL     time.Duration

	MinScanBytesChanged bool
	NewMinScanBytes     int

	// RestartRequired lists settings that changed but only take effect after
	// a restart.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Cache.TTL != new.Cache.TTL {
		d.CacheTTLChanged = true
		d.NewCacheTTL = new.Cache.TTL
	}
	if old.Discord.MinScanBytes != new.Discord.MinScanBytes {
		d.MinScanBytesChanged = true
		d.NewMinScanBytes = new.Discord.MinScanBytes
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Store.PostgresDSN != new.Store.PostgresDSN {
		d.RestartRequired = append(d.RestartRequired, "store.postgres_dsn")
	}
	if old.Discord.Token != new.Discord.Token || old.Discord.GuildID != new.Discord.GuildID {
		d.RestartRequired = append(d.RestartRequired, "discord")
	}
	if old.MCP != new.MCP {
		d.RestartRequired = append(d.RestartRequired, "mcp")
	}

	return d
}
