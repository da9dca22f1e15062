package config_test

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/stegovox/internal/config"
)

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":9000"
  log_level: debug
  read_timeout: 5s
  tls:
    cert_file: /etc/tls/cert.pem
    key_file: /etc/tls/key.pem
store:
  postgres_dsn: "postgres://localhost/stegovox"
cache:
  ttl: 30m
  max_entries: 50
bridge:
  max_body_bytes: 1048576
  max_in_flight: 8
  allowed_origins: ["https://chat.example.com"]
mcp:
  enabled: true
  path: /tools
discord:
  token: secret
  guild_id: "123"
  role_id: "456"
transcode:
  wav_to_opus: true
  bitrate: 64000
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("listen_addr: got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q", cfg.Server.LogLevel)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read_timeout: got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != config.DefaultTimeout {
		t.Errorf("write_timeout: got %s, want default", cfg.Server.WriteTimeout)
	}
	if cfg.Server.TLS == nil || cfg.Server.TLS.KeyFile != "/etc/tls/key.pem" {
		t.Errorf("tls: got %+v", cfg.Server.TLS)
	}
	if cfg.Cache.TTL != 30*time.Minute || cfg.Cache.MaxEntries != 50 {
		t.Errorf("cache: got %+v", cfg.Cache)
	}
	if cfg.Bridge.MaxBodyBytes != 1<<20 || cfg.Bridge.MaxInFlight != 8 || len(cfg.Bridge.AllowedOrigins) != 1 {
		t.Errorf("bridge: got %+v", cfg.Bridge)
	}
	if !cfg.MCP.Enabled || cfg.MCP.Path != "/tools" {
		t.Errorf("mcp: got %+v", cfg.MCP)
	}
	if cfg.Discord.MinScanBytes != config.DefaultMinScanBytes {
		t.Errorf("discord.min_scan_bytes: got %d, want default", cfg.Discord.MinScanBytes)
	}
	if !cfg.Transcode.WAVToOpus || cfg.Transcode.Bitrate != 64000 {
		t.Errorf("transcode: got %+v", cfg.Transcode)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty config should be valid, got: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("listen_addr: got %q, want default", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Cache.TTL != config.DefaultCacheTTL {
		t.Errorf("cache.ttl: got %s, want default", cfg.Cache.TTL)
	}
	if cfg.MCP.Path != config.DefaultMCPPath {
		t.Errorf("mcp.path: got %q, want default", cfg.MCP.Path)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adress: \":1\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "invalid log level",
			yaml:    "server:\n  log_level: verbose\n",
			wantErr: "server.log_level",
		},
		{
			name:    "negative timeout",
			yaml:    "server:\n  read_timeout: -1s\n",
			wantErr: "server.read_timeout",
		},
		{
			name:    "tls without key",
			yaml:    "server:\n  tls:\n    cert_file: cert.pem\n",
			wantErr: "server.tls",
		},
		{
			name:    "negative cache ttl",
			yaml:    "cache:\n  ttl: -5m\n",
			wantErr: "cache.ttl",
		},
		{
			name:    "negative in flight",
			yaml:    "bridge:\n  max_in_flight: -1\n",
			wantErr: "bridge.max_in_flight",
		},
		{
			name:    "relative mcp path",
			yaml:    "mcp:\n  enabled: true\n  path: tools\n",
			wantErr: "mcp.path",
		},
		{
			name:    "discord without guild",
			yaml:    "discord:\n  token: abc\n",
			wantErr: "discord.guild_id",
		},
		{
			name:    "bitrate out of range",
			yaml:    "transcode:\n  bitrate: 1000\n",
			wantErr: "transcode.bitrate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
cache:
  max_entries: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"server.log_level", "cache.max_entries"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "stegovox.yaml")
	writeFile(t, path, "server:\n  listen_addr: \":7000\"\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":7000" {
		t.Errorf("listen_addr: got %q", cfg.Server.ListenAddr)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	} else if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLogLevel_Level(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := tt.in.Level(); got != tt.want {
			t.Errorf("LogLevel(%q).Level() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load(example.yaml): %v", err)
	}
	if cfg.Cache.TTL != 24*time.Hour || cfg.Discord.MinScanBytes != config.DefaultMinScanBytes {
		t.Errorf("example config = %+v", cfg)
	}
}
