// Command stegovox hides password-protected messages in Ogg/Opus and WAV
// files. It runs as a server (HTTP/WebSocket bridge, Discord bot, MCP) or as
// a one-shot command-line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/stegovox/internal/app"
	"github.com/MrWong99/stegovox/internal/config"
)

const usage = `usage: stegovox <command> [flags]

commands:
  serve      run the HTTP/WebSocket bridge, Discord bot and MCP endpoint
  encode     hide a message in an audio file
  decode     recover hidden messages from audio files
  inspect    describe audio files as JSON
  strip      remove a hidden message from an audio file
  transcode  convert a WAV file to Ogg/Opus
  mcp        serve the MCP tools over stdio

Run "stegovox <command> -h" for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	var level slog.LevelVar
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "serve":
		err = serve(ctx, rest, &level)
	case "encode":
		err = encodeCmd(rest)
	case "decode":
		err = decodeCmd(ctx, rest)
	case "inspect":
		err = inspectCmd(rest)
	case "strip":
		err = stripCmd(rest)
	case "transcode":
		err = transcodeCmd(ctx, rest)
	case "mcp":
		err = mcpCmd(ctx, rest, &level)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "stegovox: unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(os.Stderr, "stegovox %s: %v\n", cmd, err)
		return 1
	}
}

// ── Server ───────────────────────────────────────────────────────────────────

func serve(ctx context.Context, args []string, level *slog.LevelVar) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	level.Set(cfg.Server.LogLevel.Level())
	slog.Info("stegovox starting",
		"version", app.Version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"discord", cfg.Discord.Token != "",
		"mcp", cfg.MCP.Enabled,
	)

	application, err := app.New(ctx, cfg, app.WithLogLevel(level))
	if err != nil {
		return err
	}

	watcher, err := config.NewWatcher(*configPath, application.ApplyConfig)
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("server ready, press Ctrl+C to shut down")
	runErr := application.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}
	slog.Info("goodbye")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %q not found, copy configs/example.yaml to get started", path)
	}
	return cfg, err
}
