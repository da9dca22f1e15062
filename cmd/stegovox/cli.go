package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/stegovox/internal/app"
	"github.com/MrWong99/stegovox/internal/config"
	"github.com/MrWong99/stegovox/internal/mcptools"
	"github.com/MrWong99/stegovox/internal/resilience"
	"github.com/MrWong99/stegovox/internal/service"
	"github.com/MrWong99/stegovox/internal/store"
	"github.com/MrWong99/stegovox/internal/store/postgres"
	"github.com/MrWong99/stegovox/pkg/audio/transcode"
	"github.com/MrWong99/stegovox/pkg/stego"
)

// passwordEnv is read when -password is not given.
const passwordEnv = "STEGOVOX_PASSWORD"

var errUsage = errors.New("usage error")

func usageError(fs *flag.FlagSet, format string, args ...any) error {
	fmt.Fprintf(fs.Output(), "stegovox %s: %s\n", fs.Name(), fmt.Sprintf(format, args...))
	fs.Usage()
	return errUsage
}

func password(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(passwordEnv)
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ── encode ───────────────────────────────────────────────────────────────────

func encodeCmd(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	in := fs.String("in", "", "input Ogg/Opus or WAV file")
	out := fs.String("out", "", `output file ("-" for stdout)`)
	secret := fs.String("secret", "", "message to hide")
	pw := fs.String("password", "", "password (default $"+passwordEnv+")")
	toOpus := fs.Bool("to-opus", false, "transcode WAV input to Ogg/Opus before encoding")
	bitrate := fs.Int("bitrate", 0, "Opus bitrate in bit/s for -to-opus (0 keeps the encoder default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return usageError(fs, "-in and -out are required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	if *toOpus && stego.DetectFormat(data) == stego.FormatWav {
		data, err = transcode.WAVToOpus(context.Background(), data, transcode.Options{Bitrate: *bitrate})
		if err != nil {
			return err
		}
	}
	encoded, err := stego.Encode(*secret, password(*pw), data)
	if err != nil {
		return err
	}
	slog.Debug("encoded", "in", *in, "format", stego.DetectFormat(encoded), "bytes", len(encoded))
	return writeOutput(*out, encoded)
}

// ── decode ───────────────────────────────────────────────────────────────────

type decodeResult struct {
	File    string `json:"file"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func decodeCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	pw := fs.String("password", "", "password (default $"+passwordEnv+")")
	asJSON := fs.Bool("json", false, "print one JSON object per file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return usageError(fs, "no input files")
	}

	codec := stego.New()
	results := make([]decodeResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx].File = path
			data, err := os.ReadFile(path)
			if err == nil {
				results[idx].Message, err = codec.Decode(data, password(*pw))
			}
			if err != nil {
				results[idx].Error = err.Error()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		switch {
		case *asJSON:
			if err := enc.Encode(r); err != nil {
				return err
			}
		case r.Error != "":
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.File, r.Error)
		case len(files) == 1:
			fmt.Println(r.Message)
		default:
			fmt.Printf("%s: %s\n", r.File, r.Message)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// ── inspect ──────────────────────────────────────────────────────────────────

func inspectCmd(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageError(fs, "no input files")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	var errs []error
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report, err := stego.Inspect(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if err := enc.Encode(struct {
			File string `json:"file"`
			stego.Report
		}{path, report}); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// ── strip ────────────────────────────────────────────────────────────────────

func stripCmd(args []string) error {
	fs := flag.NewFlagSet("strip", flag.ContinueOnError)
	in := fs.String("in", "", "input Ogg/Opus or WAV file")
	out := fs.String("out", "", `output file ("-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return usageError(fs, "-in and -out are required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	stripped, err := stego.Strip(data)
	if err != nil {
		return err
	}
	return writeOutput(*out, stripped)
}

// ── transcode ────────────────────────────────────────────────────────────────

func transcodeCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transcode", flag.ContinueOnError)
	in := fs.String("in", "", "input WAV file")
	out := fs.String("out", "", `output Ogg/Opus file ("-" for stdout)`)
	bitrate := fs.Int("bitrate", 0, "Opus bitrate in bit/s (0 keeps the encoder default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return usageError(fs, "-in and -out are required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	opus, err := transcode.WAVToOpus(ctx, data, transcode.Options{Bitrate: *bitrate})
	if err != nil {
		return err
	}
	return writeOutput(*out, opus)
}

// ── mcp ──────────────────────────────────────────────────────────────────────

func mcpCmd(ctx context.Context, args []string, level *slog.LevelVar) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML configuration file for the store and cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			return err
		}
	}
	level.Set(cfg.Server.LogLevel.Level())

	var st store.Store
	if cfg.Store.PostgresDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return err
		}
		st = store.NewGuarded(pg, resilience.Config{Name: "postgres"})
	} else {
		st = store.NewMemory(cfg.Cache.MaxEntries)
	}
	defer st.Close()

	opts := []service.Option{service.WithCacheTTL(cfg.Cache.TTL)}
	if cfg.Transcode.WAVToOpus {
		opts = append(opts, service.WithWAVTranscode(transcode.Options{Bitrate: cfg.Transcode.Bitrate}))
	}
	svc := service.New(st, st, opts...)

	slog.Info("mcp: serving over stdio")
	return mcptools.RunStdio(ctx, mcptools.NewServer(svc, app.Version))
}
