// Package app wires the stegovox subsystems into a running server.
//
// New creates the store, telemetry, service, HTTP routes and the optional
// Discord bot from a config. Run serves until its context is cancelled, and
// Shutdown releases everything in order. Tests inject doubles through
// functional options.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/stegovox/internal/bridge"
	"github.com/MrWong99/stegovox/internal/config"
	"github.com/MrWong99/stegovox/internal/discord"
	"github.com/MrWong99/stegovox/internal/discord/commands"
	"github.com/MrWong99/stegovox/internal/health"
	"github.com/MrWong99/stegovox/internal/mcptools"
	"github.com/MrWong99/stegovox/internal/observe"
	"github.com/MrWong99/stegovox/internal/resilience"
	"github.com/MrWong99/stegovox/internal/service"
	"github.com/MrWong99/stegovox/internal/store"
	"github.com/MrWong99/stegovox/internal/store/postgres"
	"github.com/MrWong99/stegovox/pkg/audio/transcode"
)

// Version is reported to MCP clients and in telemetry.
var Version = "dev"

// drainTimeout bounds how long in-flight HTTP requests may take to finish.
const drainTimeout = 15 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg      *config.Config
	store    store.Store
	svc      *service.Service
	health   *health.Handler
	provider *observe.Provider
	server   *http.Server
	listener net.Listener
	bot      *discord.Bot
	stego    *commands.StegoCommands
	logLevel *slog.LevelVar

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithStore injects a store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithListener serves on l instead of listening on server.listen_addr.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// WithLogLevel lets [App.ApplyConfig] change the level of the default
// logger's handler.
func WithLogLevel(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// New creates an App by wiring all subsystems together.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}

	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: Version})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	a.provider = provider
	a.closers = append(a.closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(sctx)
	})

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("app: create metrics: %w", err)
	}

	svcOpts := []service.Option{
		service.WithMetrics(metrics),
		service.WithCacheTTL(cfg.Cache.TTL),
	}
	if cfg.Transcode.WAVToOpus {
		svcOpts = append(svcOpts, service.WithWAVTranscode(transcode.Options{Bitrate: cfg.Transcode.Bitrate}))
	}
	a.svc = service.New(a.store, a.store, svcOpts...)

	a.health = health.New(health.Ping("store", a.store))
	a.server = &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      observe.Middleware(metrics)(a.routes(metrics)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Discord.Token != "" {
		if err := a.initDiscord(ctx); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if dsn := a.cfg.Store.PostgresDSN; dsn != "" {
		pg, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.store = store.NewGuarded(pg, resilience.Config{Name: "postgres"})
		slog.Info("store: using postgres")
	} else {
		a.store = store.NewMemory(a.cfg.Cache.MaxEntries)
		slog.Info("store: using memory", "max_entries", a.cfg.Cache.MaxEntries)
	}
	a.closers = append(a.closers, func() error { a.store.Close(); return nil })
	return nil
}

func (a *App) routes(metrics *observe.Metrics) http.Handler {
	mux := http.NewServeMux()
	a.health.Register(mux)
	mux.Handle("GET /metrics", a.provider.Handler())

	bridge.New(a.svc, bridge.Config{
		MaxBodyBytes:   a.cfg.Bridge.MaxBodyBytes,
		MaxInFlight:    a.cfg.Bridge.MaxInFlight,
		AllowedOrigins: a.cfg.Bridge.AllowedOrigins,
	}, metrics).Register(mux)

	if a.cfg.MCP.Enabled {
		mux.Handle(a.cfg.MCP.Path, mcptools.Handler(mcptools.NewServer(a.svc, Version)))
		slog.Info("mcp: streamable HTTP endpoint enabled", "path", a.cfg.MCP.Path)
	}
	return mux
}

func (a *App) initDiscord(ctx context.Context) error {
	bot, err := discord.New(ctx, discord.Config{
		Token:   a.cfg.Discord.Token,
		GuildID: a.cfg.Discord.GuildID,
		RoleID:  a.cfg.Discord.RoleID,
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.bot = bot
	a.closers = append([]func() error{bot.Close}, a.closers...)

	a.stego = commands.NewStegoCommands(a.svc, bot.Permissions(), commands.Config{
		Downloader: &commands.Downloader{
			Timeout:  a.cfg.Discord.DownloadTimeout,
			MaxBytes: a.cfg.Bridge.MaxBodyBytes,
		},
		MinScanBytes: int64(a.cfg.Discord.MinScanBytes),
	})
	a.stego.Register(bot.Router())
	bot.OnMessage(a.stego.OnMessage)
	slog.Info("discord bot connected", "guild_id", a.cfg.Discord.GuildID)
	return nil
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Service returns the stego service.
func (a *App) Service() *service.Service {
	return a.svc
}

// Run serves HTTP, the Discord bot and the cache janitor until ctx is
// cancelled, then drains in-flight HTTP requests. It returns the first
// error that is not caused by the cancellation.
func (a *App) Run(ctx context.Context) error {
	ln := a.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.cfg.Server.ListenAddr)
		if err != nil {
			return fmt.Errorf("app: listen: %w", err)
		}
	}
	slog.Info("http server listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve http: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.health.SetDraining(true)
		sctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := a.server.Shutdown(sctx); err != nil {
			return fmt.Errorf("app: drain http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.svc.RunJanitor(gctx, janitorInterval(a.cfg.Cache.TTL))
	})
	if a.bot != nil {
		g.Go(func() error {
			if err := a.bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// ApplyConfig applies the hot-reloadable settings of next and logs the ones
// that need a restart.
func (a *App) ApplyConfig(prev, next *config.Config) {
	d := config.Diff(prev, next)
	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(d.NewLogLevel.Level())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.CacheTTLChanged {
		a.svc.SetCacheTTL(d.NewCacheTTL)
		slog.Info("cache ttl changed", "ttl", d.NewCacheTTL)
	}
	if d.MinScanBytesChanged && a.stego != nil {
		a.stego.SetMinScanBytes(int64(d.NewMinScanBytes))
		slog.Info("discord scan threshold changed", "min_scan_bytes", d.NewMinScanBytes)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "settings", d.RestartRequired)
	}
}

// Shutdown runs the closers in order. It respects the context deadline: if
// ctx expires first, the remaining closers are skipped and ctx.Err() is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// close releases what New created so far when New fails.
func (a *App) close() {
	for _, closer := range a.closers {
		_ = closer()
	}
}

// janitorInterval purges a few times per TTL, but not more than once a
// minute or less than once an hour.
func janitorInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Minute), time.Hour)
}
