// SPDX-License-Identifier: MIT

// Package daemon assembles and runs the voxhired process: configuration,
// session store, analysis, reports, realtime gateway, interviewer bot, and
// the HTTP surface, with graceful shutdown and live config reload.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/voxhire/voxhire/internal/analysis"
	"github.com/voxhire/voxhire/internal/api"
	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/dashboard"
	"github.com/voxhire/voxhire/internal/documents"
	"github.com/voxhire/voxhire/internal/health"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/report"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/session"
	"github.com/voxhire/voxhire/internal/telemetry"
	"github.com/voxhire/voxhire/internal/version"
)

const defaultShutdownTimeout = 30 * time.Second

// Options controls daemon startup.
type Options struct {
	// ConfigPath is the optional YAML config file. Environment variables
	// override it either way.
	ConfigPath string
	// ShutdownTimeout bounds the graceful drain. Zero means 30s.
	ShutdownTimeout time.Duration
}

// Daemon is one assembled voxhired instance.
type Daemon struct {
	opts    Options
	holder  *config.Holder
	store   session.Store
	bot     *rtc.Bot
	handler http.Handler
	tracer  *telemetry.Provider
	cache   *redis.Client
	logger  zerolog.Logger
}

// New loads and validates configuration, then assembles the daemon.
// Any constructor error is fatal: the process must not listen half-built.
func New(ctx context.Context, opts Options) (*Daemon, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "voxhired",
	})
	return assemble(ctx, cfg, opts)
}

// assemble builds every component from an already-validated config.
func assemble(ctx context.Context, cfg config.Config, opts Options) (*Daemon, error) {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	logger := log.WithComponent("daemon")

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := session.OpenStore(cfg.Store, cfg.Redis, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	issuer, err := rtc.NewTokenIssuer(cfg.RTC)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	gateway := rtc.NewGateway(issuer)
	bot := rtc.NewBot(gateway, store)

	analysisSvc := analysis.NewService(cfg.LLM)
	mailer := report.NewMailer(cfg.Email)

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	manager := health.NewManager()
	manager.Register("store", health.StoreChecker(store))
	if cfg.Store.Backend == "sqlite" {
		dbPath := cfg.Store.Path
		if dbPath == "" {
			dbPath = filepath.Join(cfg.DataDir, "voxhire.sqlite")
		}
		manager.RegisterOptional("sqlite", health.SQLiteChecker(dbPath))
	}
	manager.RegisterOptional("llm", health.LLMChecker(func() bool { return cfg.LLM.BaseURL != "" }))
	if cfg.Email.Host != "" {
		manager.RegisterOptional("smtp", health.SMTPChecker(cfg.Email))
	}

	tracer, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "voxhired",
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	holder := config.NewHolder(cfg, opts.ConfigPath)
	server := api.New(api.Deps{
		Config:    holder,
		Store:     store,
		Documents: documents.NewProcessor(cfg.Documents.MaxUploadBytes),
		Analysis:  analysisSvc,
		Mailer:    mailer,
		Reports:   report.NewStore(cfg.DataDir),
		Issuer:    issuer,
		Gateway:   gateway,
		Dashboard: dashboard.NewService(store, cache),
		Health:    manager,
	})

	return &Daemon{
		opts:    opts,
		holder:  holder,
		store:   store,
		bot:     bot,
		handler: server,
		tracer:  tracer,
		cache:   cache,
		logger:  logger,
	}, nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// drains within the shutdown timeout.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := d.holder.Get()
	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	if cfg.MaxConns > 0 {
		listener = netutil.LimitListener(listener, cfg.MaxConns)
	}

	server := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	d.logger.Info().
		Str("listen", listener.Addr().String()).
		Str("store", cfg.Store.Backend).
		Str("version", version.Version).
		Str("event", "daemon.started").
		Msg("voxhired listening")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return d.watchConfig(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return d.shutdown(server)
	})

	err = g.Wait()
	d.logger.Info().Str("event", "daemon.stopped").Msg("voxhired stopped")
	return err
}

// watchConfig reloads on file changes and on SIGHUP.
func (d *Daemon) watchConfig(ctx context.Context) error {
	if err := d.holder.StartWatcher(ctx); err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			d.logger.Info().Str("event", "daemon.sighup").Msg("reloading configuration")
			if err := d.holder.Reload(ctx); err != nil {
				d.logger.Error().Err(err).
					Str("event", "daemon.reload_failed").
					Msg("keeping previous configuration")
			}
		}
	}
}

func (d *Daemon) shutdown(server *http.Server) error {
	d.logger.Info().
		Dur("timeout", d.opts.ShutdownTimeout).
		Str("event", "daemon.draining").
		Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)

	d.bot.Wait()
	d.holder.Stop()
	if cerr := d.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if d.cache != nil {
		_ = d.cache.Close()
	}
	if terr := d.tracer.Shutdown(ctx); terr != nil && err == nil {
		err = terr
	}
	return err
}
