package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/service"
)

// app is everything a command needs, built from config.
type app struct {
	cfg      *domain.Config
	repo     *repository.FileRepository
	cache    domain.Cache
	registry *service.Registry
	logger   *slog.Logger
}

// bootstrap loads config and reference data and wires the registry.
// Logs go to logOut.
func bootstrap(logOut io.Writer) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.referencePath != "" {
		cfg.ReferencePath = flags.referencePath
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}

	logger := newLogger(logOut, cfg.Logging)
	slog.SetDefault(logger)
	setupTracing(cfg.Tracing, logger)

	ref, err := config.LoadReference(cfg.ReferencePath)
	if err != nil {
		return nil, err
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("initialize repository: %w", err)
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("initialize cache: %w", err)
	}

	registry, err := service.New(service.Setup{
		Repository: repo,
		Cache:      c,
		CacheTTL:   cfg.Cache.ResultTTL,
		Review:     cfg.Review,
		Reference:  ref.DRG,
		Points:     ref.Points,
		Custom:     ref.Custom,
		Logger:     logger,
	})
	if err != nil {
		repo.Close()
		if c != nil {
			c.Close()
		}
		return nil, err
	}

	logger.Info("configuration loaded",
		"data_dir", cfg.Repository.DataDir,
		"cache", cfg.Cache.Type,
		"reference", cfg.ReferencePath,
		"custom_rules", len(ref.Custom),
		"workers", cfg.Review.Workers,
	)

	return &app{cfg: cfg, repo: repo, cache: c, registry: registry, logger: logger}, nil
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close cache", "error", err)
		}
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close repository", "error", err)
	}
}

func newLogger(w io.Writer, cfg domain.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// setupTracing silences spans unless tracing is enabled. When enabled, spans
// go to whatever provider the process registered with otel.
func setupTracing(cfg domain.TracingConfig, logger *slog.Logger) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return
	}
	logger.Info("tracing enabled", "service", cfg.ServiceName)
}
