package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/keywarden/go-keywarden/authority"
	"github.com/keywarden/go-keywarden/config"
	"github.com/keywarden/go-keywarden/guard"
	"github.com/keywarden/go-keywarden/logging"
	"github.com/keywarden/go-keywarden/store"
)

// app wires the configured store, authority and guard for one command
// invocation.
type app struct {
	cfg       *config.Config
	store     store.Store
	authority *authority.Authority
	guard     *guard.Guard
}

func openApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var s store.Store
	switch cfg.Store {
	case config.StoreSQLite:
		s, err = store.NewSQLiteStore(cfg.DataDir)
	default:
		s, err = store.NewFileStore(cfg.DataDir)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a, err := authority.New(s, authority.WithDefaultTTL(cfg.DefaultTokenTTL))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open authority: %w", err)
	}

	g, err := guard.New(a, s,
		guard.WithLogger(newLogger(cfg.LogLevel)),
		guard.WithRootTokenTTL(cfg.RootTokenTTL))
	if err != nil {
		a.Close()
		s.Close()
		return nil, fmt.Errorf("open guard: %w", err)
	}

	return &app{cfg: cfg, store: s, authority: a, guard: g}, nil
}

func (a *app) Close() {
	a.authority.Close()
	a.store.Close()
}

func newLogger(level string) logging.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	return logging.NewSlogLogger(slog.New(h))
}
