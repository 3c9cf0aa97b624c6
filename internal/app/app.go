// Package app wires the config, stores, engine, transport and
// background services together.
package app

import (
	"context"
	"fmt"
	"time"

	"notigate/internal/audit"
	"notigate/internal/config"
	"notigate/internal/dedupe"
	"notigate/internal/engine"
	"notigate/internal/history"
	"notigate/internal/metrics"
	"notigate/internal/observability/pprof"
	"notigate/internal/rules"
	"notigate/internal/runtime/supervisor"
	"notigate/internal/server"
	"notigate/internal/storage"
	"notigate/internal/sweeper"
	"notigate/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store  storage.Store
	rules  *rules.Store
	engine *engine.Service
	server *server.Server
	sweep  *sweeper.Service
	pprof  *pprof.Service

	sup *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	bootLog := logx.NewConsole("INFO")

	cfgm := config.NewManager(cfgPath, bootLog.With(logx.String("comp", "config")))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logs, log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfgm: cfgm, logs: logs, log: log.With(logx.String("comp", "app"))}

	if cfg.Storage != nil {
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
		if err != nil {
			return nil, err
		}
		st, err := storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.store = st
	}

	a.rules = rules.NewStore(rules.Defaults())
	if len(cfg.Rules) > 0 {
		if _, err := a.rules.Patch(cfg.Rules); err != nil {
			return nil, err
		}
	}

	var backend dedupe.Backend
	if a.store != nil {
		backend = a.store
	}
	ded := dedupe.New(backend, log.With(logx.String("comp", "dedupe")))
	hist := history.New()
	ctr := metrics.New()
	auditLog := audit.NewLog()

	a.engine = engine.New(a.rules, ded, hist, ctr, auditLog, a.store, log.With(logx.String("comp", "engine")))

	every := sweeper.DefaultEvery
	if cfg.Sweep != nil {
		every, err = config.ParseDurationOrDefault("sweep.every", cfg.Sweep.Every, sweeper.DefaultEvery)
		if err != nil {
			return nil, err
		}
	}
	a.sweep, err = sweeper.New(every, ded, log.With(logx.String("comp", "sweeper")))
	if err != nil {
		return nil, err
	}

	a.server = server.New(server.Config{
		Addr:       cfg.Server.Addr,
		RatePerSec: cfg.Server.RatePerSec,
		Burst:      cfg.Server.Burst,
	}, a.engine, a.rules, log.With(logx.String("comp", "http")))

	var pcfg pprof.Config
	if cfg.Pprof != nil {
		pcfg = pprof.Config{
			Enabled: cfg.Pprof.Enabled,
			Addr:    cfg.Pprof.Addr,
			Token:   cfg.Pprof.Token,
		}
	}
	a.pprof = pprof.New(pcfg, log.With(logx.String("comp", "pprof")))

	// Hot reload re-applies the rules section; server/logging/storage
	// changes need a restart.
	cfgm.OnReload(func(next *config.Config) {
		if len(next.Rules) == 0 {
			return
		}
		if _, err := a.rules.Patch(next.Rules); err != nil {
			a.log.Warn("config reload: rules rejected", logx.Err(err))
			return
		}
		a.log.Info("suppression rules reloaded from config")
	})

	return a, nil
}

// Start launches the HTTP server, config watcher, dedupe sweeper and
// (when enabled) the pprof listener. An HTTP server failure cancels
// the whole supervisor, which takes the process down.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	a.sweep.Start()

	a.sup.Go("http.serve", a.server.Run)
	a.sup.Go("config.watch", a.cfgm.Watch)
	if a.pprof.Enabled() {
		a.sup.GoRestart("pprof.serve", a.pprof.Run, 500*time.Millisecond, 10*time.Second)
	}

	a.log.Info("started")
	return nil
}

// Done is closed when the supervisor shuts down, including on a fatal
// goroutine error.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return a.sup.Context().Done()
}

// Stop shuts everything down, waiting up to ctx's deadline.
func (a *App) Stop(ctx context.Context) error {
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && err != context.DeadlineExceeded && err != context.Canceled {
			a.log.Warn("shutdown", logx.Err(err))
		}
	}

	a.sweep.Stop(ctx)
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("stopped")
	return a.logs.Close()
}
