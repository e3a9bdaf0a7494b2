// Package app wires every service together and owns the process lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"elearnbot/internal/config"
	"elearnbot/internal/diff"
	"elearnbot/internal/elearn"
	"elearnbot/internal/maintenance"
	"elearnbot/internal/notify"
	"elearnbot/internal/router"
	"elearnbot/internal/store"
	"elearnbot/internal/transport"
	"elearnbot/internal/transport/telegram"
	"elearnbot/internal/watch"
	logx "elearnbot/pkg/logx"
)

type App struct {
	cfgm    *config.Manager
	logs    *logx.Service
	log     logx.Logger
	adapter *telegram.Adapter
	db      *store.Store
	sched   *watch.Scheduler
	maint   *maintenance.Service
	router  *router.Router

	watcherEnabled bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfgm.SetValidator(config.Validate)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	boot := logx.NewConsole(cfg.Logging.Level)

	pollTimeout, err := config.TimeoutOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, boot)
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	logs, log := logx.New(logConfig(cfg.Logging), adapter)
	logs.SetOperatorChat(cfg.Telegram.AdminChatID)
	cfgm.SetLogger(log.With(logx.String("svc", "config")))

	busyTimeout, err := config.TimeoutOrDefault("database.busy_timeout", cfg.Database.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(store.Config{Path: cfg.Database.Path, BusyTimeout: busyTimeout}, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	cipher, err := store.NewCipher(cfg.Database.EncryptionKey)
	if err != nil {
		return nil, err
	}

	httpTimeout, err := config.TimeoutOrDefault("elearn.http_timeout", cfg.Elearn.HTTPTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	client := elearn.New(elearn.Config{
		BaseURL:     cfg.Elearn.BaseURL,
		SnapshotDir: cfg.Elearn.SnapshotDir,
		HTTPTimeout: httpTimeout,
	}, log)

	fetchTimeout, err := config.TimeoutOrDefault("watcher.fetch_timeout", cfg.Watcher.FetchTimeout, 3*time.Minute)
	if err != nil {
		return nil, err
	}
	engine := diff.NewEngine(db)
	dispatcher := notify.NewDispatcher(adapter, log)
	runner := watch.NewCycleRunner(watch.CycleRunnerConfig{FetchTimeout: fetchTimeout},
		db, cipher, client, engine, dispatcher, adapter, log)
	sched := watch.NewScheduler(watch.SchedulerConfig{
		Interval:    time.Duration(cfg.Watcher.IntervalMinutes) * time.Minute,
		MinInterval: time.Duration(cfg.Watcher.MinIntervalMinutes) * time.Minute,
	}, runner, log)

	rt := router.New(router.Config{
		AdminChatID: cfg.Telegram.AdminChatID,
		EmailDomain: cfg.Elearn.EmailDomain,
	}, adapter, db, cipher, sched, log)

	var maint *maintenance.Service
	if cfg.Maintenance.Enabled {
		maxAge, err := config.TimeoutOrDefault("maintenance.snapshot_max_age", cfg.Maintenance.SnapshotMaxAge, 14*24*time.Hour)
		if err != nil {
			return nil, err
		}
		maint = maintenance.New(maintenance.Config{
			PruneSpec:      cfg.Maintenance.PruneSpec,
			ReportSpec:     cfg.Maintenance.ReportSpec,
			SnapshotDir:    cfg.Elearn.SnapshotDir,
			SnapshotMaxAge: maxAge,
			AdminChatID:    cfg.Telegram.AdminChatID,
		}, sched, adapter, log)
	}

	return &App{
		cfgm:           cfgm,
		logs:           logs,
		log:            log.With(logx.String("svc", "app")),
		adapter:        adapter,
		db:             db,
		sched:          sched,
		maint:          maint,
		router:         rt,
		watcherEnabled: cfg.Watcher.Enabled,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	msgs := make(chan transport.Message, 64)
	if err := a.adapter.Start(runCtx, msgs); err != nil {
		cancel()
		return fmt.Errorf("start adapter: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.router.Run(runCtx, msgs)
	}()

	if a.watcherEnabled {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.sched.Run(runCtx)
		}()
	} else {
		a.log.Warn("watcher disabled by config")
	}

	if a.maint != nil {
		if err := a.maint.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("start maintenance: %w", err)
		}
	}

	// Hot reload: config file edits re-apply logging sinks live.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sub := a.cfgm.Subscribe(4)
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logs.Apply(logConfig(cfg.Logging))
				a.logs.SetOperatorChat(cfg.Telegram.AdminChatID)
				a.log.Info("config reloaded")
			}
		}
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	if a.maint != nil {
		a.maint.Stop()
	}
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("adapter stop failed", logx.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}

func logConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Telegram.Enabled,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}
