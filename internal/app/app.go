// Package app wires configuration, transport, the poll loop and the
// operational surface into one process.
package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"homeworkbot/internal/config"
	"homeworkbot/internal/metrics"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/observability/ops"
	"homeworkbot/internal/poller"
	"homeworkbot/internal/practicum"
	rtsup "homeworkbot/internal/runtime/supervisor"
	"homeworkbot/internal/schedule"
	kit "homeworkbot/internal/transport"
	telegram "homeworkbot/internal/transport/telegram/adapter"
	logx "homeworkbot/pkg/logx"
)

// Deps lets tests replace the outbound sides. Zero fields are built from config.
type Deps struct {
	Sender  kit.Sender
	Fetcher poller.Fetcher
	Ticker  poller.Ticker
}

type App struct {
	cfgm *config.Manager
	cfg  *config.Config

	log  logx.Logger
	logs *logx.Service

	notif   *notifier.Service
	loop    *poller.Loop
	metrics *metrics.Collector
	ops     *ops.Server
	sd      *systemd

	last atomic.Pointer[cycleInfo]
}

type cycleInfo struct {
	at  time.Time
	out poller.Outcome
}

// New builds the app from a loaded and validated config.
func New(cfgm *config.Manager, cfg *config.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	chatID, err := config.ParseChatID("telegram.chat_id", cfg.Telegram.ChatID)
	if err != nil {
		return nil, err
	}

	// The chat target must be known before the chat sink is enabled,
	// otherwise Apply warns about a missing group.
	logCfg := loggingConfig(cfg)
	boot := logCfg
	boot.Chat.Enabled = false
	logs, root := logx.New(boot)
	logs.SetChatTarget(logTarget(cfg))
	logs.Apply(logCfg)
	log := root.With(logx.String("comp", "app"))

	sender := deps.Sender
	if sender == nil {
		ad, err := telegram.New(telegram.Config{
			Token:   cfg.Telegram.Token,
			Timeout: cfg.TelegramTimeout(),
		}, root.With(logx.String("comp", "telegram")))
		if err != nil {
			log.Error("telegram adapter init failed", logx.Err(err))
			_ = logs.Close()
			return nil, err
		}
		sender = ad
	}
	logs.SetSender(sender)

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = practicum.New(practicum.Config{
			Endpoint: cfg.Practicum.Endpoint,
			Token:    cfg.Practicum.Token,
			Timeout:  cfg.PracticumTimeout(),
		}, root.With(logx.String("comp", "practicum")))
	}

	ticker := deps.Ticker
	if ticker == nil {
		var loc *time.Location
		if tz := strings.TrimSpace(cfg.Practicum.Timezone); tz != "" {
			if loc, err = time.LoadLocation(tz); err != nil {
				return nil, err
			}
		}
		t, err := schedule.NewTicker(cfg.Practicum.PollInterval, loc)
		if err != nil {
			return nil, err
		}
		log.Info("poll schedule", logx.String("schedule", t.String()))
		ticker = t
	}

	a := &App{
		cfgm:    cfgm,
		cfg:     cfg,
		log:     log,
		logs:    logs,
		metrics: metrics.New(),
		sd:      newSystemd(root.With(logx.String("comp", "systemd"))),
	}
	a.notif = notifier.New(notifier.Config{
		Target: kit.ChatTarget{ChatID: chatID, ThreadID: cfg.Telegram.ThreadID},
	}, sender, root.With(logx.String("comp", "notifier")))
	a.loop = poller.New(fetcher, a.notif, ticker, root.With(logx.String("comp", "poller")),
		poller.WithCycleHook(a.metrics.Observe),
		poller.WithCycleHook(a.recordCycle),
	)
	a.ops = ops.New(ops.Config{
		Enabled:       cfg.Ops.Enabled,
		Addr:          cfg.Ops.Addr,
		Token:         cfg.Ops.Token,
		AllowInsecure: cfg.Ops.AllowInsecure,
		Pprof:         cfg.Ops.Pprof,
		ReadTimeout:   10 * time.Second,
		IdleTimeout:   60 * time.Second,
	}, a.metrics.Handler(), a.health, root)
	return a, nil
}

// Logger returns the root app logger.
func (a *App) Logger() logx.Logger { return a.log }

// Run blocks until ctx is cancelled or a supervised component fails.
func (a *App) Run(ctx context.Context) error {
	sup := rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		rtsup.WithCancelOnError(true),
	)

	cursor := a.loop.Cursor()
	if err := a.ops.Start(sup.Context()); err != nil {
		a.log.Error("ops server disabled", logx.Err(err))
	}
	sup.Go("poller", a.loop.Run)
	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		sup.Go("config.watch", func(c context.Context) error {
			return a.cfgm.Watch(c, a.applyConfig)
		})
	}
	if iv := a.sd.watchdogInterval(); iv > 0 {
		sup.Go0("systemd.watchdog", func(c context.Context) { a.sd.keepAlive(c, iv) })
	}

	a.sd.ready()
	a.log.Info("bot started", logx.Int64("cursor", cursor))

	<-sup.Context().Done()
	a.sd.stopping()
	a.log.Info("stopping")

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.ops.Stop(stopCtx)
	err := sup.Stop(stopCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("shutdown deadline reached")
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return sup.Err()
}

func (a *App) recordCycle(out poller.Outcome) {
	a.last.Store(&cycleInfo{at: time.Now(), out: out})
	a.sd.cycle()
}

// health is unhealthy while the last cycle failed to reach the API or the chat.
func (a *App) health() (map[string]any, error) {
	ci := a.last.Load()
	if ci == nil {
		return map[string]any{"cycles": 0}, nil
	}
	details := map[string]any{
		"last_cycle_at": ci.at.UTC().Format(time.RFC3339),
		"last_outcome":  ci.out.Kind.String(),
		"cursor":        ci.out.Cursor,
	}
	if ci.out.Kind == poller.Failed {
		return details, ci.out.Err
	}
	return details, nil
}

// applyConfig re-applies the hot-reloadable part of a new config: logging only.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.SetChatTarget(logTarget(cfg))
	a.logs.Apply(loggingConfig(cfg))
	if cfg.Practicum.PollInterval != a.cfg.Practicum.PollInterval {
		a.log.Warn("poll_interval changed; restart required", logx.String("new", cfg.Practicum.PollInterval))
	}
}

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func logTarget(cfg *config.Config) kit.ChatTarget {
	if strings.TrimSpace(cfg.Telegram.GroupLog) == "" {
		return kit.ChatTarget{}
	}
	id, err := config.ParseChatID("telegram.group_log", cfg.Telegram.GroupLog)
	if err != nil {
		return kit.ChatTarget{}
	}
	return kit.ChatTarget{ChatID: id}
}
