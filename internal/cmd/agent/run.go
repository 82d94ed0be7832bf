package agentrun

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgpkg "github.com/Watchlog-monitoring/watchlog-rum-go/internal/config"
	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/agent"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// Options carries CLI flag values. Zero/empty fields defer to the config
// file and WATCHLOG_* environment; SampleRate below zero means unset.
type Options struct {
	ConfigPath  string
	Endpoint    string
	APIKey      string
	App         string
	Environment string
	Release     string
	SampleRate  float64
	DataDir     string

	// Interval paces the demo emitter in Run.
	Interval time.Duration
}

// resolve layers flag overrides on top of env on top of the config file.
func resolve(opts Options) (cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(opts.ConfigPath)
	if err != nil {
		return cfgpkg.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfgpkg.FromEnv(&cfg)
	if opts.Endpoint != "" {
		cfg.Endpoint = opts.Endpoint
	}
	if opts.APIKey != "" {
		cfg.APIKey = opts.APIKey
	}
	if opts.App != "" {
		cfg.App = opts.App
	}
	if opts.Environment != "" {
		cfg.Environment = opts.Environment
	}
	if opts.Release != "" {
		cfg.Release = opts.Release
	}
	if opts.SampleRate >= 0 {
		cfg.SampleRate = opts.SampleRate
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if cfg.Endpoint == "" {
		return cfgpkg.Config{}, fmt.Errorf("collector endpoint required (--endpoint or WATCHLOG_ENDPOINT)")
	}
	return cfg, nil
}

func newLogger() logpkg.Logger {
	cfg := &logpkg.Config{
		Level:  getenvDefault("WATCHLOG_LOG_LEVEL", "info"),
		Format: getenvDefault("WATCHLOG_LOG_FORMAT", "text"),
	}
	logger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	return logger
}

func agentOptions(cfg cfgpkg.Config, logger logpkg.Logger) agent.Options {
	return agent.Options{
		Endpoint:           cfg.Endpoint,
		APIKey:             cfg.APIKey,
		App:                cfg.App,
		Environment:        cfg.Environment,
		Release:            cfg.Release,
		SampleRate:         agent.Rate(cfg.SampleRate),
		BatchMax:           cfg.BatchMax,
		FlushInterval:      cfg.FlushInterval(),
		MaxQueueBytes:      cfg.MaxQueueBytes,
		SessionTTL:         cfg.SessionTTL(),
		InitialViewPoll:    cfg.InitialViewPoll(),
		InitialViewTimeout: cfg.InitialViewTimeout(),
		FilterExpr:         cfg.FilterExpr,
		DataDir:            cfg.DataDir,
		RouteManifest:      cfg.RouteManifest,
		Logger:             logger,
	}
}

// Run starts the agent and emits a synthetic browsing session until ctx is
// cancelled. It exists to exercise a collector end to end from the CLI.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := resolve(opts)
	if err != nil {
		return err
	}
	logger := newLogger()
	logpkg.RedirectStdLog(logger)

	logger.Info("Starting watchlog-rum agent",
		logpkg.Str("endpoint", cfg.Endpoint),
		logpkg.Str("app", cfg.App),
		logpkg.Str("environment", cfg.Environment),
		logpkg.Float64("sample_rate", cfg.SampleRate),
	)

	a := agent.Start(agentOptions(cfg, logger))
	defer agent.Shutdown()

	if info, ok := a.Session(); ok {
		logger.Info("session ready",
			logpkg.Str("session", info.SessionID),
			logpkg.Str("device", info.DeviceID),
			logpkg.Bool("sampled", info.Sampled),
		)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	pages := []string{"/", "/products", "/products/42", "/checkout"}
	agent.SetRouteManifest([]string{"/", "/products", "/products/:id", "/checkout"})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-sctx.Done():
			a.Hide()
			return nil
		case <-ticker.C:
			a.Activity()
			a.TrackPageView(pages[i%len(pages)], "push")
			if i%len(pages) == len(pages)-1 {
				a.TrackEvent("demo_cycle", map[string]interface{}{"cycle": i / len(pages)})
			}
		}
	}
}

// Send starts the agent, records one custom event, and shuts down. The
// teardown flush ships the event synchronously, so a zero exit means the
// collector accepted it or the failure was logged.
func Send(ctx context.Context, opts Options, name, dataJSON string) error {
	cfg, err := resolve(opts)
	if err != nil {
		return err
	}
	var data map[string]interface{}
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return fmt.Errorf("parse --data: %w", err)
		}
	}
	logger := newLogger()
	logpkg.RedirectStdLog(logger)

	a := agent.Start(agentOptions(cfg, logger))
	a.TrackEvent(name, data)
	agent.Shutdown()
	return ctx.Err()
}
