package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"appforge/internal/command"
	"appforge/internal/config"
	"appforge/internal/db"
	"appforge/internal/dispatch"
	"appforge/internal/genclient"
	"appforge/internal/global"
	"appforge/internal/hosting"
	"appforge/internal/ledger"
	"appforge/internal/lifecycle"
	"appforge/internal/logging"
	"appforge/internal/notify"
	"appforge/internal/pipeline"
	"appforge/internal/webhook"
)

var version = "dev"

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig:   config.LoadConfig,
		RunServe:     runServe,
		RunMigrateUp: runMigrateUp,
	})

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logging.NewLogger(logging.Options{Level: "error", Component: "appforge"}).Error("appforge failed", "err", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Component: "appforge"})
	logger.Info("starting", "version", version)

	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return errors.New("APPFORGE_WEBHOOK_SECRET is not configured")
	}

	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return err
	}

	hostingCfg, err := global.NewConfigStore(dataDir).LoadOrInit()
	if err != nil {
		return fmt.Errorf("load hosting config: %w", err)
	}
	githubUser := cfg.GitHubUser
	if githubUser == "" {
		githubUser = hostingCfg.Hosting.Username
	}
	if githubUser == "" {
		return errors.New("hosting username is not configured")
	}
	apiBase := cfg.GitHubAPIBase
	if apiBase == "" {
		apiBase = hostingCfg.Hosting.APIBase
	}

	gdb, err := db.OpenSQLite(filepath.Join(dataDir, "appforge.db"))
	if err != nil {
		return fmt.Errorf("open ledger db: %w", err)
	}
	store, err := ledger.NewStore(gdb)
	if err != nil {
		return err
	}

	workDir := filepath.Join(dataDir, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}

	runner := &pipeline.Runner{
		Generator: genclient.NewClient(genclient.Config{
			BaseURL: cfg.OpenAIEndpoint,
			Model:   cfg.OpenAIModel,
			APIKey:  cfg.OpenAIAPIKey,
		}, nil),
		Hosting:  hosting.NewClient(apiBase, githubUser, cfg.GitHubToken, nil),
		Notifier: notify.NewNotifier(nil),
		Ledger:   store,
		Logger:   logger.With("module", "pipeline"),
		WorkDir:  workDir,
	}

	scheduler := dispatch.NewScheduler(dispatch.Options{
		RunTimeout: cfg.RunTimeout,
		Logger:     logger.With("module", "dispatch"),
		OnDone: func(res dispatch.Result) {
			eventType := "run.completed"
			detail := ""
			if res.Err != nil {
				eventType = "run.failed"
				detail = res.Err.Error()
			}
			if err := store.AppendRunEvent(res.RunID, res.Name, eventType, detail); err != nil {
				logger.Warn("run event write failed", "run_id", res.RunID, "err", err)
			}
		},
	})

	server := webhook.NewServer(webhook.Deps{
		Secret:    cfg.WebhookSecret,
		Ledger:    store,
		Notifier:  runner.Notifier,
		Scheduler: scheduler,
		Runner:    runner,
		Logger:    logger.With("module", "webhook"),
	})

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.ListenHost, fmt.Sprintf("%d", cfg.ListenPort)),
		Handler: server.Handler(),
	}

	mgr := lifecycle.NewManager()
	mgr.AddRun("http", func(runCtx context.Context) error {
		go func() {
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	mgr.AddShutdown("dispatch", func(shutdownCtx context.Context) error {
		drainCtx, cancel := context.WithTimeout(shutdownCtx, 30*time.Second)
		defer cancel()
		return scheduler.Shutdown(drainCtx)
	})
	mgr.AddShutdown("db", func(context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	return mgr.StartAndWait(ctx)
}

func runMigrateUp(_ context.Context, cfg config.Config) error {
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return err
	}
	gdb, err := db.OpenSQLite(filepath.Join(dataDir, "appforge.db"))
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolveDataDir(cfg config.Config) (string, error) {
	if dir := strings.TrimSpace(cfg.DataDir); dir != "" {
		return dir, nil
	}
	return global.DefaultConfigDir()
}
