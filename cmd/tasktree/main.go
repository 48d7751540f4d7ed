package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/tasktree/internal/api"
	"github.com/sandeepkv93/tasktree/internal/app"
	"github.com/sandeepkv93/tasktree/internal/config"
	"github.com/sandeepkv93/tasktree/internal/notify"
	"github.com/sandeepkv93/tasktree/internal/session"
	"github.com/sandeepkv93/tasktree/internal/storage"
	"github.com/sandeepkv93/tasktree/internal/update"
)

var Version = "dev"

const feedLimit = 100

var verbose bool

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:     "tasktree",
		Short:   "TaskTree terminal client",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), configPath)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(tuiCmd(&configPath))
	rootCmd.AddCommand(authCmds(&configPath)...)
	rootCmd.AddCommand(sectionsCmd(&configPath))
	rootCmd.AddCommand(sharedCmd(&configPath))
	rootCmd.AddCommand(devServerCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tuiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive workspace (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), *configPath)
		},
	}
}

// runtime is everything a command needs to talk to the backend.
type runtime struct {
	cfg     config.RuntimeConfig
	logger  *slog.Logger
	db      *storage.SQLiteRepository
	client  *api.Client
	manager *session.Manager
	svc     *app.Service
	feed    *notify.Feed
	logFile *os.File
}

func loadConfig(path string) (config.RuntimeConfig, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.RuntimeConfig{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func openRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	db, err := storage.OpenSQLite(cfg.DatabasePath(), logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	store, err := session.NewKVTokenStore(db)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, err
	}
	client, err := api.New(cfg.APIURL, api.WithTimeout(cfg.RequestTimeout), api.WithLogger(logger))
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, err
	}
	manager := session.NewManager(client, store, session.Options{Logger: logger, RefreshSkew: cfg.RefreshSkew})
	client.SetAuthenticator(manager)

	feed := notify.NewFeed(feedLimit, cfg.NotificationBuffer)
	var notifier notify.Notifier = feed
	if cfg.DesktopNotifications {
		notifier = notify.Multi{feed, notify.Exec{}}
	}
	// dark_mode only seeds the preference; later toggles win.
	if _, err := db.Get(storage.KeyDarkMode); errors.Is(err, storage.ErrNotFound) && cfg.DarkMode {
		if err := db.Set(storage.KeyDarkMode, "true"); err != nil {
			logger.Warn("seed dark mode", slog.String("error", err.Error()))
		}
	}
	svc := app.New(client, manager, app.Options{Logger: logger, Notifier: notifier, Cache: db, Prefs: db})

	if err := manager.Initialize(ctx); err != nil {
		logger.Warn("stored session not restored", slog.String("error", err.Error()))
	}
	logger.Info("tasktree started", slog.String("version", Version), slog.String("api", cfg.APIURL))
	return &runtime{cfg: cfg, logger: logger, db: db, client: client, manager: manager, svc: svc, feed: feed, logFile: logFile}, nil
}

func (r *runtime) Close() {
	r.svc.Close()
	if err := r.db.Close(); err != nil {
		r.logger.Error("close database", slog.String("error", err.Error()))
	}
	r.logFile.Close()
}

func runTUI(ctx context.Context, configPath string) error {
	rt, err := openRuntime(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	program := tea.NewProgram(update.NewModel(update.Deps{
		Service: rt.svc,
		Auth:    rt.manager,
		Feed:    rt.feed,
		Timeout: rt.cfg.RequestTimeout,
	}), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tasktree failed: %w", err)
	}
	return nil
}

// withSession runs fn with a runtime that holds a signed-in user.
func withSession(cmd *cobra.Command, configPath string, fn func(ctx context.Context, rt *runtime) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	rt, err := openRuntime(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.Close()
	if _, ok := rt.manager.User(); !ok {
		return errors.New("not signed in, run: " + filepath.Base(os.Args[0]) + " login")
	}
	return fn(ctx, rt)
}
