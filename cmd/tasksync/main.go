package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mlaeubli/tasksync/internal/api"
	"github.com/mlaeubli/tasksync/internal/config"
	"github.com/mlaeubli/tasksync/internal/git"
	"github.com/mlaeubli/tasksync/internal/sync"
	"github.com/mlaeubli/tasksync/internal/webhook"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	logLevel  string
	logFormat string
	dryRun    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "Synchronize custom task folders to the remote task service",
	Long: `tasksync detects which task folders changed in a commit range, validates
each folder's config.yaml, and creates or updates the matching custom task
on the remote task service.

It is designed to run as a CI step (GitHub Actions or GitLab CI) and can
also run as a long-lived webhook daemon that syncs on push events.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Detect changed task folders and sync them once",
	Long: `Sync resolves the commit range from the CI environment, diffs it to find
changed task folders, and issues one create or update call per folder.

Per-folder failures are logged and skipped; only a missing API token or a
task config missing required keys aborts the run.`,
	RunE: runSync,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook daemon",
	Long: `Serve starts a long-running HTTP server that listens for GitHub push
webhooks and syncs the commit range each event carries.

This mode requires a webhook secret file and supports systemd socket
activation.`,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tasksync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be synced without calling the task service")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()
	cfg, err := loadConfig(logger, !dryRun)
	if err != nil {
		return err
	}

	engine := newEngine(cfg, logger)
	if err := engine.Run(ctx); err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()
	cfg, err := loadConfig(logger, true)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	server, err := webhook.NewServer(cfg, newEngine(cfg, logger), logger)
	if err != nil {
		return err
	}
	return server.Start(ctx)
}

// newEngine wires the sync engine with its collaborators.
func newEngine(cfg *config.Config, logger *slog.Logger) *sync.Engine {
	gitClient := git.NewShellClient()
	apiClient := api.NewHTTPClient(cfg.APIBaseURL, cfg.Token)
	return sync.NewEngine(cfg, gitClient, apiClient, logger, dryRun)
}

// loadConfig builds the runtime configuration from the environment,
// reading an optional .env file first for local runs.
func loadConfig(logger *slog.Logger, needToken bool) (*config.Config, error) {
	// Absence of a .env file is the normal case in CI.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if err := cfg.Validate(needToken); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, err
	}

	logger.Debug("configuration loaded",
		"api_url", cfg.APIBaseURL,
		"actions_dir", cfg.ActionsDir,
		"repo_dir", cfg.RepoDir,
		"event", cfg.EventName)

	return cfg, nil
}

func setupLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
