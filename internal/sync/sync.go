package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mlaeubli/tasksync/internal/api"
	"github.com/mlaeubli/tasksync/internal/changes"
	"github.com/mlaeubli/tasksync/internal/config"
	"github.com/mlaeubli/tasksync/internal/event"
	"github.com/mlaeubli/tasksync/internal/git"
	"github.com/mlaeubli/tasksync/internal/task"
)

// Engine orchestrates the sync process: change detection, folder
// classification, and per-folder create/update calls against the
// remote task service.
type Engine struct {
	cfg    *config.Config
	git    git.Client
	api    api.Client
	logger *slog.Logger
	dryRun bool
}

// NewEngine creates a new sync engine
func NewEngine(cfg *config.Config, gitClient git.Client, apiClient api.Client, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:    cfg,
		git:    gitClient,
		api:    apiClient,
		logger: logger,
		dryRun: dryRun,
	}
}

// Run executes a complete sync for the commit range resolved from the
// configuration and the optional CI event descriptor.
func (e *Engine) Run(ctx context.Context) error {
	ev, err := event.Load(e.cfg.EventPath)
	if err != nil {
		// A broken event file only loses one range source; lower
		// precedence sources still apply.
		e.logger.Warn("ignoring unreadable event file", "path", e.cfg.EventPath, "error", err)
	}

	return e.RunRange(ctx, changes.ResolveRange(e.cfg, ev))
}

// RunRange executes a complete sync for an explicitly given commit
// range (e.g. one taken from a webhook event).
func (e *Engine) RunRange(ctx context.Context, rng changes.Range) error {
	e.logger.Info("starting sync",
		"before", rng.Before,
		"after", rng.After,
		"actions_dir", e.cfg.ActionsDir,
		"dry_run", e.dryRun)

	resolver := changes.NewResolver(e.git, e.cfg.RepoDir, e.logger)
	changed := resolver.Resolve(ctx, rng)
	folders := changes.Classify(changed, e.cfg.ActionsDir)

	e.logger.Info("change scan complete",
		"changed_files", len(changed),
		"task_folders", len(folders))

	for _, folder := range folders {
		if err := e.syncFolder(ctx, folder, changes.FilesChangedIn(folder, changed)); err != nil {
			// Only structural config validation aborts the run; every
			// other per-folder failure was already logged and skipped.
			return err
		}
	}

	e.logger.Info("sync completed")
	return nil
}

// syncFolder creates or updates the remote task for one folder. The
// returned error is non-nil only for pipeline-blocking authoring
// errors; everything else is logged and swallowed so one bad folder
// never blocks its siblings.
func (e *Engine) syncFolder(ctx context.Context, folder string, changedFiles []string) error {
	dir := filepath.Join(e.cfg.RepoDir, folder)
	name := filepath.Base(folder)
	logger := e.logger.With("task", name)

	configFile, ok := task.FindConfigFile(dir)
	if !ok {
		logger.Warn("skipping folder without config file", "folder", folder)
		return nil
	}
	if _, err := os.Stat(filepath.Join(dir, task.ScriptName)); err != nil {
		logger.Warn("skipping folder without script file", "folder", folder, "script", task.ScriptName)
		return nil
	}

	taskCfg, err := task.LoadConfig(configFile)
	if err != nil {
		logger.Warn("skipping folder with invalid config syntax", "folder", folder, "error", err)
		return nil
	}
	if err := taskCfg.Validate(filepath.Base(configFile)); err != nil {
		logger.Error("config validation failed, aborting run", "folder", folder, "error", err)
		return fmt.Errorf("folder %s: %w", folder, err)
	}

	if e.dryRun {
		variant := "full"
		if wantsFileOnly(changedFiles) {
			variant = "file-only"
		}
		logger.Info("[dry-run] would sync task", "folder", folder, "update_payload", variant)
		return nil
	}

	ref, err := e.api.FindTask(ctx, name)
	if err != nil {
		logger.Error("task lookup failed", "error", err)
		return nil
	}

	if ref == nil {
		e.createTask(ctx, logger, dir)
	} else {
		e.updateTask(ctx, logger, dir, ref.ID, changedFiles)
	}
	return nil
}

// createTask registers a new task with the full definition.
func (e *Engine) createTask(ctx context.Context, logger *slog.Logger, dir string) {
	payload, err := task.BuildFull(dir)
	if err != nil {
		logger.Error("failed to build task payload", "error", err)
		return
	}

	id, err := e.api.CreateTask(ctx, payload)
	if err != nil {
		logger.Error("task creation failed", "error", err)
		return
	}
	logger.Info("task created", "id", id)
}

// updateTask patches an existing task. When only the script changed,
// the minimal file-only payload is sent; a file-only build failure
// degrades to the full payload.
func (e *Engine) updateTask(ctx context.Context, logger *slog.Logger, dir, id string, changedFiles []string) {
	var payload task.Payload

	if wantsFileOnly(changedFiles) {
		fileOnly, err := task.BuildFileOnly(dir)
		if err != nil {
			logger.Warn("file-only payload failed, falling back to full payload", "error", err)
		} else {
			payload = fileOnly
		}
	}

	if payload == nil {
		full, err := task.BuildFull(dir)
		if err != nil {
			logger.Error("failed to build task payload", "error", err)
			return
		}
		payload = full
	}

	if err := e.api.UpdateTask(ctx, id, payload); err != nil {
		logger.Error("task update failed", "id", id, "error", err)
		return
	}
	logger.Info("task updated", "id", id)
}

// wantsFileOnly reports whether an update can carry just the script:
// at least one file changed, and every changed file is the script
// itself. An empty change set is no evidence, so it gets the full
// payload.
func wantsFileOnly(changedFiles []string) bool {
	if len(changedFiles) == 0 {
		return false
	}
	for _, f := range changedFiles {
		if f != task.ScriptName {
			return false
		}
	}
	return true
}
