package changes

import (
	"context"
	"log/slog"

	"github.com/mlaeubli/tasksync/internal/git"
)

// fetchDepth bounds the first history-retrieval attempt for shallow
// clones before falling back to a full unshallow fetch.
const fetchDepth = 100

// Resolver produces the list of changed file paths for a commit range,
// with fallback strategies when the range is unusable or commits are
// not reachable in the local object store.
type Resolver struct {
	git     git.Client
	repoDir string
	logger  *slog.Logger
}

// NewResolver creates a new change set resolver
func NewResolver(gitClient git.Client, repoDir string, logger *slog.Logger) *Resolver {
	return &Resolver{
		git:     gitClient,
		repoDir: repoDir,
		logger:  logger,
	}
}

// fetchStrategy is one step of the history-retrieval ladder. Each step
// is independent; a failed fetch is swallowed and the next step tried.
type fetchStrategy struct {
	name  string
	fetch func(ctx context.Context) error
}

func (r *Resolver) strategies() []fetchStrategy {
	return []fetchStrategy{
		{
			name:  "deepen",
			fetch: func(ctx context.Context) error { return r.git.FetchDeepen(ctx, r.repoDir, fetchDepth) },
		},
		{
			name:  "unshallow",
			fetch: func(ctx context.Context) error { return r.git.FetchUnshallow(ctx, r.repoDir) },
		},
	}
}

// Resolve returns the changed file paths for the given range. It never
// fails: when change detection goes wrong for an unexpected reason the
// error is logged and an empty change set returned, so one bad diff
// cannot take down the whole run.
func (r *Resolver) Resolve(ctx context.Context, rng Range) []string {
	if !rng.Usable() {
		r.logger.Info("no usable previous commit, listing files from last commit", "after", rng.After)
		return r.lastCommitFiles(ctx, rng.After)
	}

	if !r.ensureReachable(ctx, rng.Before) || !r.ensureReachable(ctx, rng.After) {
		r.logger.Warn("commit range not reachable after history fetches, falling back to last commit",
			"before", rng.Before,
			"after", rng.After)
		return r.lastCommitFiles(ctx, rng.After)
	}

	files, err := r.git.DiffFiles(ctx, r.repoDir, rng.Before, rng.After)
	if err != nil {
		r.logger.Error("diff computation failed, treating as no changes", "error", err)
		return nil
	}
	return files
}

// ensureReachable checks that sha resolves locally, retrieving
// progressively deeper history when it does not.
func (r *Resolver) ensureReachable(ctx context.Context, sha string) bool {
	if r.git.CommitExists(ctx, r.repoDir, sha) {
		return true
	}

	for _, strategy := range r.strategies() {
		r.logger.Info("commit not found locally, fetching more history",
			"commit", sha,
			"strategy", strategy.name)

		if err := strategy.fetch(ctx); err != nil {
			r.logger.Warn("history fetch failed", "strategy", strategy.name, "error", err)
		}

		if r.git.CommitExists(ctx, r.repoDir, sha) {
			return true
		}
	}

	return false
}

// lastCommitFiles lists the files touched by the single after commit.
func (r *Resolver) lastCommitFiles(ctx context.Context, sha string) []string {
	files, err := r.git.CommitFiles(ctx, r.repoDir, sha)
	if err != nil {
		r.logger.Error("failed to list files of last commit, treating as no changes",
			"commit", sha,
			"error", err)
		return nil
	}
	return files
}
