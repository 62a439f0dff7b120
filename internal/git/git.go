package git

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Client provides the git operations needed for change detection
type Client interface {
	// CommitExists reports whether sha resolves to a commit in the
	// local object store
	CommitExists(ctx context.Context, repoDir, sha string) bool

	// FetchDeepen retrieves additional history for shallow clones
	FetchDeepen(ctx context.Context, repoDir string, depth int) error

	// FetchUnshallow converts a shallow clone into a full clone
	FetchUnshallow(ctx context.Context, repoDir string) error

	// DiffFiles lists files added, copied, modified, renamed or
	// type-changed between two commits, in diff output order
	DiffFiles(ctx context.Context, repoDir, before, after string) ([]string, error)

	// CommitFiles lists files touched by a single commit
	CommitFiles(ctx context.Context, repoDir, sha string) ([]string, error)
}

// diffFilter restricts diffs to added, copied, modified, renamed and
// type-changed files; deletions carry nothing worth syncing.
const diffFilter = "ACMRT"

// ShellClient implements Client by shelling out to the git command
type ShellClient struct{}

// NewShellClient creates a new git client that uses the git command
func NewShellClient() *ShellClient {
	return &ShellClient{}
}

// CommitExists checks the local object store for the given commit
func (c *ShellClient) CommitExists(ctx context.Context, repoDir, sha string) bool {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "cat-file", "-e", sha+"^{commit}")
	return cmd.Run() == nil
}

// FetchDeepen fetches additional history up to the given depth
func (c *ShellClient) FetchDeepen(ctx context.Context, repoDir string, depth int) error {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "fetch", "--deepen="+strconv.Itoa(depth))
	if err := runCommand(cmd); err != nil {
		return fmt.Errorf("git fetch --deepen failed: %w", err)
	}
	return nil
}

// FetchUnshallow fetches the complete remote history
func (c *ShellClient) FetchUnshallow(ctx context.Context, repoDir string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "fetch", "--unshallow")
	if err := runCommand(cmd); err != nil {
		return fmt.Errorf("git fetch --unshallow failed: %w", err)
	}
	return nil
}

// DiffFiles computes the file-level difference between two commits
func (c *ShellClient) DiffFiles(ctx context.Context, repoDir, before, after string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir,
		"diff", "--name-only", "--diff-filter="+diffFilter, before, after)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	return splitLines(output), nil
}

// CommitFiles lists every file touched by the given commit
func (c *ShellClient) CommitFiles(ctx context.Context, repoDir, sha string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir,
		"show", "--pretty=format:", "--name-only", "--diff-filter="+diffFilter, sha)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git show failed: %w", err)
	}
	return splitLines(output), nil
}

// splitLines splits command output into non-empty lines, preserving order
func splitLines(output []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// runCommand executes a command and returns an error with stderr on failure
func runCommand(cmd *exec.Cmd) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
