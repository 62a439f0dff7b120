package config

import (
	"fmt"
	"os"
	"strings"
)

// NullCommit is the all-zero commit id some CI systems report when there
// is no prior revision (e.g. first push to a branch).
const NullCommit = "0000000000000000000000000000000000000000"

// DefaultAPIBaseURL is the task service endpoint used when no override
// is configured.
const DefaultAPIBaseURL = "https://api.tasksync.dev"

// Config represents the complete tasksync runtime configuration. It is
// built once at process entry and threaded into every component;
// components never read the process environment themselves.
type Config struct {
	// Token authenticates against the remote task service.
	Token string

	// APIBaseURL is the base URL of the remote task service.
	APIBaseURL string

	// ActionsDir is the name of the watched root directory containing
	// one subfolder per custom task.
	ActionsDir string

	// RepoDir is the local working tree the change scan runs in.
	RepoDir string

	// Before and After are explicit commit range overrides. They take
	// precedence over everything else.
	Before string
	After  string

	// CommitBeforeSHA and CommitSHA are the GitLab CI native range
	// variables (CI_COMMIT_BEFORE_SHA / CI_COMMIT_SHA).
	CommitBeforeSHA string
	CommitSHA       string

	// GitHubSHA is the checked-out commit reported by GitHub Actions.
	GitHubSHA string

	// EventName and EventPath describe the optional CI event descriptor
	// file (GITHUB_EVENT_NAME / GITHUB_EVENT_PATH).
	EventName string
	EventPath string

	// Serve mode settings.
	ListenAddr        string
	WebhookSecretFile string
	AllowedRefs       []string
}

// FromEnv builds the configuration from the process environment.
func FromEnv() *Config {
	return fromEnviron(os.Getenv)
}

// fromEnviron builds the configuration from the given lookup function.
// Split out so tests never touch the real environment.
func fromEnviron(get func(string) string) *Config {
	cfg := &Config{
		Token:             get("TASKSYNC_TOKEN"),
		APIBaseURL:        get("TASKSYNC_API_URL"),
		ActionsDir:        get("TASKSYNC_ACTIONS_DIR"),
		RepoDir:           get("GITHUB_WORKSPACE"),
		Before:            get("TASKSYNC_BEFORE"),
		After:             get("TASKSYNC_AFTER"),
		CommitBeforeSHA:   get("CI_COMMIT_BEFORE_SHA"),
		CommitSHA:         get("CI_COMMIT_SHA"),
		GitHubSHA:         get("GITHUB_SHA"),
		EventName:         get("GITHUB_EVENT_NAME"),
		EventPath:         get("GITHUB_EVENT_PATH"),
		ListenAddr:        get("TASKSYNC_LISTEN_ADDR"),
		WebhookSecretFile: get("TASKSYNC_WEBHOOK_SECRET_FILE"),
	}

	if refs := get("TASKSYNC_ALLOWED_REFS"); refs != "" {
		for _, ref := range strings.Split(refs, ",") {
			if ref = strings.TrimSpace(ref); ref != "" {
				cfg.AllowedRefs = append(cfg.AllowedRefs, ref)
			}
		}
	}

	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.ActionsDir == "" {
		c.ActionsDir = "actions"
	}
	if c.RepoDir == "" {
		c.RepoDir = "."
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8787"
	}
}

// Validate checks the configuration for errors. Commands that talk to
// the remote service require a token; a missing token is the one
// startup error that must abort the process with exit code 1.
func (c *Config) Validate(needToken bool) error {
	if needToken && c.Token == "" {
		return fmt.Errorf("TASKSYNC_TOKEN is required")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url must not be empty")
	}
	if c.ActionsDir == "" {
		return fmt.Errorf("actions dir must not be empty")
	}
	return nil
}

// ValidateServe checks the additional settings required by serve mode.
func (c *Config) ValidateServe() error {
	if err := c.Validate(true); err != nil {
		return err
	}
	if c.WebhookSecretFile == "" {
		return fmt.Errorf("TASKSYNC_WEBHOOK_SECRET_FILE is required when serving")
	}
	return nil
}

// IsNullCommit returns true if sha is the null-commit sentinel.
func IsNullCommit(sha string) bool {
	return sha == NullCommit
}
