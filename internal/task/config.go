package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScriptName is the script file every task folder must contain.
const ScriptName = "main.py"

// configFileNames lists recognized config file names in preference order.
var configFileNames = []string{"config.yaml", "config.yml"}

// requiredKeys are the config keys every task must declare, in the
// order validation reports them.
var requiredKeys = []string{
	"description",
	"memory",
	"interpreter",
	"time_limit",
	"concurrency",
}

// Config is the per-folder task configuration. Values are kept as
// loaded; validation checks key presence only, not types or ranges.
type Config map[string]any

// FindConfigFile locates the config file inside dir, preferring
// config.yaml over config.yml.
func FindConfigFile(dir string) (string, bool) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// LoadConfig reads and parses the task configuration file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse task config: %w", err)
	}

	return cfg, nil
}

// ValidationError reports every required key missing from a task
// config. A structurally incomplete config is an authoring error that
// must block the whole run, so callers treat this error as fatal.
type ValidationError struct {
	ConfigFile string
	Missing    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s is missing required keys: %s",
		e.ConfigFile, strings.Join(e.Missing, ", "))
}

// Validate checks that all required keys are present. It does not
// short-circuit: all omissions are reported at once, in declared order.
func (c Config) Validate(configFile string) error {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := c[key]; !ok {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{ConfigFile: configFile, Missing: missing}
	}
	return nil
}
