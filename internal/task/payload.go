package task

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// Payload is the tagged union of the two payload variants sent to the
// remote task service. The api client serializes whichever variant it
// receives through a single send path.
type Payload interface {
	payloadVariant()
}

// FullPayload is the complete task definition: metadata plus the
// base64-encoded script.
type FullPayload struct {
	Name        string         `json:"name"`
	Description any            `json:"description"`
	Memory      any            `json:"memory"`
	TimeLimit   int            `json:"time_limit,omitempty"`
	Concurrency any            `json:"concurrency"`
	Config      map[string]any `json:"config"`
	File        string         `json:"file"`
}

// FileOnlyPayload carries just the encoded script, for updates where
// nothing but the script changed.
type FileOnlyPayload struct {
	File string `json:"file"`
}

func (*FullPayload) payloadVariant()     {}
func (*FileOnlyPayload) payloadVariant() {}

// BuildFull assembles the full task definition for the folder at dir.
// It requires both a config file and the script file, and a config
// that passes required-key validation. The task name is derived from
// the folder's base name.
func BuildFull(dir string) (*FullPayload, error) {
	configFile, ok := FindConfigFile(dir)
	if !ok {
		return nil, fmt.Errorf("no config.yaml or config.yml in %s", dir)
	}

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(filepath.Base(configFile)); err != nil {
		return nil, err
	}

	file, err := encodeScript(dir)
	if err != nil {
		return nil, err
	}

	payload := &FullPayload{
		Name:        filepath.Base(dir),
		Description: cfg["description"],
		Memory:      cfg["memory"],
		Concurrency: cfg["concurrency"],
		Config:      map[string]any{"interpreter": cfg["interpreter"]},
		File:        file,
	}

	// time_limit is authored in minutes; the service expects seconds.
	// An unset or falsy value stays unset rather than becoming zero.
	if seconds, ok := timeLimitSeconds(cfg["time_limit"]); ok {
		payload.TimeLimit = seconds
		payload.Config["time_limit"] = seconds
	}

	if requirements, ok := cfg["requirements"]; ok {
		payload.Config["requirements"] = requirements
	}

	return payload, nil
}

// BuildFileOnly assembles the minimal update payload for the folder at
// dir. Only the script file is required.
func BuildFileOnly(dir string) (*FileOnlyPayload, error) {
	file, err := encodeScript(dir)
	if err != nil {
		return nil, err
	}
	return &FileOnlyPayload{File: file}, nil
}

// encodeScript reads the folder's script file and encodes it as base64
func encodeScript(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ScriptName))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", ScriptName, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// timeLimitSeconds converts an authored time limit in minutes to
// seconds. The second return is false when the value is unset or falsy.
func timeLimitSeconds(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		if n != 0 {
			return n * 60, true
		}
	case int64:
		if n != 0 {
			return int(n) * 60, true
		}
	case float64:
		if n != 0 {
			return int(n * 60), true
		}
	}
	return 0, false
}
