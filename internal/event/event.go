package event

import (
	"encoding/json"
	"fmt"
	"os"
)

// Event represents the relevant fields of a CI event descriptor file.
// GitHub Actions writes one JSON document per run; push and
// pull_request events carry their commit range in different places.
type Event struct {
	Before      string       `json:"before"`
	After       string       `json:"after"`
	PullRequest *PullRequest `json:"pull_request"`
}

// PullRequest holds the base and head commits of a pull_request event.
type PullRequest struct {
	Base Ref `json:"base"`
	Head Ref `json:"head"`
}

// Ref is a branch pointer within a pull_request event.
type Ref struct {
	SHA string `json:"sha"`
}

// Load reads and parses the event descriptor at path. An empty path
// means no event file was configured.
func Load(path string) (*Event, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse event file: %w", err)
	}

	return &ev, nil
}

// RangeBefore returns the event-derived "before" commit: the push
// event's before field, or the base branch head for pull requests.
// Empty when the event carries neither.
func (e *Event) RangeBefore() string {
	if e == nil {
		return ""
	}
	if e.PullRequest != nil {
		return e.PullRequest.Base.SHA
	}
	return e.Before
}

// RangeAfter returns the event-derived "after" commit: the push event's
// after field, or the head branch head for pull requests.
func (e *Event) RangeAfter() string {
	if e == nil {
		return ""
	}
	if e.PullRequest != nil {
		return e.PullRequest.Head.SHA
	}
	return e.After
}
