package event

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEvent(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_PushEvent(t *testing.T) {
	path := writeEvent(t, `{"before": "aaa", "after": "bbb"}`)

	ev, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := ev.RangeBefore(); got != "aaa" {
		t.Errorf("RangeBefore() = %q, want %q", got, "aaa")
	}
	if got := ev.RangeAfter(); got != "bbb" {
		t.Errorf("RangeAfter() = %q, want %q", got, "bbb")
	}
}

func TestLoad_PullRequestEvent(t *testing.T) {
	path := writeEvent(t, `{
		"pull_request": {
			"base": {"sha": "base-sha"},
			"head": {"sha": "head-sha"}
		}
	}`)

	ev, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := ev.RangeBefore(); got != "base-sha" {
		t.Errorf("RangeBefore() = %q, want %q", got, "base-sha")
	}
	if got := ev.RangeAfter(); got != "head-sha" {
		t.Errorf("RangeAfter() = %q, want %q", got, "head-sha")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	ev, err := Load("")
	if err != nil {
		t.Fatalf("empty path should not error: %v", err)
	}
	if ev != nil {
		t.Errorf("expected nil event, got %+v", ev)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeEvent(t, `{"before": `)
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestNilEventRange(t *testing.T) {
	var ev *Event
	if ev.RangeBefore() != "" || ev.RangeAfter() != "" {
		t.Error("nil event should yield empty range")
	}
}
