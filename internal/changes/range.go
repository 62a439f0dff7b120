package changes

import (
	"github.com/mlaeubli/tasksync/internal/config"
	"github.com/mlaeubli/tasksync/internal/event"
)

// Range bounds the change-detection diff. Before may be empty or the
// null-commit sentinel, both of which mean "no usable prior state".
type Range struct {
	Before string
	After  string
}

// Usable reports whether the range can drive a two-commit diff.
func (r Range) Usable() bool {
	return r.Before != "" && !config.IsNullCommit(r.Before)
}

// ResolveRange determines the commit range for this run. Resolution is
// pure: it reads only the already-built configuration and the optional
// event descriptor. First non-empty source wins.
//
// before: explicit override, CI-native before variable, then the event
// (push before field, or base branch head for pull requests).
//
// after: explicit override, CI-native after variable, the event (push
// after field, or head branch head), the CI-native SHA variable, and
// finally the symbolic current checkout.
func ResolveRange(cfg *config.Config, ev *event.Event) Range {
	return Range{
		Before: firstNonEmpty(
			cfg.Before,
			cfg.CommitBeforeSHA,
			ev.RangeBefore(),
		),
		After: firstNonEmpty(
			cfg.After,
			cfg.CommitSHA,
			ev.RangeAfter(),
			cfg.GitHubSHA,
			"HEAD",
		),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
