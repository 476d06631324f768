package events

import "time"

// BuildRequested indicates that a rebuild should happen soon. Emitted by the
// file watcher and the periodic scheduler; consumed by the debouncer.
type BuildRequested struct {
	Reason      string // "file_change", "scheduled", "manual"
	Path        string // changed path, when the reason is a file change
	Immediate   bool
	RequestedAt time.Time
}

// BuildNow is emitted by the Debouncer once it decides a build should start.
type BuildNow struct {
	TriggeredAt   time.Time
	RequestCount  int
	LastReason    string
	LastPath      string
	FirstRequest  time.Time
	LastRequest   time.Time
	DebounceCause string // "quiet", "max_delay", "after_running" or "immediate"
}

// BuildFinished is emitted after a build completes, whatever the outcome.
type BuildFinished struct {
	BuildID    string
	Outcome    string
	DoxygenRan bool
	Duration   time.Duration
	FinishedAt time.Time
}
