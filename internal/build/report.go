package build

import (
	"time"

	"github.com/roboworks/maptransformer/internal/metrics"
)

// Outcome is the final status of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Severity classifies an issue attached to a build report.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue records something noteworthy that happened during a stage.
type Issue struct {
	Stage    Stage    `json:"stage"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report accumulates the results of one build.
type Report struct {
	BuildID    string                        `json:"build_id"`
	Hosted     bool                          `json:"hosted"`
	StartedAt  time.Time                     `json:"started_at"`
	FinishedAt time.Time                     `json:"finished_at"`
	Duration   time.Duration                 `json:"duration"`
	Outcome    Outcome                       `json:"outcome"`
	Stages     map[Stage]time.Duration       `json:"stages"`
	Results    map[Stage]metrics.ResultLabel `json:"results"`
	Issues     []Issue                       `json:"issues,omitempty"`

	DoxygenRan   bool   `json:"doxygen_ran"`
	DoxyfilePath string `json:"doxyfile_path,omitempty"`
	ConfPath     string `json:"conf_path,omitempty"`
}

// NewReport returns an empty report for the given build ID.
func NewReport(buildID string, hosted bool) *Report {
	return &Report{
		BuildID:   buildID,
		Hosted:    hosted,
		StartedAt: time.Now(),
		Stages:    make(map[Stage]time.Duration),
		Results:   make(map[Stage]metrics.ResultLabel),
	}
}

// AddIssue attaches an issue to the report.
func (r *Report) AddIssue(stage Stage, severity Severity, message string) {
	r.Issues = append(r.Issues, Issue{Stage: stage, Severity: severity, Message: message})
}

// Finish stamps the end time and derives the final outcome from the stage
// results and issues.
func (r *Report) Finish() {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	if r.Outcome != "" {
		return
	}
	r.Outcome = OutcomeSuccess
	for _, result := range r.Results {
		switch result {
		case metrics.ResultFatal:
			r.Outcome = OutcomeFailed
			return
		case metrics.ResultCanceled:
			r.Outcome = OutcomeCanceled
			return
		}
	}
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning || issue.Severity == SeverityError {
			r.Outcome = OutcomeWarning
			return
		}
	}
}
