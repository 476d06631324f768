package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roboworks/maptransformer/internal/metrics"
)

// Run executes the pipeline stages in order against the state. The first
// fatal stage error aborts the run; the report is always finished so callers
// can persist it regardless of outcome.
func Run(ctx context.Context, st *State) error {
	if st.Recorder == nil {
		st.Recorder = metrics.NoopRecorder{}
	}

	var runErr error
	for _, def := range Stages(st) {
		if err := ctx.Err(); err != nil {
			st.Report.Results[def.Name] = metrics.ResultCanceled
			runErr = fmt.Errorf("build canceled before stage %s: %w", def.Name, err)
			break
		}

		start := time.Now()
		err := def.Fn(ctx, st)
		elapsed := time.Since(start)

		st.Report.Stages[def.Name] = elapsed
		st.Recorder.ObserveStageDuration(string(def.Name), elapsed)

		result := st.Report.Results[def.Name]
		switch {
		case err != nil && errors.Is(err, context.Canceled):
			result = metrics.ResultCanceled
		case err != nil:
			result = metrics.ResultFatal
		case result == "":
			result = metrics.ResultSuccess
		}
		st.Report.Results[def.Name] = result
		st.Recorder.IncStageResult(string(def.Name), result)

		if err != nil {
			st.Report.AddIssue(def.Name, SeverityError, err.Error())
			slog.Error("Stage failed", "stage", def.Name, "duration", elapsed, "error", err)
			runErr = fmt.Errorf("stage %s: %w", def.Name, err)
			break
		}
		slog.Debug("Stage finished", "stage", def.Name, "duration", elapsed, "result", result)
	}

	st.Report.Finish()
	st.Recorder.ObserveBuildDuration(st.Report.Duration)
	st.Recorder.IncBuildOutcome(string(st.Report.Outcome))
	return runErr
}
