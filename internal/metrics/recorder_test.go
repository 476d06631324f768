package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorderRegistersAndCounts(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveStageDuration("doxygen", 120*time.Millisecond)
	rec.ObserveBuildDuration(time.Second)
	rec.IncStageResult("doxygen", ResultSuccess)
	rec.IncBuildOutcome("success")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["mapdoc_stage_duration_seconds"])
	require.True(t, names["mapdoc_build_duration_seconds"])
	require.True(t, names["mapdoc_stage_results_total"])
	require.True(t, names["mapdoc_build_outcomes_total"])
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *PrometheusRecorder
	require.NotPanics(t, func() {
		rec.ObserveStageDuration("x", time.Second)
		rec.ObserveBuildDuration(time.Second)
		rec.IncStageResult("x", ResultFatal)
		rec.IncBuildOutcome("failed")
	})
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	require.NotPanics(t, func() {
		r.ObserveStageDuration("x", time.Second)
		r.IncBuildOutcome("success")
	})
}
