package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildEventJSON(t *testing.T) {
	event := BuildEvent{
		BuildID:    "b-1",
		Outcome:    "warning",
		Hosted:     true,
		DoxygenRan: true,
		Duration:   2 * time.Second,
		Timestamp:  time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Issues:     []string{"XML index missing"},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded BuildEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, event, decoded)
}

func TestNewPublisherRequiresConfig(t *testing.T) {
	_, err := NewPublisher(nil)
	require.Error(t, err)
}
