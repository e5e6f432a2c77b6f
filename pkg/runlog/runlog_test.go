package runlog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	entry := NewEntry().
		Run("run-123", 4).
		Iteration(0, 2, "directed").
		GraphSize(16, 40).
		Result(12, 5000, 100*time.Millisecond).
		Outcome(OutcomeConverged).
		Meta("key1", "value1").
		Build()

	assert.Equal(t, "run-123", entry.RunID)
	assert.Equal(t, int64(4), entry.Peers)
	assert.Equal(t, 0, entry.Iteration)
	assert.Equal(t, int64(2), entry.Source)
	assert.Equal(t, "directed", entry.Mode)
	assert.Equal(t, int64(16), entry.Vertices)
	assert.Equal(t, int64(40), entry.RawEdges)
	assert.Equal(t, int64(12), entry.RoundsRun)
	assert.Equal(t, int64(5000), entry.TraversedEdges)
	assert.Equal(t, int64(100), entry.DurationMs)
	assert.InDelta(t, 50000.0, entry.TEPS, 0.01)
	assert.Equal(t, OutcomeConverged, entry.Outcome)
	assert.Equal(t, "value1", entry.Metadata["key1"])
	assert.NotEmpty(t, entry.ID)
}

func TestBuilder_Error(t *testing.T) {
	entry := NewEntry().
		Run("run-1", 1).
		Error("TRANSPORT_UNAVAILABLE", "redis unreachable").
		Build()

	assert.Equal(t, OutcomeFailure, entry.Outcome)
	assert.Equal(t, "TRANSPORT_UNAVAILABLE", entry.ErrorCode)
	assert.Equal(t, "redis unreachable", entry.ErrorMessage)
}

func TestEntry_MarshalJSON(t *testing.T) {
	entry := NewEntry().
		Run("run-1", 2).
		Iteration(1, 0, "undirected").
		Outcome(OutcomeConverged).
		Build()

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded Entry
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, entry.RunID, decoded.RunID)
	assert.Equal(t, entry.Outcome, decoded.Outcome)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "stdout", cfg.Backend)
	assert.Equal(t, 1000, cfg.BufferSize)
	assert.Equal(t, 5*time.Second, cfg.FlushPeriod)
}

func TestOutcome_Constants(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		expected string
	}{
		{OutcomeConverged, "CONVERGED"},
		{OutcomeExhausted, "EXHAUSTED"},
		{OutcomeFailure, "FAILURE"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, string(tt.outcome))
	}
}

func TestGenerateID(t *testing.T) {
	id := generateID()
	assert.NotEmpty(t, id)
	assert.GreaterOrEqual(t, len(id), 14)
}
