package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/mvp-joe/bytemetrics/internal/analyzer"
	"github.com/mvp-joe/bytemetrics/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *analyzer.Report {
	return &analyzer.Report{
		Source:     "app.jar",
		DurationMS: 1500,
		Analyzed:   1234,
		Skipped:    []analyzer.Skipped{{Entry: "bad/X.class", Reason: "truncated class file"}},
		Summary: &metrics.Summary{
			ABC:                  metrics.ABC{Assignments: 3, Branches: 4, Conditions: 0},
			Magnitude:            5,
			AverageFieldCount:    2.5,
			AverageDepth:         1.25,
			MaxDepth:             3,
			AverageOverrideCount: 0.75,
			Classes: []metrics.ClassMetrics{
				{Name: "app/Main", Fields: 2, Depth: 1, Overrides: 0},
				{Name: "app/Service", Fields: 3, Depth: 3, Overrides: 1},
			},
		},
	}
}

func TestWriteHuman(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHuman(&buf, sampleReport(), Options{}))
	out := buf.String()

	assert.Contains(t, out, "app.jar")
	assert.Contains(t, out, "Classes analyzed:       1,234")
	assert.Contains(t, out, "Entries skipped:        1")
	assert.Contains(t, out, "ABC magnitude:          5.00 (A=3 B=4 C=0)")
	assert.Contains(t, out, "Average field count:    2.50")
	assert.Contains(t, out, "Average depth:          1.25")
	assert.Contains(t, out, "Max depth:              3")
	assert.Contains(t, out, "Average override count: 0.75")
	assert.Contains(t, out, "bad/X.class: truncated class file")
	assert.NotContains(t, out, "OVERRIDES")

	buf.Reset()
	require.NoError(t, WriteHuman(&buf, sampleReport(), Options{Classes: true}))
	assert.Contains(t, buf.String(), "CLASS")
	assert.Regexp(t, `app/Service\s+3\s+3\s+1`, buf.String())
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "app.jar", decoded["source"])
	assert.Equal(t, float64(1234), decoded["classes_analyzed"])

	m := decoded["metrics"].(map[string]any)
	assert.Equal(t, 5.0, m["abc_magnitude"])
	assert.Equal(t, 0.75, m["average_override_count"])
	assert.Len(t, m["classes"], 2)
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-12,000", FormatNumber(-12000))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "5s", FormatDuration(5*time.Second))
	assert.Equal(t, "1m 5s", FormatDuration(65*time.Second))
	assert.Equal(t, "2m", FormatDuration(2*time.Minute))
	assert.Equal(t, "1h 30m", FormatDuration(90*time.Minute))
}

func TestFormatTimeSince(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", FormatTimeSince(time.Time{}, now))
	assert.Equal(t, "30s ago", FormatTimeSince(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", FormatTimeSince(now.Add(-5*time.Minute), now))
	assert.Equal(t, "2h 15m ago", FormatTimeSince(now.Add(-135*time.Minute), now))
	assert.Equal(t, "3d ago", FormatTimeSince(now.Add(-72*time.Hour), now))
}
