package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcxht/LOOPAVGER/pkg/breath"
)

// summaryBreath builds a breath with the given phase duration and tidal
// volume on both sides
func summaryBreath(duration, vt float64) breath.Breath {
	insp := breath.Phase{Samples: []breath.Sample{
		{Time: 0, Volume: 0},
		{Time: duration, Volume: vt},
	}}
	exp := breath.Phase{Samples: []breath.Sample{
		{Time: duration, Volume: vt},
		{Time: 2 * duration, Volume: 0},
	}}
	return breath.Breath{Inspiration: insp, Expiration: exp}
}

func TestBuildSummary(t *testing.T) {
	session := &Session{
		Recordings: map[string]*RecordingAnalysis{
			"a.csv": {
				Status:         StatusOK,
				BreathCount:    2,
				DroppedBreaths: 1,
				Breaths: []breath.Breath{
					summaryBreath(2, 0.5),
					summaryBreath(2, 0.7),
				},
			},
			"b.csv": {Status: StatusNoBreaths},
			"c.csv": {Status: StatusFailed},
		},
	}

	summary := BuildSummary(session)

	assert.Equal(t, 3, summary.TotalRecordings)
	assert.Equal(t, 1, summary.AnalyzedRecordings)
	assert.Equal(t, 1, summary.NoBreathRecordings)
	assert.Equal(t, 1, summary.FailedRecordings)
	assert.Equal(t, 2, summary.TotalBreaths)
	assert.Equal(t, 1, summary.TotalDropped)

	require.NotNil(t, summary.BreathsPerRecording)
	assert.Equal(t, 1, summary.BreathsPerRecording.Count)
	assert.InDelta(t, 2.0, summary.BreathsPerRecording.Mean, 1e-9)

	// Two breaths contribute four phase tidal volumes
	require.NotNil(t, summary.TidalVolume)
	assert.Equal(t, 4, summary.TidalVolume.Count)
	assert.InDelta(t, 0.6, summary.TidalVolume.Mean, 1e-9)
	assert.InDelta(t, 0.5, summary.TidalVolume.Min, 1e-9)
	assert.InDelta(t, 0.7, summary.TidalVolume.Max, 1e-9)

	require.NotNil(t, summary.BreathDuration)
	assert.Equal(t, 2, summary.BreathDuration.Count)
	assert.InDelta(t, 4.0, summary.BreathDuration.Mean, 1e-9)
}

func TestBuildSummaryInsights(t *testing.T) {
	session := &Session{
		Recordings: map[string]*RecordingAnalysis{
			"a.csv": {
				Status:      StatusOK,
				BreathCount: 1,
				Breaths:     []breath.Breath{summaryBreath(2, 0.5)},
			},
			"b.csv": {Status: StatusFailed},
		},
	}

	summary := BuildSummary(session)

	require.NotEmpty(t, summary.Insights)
	assert.Contains(t, summary.Insights[0], "1 of 2 recordings failed")

	var hasRate bool
	for _, insight := range summary.Insights {
		if insight == "mean breath duration 4.00 s (15.0 breaths/min)" {
			hasRate = true
		}
	}
	assert.True(t, hasRate, "insights should report the breathing rate: %v", summary.Insights)
}

func TestDistributionStats(t *testing.T) {
	t.Run("spread dataset", func(t *testing.T) {
		stats := distributionStats([]float64{1, 2, 3})

		assert.InDelta(t, 2.0, stats.Mean, 1e-9)
		assert.InDelta(t, 1.0, stats.StdDev, 1e-9)
		assert.Equal(t, 1.0, stats.Min)
		assert.Equal(t, 3.0, stats.Max)
		assert.Equal(t, 3, stats.Count)
	})

	t.Run("single value", func(t *testing.T) {
		stats := distributionStats([]float64{2.5})

		assert.Equal(t, 2.5, stats.Mean)
		assert.Zero(t, stats.StdDev)
		assert.Equal(t, 1, stats.Count)
	})

	t.Run("empty dataset", func(t *testing.T) {
		stats := distributionStats(nil)

		assert.Zero(t, stats.Count)
		assert.Zero(t, stats.Mean)
	})
}
