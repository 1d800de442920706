package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BuildSummary computes cross-recording statistics for a session
func BuildSummary(session *Session) *SessionSummary {
	summary := &SessionSummary{
		TotalRecordings: len(session.Recordings),
	}

	var breathCounts []float64
	var tidalVolumes []float64
	var breathDurations []float64

	for _, recording := range session.Recordings {
		switch recording.Status {
		case StatusOK:
			summary.AnalyzedRecordings++
		case StatusNoBreaths:
			summary.NoBreathRecordings++
		default:
			summary.FailedRecordings++
		}

		summary.TotalBreaths += recording.BreathCount
		summary.TotalDropped += recording.DroppedBreaths

		if recording.Status != StatusOK {
			continue
		}

		breathCounts = append(breathCounts, float64(recording.BreathCount))
		for i := range recording.Breaths {
			b := &recording.Breaths[i]
			tidalVolumes = append(tidalVolumes,
				b.Inspiration.TidalVolume(), b.Expiration.TidalVolume())
			breathDurations = append(breathDurations, b.Duration())
		}
	}

	summary.BreathsPerRecording = distributionStats(breathCounts)
	summary.TidalVolume = distributionStats(tidalVolumes)
	summary.BreathDuration = distributionStats(breathDurations)
	summary.Insights = buildInsights(summary)

	return summary
}

// distributionStats computes summary statistics for a dataset; empty data
// yields a zero-count result.
func distributionStats(data []float64) *DistributionStats {
	if len(data) == 0 {
		return &DistributionStats{}
	}

	stats := &DistributionStats{
		Mean:  stat.Mean(data, nil),
		Min:   floats.Min(data),
		Max:   floats.Max(data),
		Count: len(data),
	}
	if len(data) > 1 {
		stats.StdDev = stat.StdDev(data, nil)
	}

	return stats
}

// buildInsights derives console report lines from the summary
func buildInsights(summary *SessionSummary) []string {
	var insights []string

	if summary.FailedRecordings > 0 {
		insights = append(insights, fmt.Sprintf("%d of %d recordings failed",
			summary.FailedRecordings, summary.TotalRecordings))
	}
	if summary.NoBreathRecordings > 0 {
		insights = append(insights, fmt.Sprintf("%d recordings had no detectable breaths",
			summary.NoBreathRecordings))
	}
	if summary.TotalDropped > 0 {
		insights = append(insights, fmt.Sprintf("%d breaths dropped for having too few samples",
			summary.TotalDropped))
	}
	if summary.TidalVolume.Count > 0 {
		insights = append(insights, fmt.Sprintf("mean tidal volume %.3f L across %d phases",
			summary.TidalVolume.Mean, summary.TidalVolume.Count))
	}
	if summary.BreathDuration.Count > 0 && summary.BreathDuration.Mean > 0 {
		insights = append(insights, fmt.Sprintf("mean breath duration %.2f s (%.1f breaths/min)",
			summary.BreathDuration.Mean, 60/summary.BreathDuration.Mean))
	}

	return insights
}
