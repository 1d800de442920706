package analysis

import (
	"time"

	"github.com/dcxht/LOOPAVGER/pkg/breath"
	"github.com/dcxht/LOOPAVGER/pkg/breath/bins"
)

// Status describes the outcome of one recording's analysis
type Status string

const (
	StatusOK        Status = "ok"
	StatusNoBreaths Status = "no_breaths"
	StatusFailed    Status = "failed"
)

// RecordingAnalysis represents the complete analysis of one recording
type RecordingAnalysis struct {
	Source            string   `json:"source"`
	Status            Status   `json:"status"`
	SampleCount       int      `json:"sample_count"`
	RecordingDuration float64  `json:"recording_duration_s"`
	CrossingCount     int      `json:"crossing_count"`
	BreathCount       int      `json:"breath_count"`
	DroppedBreaths    int      `json:"dropped_breaths"`
	MeanShift         float64  `json:"mean_shift"`
	AvgTidalVolume    float64  `json:"avg_tidal_volume"`
	AvgBreathDuration float64  `json:"avg_breath_duration_s"`
	OutputFiles       []string `json:"output_files,omitempty"`

	Crossings    []breath.Crossing     `json:"-"` // Don't serialize raw waveform data
	Breaths      []breath.Breath       `json:"-"`
	TimeBins     *bins.TimeBinResult   `json:"-"`
	VolumeBins   *bins.VolumeBinResult `json:"-"`
	TimeBinAgg   *bins.AggregateResult `json:"-"`
	VolumeBinAgg *bins.AggregateResult `json:"-"`

	ProcessingTime time.Duration `json:"processing_time"`
	Error          error         `json:"error,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Session represents one run over a set of recordings
type Session struct {
	Recordings    map[string]*RecordingAnalysis `json:"recordings"`
	StartTime     time.Time                     `json:"start_time"`
	EndTime       time.Time                     `json:"end_time"`
	TotalDuration time.Duration                 `json:"total_duration"`
	Summary       *SessionSummary               `json:"summary"`
}

// SessionSummary aggregates outcomes across all recordings in a session
type SessionSummary struct {
	TotalRecordings     int                `json:"total_recordings"`
	AnalyzedRecordings  int                `json:"analyzed_recordings"`
	NoBreathRecordings  int                `json:"no_breath_recordings"`
	FailedRecordings    int                `json:"failed_recordings"`
	TotalBreaths        int                `json:"total_breaths"`
	TotalDropped        int                `json:"total_dropped"`
	BreathsPerRecording *DistributionStats `json:"breaths_per_recording"`
	TidalVolume         *DistributionStats `json:"tidal_volume"`
	BreathDuration      *DistributionStats `json:"breath_duration"`
	Insights            []string           `json:"insights,omitempty"`
}

// DistributionStats represents statistical measures of one quantity
type DistributionStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}
