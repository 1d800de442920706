package common

import "fmt"

// ColumnRole identifies the part a column plays in a recording table
type ColumnRole string

const (
	ColumnTime   ColumnRole = "time"
	ColumnVolume ColumnRole = "volume"
	ColumnFlow   ColumnRole = "flow"
)

// Series holds the index-aligned sample sequences of one recording
type Series struct {
	Path   string    `json:"path"`
	Time   []float64 `json:"-"`
	Volume []float64 `json:"-"`
	Flow   []float64 `json:"-"`
}

// Len returns the number of samples in the series
func (s *Series) Len() int {
	return len(s.Time)
}

// Validate checks that the series is usable for analysis
func (s *Series) Validate() error {
	if len(s.Time) != len(s.Volume) || len(s.Time) != len(s.Flow) {
		return NewTraceError(s.Path, ErrCodeMalformedInput,
			fmt.Sprintf("column lengths differ: time=%d volume=%d flow=%d",
				len(s.Time), len(s.Volume), len(s.Flow)), nil)
	}

	if len(s.Time) < 2 {
		return NewTraceError(s.Path, ErrCodeMalformedInput,
			fmt.Sprintf("recording needs at least 2 samples, got %d", len(s.Time)), nil)
	}

	return nil
}
