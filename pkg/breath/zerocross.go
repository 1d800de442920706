package breath

import (
	"go.uber.org/zap"
)

// DetectorConfig controls zero-crossing validation
type DetectorConfig struct {
	// LookAhead is how many samples past the crossing must hold the new
	// flow sign for the crossing to count.
	LookAhead int

	// LookBackWidth and LookBackOffset place the pre-crossing mean window:
	// it covers the LookBackWidth samples ending LookBackOffset samples
	// before the crossing.
	LookBackWidth  int
	LookBackOffset int

	Logger *zap.Logger
}

// DefaultDetectorConfig returns validation windows tuned for 100 Hz
// recordings
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		LookAhead:      30,
		LookBackWidth:  20,
		LookBackOffset: 41,
	}
}

// Detector finds validated zero-flow crossings in a waveform
type Detector struct {
	config *DetectorConfig
	logger *zap.Logger
}

// NewDetector creates a detector with the given config
func NewDetector(config *DetectorConfig) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Detector{
		config: config,
		logger: logger,
	}
}

// Detect scans the flow sequence and returns validated crossings in time
// order. Emitted crossings always alternate in direction: a validated
// candidate repeating the previous direction is dropped as noise.
func (d *Detector) Detect(samples []Sample) []Crossing {
	var crossings []Crossing

	for i := 0; i+1 < len(samples); i++ {
		f1, f2 := samples[i].Flow, samples[i+1].Flow

		var direction Direction
		switch {
		case f1 < 0 && f2 >= 0:
			direction = NegToPos
		case f1 > 0 && f2 <= 0:
			direction = PosToNeg
		default:
			continue
		}

		if !d.holdsAfter(samples, i, direction) {
			continue
		}
		if !d.settledBefore(samples, i, direction) {
			continue
		}

		if len(crossings) > 0 && crossings[len(crossings)-1].Direction == direction {
			d.logger.Debug("dropping repeated crossing direction",
				zap.Int("index", i),
				zap.String("direction", string(direction)))
			continue
		}

		crossings = append(crossings, d.interpolate(samples, i, direction))
	}

	d.logger.Debug("zero-crossing scan complete",
		zap.Int("samples", len(samples)),
		zap.Int("crossings", len(crossings)))

	return crossings
}

// holdsAfter checks that flow keeps the post-crossing sign for the full
// look-ahead window. A window truncated by the end of the recording fails.
func (d *Detector) holdsAfter(samples []Sample, i int, direction Direction) bool {
	for j := 1; j <= d.config.LookAhead; j++ {
		k := i + 1 + j
		if k >= len(samples) {
			return false
		}

		flow := samples[k].Flow
		if direction == NegToPos && flow <= 0 {
			return false
		}
		if direction == PosToNeg && flow >= 0 {
			return false
		}
	}

	return true
}

// settledBefore checks that the mean flow over the look-back window holds
// the pre-crossing sign. Only samples inside the recording contribute; a
// window entirely before the first sample fails.
func (d *Detector) settledBefore(samples []Sample, i int, direction Direction) bool {
	sum := 0.0
	count := 0

	for j := d.config.LookBackOffset; j < d.config.LookBackOffset+d.config.LookBackWidth; j++ {
		k := i - j
		if k < 0 {
			continue
		}
		sum += samples[k].Flow
		count++
	}

	if count == 0 {
		return false
	}

	mean := sum / float64(count)
	if direction == NegToPos {
		return mean < 0
	}
	return mean > 0
}

// interpolate locates the exact crossing instant between samples i and i+1.
// Volume follows the same linear fraction as time.
func (d *Detector) interpolate(samples []Sample, i int, direction Direction) Crossing {
	s1, s2 := samples[i], samples[i+1]
	frac := -s1.Flow / (s2.Flow - s1.Flow)

	return Crossing{
		Index:     i,
		Time:      s1.Time + frac*(s2.Time-s1.Time),
		Volume:    s1.Volume + frac*(s2.Volume-s1.Volume),
		Direction: direction,
	}
}
