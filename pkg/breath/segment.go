package breath

import (
	"go.uber.org/zap"
)

// SegmenterConfig controls breath assembly
type SegmenterConfig struct {
	// InspirationStart is the crossing direction that opens a breath.
	// PosToNeg matches the usual convention of inspiration as negative flow.
	InspirationStart Direction

	// MinPhaseSamples is the minimum number of raw samples a phase must
	// contain between its boundary crossings. Breaths with a thinner phase
	// are dropped.
	MinPhaseSamples int

	Logger *zap.Logger
}

// DefaultSegmenterConfig returns the standard breath assembly settings
func DefaultSegmenterConfig() *SegmenterConfig {
	return &SegmenterConfig{
		InspirationStart: PosToNeg,
		MinPhaseSamples:  2,
	}
}

// Segmenter assembles breaths from alternating crossings
type Segmenter struct {
	config *SegmenterConfig
	logger *zap.Logger
}

// NewSegmenter creates a segmenter with the given config
func NewSegmenter(config *SegmenterConfig) *Segmenter {
	if config == nil {
		config = DefaultSegmenterConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Segmenter{
		config: config,
		logger: logger,
	}
}

// Segment partitions the waveform into breaths. Each consecutive crossing
// triple from the first inspiration-start crossing onward forms one breath:
// inspiration spans the first pair, expiration the second. The drop count
// reports breaths discarded for having a phase with too few samples.
func (s *Segmenter) Segment(samples []Sample, crossings []Crossing) ([]Breath, int) {
	start := -1
	for i, c := range crossings {
		if c.Direction == s.config.InspirationStart {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, 0
	}

	var breaths []Breath
	dropped := 0

	for j := start; j+2 < len(crossings); j += 2 {
		insp, inspOK := s.buildPhase(Inspiration, samples, crossings[j], crossings[j+1])
		exp, expOK := s.buildPhase(Expiration, samples, crossings[j+1], crossings[j+2])
		if !inspOK || !expOK {
			dropped++
			s.logger.Debug("dropping breath with thin phase",
				zap.Float64("start_time", crossings[j].Time),
				zap.Bool("inspiration_ok", inspOK),
				zap.Bool("expiration_ok", expOK))
			continue
		}

		breaths = append(breaths, Breath{
			Index:       len(breaths),
			Inspiration: insp,
			Expiration:  exp,
		})
	}

	s.logger.Debug("segmentation complete",
		zap.Int("crossings", len(crossings)),
		zap.Int("breaths", len(breaths)),
		zap.Int("dropped", dropped))

	return breaths, dropped
}

// buildPhase carves one phase out of the waveform. The phase owns the raw
// samples strictly between its two crossings plus an interpolated zero-flow
// point at each end.
func (s *Segmenter) buildPhase(kind PhaseKind, samples []Sample, start, end Crossing) (Phase, bool) {
	interior := samples[start.Index+1 : end.Index+1]
	if len(interior) < s.config.MinPhaseSamples {
		return Phase{}, false
	}

	phase := Phase{
		Kind:    kind,
		Start:   start,
		End:     end,
		Samples: make([]Sample, 0, len(interior)+2),
	}

	phase.Samples = append(phase.Samples, Sample{Time: start.Time, Volume: start.Volume, Flow: 0})
	phase.Samples = append(phase.Samples, interior...)
	phase.Samples = append(phase.Samples, Sample{Time: end.Time, Volume: end.Volume, Flow: 0})

	return phase, true
}
