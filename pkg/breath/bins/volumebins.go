package bins

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dcxht/LOOPAVGER/pkg/breath"
)

// VolumeBinConfig controls equal-volume resampling
type VolumeBinConfig struct {
	// Intervals is the number of bins per phase; every grid carries
	// Intervals+1 points.
	Intervals int

	Logger *zap.Logger
}

// DefaultVolumeBinConfig returns the standard volume-bin settings
func DefaultVolumeBinConfig() *VolumeBinConfig {
	return &VolumeBinConfig{
		Intervals: 100,
	}
}

// VolumeBinResampler projects breath phases onto equal-volume grids
type VolumeBinResampler struct {
	config *VolumeBinConfig
	logger *zap.Logger
}

// NewVolumeBinResampler creates a resampler with the given config
func NewVolumeBinResampler(config *VolumeBinConfig) *VolumeBinResampler {
	if config == nil {
		config = DefaultVolumeBinConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VolumeBinResampler{
		config: config,
		logger: logger,
	}
}

// Resample builds volume-bin grids for every breath. Volume is the
// independent variable here: targets step from the phase's starting volume
// to its ending volume, and time and flow are derived at each target.
func (r *VolumeBinResampler) Resample(ctx context.Context, breaths []breath.Breath) (*VolumeBinResult, error) {
	if r.config.Intervals < 1 {
		return nil, fmt.Errorf("volume bin intervals must be positive, got %d", r.config.Intervals)
	}

	result := &VolumeBinResult{}

	for i := range breaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b := &breaths[i]
		result.Breaths = append(result.Breaths, BreathGrids{
			BreathIndex: b.Index,
			Insp:        resampleByVolume(&b.Inspiration, r.config.Intervals),
			Exp:         resampleByVolume(&b.Expiration, r.config.Intervals),
		})
	}

	r.logger.Debug("volume-bin resampling complete",
		zap.Int("breaths", len(breaths)),
		zap.Int("points_per_phase", r.config.Intervals+1))

	return result, nil
}

// resampleByVolume interpolates one phase onto intervals+1 equally spaced
// volume targets. Times are rebased so the phase starts at zero.
func resampleByVolume(phase *breath.Phase, intervals int) Grid {
	times := make([]float64, len(phase.Samples))
	vols := make([]float64, len(phase.Samples))
	flows := make([]float64, len(phase.Samples))

	t0 := phase.Samples[0].Time
	for i, s := range phase.Samples {
		times[i] = s.Time - t0
		vols[i] = s.Volume
		flows[i] = s.Flow
	}

	step := (vols[len(vols)-1] - vols[0]) / float64(intervals)

	grid := Grid{
		Times:   make([]float64, intervals+1),
		Volumes: make([]float64, intervals+1),
		Flows:   make([]float64, intervals+1),
	}

	for j := 0; j <= intervals; j++ {
		target := vols[0] + step*float64(j)
		t, f := volumePoint(times, vols, flows, target)
		grid.Volumes[j] = target
		grid.Times[j] = t
		grid.Flows[j] = f
	}

	return grid
}

// volumePoint locates the sample pair bracketing the target volume, in
// sample order, and derives the time and flow at that volume. Targets equal
// to a sample's volume take that sample's values; targets beyond the
// phase's span clamp to the last point.
func volumePoint(times, vols, flows []float64, target float64) (float64, float64) {
	last := len(vols) - 1
	if target == vols[0] {
		return times[0], flows[0]
	}
	if target == vols[last] {
		return times[last], flows[last]
	}

	for k := 0; k < last; k++ {
		v1, v2 := vols[k], vols[k+1]
		if target == v1 {
			return times[k], flows[k]
		}
		if (v1 < target && target < v2) || (v2 < target && target < v1) {
			t1, t2 := times[k], times[k+1]
			t := t1 + (target-v1)/(v2-v1)*(t2-t1)
			f := flows[k] + (flows[k+1]-flows[k])/(t2-t1)*(t-t1)
			return t, f
		}
	}

	return times[last], flows[last]
}
