package bins

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/dcxht/LOOPAVGER/pkg/breath"
)

// TimeBinConfig controls equal-time resampling
type TimeBinConfig struct {
	// Intervals is the number of bins per phase; every grid carries
	// Intervals+1 points.
	Intervals int

	// MeanShift overrides the computed mean junction volume when set.
	MeanShift *float64

	Logger *zap.Logger
}

// DefaultTimeBinConfig returns the standard time-bin settings
func DefaultTimeBinConfig() *TimeBinConfig {
	return &TimeBinConfig{
		Intervals: 100,
	}
}

// TimeBinResampler projects breath phases onto equal-time grids
type TimeBinResampler struct {
	config *TimeBinConfig
	logger *zap.Logger
}

// NewTimeBinResampler creates a resampler with the given config
func NewTimeBinResampler(config *TimeBinConfig) *TimeBinResampler {
	if config == nil {
		config = DefaultTimeBinConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TimeBinResampler{
		config: config,
		logger: logger,
	}
}

// Resample builds raw and normalized time-bin grids for every breath
func (r *TimeBinResampler) Resample(ctx context.Context, breaths []breath.Breath) (*TimeBinResult, error) {
	if r.config.Intervals < 1 {
		return nil, fmt.Errorf("time bin intervals must be positive, got %d", r.config.Intervals)
	}

	result := &TimeBinResult{}
	if len(breaths) == 0 {
		return result, nil
	}

	inspVts := make([]float64, 0, len(breaths))
	expVts := make([]float64, 0, len(breaths))
	inspTts := make([]float64, 0, len(breaths))
	expTts := make([]float64, 0, len(breaths))

	for i := range breaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b := &breaths[i]
		result.Raw = append(result.Raw, BreathGrids{
			BreathIndex: b.Index,
			Insp:        resampleByTime(&b.Inspiration, r.config.Intervals),
			Exp:         resampleByTime(&b.Expiration, r.config.Intervals),
		})

		inspVts = append(inspVts, b.Inspiration.TidalVolume())
		expVts = append(expVts, b.Expiration.TidalVolume())
		inspTts = append(inspTts, b.Inspiration.Duration())
		expTts = append(expTts, b.Expiration.Duration())
	}

	result.AvgVtInsp = stat.Mean(inspVts, nil)
	result.AvgVtExp = stat.Mean(expVts, nil)
	result.AvgTtInsp = stat.Mean(inspTts, nil)
	result.AvgTtExp = stat.Mean(expTts, nil)

	r.normalize(result, breaths)

	r.logger.Debug("time-bin resampling complete",
		zap.Int("breaths", len(breaths)),
		zap.Int("points_per_phase", r.config.Intervals+1),
		zap.Float64("mean_shift", result.MeanShift))

	return result, nil
}

// normalize shifts each breath's volumes to its junction and rescales them
// to the mean tidal volume of the phase. Raw grids are left untouched.
func (r *TimeBinResampler) normalize(result *TimeBinResult, breaths []breath.Breath) {
	shiftSum := 0.0

	result.Normalized = make([]BreathGrids, len(result.Raw))
	for i := range result.Raw {
		norm := result.Raw[i].Clone()

		inspShift := norm.Insp.Volumes[len(norm.Insp.Volumes)-1]
		expShift := norm.Exp.Volumes[0]
		shiftSum += inspShift + expShift

		inspScale := result.AvgVtInsp / breaths[i].Inspiration.TidalVolume()
		expScale := result.AvgVtExp / breaths[i].Expiration.TidalVolume()

		for j := range norm.Insp.Volumes {
			norm.Insp.Volumes[j] = (norm.Insp.Volumes[j] - inspShift) * inspScale
		}
		for j := range norm.Exp.Volumes {
			norm.Exp.Volumes[j] = (norm.Exp.Volumes[j] - expShift) * expScale
		}

		result.Normalized[i] = norm
	}

	result.MeanShift = shiftSum / float64(2*len(result.Raw))
	if r.config.MeanShift != nil {
		result.MeanShift = *r.config.MeanShift
	}
}

// resampleByTime interpolates one phase onto intervals+1 equally spaced
// time points. Times are rebased so the phase starts at zero.
func resampleByTime(phase *breath.Phase, intervals int) Grid {
	times := make([]float64, len(phase.Samples))
	vols := make([]float64, len(phase.Samples))
	flows := make([]float64, len(phase.Samples))

	t0 := phase.Samples[0].Time
	for i, s := range phase.Samples {
		times[i] = s.Time - t0
		vols[i] = s.Volume
		flows[i] = s.Flow
	}

	incr := times[len(times)-1] / float64(intervals)

	grid := Grid{
		Times:   make([]float64, intervals+1),
		Volumes: make([]float64, intervals+1),
		Flows:   make([]float64, intervals+1),
	}

	for j := 0; j <= intervals; j++ {
		target := incr * float64(j)
		grid.Times[j] = target
		grid.Volumes[j] = interpAt(times, vols, target)
		grid.Flows[j] = interpAt(times, flows, target)
	}

	return grid
}

// interpAt returns ys linearly interpolated at target along xs. Targets at
// or beyond either end clamp to the boundary value, and a zero-width
// bracket yields its left value.
func interpAt(xs, ys []float64, target float64) float64 {
	last := len(xs) - 1
	if target <= xs[0] {
		return ys[0]
	}
	if target >= xs[last] {
		return ys[last]
	}

	for k := 0; k < last; k++ {
		if xs[k] <= target && target <= xs[k+1] {
			dx := xs[k+1] - xs[k]
			if dx == 0 {
				return ys[k]
			}
			return ys[k] + (ys[k+1]-ys[k])/dx*(target-xs[k])
		}
	}

	return ys[last]
}
