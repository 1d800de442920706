package bins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcxht/LOOPAVGER/pkg/breath"
)

func TestVolumeBinTargets(t *testing.T) {
	r := NewVolumeBinResampler(&VolumeBinConfig{Intervals: 4})

	result, err := r.Resample(context.Background(), []breath.Breath{rampBreath(0, 1.0)})
	require.NoError(t, err)
	require.Len(t, result.Breaths, 1)

	insp := result.Breaths[0].Insp
	require.Equal(t, 5, insp.Len())

	// Volume climbs 0 to 1 over 2 seconds, so time is twice the volume
	wantVols := []float64{0, 0.25, 0.5, 0.75, 1.0}
	for j, v := range wantVols {
		assert.InDelta(t, v, insp.Volumes[j], 1e-9, "volume at bin %d", j)
		assert.InDelta(t, 2*v, insp.Times[j], 1e-9, "time at bin %d", j)
		assert.InDelta(t, 0.5, insp.Flows[j], 1e-9, "flow at bin %d", j)
	}
}

func TestVolumeBinDescendingPhase(t *testing.T) {
	r := NewVolumeBinResampler(&VolumeBinConfig{Intervals: 4})

	result, err := r.Resample(context.Background(), []breath.Breath{rampBreath(0, 1.0)})
	require.NoError(t, err)

	// Expiration volume falls 1 to 0, so targets step downward
	exp := result.Breaths[0].Exp
	wantVols := []float64{1.0, 0.75, 0.5, 0.25, 0}
	for j, v := range wantVols {
		assert.InDelta(t, v, exp.Volumes[j], 1e-9, "volume at bin %d", j)
		assert.InDelta(t, 2*(1-v), exp.Times[j], 1e-9, "time at bin %d", j)
	}
}

func TestVolumeBinExactSampleMatch(t *testing.T) {
	// A 4-segment ramp puts every quarter-volume target exactly on a sample
	phase := rampPhase(breath.Inspiration, 0, 2, 0, 1.0, 4)
	phase.Samples[2].Flow = 9.0 // Distinctive value at the midpoint sample

	b := breath.Breath{Inspiration: phase, Expiration: rampPhase(breath.Expiration, 2, 2, 1.0, 0, 4)}

	r := NewVolumeBinResampler(&VolumeBinConfig{Intervals: 4})
	result, err := r.Resample(context.Background(), []breath.Breath{b})
	require.NoError(t, err)

	insp := result.Breaths[0].Insp
	assert.InDelta(t, 1.0, insp.Times[2], 1e-9)
	assert.Equal(t, 9.0, insp.Flows[2], "an exact match should take the sample's flow")
}

func TestVolumeBinNonMonotonicPhase(t *testing.T) {
	// Volume falls, bounces, then falls again, so the 0.5 target sits in both
	// the first and last descents. The first bracketing segment must win.
	phase := breath.Phase{
		Kind: breath.Inspiration,
		Samples: []breath.Sample{
			{Time: 0, Volume: 1.0, Flow: -0.6},
			{Time: 1, Volume: 0.4, Flow: 0.4},
			{Time: 2, Volume: 0.8, Flow: -0.8},
			{Time: 3, Volume: 0.0, Flow: -0.2},
		},
	}
	b := breath.Breath{Inspiration: phase, Expiration: rampPhase(breath.Expiration, 3, 1, 0, 0.5, 4)}

	r := NewVolumeBinResampler(&VolumeBinConfig{Intervals: 2})
	result, err := r.Resample(context.Background(), []breath.Breath{b})
	require.NoError(t, err)

	insp := result.Breaths[0].Insp
	// Targets are 1.0, 0.5, 0.0 over the 1.0 to 0.0 span
	assert.InDelta(t, 0.5, insp.Volumes[1], 1e-9)
	assert.InDelta(t, 5.0/6.0, insp.Times[1], 1e-9,
		"the 0.5 target should interpolate inside the first descent")
	assert.Equal(t, 0.0, insp.Times[0], "the first target coincides with the phase start")
	assert.Equal(t, 3.0, insp.Times[2], "the last target coincides with the phase end")
}

func TestVolumeBinFlatPhase(t *testing.T) {
	// Zero net volume change collapses every target onto the first sample
	phase := breath.Phase{
		Kind: breath.Inspiration,
		Samples: []breath.Sample{
			{Time: 0, Volume: 0.5, Flow: 0.1},
			{Time: 1, Volume: 0.7, Flow: 0.2},
			{Time: 2, Volume: 0.5, Flow: 0.3},
		},
	}
	b := breath.Breath{Inspiration: phase, Expiration: rampPhase(breath.Expiration, 2, 2, 0.5, 0, 4)}

	r := NewVolumeBinResampler(&VolumeBinConfig{Intervals: 2})
	result, err := r.Resample(context.Background(), []breath.Breath{b})
	require.NoError(t, err)

	insp := result.Breaths[0].Insp
	for j := 0; j < insp.Len(); j++ {
		assert.Equal(t, 0.5, insp.Volumes[j])
		assert.Equal(t, 0.0, insp.Times[j])
		assert.Equal(t, 0.1, insp.Flows[j])
	}
}

func TestVolumeBinEdgeCases(t *testing.T) {
	t.Run("no breaths", func(t *testing.T) {
		r := NewVolumeBinResampler(nil)

		result, err := r.Resample(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, result.Breaths)
	})

	t.Run("invalid intervals", func(t *testing.T) {
		r := NewVolumeBinResampler(&VolumeBinConfig{Intervals: -1})

		_, err := r.Resample(context.Background(), []breath.Breath{rampBreath(0, 1.0)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "intervals must be positive")
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewVolumeBinResampler(&VolumeBinConfig{Intervals: 4})
		_, err := r.Resample(ctx, []breath.Breath{rampBreath(0, 1.0)})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
