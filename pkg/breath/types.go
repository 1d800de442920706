package breath

import "math"

// Direction indicates which way flow crosses zero
type Direction string

const (
	NegToPos Direction = "neg_to_pos"
	PosToNeg Direction = "pos_to_neg"
)

// Opposite returns the other crossing direction
func (d Direction) Opposite() Direction {
	if d == NegToPos {
		return PosToNeg
	}
	return NegToPos
}

// Sample is one point of a recording waveform
type Sample struct {
	Time   float64 `json:"time"`
	Volume float64 `json:"volume"`
	Flow   float64 `json:"flow"`
}

// Crossing is a validated zero-flow crossing. Index is the sample
// immediately before the crossing; Time and Volume are interpolated at the
// instant flow reaches zero.
type Crossing struct {
	Index     int       `json:"index"`
	Time      float64   `json:"time"`
	Volume    float64   `json:"volume"`
	Direction Direction `json:"direction"`
}

// PhaseKind distinguishes the two halves of a breath
type PhaseKind string

const (
	Inspiration PhaseKind = "inspiration"
	Expiration  PhaseKind = "expiration"
)

// Phase is one contiguous half of a breath between two crossings. Samples
// starts and ends with the interpolated zero-flow points.
type Phase struct {
	Kind    PhaseKind `json:"kind"`
	Start   Crossing  `json:"start"`
	End     Crossing  `json:"end"`
	Samples []Sample  `json:"-"`
}

// Duration returns the elapsed time of the phase in seconds
func (p *Phase) Duration() float64 {
	if len(p.Samples) == 0 {
		return 0
	}
	return p.Samples[len(p.Samples)-1].Time - p.Samples[0].Time
}

// TidalVolume returns the magnitude of the volume change across the phase
func (p *Phase) TidalVolume() float64 {
	if len(p.Samples) == 0 {
		return 0
	}
	return math.Abs(p.Samples[len(p.Samples)-1].Volume - p.Samples[0].Volume)
}

// Breath pairs an inspiration with the expiration that follows it
type Breath struct {
	Index       int   `json:"index"`
	Inspiration Phase `json:"inspiration"`
	Expiration  Phase `json:"expiration"`
}

// Duration returns the elapsed time of the full breath in seconds
func (b *Breath) Duration() float64 {
	return b.Inspiration.Duration() + b.Expiration.Duration()
}

// NewSamples zips index-aligned time, volume and flow sequences into samples.
// The three slices must have equal length.
func NewSamples(time, volume, flow []float64) []Sample {
	samples := make([]Sample, len(time))
	for i := range time {
		samples[i] = Sample{Time: time[i], Volume: volume[i], Flow: flow[i]}
	}
	return samples
}
