package bins

// Grid is one resampled phase of one breath. Times are phase-relative, so
// every grid starts at zero.
type Grid struct {
	Times   []float64 `json:"times"`
	Volumes []float64 `json:"volumes"`
	Flows   []float64 `json:"flows"`
}

// Clone returns an independent copy of the grid
func (g *Grid) Clone() Grid {
	clone := Grid{
		Times:   make([]float64, len(g.Times)),
		Volumes: make([]float64, len(g.Volumes)),
		Flows:   make([]float64, len(g.Flows)),
	}
	copy(clone.Times, g.Times)
	copy(clone.Volumes, g.Volumes)
	copy(clone.Flows, g.Flows)
	return clone
}

// Len returns the number of grid points
func (g *Grid) Len() int {
	return len(g.Times)
}

// BreathGrids holds the two resampled phases of one breath
type BreathGrids struct {
	BreathIndex int  `json:"breath_index"`
	Insp        Grid `json:"insp"`
	Exp         Grid `json:"exp"`
}

// Clone returns an independent copy of both phase grids
func (b *BreathGrids) Clone() BreathGrids {
	return BreathGrids{
		BreathIndex: b.BreathIndex,
		Insp:        b.Insp.Clone(),
		Exp:         b.Exp.Clone(),
	}
}

// TimeBinResult holds the equal-time grids of every breath. Raw grids keep
// the volumes as recorded; Normalized grids are junction-shifted and scaled
// to the mean tidal volume.
type TimeBinResult struct {
	Raw        []BreathGrids `json:"raw"`
	Normalized []BreathGrids `json:"normalized"`

	// MeanShift is the mean junction volume subtracted during
	// normalization. The aggregator adds it back to averaged volumes.
	MeanShift float64 `json:"mean_shift"`

	AvgVtInsp float64 `json:"avg_vt_insp"`
	AvgVtExp  float64 `json:"avg_vt_exp"`
	AvgTtInsp float64 `json:"avg_tt_insp"`
	AvgTtExp  float64 `json:"avg_tt_exp"`
}

// VolumeBinResult holds the equal-volume grids of every breath
type VolumeBinResult struct {
	Breaths []BreathGrids `json:"breaths"`
}

// ColumnStats holds per-bin statistics for one quantity across breaths.
// Std is the sample standard deviation and SEM the standard error of the
// mean; both are NaN where fewer than two breaths contribute.
type ColumnStats struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
	SEM  []float64 `json:"sem"`
}

// PhaseAggregate holds cross-breath statistics for one phase
type PhaseAggregate struct {
	Count  int         `json:"count"`
	Time   ColumnStats `json:"time"`
	Volume ColumnStats `json:"volume"`
	Flow   ColumnStats `json:"flow"`
}

// AggregateResult pairs the per-phase statistics of one resampling method
type AggregateResult struct {
	Insp PhaseAggregate `json:"insp"`
	Exp  PhaseAggregate `json:"exp"`
}
