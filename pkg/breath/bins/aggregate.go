package bins

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// AggregateConfig controls cross-breath averaging
type AggregateConfig struct {
	// MeanShift is added back to averaged time-bin volumes, undoing the
	// junction subtraction applied during normalization.
	MeanShift float64

	Logger *zap.Logger
}

// Aggregator reduces per-breath grids to cross-breath statistics
type Aggregator struct {
	config *AggregateConfig
	logger *zap.Logger
}

// NewAggregator creates an aggregator with the given config
func NewAggregator(config *AggregateConfig) *Aggregator {
	if config == nil {
		config = &AggregateConfig{}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		config: config,
		logger: logger,
	}
}

// AggregateTimeBins averages normalized time-bin grids across breaths. The
// configured mean shift is added to the averaged volumes.
func (a *Aggregator) AggregateTimeBins(grids []BreathGrids) *AggregateResult {
	result := a.aggregate(grids)

	for j := range result.Insp.Volume.Mean {
		result.Insp.Volume.Mean[j] += a.config.MeanShift
	}
	for j := range result.Exp.Volume.Mean {
		result.Exp.Volume.Mean[j] += a.config.MeanShift
	}

	return result
}

// AggregateVolumeBins averages volume-bin grids across breaths
func (a *Aggregator) AggregateVolumeBins(grids []BreathGrids) *AggregateResult {
	return a.aggregate(grids)
}

func (a *Aggregator) aggregate(grids []BreathGrids) *AggregateResult {
	inspGrids := make([]*Grid, len(grids))
	expGrids := make([]*Grid, len(grids))
	for i := range grids {
		inspGrids[i] = &grids[i].Insp
		expGrids[i] = &grids[i].Exp
	}

	result := &AggregateResult{
		Insp: aggregatePhase(inspGrids),
		Exp:  aggregatePhase(expGrids),
	}

	a.logger.Debug("aggregation complete",
		zap.Int("breaths", len(grids)))

	return result
}

// aggregatePhase computes per-bin statistics for one phase across breaths.
// Every grid must carry the same number of points.
func aggregatePhase(grids []*Grid) PhaseAggregate {
	agg := PhaseAggregate{Count: len(grids)}
	if len(grids) == 0 {
		return agg
	}

	points := grids[0].Len()
	agg.Time = makeStats(points)
	agg.Volume = makeStats(points)
	agg.Flow = makeStats(points)

	timeVals := make([]float64, len(grids))
	volVals := make([]float64, len(grids))
	flowVals := make([]float64, len(grids))

	for j := 0; j < points; j++ {
		for i, g := range grids {
			timeVals[i] = g.Times[j]
			volVals[i] = g.Volumes[j]
			flowVals[i] = g.Flows[j]
		}

		agg.Time.Mean[j], agg.Time.Std[j], agg.Time.SEM[j] = columnStats(timeVals)
		agg.Volume.Mean[j], agg.Volume.Std[j], agg.Volume.SEM[j] = columnStats(volVals)
		agg.Flow.Mean[j], agg.Flow.Std[j], agg.Flow.SEM[j] = columnStats(flowVals)
	}

	return agg
}

// columnStats returns the mean, sample standard deviation and standard
// error of the mean for one bin. Std and SEM are NaN when fewer than two
// values contribute.
func columnStats(values []float64) (mean, std, sem float64) {
	mean = stat.Mean(values, nil)
	if len(values) < 2 {
		return mean, math.NaN(), math.NaN()
	}

	std = stat.StdDev(values, nil)
	sem = std / math.Sqrt(float64(len(values)))
	return mean, std, sem
}

// makeStats allocates a stats column of the given length
func makeStats(points int) ColumnStats {
	return ColumnStats{
		Mean: make([]float64, points),
		Std:  make([]float64, points),
		SEM:  make([]float64, points),
	}
}
