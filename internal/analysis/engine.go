package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dcxht/LOOPAVGER/pkg/breath"
	"github.com/dcxht/LOOPAVGER/pkg/breath/bins"
	"github.com/dcxht/LOOPAVGER/pkg/trace/common"
)

// Engine runs the breath analysis pipeline for single recordings
type Engine struct {
	detector   *breath.Detector
	segmenter  *breath.Segmenter
	timeBins   *bins.TimeBinResampler
	volumeBins *bins.VolumeBinResampler
	logger     *zap.Logger
}

// EngineConfig contains configuration for the analysis engine
type EngineConfig struct {
	// Intervals is the bin count per phase for both resampling methods.
	Intervals int

	// Zero-crossing validation windows, in samples.
	LookAhead      int
	LookBackWidth  int
	LookBackOffset int

	// MinPhaseSamples is the minimum interior sample count for a phase
	// to keep its breath.
	MinPhaseSamples int

	// InspirationPositive flips the sign convention: inspiration carries
	// positive flow instead of negative.
	InspirationPositive bool

	// MeanShift overrides the computed junction shift when set.
	MeanShift *float64

	Logger *zap.Logger
}

// DefaultEngineConfig returns the default analysis configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Intervals:       100,
		LookAhead:       30,
		LookBackWidth:   20,
		LookBackOffset:  41,
		MinPhaseSamples: 2,
	}
}

// NewEngine creates an analysis engine with the given config
func NewEngine(config *EngineConfig) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	applyEngineDefaults(config)

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	inspirationStart := breath.PosToNeg
	if config.InspirationPositive {
		inspirationStart = breath.NegToPos
	}

	detector := breath.NewDetector(&breath.DetectorConfig{
		LookAhead:      config.LookAhead,
		LookBackWidth:  config.LookBackWidth,
		LookBackOffset: config.LookBackOffset,
		Logger:         logger,
	})

	segmenter := breath.NewSegmenter(&breath.SegmenterConfig{
		InspirationStart: inspirationStart,
		MinPhaseSamples:  config.MinPhaseSamples,
		Logger:           logger,
	})

	timeBins := bins.NewTimeBinResampler(&bins.TimeBinConfig{
		Intervals: config.Intervals,
		MeanShift: config.MeanShift,
		Logger:    logger,
	})

	volumeBins := bins.NewVolumeBinResampler(&bins.VolumeBinConfig{
		Intervals: config.Intervals,
		Logger:    logger,
	})

	return &Engine{
		detector:   detector,
		segmenter:  segmenter,
		timeBins:   timeBins,
		volumeBins: volumeBins,
		logger:     logger,
	}
}

// applyEngineDefaults fills unset numeric settings with defaults
func applyEngineDefaults(config *EngineConfig) {
	defaults := DefaultEngineConfig()

	if config.Intervals <= 0 {
		config.Intervals = defaults.Intervals
	}
	if config.LookAhead <= 0 {
		config.LookAhead = defaults.LookAhead
	}
	if config.LookBackWidth <= 0 {
		config.LookBackWidth = defaults.LookBackWidth
	}
	if config.LookBackOffset <= 0 {
		config.LookBackOffset = defaults.LookBackOffset
	}
	if config.MinPhaseSamples <= 0 {
		config.MinPhaseSamples = defaults.MinPhaseSamples
	}
}

// Analyze runs the full pipeline over one recording. Errors and the final
// status are embedded in the returned result.
func (e *Engine) Analyze(ctx context.Context, series *common.Series) *RecordingAnalysis {
	result := &RecordingAnalysis{
		Source:    series.Path,
		Status:    StatusFailed,
		Timestamp: time.Now(),
	}

	totalStart := time.Now()

	e.logger.Debug("starting recording analysis",
		zap.String("source", series.Path),
		zap.Int("samples", series.Len()))

	// Step 1: Validate the waveform
	if err := series.Validate(); err != nil {
		result.Error = err
		result.ProcessingTime = time.Since(totalStart)
		return result
	}

	result.SampleCount = series.Len()
	result.RecordingDuration = series.Time[len(series.Time)-1] - series.Time[0]

	if err := ctx.Err(); err != nil {
		result.Error = err
		result.ProcessingTime = time.Since(totalStart)
		return result
	}

	samples := breath.NewSamples(series.Time, series.Volume, series.Flow)

	// Step 2: Detect validated zero crossings
	crossings := e.detector.Detect(samples)
	result.Crossings = crossings
	result.CrossingCount = len(crossings)

	// Step 3: Segment crossings into breaths
	breaths, dropped := e.segmenter.Segment(samples, crossings)
	result.Breaths = breaths
	result.BreathCount = len(breaths)
	result.DroppedBreaths = dropped

	if len(breaths) == 0 {
		result.Status = StatusNoBreaths
		result.ProcessingTime = time.Since(totalStart)
		e.logger.Debug("no breaths detected",
			zap.String("source", series.Path),
			zap.Int("crossings", len(crossings)),
			zap.Int("dropped", dropped))
		return result
	}

	// Step 4: Resample each phase onto time bins
	timeBins, err := e.timeBins.Resample(ctx, breaths)
	if err != nil {
		result.Error = fmt.Errorf("time-bin resampling failed: %w", err)
		result.ProcessingTime = time.Since(totalStart)
		return result
	}
	result.TimeBins = timeBins
	result.MeanShift = timeBins.MeanShift

	// Step 5: Resample each phase onto volume bins
	volumeBins, err := e.volumeBins.Resample(ctx, breaths)
	if err != nil {
		result.Error = fmt.Errorf("volume-bin resampling failed: %w", err)
		result.ProcessingTime = time.Since(totalStart)
		return result
	}
	result.VolumeBins = volumeBins

	// Step 6: Aggregate bins across breaths
	aggregator := bins.NewAggregator(&bins.AggregateConfig{
		MeanShift: timeBins.MeanShift,
		Logger:    e.logger,
	})
	result.TimeBinAgg = aggregator.AggregateTimeBins(timeBins.Normalized)
	result.VolumeBinAgg = aggregator.AggregateVolumeBins(volumeBins.Breaths)

	result.AvgTidalVolume = (timeBins.AvgVtInsp + timeBins.AvgVtExp) / 2
	result.AvgBreathDuration = timeBins.AvgTtInsp + timeBins.AvgTtExp
	result.Status = StatusOK
	result.ProcessingTime = time.Since(totalStart)

	e.logger.Debug("recording analysis completed",
		zap.String("source", series.Path),
		zap.Int("breaths", len(breaths)),
		zap.Int("dropped", dropped),
		zap.Float64("mean_shift", result.MeanShift),
		zap.Float64("avg_tidal_volume", result.AvgTidalVolume),
		zap.Duration("processing_time", result.ProcessingTime))

	return result
}
