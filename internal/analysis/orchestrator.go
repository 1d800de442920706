package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dcxht/LOOPAVGER/pkg/trace"
)

// Orchestrator coordinates analysis across a set of recordings
type Orchestrator struct {
	config *OrchestratorConfig
	engine *Engine
	reader *trace.Reader
	writer *trace.Writer
	logger *zap.Logger
}

// OrchestratorConfig contains configuration for a session run
type OrchestratorConfig struct {
	Engine *EngineConfig
	Reader *trace.ReaderConfig
	Writer *trace.WriterConfig

	// MaxConcurrent bounds how many recordings are analyzed at once;
	// zero or less leaves the fan-out unbounded.
	MaxConcurrent int

	// IncludeRawData adds the per-breath grid tables to the outputs.
	IncludeRawData bool
}

// NewOrchestrator creates a session orchestrator with the given config
func NewOrchestrator(config *OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	if config == nil {
		config = &OrchestratorConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engineConfig := config.Engine
	if engineConfig == nil {
		engineConfig = DefaultEngineConfig()
	}
	engineConfig.Logger = logger

	readerConfig := config.Reader
	if readerConfig == nil {
		readerConfig = trace.DefaultReaderConfig()
	}
	readerConfig.Logger = logger

	writerConfig := config.Writer
	if writerConfig == nil {
		writerConfig = trace.DefaultWriterConfig()
	}
	writerConfig.Logger = logger

	return &Orchestrator{
		config: config,
		engine: NewEngine(engineConfig),
		reader: trace.NewReader(readerConfig),
		writer: trace.NewWriter(writerConfig),
		logger: logger,
	}
}

// Run analyzes every recording and writes its outputs, returning the
// assembled session
func (o *Orchestrator) Run(ctx context.Context, paths []string) (*Session, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no recordings to analyze")
	}

	startTime := time.Now()

	o.logger.Debug("starting analysis session",
		zap.Int("recordings", len(paths)),
		zap.Int("max_concurrent", o.config.MaxConcurrent))

	results := make(map[string]*RecordingAnalysis)
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Start signal so all workers begin together once setup is done
	startSignal := make(chan struct{})

	var semaphore chan struct{}
	if o.config.MaxConcurrent > 0 {
		semaphore = make(chan struct{}, o.config.MaxConcurrent)
	}

	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()

			<-startSignal

			if semaphore != nil {
				semaphore <- struct{}{}
				defer func() { <-semaphore }()
			}

			result := o.processRecording(ctx, path)

			mu.Lock()
			results[path] = result
			mu.Unlock()
		}(path)
	}

	close(startSignal)
	wg.Wait()

	endTime := time.Now()

	session := &Session{
		Recordings:    results,
		StartTime:     startTime,
		EndTime:       endTime,
		TotalDuration: endTime.Sub(startTime),
	}
	session.Summary = BuildSummary(session)

	o.logger.Debug("analysis session completed",
		zap.Int("recordings", len(paths)),
		zap.Int("analyzed", session.Summary.AnalyzedRecordings),
		zap.Int("failed", session.Summary.FailedRecordings),
		zap.Duration("total_duration", session.TotalDuration))

	return session, nil
}

// processRecording reads, analyzes, and writes one recording
func (o *Orchestrator) processRecording(ctx context.Context, path string) *RecordingAnalysis {
	series, err := o.reader.Read(path)
	if err != nil {
		return &RecordingAnalysis{
			Source:    path,
			Status:    StatusFailed,
			Error:     err,
			Timestamp: time.Now(),
		}
	}

	result := o.engine.Analyze(ctx, series)
	if result.Status != StatusOK {
		return result
	}

	files, err := o.writeOutputs(path, result)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err
		return result
	}
	result.OutputFiles = files

	return result
}

// writeOutputs lays out the CSV tables for one analyzed recording
func (o *Orchestrator) writeOutputs(path string, result *RecordingAnalysis) ([]string, error) {
	var files []string

	breathFile, err := o.writer.WriteBreathSummary(path, result.Breaths)
	if err != nil {
		return nil, err
	}
	files = append(files, breathFile)

	timeFile, err := o.writer.WriteTimeBinAggregate(path, result.TimeBinAgg)
	if err != nil {
		return nil, err
	}
	files = append(files, timeFile)

	volFile, err := o.writer.WriteVolumeBinAggregate(path, result.VolumeBinAgg)
	if err != nil {
		return nil, err
	}
	files = append(files, volFile)

	if o.config.IncludeRawData {
		gridFiles, err := o.writer.WriteTimeBinBreaths(path, result.TimeBins)
		if err != nil {
			return nil, err
		}
		files = append(files, gridFiles...)

		volGridFile, err := o.writer.WriteVolumeBinBreaths(path, result.VolumeBins)
		if err != nil {
			return nil, err
		}
		files = append(files, volGridFile)
	}

	return files, nil
}
