package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/dcxht/LOOPAVGER/configs"
	"github.com/dcxht/LOOPAVGER/internal/analysis"
	"github.com/dcxht/LOOPAVGER/pkg/tlc"
	"github.com/dcxht/LOOPAVGER/pkg/trace"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile    string // Application configuration file (optional)
	RunConfigFile string // Run configuration listing recordings and TLC values (optional)
	OutputFile    string
	OutputDir     string
	OutputFormat  string
	Intervals     int
	MaxConcurrent int
	MeanShift     *float64
	IncludeRaw    bool
	Combined      bool
	Separate      bool
	Verbose       bool
	Quiet         bool

	// Runtime context
	Logger *zap.Logger
	Config *configs.Config
	Run    *RunConfig
}

// App handles the analysis application lifecycle
type App struct {
	ctx    *Context
	config *configs.Config
	run    *RunConfig
	logger *zap.Logger
}

// NewApp creates a new analysis application
func NewApp(ctx *Context) (*App, error) {
	// Load configuration
	config, runConfig, err := loadAndMergeConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx.Config = config
	ctx.Run = runConfig

	// Set up logging; the level comes from the merged configuration
	logger, err := setupLogging(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	ctx.Logger = logger

	logger.Debug("application initialized",
		zap.String("config_file", ctx.ConfigFile),
		zap.String("run_config_file", ctx.RunConfigFile),
		zap.String("output_format", config.OutputFormat),
		zap.Int("intervals", config.Resampling.Intervals))

	return &App{
		ctx:    ctx,
		config: config,
		run:    runConfig,
		logger: logger,
	}, nil
}

// RunAnalysis executes the averaging pipeline over the given recordings
func (app *App) RunAnalysis(ctx context.Context, paths []string) error {
	recordings, err := app.resolveRecordings(paths)
	if err != nil {
		return err
	}

	app.logger.Debug("starting analysis run",
		zap.Int("recordings", len(recordings)))

	orchestrator := analysis.NewOrchestrator(app.orchestratorConfig(), app.logger)

	session, err := orchestrator.Run(ctx, recordings)
	if err != nil {
		return fmt.Errorf("analysis run failed: %w", err)
	}

	// Output results
	if err := app.outputResults(session); err != nil {
		return fmt.Errorf("failed to output results: %w", err)
	}

	// Return error if every recording failed
	if session.Summary.FailedRecordings > 0 &&
		session.Summary.FailedRecordings == session.Summary.TotalRecordings {
		return fmt.Errorf("all recordings failed")
	}

	return nil
}

// RunBreaths analyzes a single recording and reports per-breath numbers
// without writing the bin tables
func (app *App) RunBreaths(ctx context.Context, path string) error {
	reader := trace.NewReader(app.readerConfig())

	series, err := reader.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}

	engine := analysis.NewEngine(app.engineConfig())
	result := engine.Analyze(ctx, series)

	switch result.Status {
	case analysis.StatusOK:
	case analysis.StatusNoBreaths:
		fmt.Printf("⚠️  %s: no breaths detected (%d crossings)\n", path, result.CrossingCount)
		return nil
	default:
		return fmt.Errorf("analysis failed: %w", result.Error)
	}

	writer := trace.NewWriter(app.writerConfig())
	outPath, err := writer.WriteBreathSummary(path, result.Breaths)
	if err != nil {
		return fmt.Errorf("failed to write breath summary: %w", err)
	}

	if !app.ctx.Quiet {
		fmt.Printf("✅ %s: %d breaths (%d dropped), mean shift %.4f L\n",
			path, result.BreathCount, result.DroppedBreaths, result.MeanShift)
		for i := range result.Breaths {
			b := &result.Breaths[i]
			fmt.Printf("  breath %d: insp %.2fs / %.3f L, exp %.2fs / %.3f L\n",
				b.Index,
				b.Inspiration.Duration(), b.Inspiration.TidalVolume(),
				b.Expiration.Duration(), b.Expiration.TidalVolume())
		}
		fmt.Printf("Breath table written to %s\n", outPath)
	}

	return nil
}

// RunFormat reshapes raw spirometry exports into recording tables
func (app *App) RunFormat(paths []string) error {
	formatter := trace.NewFormatter(&trace.FormatterConfig{
		FlowMarker:     app.config.Format.FlowMarker,
		VolumeMarker:   app.config.Format.VolumeMarker,
		SampleInterval: app.config.Format.SampleInterval,
		OutputDir:      app.config.Output.Directory,
		OutputSuffix:   app.config.Format.OutputSuffix,
		Logger:         app.logger,
	})

	failed := 0
	for _, path := range paths {
		outPath, err := formatter.Format(path)
		if err != nil {
			failed++
			fmt.Printf("❌ %s: %v\n", path, err)
			continue
		}
		if !app.ctx.Quiet {
			fmt.Printf("✅ %s -> %s\n", path, outPath)
		}
	}

	if failed > 0 && failed == len(paths) {
		return fmt.Errorf("all %d files failed to format", failed)
	}

	return nil
}

// RunTLC normalizes per-subject averaged loops by total lung capacity
func (app *App) RunTLC(paths []string, tlcValues []float64) error {
	subjects, err := app.buildSubjects(paths, tlcValues)
	if err != nil {
		return err
	}

	processor := tlc.NewProcessor(&tlc.Config{
		OutputDir:    app.config.Output.Directory,
		OutputSuffix: app.config.TLC.OutputSuffix,
		Combined:     app.tlcCombined(),
		Precision:    app.config.Output.Precision,
		Logger:       app.logger,
	})

	outputs, err := processor.Process(subjects)
	if err != nil {
		return fmt.Errorf("TLC processing failed: %w", err)
	}

	if !app.ctx.Quiet {
		for _, path := range outputs {
			fmt.Printf("✅ %s\n", path)
		}
	}

	return nil
}

// setupLogging configures logging based on context
func setupLogging(ctx *Context, config *configs.Config) (*zap.Logger, error) {
	if ctx.Quiet {
		return zap.NewNop(), nil
	}

	level := zapcore.InfoLevel
	if config.LogLevel != "" {
		parsed, err := zapcore.ParseLevel(config.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
		}
		level = parsed
	}
	if ctx.Verbose || config.Verbose {
		level = zapcore.DebugLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.Encoding = "console"
	zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	return zapConfig.Build()
}

// loadAndMergeConfig loads configuration from files and merges with CLI flags
func loadAndMergeConfig(ctx *Context) (*configs.Config, *RunConfig, error) {
	// Load base configuration
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load base configuration: %w", err)
	}

	// Load run configuration from file when given
	var runConfig *RunConfig
	if ctx.RunConfigFile != "" {
		runConfig, err = loadRunConfigFromFile(ctx.RunConfigFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load run configuration: %w", err)
		}
		if err := runConfig.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid run configuration: %w", err)
		}
	}

	// Override with CLI flags
	mergeContextOverrides(config, ctx)

	// Validate final configuration
	if err := configs.ValidateConfig(config); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, runConfig, nil
}

// mergeContextOverrides applies CLI flags on top of the loaded configuration
func mergeContextOverrides(config *configs.Config, ctx *Context) {
	if ctx.OutputDir != "" {
		config.Output.Directory = ctx.OutputDir
	}
	if ctx.OutputFormat != "" {
		config.OutputFormat = ctx.OutputFormat
	}
	if ctx.Intervals > 0 {
		config.Resampling.Intervals = ctx.Intervals
	}
	if ctx.MaxConcurrent > 0 {
		config.Analysis.MaxConcurrent = ctx.MaxConcurrent
	}
	if ctx.IncludeRaw {
		config.Output.IncludeRawData = true
	}
	if ctx.Verbose {
		config.Verbose = true
	}
}

// resolveRecordings decides the input list: explicit arguments win, then
// the run configuration, with glob patterns expanded
func (app *App) resolveRecordings(paths []string) ([]string, error) {
	if len(paths) > 0 {
		return paths, nil
	}

	if app.run == nil || len(app.run.Recordings) == 0 {
		return nil, fmt.Errorf("no recordings given: pass files as arguments or list them in a run configuration")
	}

	var resolved []string
	for _, entry := range app.run.Recordings {
		if !strings.ContainsAny(entry, "*?[") {
			resolved = append(resolved, entry)
			continue
		}

		matches, err := filepath.Glob(entry)
		if err != nil {
			return nil, fmt.Errorf("bad recording pattern %q: %w", entry, err)
		}
		if len(matches) == 0 {
			app.logger.Warn("recording pattern matched nothing",
				zap.String("pattern", entry))
			continue
		}
		resolved = append(resolved, matches...)
	}

	if len(resolved) == 0 {
		return nil, fmt.Errorf("run configuration matched no recordings")
	}

	return resolved, nil
}

// buildSubjects pairs recordings with TLC values. Explicit --tlc values
// pair positionally, a single value is shared across all files, and with
// no values at all the run configuration is consulted per subject.
func (app *App) buildSubjects(paths []string, tlcValues []float64) ([]tlc.Subject, error) {
	if len(tlcValues) > 1 && len(tlcValues) != len(paths) {
		return nil, fmt.Errorf("got %d TLC values for %d files: pass one per file or a single shared value",
			len(tlcValues), len(paths))
	}

	subjects := make([]tlc.Subject, 0, len(paths))
	for i, path := range paths {
		id := tlc.ExtractSubjectID(path)

		var capacity float64
		switch {
		case len(tlcValues) == len(paths):
			capacity = tlcValues[i]
		case len(tlcValues) == 1:
			capacity = tlcValues[0]
		default:
			found, ok := app.lookupTLC(id, path)
			if !ok {
				return nil, fmt.Errorf("no TLC value for %s: pass --tlc or add subject %q to the run configuration", path, id)
			}
			capacity = found
		}

		subjects = append(subjects, tlc.Subject{
			Path: path,
			ID:   id,
			TLC:  capacity,
		})
	}

	return subjects, nil
}

// lookupTLC finds a subject's TLC in the run configuration by subject ID,
// full path, or base name
func (app *App) lookupTLC(id, path string) (float64, bool) {
	if app.run == nil || app.run.TLC == nil {
		return 0, false
	}

	if v, ok := app.run.TLC[id]; ok {
		return v, true
	}
	if v, ok := app.run.TLC[path]; ok {
		return v, true
	}
	if v, ok := app.run.TLC[filepath.Base(path)]; ok {
		return v, true
	}

	return 0, false
}

// tlcCombined resolves the TLC table layout: --separate wins, then
// --combined, then the configured default
func (app *App) tlcCombined() bool {
	if app.ctx.Separate {
		return false
	}
	if app.ctx.Combined {
		return true
	}
	return app.config.TLC.Combined
}

// meanShift resolves the junction shift override, flag first, then the
// run configuration
func (app *App) meanShift() *float64 {
	if app.ctx.MeanShift != nil {
		return app.ctx.MeanShift
	}
	if app.run != nil {
		return app.run.MeanShift
	}
	return nil
}

// engineConfig builds the analysis engine configuration from the merged
// settings
func (app *App) engineConfig() *analysis.EngineConfig {
	return &analysis.EngineConfig{
		Intervals:           app.config.Resampling.Intervals,
		LookAhead:           app.config.Analysis.LookAhead,
		LookBackWidth:       app.config.Analysis.LookBackWidth,
		LookBackOffset:      app.config.Analysis.LookBackOffset,
		MinPhaseSamples:     app.config.Analysis.MinPhaseSamples,
		InspirationPositive: app.config.Analysis.InspirationPositive,
		MeanShift:           app.meanShift(),
		Logger:              app.logger,
	}
}

func (app *App) readerConfig() *trace.ReaderConfig {
	return &trace.ReaderConfig{
		TimePatterns:   app.config.Input.TimePatterns,
		VolumePatterns: app.config.Input.VolumePatterns,
		FlowPatterns:   app.config.Input.FlowPatterns,
		Logger:         app.logger,
	}
}

func (app *App) writerConfig() *trace.WriterConfig {
	return &trace.WriterConfig{
		OutputDir: app.config.Output.Directory,
		Precision: app.config.Output.Precision,
		Logger:    app.logger,
	}
}

func (app *App) orchestratorConfig() *analysis.OrchestratorConfig {
	return &analysis.OrchestratorConfig{
		Engine:         app.engineConfig(),
		Reader:         app.readerConfig(),
		Writer:         app.writerConfig(),
		MaxConcurrent:  app.config.Analysis.MaxConcurrent,
		IncludeRawData: app.config.Output.IncludeRawData,
	}
}

// outputResults handles all result output
func (app *App) outputResults(session *analysis.Session) error {
	switch app.config.OutputFormat {
	case "json", "yaml":
	default:
		app.printSummary(session)
		return nil
	}

	// Create clean output structure (exclude raw waveform data)
	outputData := map[string]any{
		"session":   cleanSession(session, app.config.Verbose),
		"timestamp": time.Now(),
		"configuration": map[string]any{
			"intervals":        app.config.Resampling.Intervals,
			"max_concurrent":   app.config.Analysis.MaxConcurrent,
			"include_raw_data": app.config.Output.IncludeRawData,
			"precision":        app.config.Output.Precision,
		},
	}

	var formatted []byte
	var err error
	if app.config.OutputFormat == "yaml" {
		formatted, err = yaml.Marshal(outputData)
	} else {
		formatted, err = json.MarshalIndent(outputData, "", "  ")
		if err != nil && strings.Contains(err.Error(), "unsupported value") {
			// NaN slips through when a bin had too few breaths
			formatted, err = json.MarshalIndent(sanitizeForJSON(outputData), "", "  ")
		}
	}
	if err != nil {
		return fmt.Errorf("failed to format output data: %w", err)
	}

	// Write to file or stdout
	if app.ctx.OutputFile != "" {
		return app.writeToFile(formatted)
	}

	_, err = os.Stdout.Write(formatted)
	return err
}

// printSummary renders the human-readable session report
func (app *App) printSummary(session *analysis.Session) {
	if app.ctx.Quiet {
		return
	}

	sources := make([]string, 0, len(session.Recordings))
	for source := range session.Recordings {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	outputCount := 0
	for _, source := range sources {
		recording := session.Recordings[source]
		switch recording.Status {
		case analysis.StatusOK:
			fmt.Printf("✅ %s: %d breaths (%d dropped), mean Vt %.3f L\n",
				source, recording.BreathCount, recording.DroppedBreaths, recording.AvgTidalVolume)
		case analysis.StatusNoBreaths:
			fmt.Printf("⚠️  %s: no breaths detected (%d crossings)\n",
				source, recording.CrossingCount)
		default:
			fmt.Printf("❌ %s: %v\n", source, recording.Error)
		}
		outputCount += len(recording.OutputFiles)
	}

	if session.Summary != nil {
		for _, insight := range session.Summary.Insights {
			fmt.Printf("  - %s\n", insight)
		}
	}

	fmt.Printf("Wrote %d output file(s) in %.2fs\n", outputCount, session.TotalDuration.Seconds())
}

// cleanSession removes raw waveform data from the session report
func cleanSession(session *analysis.Session, verbose bool) map[string]any {
	cleanSummary := map[string]any{
		"start_time":     session.StartTime,
		"end_time":       session.EndTime,
		"total_duration": session.TotalDuration.Seconds(),
		"summary":        session.Summary,
		"recordings":     make(map[string]any),
	}

	for name, recording := range session.Recordings {
		var cleanRecording map[string]any
		if verbose {
			cleanRecording = map[string]any{
				"source":               recording.Source,
				"status":               recording.Status,
				"sample_count":         recording.SampleCount,
				"recording_duration_s": recording.RecordingDuration,
				"crossing_count":       recording.CrossingCount,
				"breath_count":         recording.BreathCount,
				"dropped_breaths":      recording.DroppedBreaths,
				"mean_shift":           recording.MeanShift,
				"avg_tidal_volume":     recording.AvgTidalVolume,
				"avg_breath_duration":  recording.AvgBreathDuration,
				"processing_time_ms":   recording.ProcessingTime.Milliseconds(),
				"output_files":         recording.OutputFiles,
			}
		} else {
			cleanRecording = map[string]any{
				"source":          recording.Source,
				"status":          recording.Status,
				"breath_count":    recording.BreathCount,
				"dropped_breaths": recording.DroppedBreaths,
				"mean_shift":      recording.MeanShift,
				"output_files":    recording.OutputFiles,
			}
		}

		if recording.Error != nil {
			cleanRecording["error"] = recording.Error.Error()
		}

		cleanSummary["recordings"].(map[string]any)[name] = cleanRecording
	}

	return cleanSummary
}

// writeToFile writes data to the specified output file
func (app *App) writeToFile(data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(app.ctx.OutputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(app.ctx.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("results written to file",
		zap.String("output_file", app.ctx.OutputFile),
		zap.Int("size_bytes", len(data)))

	return nil
}

// sanitizeForJSON recursively replaces infinite and NaN values, which
// the JSON encoder rejects
func sanitizeForJSON(data any) any {
	switch v := data.(type) {
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0.0
		}
		return v
	case map[string]any:
		result := make(map[string]any)
		for k, val := range v {
			result[k] = sanitizeForJSON(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = sanitizeForJSON(val)
		}
		return result
	case []float64:
		result := make([]float64, len(v))
		for i, val := range v {
			if math.IsInf(val, 0) || math.IsNaN(val) {
				result[i] = 0.0
			} else {
				result[i] = val
			}
		}
		return result
	default:
		return v
	}
}
