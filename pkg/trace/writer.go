package trace

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dcxht/LOOPAVGER/pkg/breath"
	"github.com/dcxht/LOOPAVGER/pkg/breath/bins"
	"github.com/dcxht/LOOPAVGER/pkg/trace/common"
)

// WriterConfig controls result table layout
type WriterConfig struct {
	// OutputDir receives result files; empty writes next to the source
	// recording.
	OutputDir string

	// Precision is the fractional digit count for table cells; negative
	// keeps the shortest exact representation.
	Precision int

	Logger *zap.Logger
}

// DefaultWriterConfig returns the standard writer settings
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Precision: 6,
	}
}

// Writer lays out analysis results as CSV tables
type Writer struct {
	config *WriterConfig
	logger *zap.Logger
}

// NewWriter creates a writer with the given config
func NewWriter(config *WriterConfig) *Writer {
	if config == nil {
		config = DefaultWriterConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Writer{
		config: config,
		logger: logger,
	}
}

// WriteBreathSummary writes one row per detected breath
func (w *Writer) WriteBreathSummary(src string, breaths []breath.Breath) (string, error) {
	header := []string{"Breath", "Start_Time", "Junction_Time", "End_Time",
		"Insp_Duration", "Exp_Duration", "Insp_Vt", "Exp_Vt"}

	rows := make([][]string, 0, len(breaths))
	for i := range breaths {
		b := &breaths[i]
		rows = append(rows, []string{
			strconv.Itoa(b.Index),
			w.cell(b.Inspiration.Start.Time),
			w.cell(b.Inspiration.End.Time),
			w.cell(b.Expiration.End.Time),
			w.cell(b.Inspiration.Duration()),
			w.cell(b.Expiration.Duration()),
			w.cell(b.Inspiration.TidalVolume()),
			w.cell(b.Expiration.TidalVolume()),
		})
	}

	path := w.outputPath(src, "_breaths")
	if err := w.writeTable(path, header, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteTimeBinAggregate writes the averaged time-bin table. Columns follow
// the per-phase Avg/SD/SEM naming so downstream tools can locate them by
// pattern.
func (w *Writer) WriteTimeBinAggregate(src string, agg *bins.AggregateResult) (string, error) {
	header := []string{"Bin",
		"Avg_Insp_Time", "Avg_Insp_Vol", "Insp_Vol_SD", "Insp_Vol_SEM",
		"Avg_Insp_Flow", "Insp_Flow_SD", "Insp_Flow_SEM",
		"Avg_Exp_Time", "Avg_Exp_Vol", "Exp_Vol_SD", "Exp_Vol_SEM",
		"Avg_Exp_Flow", "Exp_Flow_SD", "Exp_Flow_SEM"}

	rows := make([][]string, 0, len(agg.Insp.Time.Mean))
	for j := range agg.Insp.Time.Mean {
		rows = append(rows, []string{
			strconv.Itoa(j),
			w.cell(agg.Insp.Time.Mean[j]),
			w.cell(agg.Insp.Volume.Mean[j]),
			w.cell(agg.Insp.Volume.Std[j]),
			w.cell(agg.Insp.Volume.SEM[j]),
			w.cell(agg.Insp.Flow.Mean[j]),
			w.cell(agg.Insp.Flow.Std[j]),
			w.cell(agg.Insp.Flow.SEM[j]),
			w.cell(agg.Exp.Time.Mean[j]),
			w.cell(agg.Exp.Volume.Mean[j]),
			w.cell(agg.Exp.Volume.Std[j]),
			w.cell(agg.Exp.Volume.SEM[j]),
			w.cell(agg.Exp.Flow.Mean[j]),
			w.cell(agg.Exp.Flow.Std[j]),
			w.cell(agg.Exp.Flow.SEM[j]),
		})
	}

	path := w.outputPath(src, "_time_bins")
	if err := w.writeTable(path, header, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteVolumeBinAggregate writes the averaged volume-bin table
func (w *Writer) WriteVolumeBinAggregate(src string, agg *bins.AggregateResult) (string, error) {
	header := []string{"Bin",
		"Avg_Insp_Vol", "Insp_Vol_SD", "Insp_Vol_SEM", "Avg_Insp_Time",
		"Avg_Insp_Flow", "Insp_Flow_SD", "Insp_Flow_SEM",
		"Avg_Exp_Vol", "Exp_Vol_SD", "Exp_Vol_SEM", "Avg_Exp_Time",
		"Avg_Exp_Flow", "Exp_Flow_SD", "Exp_Flow_SEM"}

	rows := make([][]string, 0, len(agg.Insp.Volume.Mean))
	for j := range agg.Insp.Volume.Mean {
		rows = append(rows, []string{
			strconv.Itoa(j),
			w.cell(agg.Insp.Volume.Mean[j]),
			w.cell(agg.Insp.Volume.Std[j]),
			w.cell(agg.Insp.Volume.SEM[j]),
			w.cell(agg.Insp.Time.Mean[j]),
			w.cell(agg.Insp.Flow.Mean[j]),
			w.cell(agg.Insp.Flow.Std[j]),
			w.cell(agg.Insp.Flow.SEM[j]),
			w.cell(agg.Exp.Volume.Mean[j]),
			w.cell(agg.Exp.Volume.Std[j]),
			w.cell(agg.Exp.Volume.SEM[j]),
			w.cell(agg.Exp.Time.Mean[j]),
			w.cell(agg.Exp.Flow.Mean[j]),
			w.cell(agg.Exp.Flow.Std[j]),
			w.cell(agg.Exp.Flow.SEM[j]),
		})
	}

	path := w.outputPath(src, "_vol_bins")
	if err := w.writeTable(path, header, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteTimeBinBreaths writes the per-breath time-bin grids, normalized and
// raw, in long form
func (w *Writer) WriteTimeBinBreaths(src string, result *bins.TimeBinResult) ([]string, error) {
	normPath := w.outputPath(src, "_time_bin_breaths")
	if err := w.writeGrids(normPath, result.Normalized, false); err != nil {
		return nil, err
	}

	rawPath := w.outputPath(src, "_time_bin_breaths_raw")
	if err := w.writeGrids(rawPath, result.Raw, false); err != nil {
		return nil, err
	}

	return []string{normPath, rawPath}, nil
}

// WriteVolumeBinBreaths writes the per-breath volume-bin grids in long form
func (w *Writer) WriteVolumeBinBreaths(src string, result *bins.VolumeBinResult) (string, error) {
	path := w.outputPath(src, "_vol_bin_breaths")
	if err := w.writeGrids(path, result.Breaths, true); err != nil {
		return "", err
	}
	return path, nil
}

// writeGrids lays out per-breath grids with one row per bin. volumeFirst
// puts the volume column ahead of time for volume-indexed grids.
func (w *Writer) writeGrids(path string, grids []bins.BreathGrids, volumeFirst bool) error {
	header := []string{"Breath", "Phase", "Bin", "Time", "Vol", "Flow"}
	if volumeFirst {
		header = []string{"Breath", "Phase", "Bin", "Vol", "Time", "Flow"}
	}

	var rows [][]string
	for i := range grids {
		g := &grids[i]
		rows = w.appendGridRows(rows, g.BreathIndex, string(breath.Inspiration), &g.Insp, volumeFirst)
		rows = w.appendGridRows(rows, g.BreathIndex, string(breath.Expiration), &g.Exp, volumeFirst)
	}

	return w.writeTable(path, header, rows)
}

func (w *Writer) appendGridRows(rows [][]string, breathIndex int, phase string, g *bins.Grid, volumeFirst bool) [][]string {
	for j := range g.Times {
		first, second := w.cell(g.Times[j]), w.cell(g.Volumes[j])
		if volumeFirst {
			first, second = second, first
		}
		rows = append(rows, []string{
			strconv.Itoa(breathIndex),
			phase,
			strconv.Itoa(j),
			first,
			second,
			w.cell(g.Flows[j]),
		})
	}
	return rows
}

// cell renders one numeric table cell
func (w *Writer) cell(v float64) string {
	return common.FormatCell(v, w.config.Precision)
}

// outputPath builds the result path for a source recording and suffix
func (w *Writer) outputPath(src, suffix string) string {
	dir := w.config.OutputDir
	if dir == "" {
		dir = filepath.Dir(src)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(dir, base+suffix+".csv")
}

// writeTable writes a header and rows as one CSV file
func (w *Writer) writeTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to create output directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to create output file", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(header); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to write header", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to write rows", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to flush output", err)
	}

	w.logger.Debug("table written",
		zap.String("path", path),
		zap.Int("rows", len(rows)))

	return nil
}
