package trace

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/dcxht/LOOPAVGER/pkg/trace/common"
)

// ReaderConfig controls recording parsing
type ReaderConfig struct {
	// Column name patterns, matched case-insensitively as substrings.
	TimePatterns   []string
	VolumePatterns []string
	FlowPatterns   []string

	Logger *zap.Logger
}

// DefaultReaderConfig returns patterns matching the standard recording
// layout
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		TimePatterns:   []string{"time"},
		VolumePatterns: []string{"vol"},
		FlowPatterns:   []string{"flow"},
	}
}

// Reader loads recording tables into sample series
type Reader struct {
	config *ReaderConfig
	logger *zap.Logger
}

// NewReader creates a reader with the given config
func NewReader(config *ReaderConfig) *Reader {
	if config == nil {
		config = DefaultReaderConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reader{
		config: config,
		logger: logger,
	}
}

// Read parses one recording file into index-aligned series. Blank cells at
// the end of a column are tolerated: the series is truncated to the longest
// prefix complete in all three columns.
func (r *Reader) Read(path string) (*common.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewTraceError(path, common.ErrCodeRead, "failed to open recording", err)
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, common.NewTraceError(path, common.ErrCodeRead, "failed to parse csv", err)
	}
	if len(rows) == 0 {
		return nil, common.NewTraceError(path, common.ErrCodeNoData, "recording file is empty", nil)
	}

	columns, err := DetectColumns(rows[0], []ColumnSpec{
		{Role: common.ColumnTime, Patterns: r.config.TimePatterns},
		{Role: common.ColumnVolume, Patterns: r.config.VolumePatterns},
		{Role: common.ColumnFlow, Patterns: r.config.FlowPatterns},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	series := &common.Series{Path: path}
	for rowNum, row := range rows[1:] {
		if blankRow(row) {
			continue
		}

		t, err := parseColumn(row, columns[common.ColumnTime])
		if err != nil {
			return nil, common.NewTraceError(path, common.ErrCodeParse,
				fmt.Sprintf("bad time value on row %d", rowNum+2), err)
		}

		v, err := parseColumn(row, columns[common.ColumnVolume])
		if err != nil {
			return nil, common.NewTraceError(path, common.ErrCodeParse,
				fmt.Sprintf("bad volume value on row %d", rowNum+2), err)
		}

		f, err := parseColumn(row, columns[common.ColumnFlow])
		if err != nil {
			return nil, common.NewTraceError(path, common.ErrCodeParse,
				fmt.Sprintf("bad flow value on row %d", rowNum+2), err)
		}

		series.Time = append(series.Time, t)
		series.Volume = append(series.Volume, v)
		series.Flow = append(series.Flow, f)
	}

	truncateToComplete(series)

	if err := series.Validate(); err != nil {
		return nil, err
	}

	r.logger.Debug("recording loaded",
		zap.String("path", path),
		zap.Int("samples", series.Len()))

	return series, nil
}

// parseColumn parses one cell of a row, treating a short row as a blank
// cell
func parseColumn(row []string, index int) (float64, error) {
	if index >= len(row) {
		return math.NaN(), nil
	}
	return common.ParseCell(row[index])
}

// blankRow reports whether every cell of a row is empty
func blankRow(row []string) bool {
	for _, cell := range row {
		if !common.IsBlank(cell) {
			return false
		}
	}
	return true
}

// truncateToComplete cuts all three columns to the longest prefix free of
// missing values
func truncateToComplete(series *common.Series) {
	n := series.Len()
	for _, col := range [][]float64{series.Time, series.Volume, series.Flow} {
		for i, v := range col {
			if math.IsNaN(v) {
				if i < n {
					n = i
				}
				break
			}
		}
	}

	series.Time = series.Time[:n]
	series.Volume = series.Volume[:n]
	series.Flow = series.Flow[:n]
}
