package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/dcxht/LOOPAVGER/pkg/trace/common"
)

// FormatterConfig controls raw export conversion
type FormatterConfig struct {
	// FlowMarker opens the flow block when a row's first cell contains it;
	// VolumeMarker opens the volume block when the first cell equals it.
	// Matching is case-insensitive and one header row after each marker is
	// skipped.
	FlowMarker   string
	VolumeMarker string

	// SampleInterval is the synthetic time step between samples in seconds.
	SampleInterval float64

	// OutputDir receives converted files; empty writes next to the input.
	OutputDir    string
	OutputSuffix string

	Logger *zap.Logger
}

// DefaultFormatterConfig returns conversion settings for instrument exports
// sampled at 100 Hz
func DefaultFormatterConfig() *FormatterConfig {
	return &FormatterConfig{
		FlowMarker:     "ltr/s",
		VolumeMarker:   "ltr",
		SampleInterval: 0.01,
		OutputSuffix:   "_formatted",
	}
}

// Formatter converts raw instrument exports into the standard
// time/volume/flow recording layout
type Formatter struct {
	config *FormatterConfig
	logger *zap.Logger
}

// NewFormatter creates a formatter with the given config
func NewFormatter(config *FormatterConfig) *Formatter {
	if config == nil {
		config = DefaultFormatterConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Formatter{
		config: config,
		logger: logger,
	}
}

// Format converts one raw export and returns the path written
func (f *Formatter) Format(path string) (string, error) {
	rows, err := readRawRows(path)
	if err != nil {
		return "", err
	}

	flow, volume, err := f.extract(path, rows)
	if err != nil {
		return "", err
	}

	out := f.outputPath(path)
	if err := f.writeFormatted(out, flow, volume); err != nil {
		return "", err
	}

	f.logger.Debug("raw export converted",
		zap.String("source", path),
		zap.String("output", out),
		zap.Int("flow_samples", len(flow)),
		zap.Int("volume_samples", len(volume)))

	return out, nil
}

// extract pulls the flow and volume blocks out of a raw export. Each block
// starts after its marker row plus one header row and runs until a blank
// first cell; non-numeric rows inside a block are skipped.
func (f *Formatter) extract(path string, rows [][]string) (flow, volume []float64, err error) {
	flowMarker := strings.ToLower(f.config.FlowMarker)
	volumeMarker := strings.ToLower(f.config.VolumeMarker)

	var current *[]float64
	var flowSeen, volumeSeen bool
	skipHeader := false

	for _, row := range rows {
		first := ""
		if len(row) > 0 {
			first = strings.TrimSpace(row[0])
		}

		if current != nil {
			if skipHeader {
				skipHeader = false
				continue
			}
			if first == "" {
				current = nil
				continue
			}
			if v, parseErr := strconv.ParseFloat(first, 64); parseErr == nil {
				*current = append(*current, v)
			}
			continue
		}

		lowered := strings.ToLower(first)
		switch {
		case !flowSeen && strings.Contains(lowered, flowMarker):
			current, flowSeen, skipHeader = &flow, true, true
		case !volumeSeen && lowered == volumeMarker:
			current, volumeSeen, skipHeader = &volume, true, true
		}
	}

	if len(flow) == 0 {
		return nil, nil, common.NewTraceError(path, common.ErrCodeNoData,
			fmt.Sprintf("no flow block found (marker %q)", f.config.FlowMarker), nil)
	}
	if len(volume) == 0 {
		return nil, nil, common.NewTraceError(path, common.ErrCodeNoData,
			fmt.Sprintf("no volume block found (marker %q)", f.config.VolumeMarker), nil)
	}

	return flow, volume, nil
}

// writeFormatted writes the standard layout over a synthetic time base. The
// shorter block pads with blank cells.
func (f *Formatter) writeFormatted(path string, flow, volume []float64) error {
	maxLen := len(flow)
	if len(volume) > maxLen {
		maxLen = len(volume)
	}

	rows := make([][]string, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		t := scalar.Round(f.config.SampleInterval*float64(i+1), 2)

		volCell := ""
		if i < len(volume) {
			volCell = common.FormatCell(volume[i], -1)
		}

		flowCell := ""
		if i < len(flow) {
			flowCell = common.FormatCell(flow[i], -1)
		}

		rows = append(rows, []string{common.FormatCell(t, -1), volCell, flowCell})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to create output directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to create output file", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write([]string{"Time", "Vol", "Flow"}); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to write header", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to write rows", err)
	}

	cw.Flush()
	return cw.Error()
}

// outputPath builds the converted file's path
func (f *Formatter) outputPath(src string) string {
	dir := f.config.OutputDir
	if dir == "" {
		dir = filepath.Dir(src)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(dir, base+f.config.OutputSuffix+".csv")
}

// readRawRows loads a raw export without field count enforcement. Lazy
// quoting tolerates the loose quoting instrument exports carry.
func readRawRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewTraceError(path, common.ErrCodeRead, "failed to open raw export", err)
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, common.NewTraceError(path, common.ErrCodeRead, "failed to parse csv", err)
	}

	return rows, nil
}
