package tlc

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"

	"github.com/dcxht/LOOPAVGER/pkg/trace"
	"github.com/dcxht/LOOPAVGER/pkg/trace/common"
)

// Column roles located in the aggregate volume-bin table
const (
	colInspVol  = common.ColumnRole("insp_vol")
	colInspFlow = common.ColumnRole("insp_flow")
	colExpVol   = common.ColumnRole("exp_vol")
	colExpFlow  = common.ColumnRole("exp_flow")
)

var loopSpecs = []trace.ColumnSpec{
	{Role: colInspVol, Patterns: []string{"insp", "vol"}},
	{Role: colInspFlow, Patterns: []string{"insp", "flow"}},
	{Role: colExpVol, Patterns: []string{"exp", "vol"}},
	{Role: colExpFlow, Patterns: []string{"exp", "flow"}},
}

var subjectIDPattern = regexp.MustCompile(`\d{2,}`)

// Config controls TLC percent conversion and comparison output
type Config struct {
	// OutputDir receives comparison tables and converted files; empty
	// writes next to each input (combined tables then land in the
	// working directory).
	OutputDir string

	// OutputSuffix names per-subject converted files in separate mode.
	OutputSuffix string

	// Combined selects the cross-subject comparison tables instead of
	// one converted file per subject.
	Combined bool

	// Precision is the decimal precision for written values; negative
	// uses the shortest representation.
	Precision int

	Logger *zap.Logger
}

// DefaultConfig returns the default TLC processing configuration
func DefaultConfig() *Config {
	return &Config{
		OutputSuffix: "_TLC_percent",
		Combined:     true,
		Precision:    -1,
	}
}

// Subject pairs one aggregate volume-bin table with its TLC reference
type Subject struct {
	Path string  `json:"path"`
	ID   string  `json:"id"`
	TLC  float64 `json:"tlc"`
}

// subjectLoop is one subject's averaged flow-volume loop: inspiration
// samples then expiration samples, volumes as %TLC.
type subjectLoop struct {
	Path  string
	ID    string
	TLC   float64
	Vols  []float64
	Flows []float64
}

// Processor converts aggregate volume columns to %TLC and builds
// cross-subject comparison tables
type Processor struct {
	config *Config
	logger *zap.Logger
}

// NewProcessor creates a TLC processor with the given config
func NewProcessor(config *Config) *Processor {
	if config == nil {
		config = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		config: config,
		logger: logger,
	}
}

// ExtractSubjectID pulls the subject identifier from a file name: the first
// run of at least two digits, falling back to the bare base name.
func ExtractSubjectID(path string) string {
	base := filepath.Base(path)
	if m := subjectIDPattern.FindString(base); m != "" {
		return m
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Process converts each subject's table and writes either the combined
// comparison tables or one converted file per subject. It returns the
// paths written.
func (p *Processor) Process(subjects []Subject) ([]string, error) {
	if len(subjects) == 0 {
		return nil, fmt.Errorf("no subjects to process")
	}

	loops := make([]*subjectLoop, 0, len(subjects))
	for _, s := range subjects {
		loop, err := p.loadLoop(s)
		if err != nil {
			return nil, err
		}
		loops = append(loops, loop)
	}

	var paths []string
	var err error
	if p.config.Combined {
		paths, err = p.writeCombined(loops)
	} else {
		paths, err = p.writeSeparate(loops)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Debug("TLC processing complete",
		zap.Int("subjects", len(loops)),
		zap.Bool("combined", p.config.Combined),
		zap.Strings("outputs", paths))

	return paths, nil
}

// loadLoop reads one aggregate table and builds the subject's loop.
// Inspiration rows come first, then expiration rows; rows missing both
// volume and flow are dropped.
func (p *Processor) loadLoop(s Subject) (*subjectLoop, error) {
	if s.TLC <= 0 {
		return nil, fmt.Errorf("subject %s: TLC must be positive, got %g", s.ID, s.TLC)
	}

	rows, err := readTable(s.Path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, common.NewTraceError(s.Path, common.ErrCodeNoData,
			"aggregate table has no data rows", nil)
	}

	columns, err := trace.DetectColumns(rows[0], loopSpecs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	loop := &subjectLoop{Path: s.Path, ID: s.ID, TLC: s.TLC}
	halves := []struct{ vol, flow int }{
		{columns[colInspVol], columns[colInspFlow]},
		{columns[colExpVol], columns[colExpFlow]},
	}

	for _, half := range halves {
		for _, row := range rows[1:] {
			vol := cellAt(row, half.vol)
			flow := cellAt(row, half.flow)
			if math.IsNaN(vol) && math.IsNaN(flow) {
				continue
			}
			loop.Vols = append(loop.Vols, vol/s.TLC*100)
			loop.Flows = append(loop.Flows, flow)
		}
	}

	if len(loop.Vols) == 0 {
		return nil, common.NewTraceError(s.Path, common.ErrCodeNoData,
			"no loop samples found", nil)
	}

	p.logger.Debug("subject loop loaded",
		zap.String("subject", loop.ID),
		zap.String("path", s.Path),
		zap.Float64("tlc", s.TLC),
		zap.Int("samples", len(loop.Vols)))

	return loop, nil
}

// writeSeparate writes one converted loop table per subject with the TLC
// reference appended below the data.
func (p *Processor) writeSeparate(loops []*subjectLoop) ([]string, error) {
	paths := make([]string, 0, len(loops))
	for _, loop := range loops {
		rows := [][]string{{"Vol_pctTLC", "Flow"}}
		for i := range loop.Vols {
			rows = append(rows, []string{p.cell(loop.Vols[i]), p.cell(loop.Flows[i])})
		}
		rows = append(rows,
			[]string{"", ""},
			[]string{"TLC", p.cell(loop.TLC)})

		out := p.subjectPath(loop.Path)
		if err := writeRows(out, rows); err != nil {
			return nil, err
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// writeCombined writes the four cross-subject comparison tables:
// individual loops side by side, row averages, absolute volumes via the
// average TLC, and averages with std columns.
func (p *Processor) writeCombined(loops []*subjectLoop) ([]string, error) {
	maxLen := 0
	tlcs := make([]float64, 0, len(loops))
	for _, loop := range loops {
		if len(loop.Vols) > maxLen {
			maxLen = len(loop.Vols)
		}
		tlcs = append(tlcs, loop.TLC)
	}
	avgTLC := scalar.Round(stat.Mean(tlcs, nil), 2)

	individual := [][]string{make([]string, 0, 2*len(loops))}
	for _, loop := range loops {
		individual[0] = append(individual[0], loop.ID+"_Vol_pctTLC", loop.ID+"_Flow")
	}

	averages := [][]string{{"Avg_Vol_pctTLC", "Avg_Flow"}}
	absolute := [][]string{{"Avg_Vol_L", "Avg_Flow"}}
	normalized := [][]string{{"Avg_Vol_pctTLC", "Vol_SD", "Avg_Flow", "Flow_SD"}}

	for i := 0; i < maxLen; i++ {
		row := make([]string, 0, 2*len(loops))
		for _, loop := range loops {
			if i < len(loop.Vols) {
				row = append(row, p.cell(loop.Vols[i]), p.cell(loop.Flows[i]))
			} else {
				row = append(row, "", "")
			}
		}
		individual = append(individual, row)

		volMean, volStd := rowStats(loops, i, func(l *subjectLoop) []float64 { return l.Vols })
		flowMean, flowStd := rowStats(loops, i, func(l *subjectLoop) []float64 { return l.Flows })

		averages = append(averages, []string{p.cell(volMean), p.cell(flowMean)})
		absolute = append(absolute, []string{p.cell(volMean * avgTLC / 100), p.cell(flowMean)})
		normalized = append(normalized, []string{
			p.cell(volMean), common.FormatCell(volStd, 3),
			p.cell(flowMean), common.FormatCell(flowStd, 3),
		})
	}

	individual = append(individual, []string{}, []string{"Subject", "TLC"})
	for _, loop := range loops {
		individual = append(individual, []string{loop.ID, p.cell(loop.TLC)})
	}
	individual = append(individual, []string{"Average", p.cell(avgTLC)})

	absolute = append(absolute, []string{}, []string{"Avg_TLC", p.cell(avgTLC)})

	tables := []struct {
		name string
		rows [][]string
	}{
		{"TLC_comparison_individual.csv", individual},
		{"TLC_comparison_averages.csv", averages},
		{"TLC_comparison_absolute.csv", absolute},
		{"TLC_comparison_normalized.csv", normalized},
	}

	paths := make([]string, 0, len(tables))
	for _, table := range tables {
		out := p.combinedPath(table.name)
		if err := writeRows(out, table.rows); err != nil {
			return nil, err
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// rowStats collects each subject's value at row i and returns their mean
// and sample std; std is NaN below two values.
func rowStats(loops []*subjectLoop, i int, pick func(*subjectLoop) []float64) (float64, float64) {
	values := make([]float64, 0, len(loops))
	for _, loop := range loops {
		series := pick(loop)
		if i < len(series) && !math.IsNaN(series[i]) {
			values = append(values, series[i])
		}
	}

	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	mean := stat.Mean(values, nil)
	if len(values) < 2 {
		return mean, math.NaN()
	}
	return mean, stat.StdDev(values, nil)
}

func (p *Processor) cell(v float64) string {
	return common.FormatCell(v, p.config.Precision)
}

// subjectPath names a per-subject converted file
func (p *Processor) subjectPath(src string) string {
	dir := p.config.OutputDir
	if dir == "" {
		dir = filepath.Dir(src)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(dir, base+p.config.OutputSuffix+".csv")
}

// combinedPath names a comparison table
func (p *Processor) combinedPath(name string) string {
	dir := p.config.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

// cellAt parses the cell at idx, treating short rows and unparseable cells
// as blank
func cellAt(row []string, idx int) float64 {
	if idx < 0 || idx >= len(row) {
		return math.NaN()
	}

	v, err := common.ParseCell(row[idx])
	if err != nil {
		return math.NaN()
	}
	return v
}

// readTable loads a CSV without field count enforcement
func readTable(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewTraceError(path, common.ErrCodeRead, "failed to open aggregate table", err)
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, common.NewTraceError(path, common.ErrCodeRead, "failed to parse csv", err)
	}
	return rows, nil
}

// writeRows writes raw CSV rows to path, creating parent directories
func writeRows(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to create output directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to create output file", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.WriteAll(rows); err != nil {
		return common.NewTraceError(path, common.ErrCodeWrite, "failed to write rows", err)
	}

	cw.Flush()
	return cw.Error()
}
