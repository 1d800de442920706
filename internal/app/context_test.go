package app

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dcxht/LOOPAVGER/configs"
	"github.com/dcxht/LOOPAVGER/internal/analysis"
	"github.com/dcxht/LOOPAVGER/pkg/tlc"
)

// appForTest builds an App around canned configuration without going
// through flag parsing or logger setup.
func appForTest(config *configs.Config, run *RunConfig, ctx *Context) *App {
	if config == nil {
		config = configs.GetDefaultConfig()
	}
	if ctx == nil {
		ctx = &Context{}
	}
	return &App{
		ctx:    ctx,
		config: config,
		run:    run,
		logger: zap.NewNop(),
	}
}

func TestMergeContextOverrides(t *testing.T) {
	t.Run("flags override loaded values", func(t *testing.T) {
		config := configs.GetDefaultConfig()
		mergeContextOverrides(config, &Context{
			OutputDir:     "out",
			OutputFormat:  "json",
			Intervals:     50,
			MaxConcurrent: 2,
			IncludeRaw:    true,
			Verbose:       true,
		})

		assert.Equal(t, "out", config.Output.Directory)
		assert.Equal(t, "json", config.OutputFormat)
		assert.Equal(t, 50, config.Resampling.Intervals)
		assert.Equal(t, 2, config.Analysis.MaxConcurrent)
		assert.True(t, config.Output.IncludeRawData)
		assert.True(t, config.Verbose)
	})

	t.Run("unset flags leave configuration alone", func(t *testing.T) {
		config := configs.GetDefaultConfig()
		mergeContextOverrides(config, &Context{})
		assert.Equal(t, configs.GetDefaultConfig(), config)
	})
}

func TestResolveRecordings(t *testing.T) {
	t.Run("explicit arguments win over the run configuration", func(t *testing.T) {
		app := appForTest(nil, &RunConfig{Recordings: []string{"ignored.csv"}}, nil)

		resolved, err := app.resolveRecordings([]string{"x.csv"})
		require.NoError(t, err)
		assert.Equal(t, []string{"x.csv"}, resolved)
	})

	t.Run("literal entries pass through unexpanded", func(t *testing.T) {
		app := appForTest(nil, &RunConfig{Recordings: []string{"one.csv", "two.csv"}}, nil)

		resolved, err := app.resolveRecordings(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"one.csv", "two.csv"}, resolved)
	})

	t.Run("glob patterns expand in lexical order", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"007_formatted.csv", "003_formatted.csv", "notes.txt"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
		}

		app := appForTest(nil, &RunConfig{
			Recordings: []string{filepath.Join(dir, "*_formatted.csv")},
		}, nil)

		resolved, err := app.resolveRecordings(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "003_formatted.csv"),
			filepath.Join(dir, "007_formatted.csv"),
		}, resolved)
	})

	t.Run("empty pattern matches are skipped", func(t *testing.T) {
		dir := t.TempDir()
		app := appForTest(nil, &RunConfig{
			Recordings: []string{filepath.Join(dir, "*_missing.csv"), "literal.csv"},
		}, nil)

		resolved, err := app.resolveRecordings(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"literal.csv"}, resolved)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		dir := t.TempDir()
		app := appForTest(nil, &RunConfig{
			Recordings: []string{filepath.Join(dir, "*_missing.csv")},
		}, nil)

		_, err := app.resolveRecordings(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "matched no recordings")
	})

	t.Run("no recordings anywhere", func(t *testing.T) {
		app := appForTest(nil, nil, nil)

		_, err := app.resolveRecordings(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no recordings given")
	})
}

func TestBuildSubjects(t *testing.T) {
	paths := []string{
		filepath.Join("averaged", "003_formatted_vol_bins.csv"),
		filepath.Join("averaged", "017_formatted_vol_bins.csv"),
	}

	t.Run("positional pairing", func(t *testing.T) {
		app := appForTest(nil, nil, nil)

		subjects, err := app.buildSubjects(paths, []float64{5.1, 4.4})
		require.NoError(t, err)
		require.Len(t, subjects, 2)
		assert.Equal(t, tlc.Subject{Path: paths[0], ID: "003", TLC: 5.1}, subjects[0])
		assert.Equal(t, tlc.Subject{Path: paths[1], ID: "017", TLC: 4.4}, subjects[1])
	})

	t.Run("single value shared across files", func(t *testing.T) {
		app := appForTest(nil, nil, nil)

		subjects, err := app.buildSubjects(paths, []float64{6.0})
		require.NoError(t, err)
		assert.Equal(t, 6.0, subjects[0].TLC)
		assert.Equal(t, 6.0, subjects[1].TLC)
	})

	t.Run("count mismatch rejected", func(t *testing.T) {
		app := appForTest(nil, nil, nil)

		_, err := app.buildSubjects(paths, []float64{5.1, 4.4, 3.9})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "got 3 TLC values for 2 files")
	})

	t.Run("run configuration supplies values per subject", func(t *testing.T) {
		app := appForTest(nil, &RunConfig{
			TLC: map[string]float64{"003": 5.1, "017": 4.4},
		}, nil)

		subjects, err := app.buildSubjects(paths, nil)
		require.NoError(t, err)
		assert.Equal(t, 5.1, subjects[0].TLC)
		assert.Equal(t, 4.4, subjects[1].TLC)
	})

	t.Run("missing subject", func(t *testing.T) {
		app := appForTest(nil, &RunConfig{
			TLC: map[string]float64{"003": 5.1},
		}, nil)

		_, err := app.buildSubjects(paths, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no TLC value for")
	})
}

func TestLookupTLC(t *testing.T) {
	path := filepath.Join("averaged", "003_formatted_vol_bins.csv")
	app := appForTest(nil, &RunConfig{
		TLC: map[string]float64{
			"003": 5.1,
			filepath.Join("averaged", "017_formatted_vol_bins.csv"): 4.4,
			"099_formatted_vol_bins.csv":                            3.9,
		},
	}, nil)

	t.Run("by subject id", func(t *testing.T) {
		v, ok := app.lookupTLC("003", path)
		assert.True(t, ok)
		assert.Equal(t, 5.1, v)
	})

	t.Run("by full path", func(t *testing.T) {
		v, ok := app.lookupTLC("017", filepath.Join("averaged", "017_formatted_vol_bins.csv"))
		assert.True(t, ok)
		assert.Equal(t, 4.4, v)
	})

	t.Run("by base name", func(t *testing.T) {
		v, ok := app.lookupTLC("099", filepath.Join("averaged", "099_formatted_vol_bins.csv"))
		assert.True(t, ok)
		assert.Equal(t, 3.9, v)
	})

	t.Run("not found", func(t *testing.T) {
		_, ok := app.lookupTLC("555", "averaged/555.csv")
		assert.False(t, ok)
	})

	t.Run("no run configuration", func(t *testing.T) {
		bare := appForTest(nil, nil, nil)
		_, ok := bare.lookupTLC("003", path)
		assert.False(t, ok)
	})
}

func TestTLCCombined(t *testing.T) {
	t.Run("separate flag wins", func(t *testing.T) {
		app := appForTest(nil, nil, &Context{Separate: true, Combined: true})
		assert.False(t, app.tlcCombined())
	})

	t.Run("combined flag", func(t *testing.T) {
		config := configs.GetDefaultConfig()
		config.TLC.Combined = false
		app := appForTest(config, nil, &Context{Combined: true})
		assert.True(t, app.tlcCombined())
	})

	t.Run("configured default", func(t *testing.T) {
		config := configs.GetDefaultConfig()
		config.TLC.Combined = false
		app := appForTest(config, nil, nil)
		assert.False(t, app.tlcCombined())
	})
}

func TestMeanShiftResolution(t *testing.T) {
	flagShift := 0.5
	runShift := -0.25

	t.Run("flag wins", func(t *testing.T) {
		app := appForTest(nil, &RunConfig{MeanShift: &runShift}, &Context{MeanShift: &flagShift})
		require.NotNil(t, app.meanShift())
		assert.Equal(t, 0.5, *app.meanShift())
	})

	t.Run("run configuration fallback", func(t *testing.T) {
		app := appForTest(nil, &RunConfig{MeanShift: &runShift}, nil)
		require.NotNil(t, app.meanShift())
		assert.Equal(t, -0.25, *app.meanShift())
	})

	t.Run("unset", func(t *testing.T) {
		app := appForTest(nil, nil, nil)
		assert.Nil(t, app.meanShift())
	})
}

func TestCleanSession(t *testing.T) {
	session := &analysis.Session{
		StartTime:     time.Now().Add(-2 * time.Second),
		EndTime:       time.Now(),
		TotalDuration: 2 * time.Second,
		Recordings: map[string]*analysis.RecordingAnalysis{
			"a.csv": {
				Source:      "a.csv",
				Status:      analysis.StatusOK,
				SampleCount: 2000,
				BreathCount: 3,
				MeanShift:   0.12,
				OutputFiles: []string{"a_breaths.csv"},
			},
			"b.csv": {
				Source: "b.csv",
				Status: analysis.StatusFailed,
				Error:  errors.New("boom"),
			},
		},
	}

	t.Run("compact form", func(t *testing.T) {
		clean := cleanSession(session, false)
		assert.Equal(t, 2.0, clean["total_duration"])

		recordings := clean["recordings"].(map[string]any)
		a := recordings["a.csv"].(map[string]any)
		assert.Equal(t, 3, a["breath_count"])
		assert.Equal(t, 0.12, a["mean_shift"])
		assert.NotContains(t, a, "sample_count")
		assert.NotContains(t, a, "error")

		b := recordings["b.csv"].(map[string]any)
		assert.Equal(t, "boom", b["error"])
	})

	t.Run("verbose form", func(t *testing.T) {
		clean := cleanSession(session, true)
		a := clean["recordings"].(map[string]any)["a.csv"].(map[string]any)
		assert.Equal(t, 2000, a["sample_count"])
		assert.Contains(t, a, "processing_time_ms")
	})
}

func TestSanitizeForJSON(t *testing.T) {
	out := sanitizeForJSON(map[string]any{
		"mean":   math.NaN(),
		"series": []float64{1, math.Inf(1)},
		"nested": []any{math.Inf(-1), "label"},
		"label":  "breaths",
		"plain":  1.5,
	})

	m := out.(map[string]any)
	assert.Equal(t, 0.0, m["mean"])
	assert.Equal(t, []float64{1, 0}, m["series"])
	assert.Equal(t, []any{0.0, "label"}, m["nested"])
	assert.Equal(t, "breaths", m["label"])
	assert.Equal(t, 1.5, m["plain"])
}
