package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcxht/LOOPAVGER/pkg/trace/common"
)

func TestFindColumn(t *testing.T) {
	header := []string{"Time (s)", "Vol (Ltr)", "Flow (Ltr/s)"}

	tests := []struct {
		patterns []string
		index    int
		found    bool
	}{
		{[]string{"time"}, 0, true},
		{[]string{"TIME"}, 0, true},
		{[]string{"vol"}, 1, true},
		{[]string{"flow"}, 2, true},
		{[]string{"ltr", "s"}, 2, true},
		{[]string{"pressure"}, -1, false},
	}

	for _, tt := range tests {
		index, found := FindColumn(header, tt.patterns)
		assert.Equal(t, tt.index, index, "patterns %v", tt.patterns)
		assert.Equal(t, tt.found, found, "patterns %v", tt.patterns)
	}
}

func TestDetectColumns(t *testing.T) {
	t.Run("distinct columns", func(t *testing.T) {
		header := []string{"Bin", "Avg_Insp_Vol", "Avg_Insp_Flow", "Avg_Exp_Vol", "Avg_Exp_Flow"}
		specs := []ColumnSpec{
			{Role: common.ColumnRole("insp_vol"), Patterns: []string{"insp", "vol"}},
			{Role: common.ColumnRole("insp_flow"), Patterns: []string{"insp", "flow"}},
			{Role: common.ColumnRole("exp_vol"), Patterns: []string{"exp", "vol"}},
			{Role: common.ColumnRole("exp_flow"), Patterns: []string{"exp", "flow"}},
		}

		columns, err := DetectColumns(header, specs)
		require.NoError(t, err)

		assert.Equal(t, 1, columns[common.ColumnRole("insp_vol")])
		assert.Equal(t, 2, columns[common.ColumnRole("insp_flow")])
		assert.Equal(t, 3, columns[common.ColumnRole("exp_vol")])
		assert.Equal(t, 4, columns[common.ColumnRole("exp_flow")])
	})

	t.Run("earlier spec claims a shared cell", func(t *testing.T) {
		// The first cell matches both specs; the second spec must fall
		// through to the next candidate.
		header := []string{"Insp_Vol_Flow", "Insp_Flow"}
		specs := []ColumnSpec{
			{Role: common.ColumnRole("vol"), Patterns: []string{"insp", "vol"}},
			{Role: common.ColumnRole("flow"), Patterns: []string{"insp", "flow"}},
		}

		columns, err := DetectColumns(header, specs)
		require.NoError(t, err)

		assert.Equal(t, 0, columns[common.ColumnRole("vol")])
		assert.Equal(t, 1, columns[common.ColumnRole("flow")])
	})

	t.Run("missing role", func(t *testing.T) {
		header := []string{"Time", "Vol"}
		specs := []ColumnSpec{
			{Role: common.ColumnFlow, Patterns: []string{"flow"}},
		}

		_, err := DetectColumns(header, specs)
		require.Error(t, err)

		var terr *common.TraceError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, common.ErrCodeColumnNotFound, terr.Code)
		assert.Contains(t, err.Error(), "flow")
	})
}
