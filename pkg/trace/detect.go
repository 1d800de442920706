package trace

import (
	"fmt"
	"strings"

	"github.com/dcxht/LOOPAVGER/pkg/trace/common"
)

// ColumnSpec names a column role and the lowercase substrings that identify
// its header cell
type ColumnSpec struct {
	Role     common.ColumnRole
	Patterns []string
}

// FindColumn returns the index of the first header cell containing every
// pattern, case-insensitively
func FindColumn(header []string, patterns []string) (int, bool) {
	for i, cell := range header {
		if matchesAll(cell, patterns) {
			return i, true
		}
	}
	return -1, false
}

// DetectColumns resolves column roles against a table header. Specs resolve
// in order and never share a column, so an earlier role claims a header
// cell that would also match a later one.
func DetectColumns(header []string, specs []ColumnSpec) (map[common.ColumnRole]int, error) {
	columns := make(map[common.ColumnRole]int, len(specs))
	taken := make(map[int]bool, len(specs))

	for _, spec := range specs {
		found := -1
		for i, cell := range header {
			if taken[i] {
				continue
			}
			if matchesAll(cell, spec.Patterns) {
				found = i
				break
			}
		}

		if found < 0 {
			return nil, common.NewTraceError("", common.ErrCodeColumnNotFound,
				fmt.Sprintf("no column matches %v for role %s", spec.Patterns, spec.Role), nil)
		}

		columns[spec.Role] = found
		taken[found] = true
	}

	return columns, nil
}

// matchesAll reports whether a header cell contains every pattern,
// case-insensitively
func matchesAll(cell string, patterns []string) bool {
	name := strings.ToLower(cell)
	for _, p := range patterns {
		if !strings.Contains(name, strings.ToLower(p)) {
			return false
		}
	}
	return true
}
