package common

import (
	"math"
	"strconv"
	"strings"
)

// IsBlank reports whether a table cell is empty after trimming whitespace
func IsBlank(cell string) bool {
	return strings.TrimSpace(cell) == ""
}

// ParseCell parses a table cell as a float64. Blank cells parse as NaN
// rather than an error.
func ParseCell(cell string) (float64, error) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return math.NaN(), nil
	}

	return strconv.ParseFloat(trimmed, 64)
}

// FormatCell renders a float for a table cell. NaN renders as an empty
// cell, and a negative precision selects the shortest exact representation.
func FormatCell(v float64, precision int) string {
	if math.IsNaN(v) {
		return ""
	}

	if precision < 0 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	return strconv.FormatFloat(v, 'f', precision, 64)
}
