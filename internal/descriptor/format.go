package descriptor

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders f the way the capture tooling always has: the shortest
// decimal that round-trips, with a trailing ".0" for integral values and
// scientific notation outside [1e-4, 1e16).
//
//	1e6/1e6  -> "1.0"
//	433.92   -> "433.92"
//	900000   -> "900000.0"
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
