package monetary

import "sort"

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. values is not modified. ok is false
// for an empty input.
func Percentile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1], true
	}

	return sorted[lo] + (sorted[lo+1]-sorted[lo])*(pos-float64(lo)), true
}
