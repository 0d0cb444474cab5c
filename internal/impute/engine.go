// Package impute fills absent numeric values from group aggregates over an
// ordered list of increasingly coarse grouping keys.
package impute

import (
	"github.com/montanaflynn/stats"
)

// Provenance labels shared by every imputed column.
const (
	Original   = "original"
	Unresolved = "still_missing"
)

// Aggregate reduces the present values of one group.
type Aggregate func(stats.Float64Data) (float64, error)

// Aggregates used by the cleaning stages.
var (
	Mean   Aggregate = stats.Mean
	Median Aggregate = stats.Median
)

// Level is one grouping level. Key returns false for rows whose key is
// absent or unknown; those rows skip the level.
type Level struct {
	Name string
	Key  func(i int) (string, bool)
}

// Column gives the engine access to a vector-valued column of n rows.
// Get returns false when the row's value is absent.
type Column struct {
	Len  int
	Dims int
	Get  func(i int) ([]float64, bool)
	Set  func(i int, v []float64)
}

// Engine is a hierarchical fallback imputer.
type Engine struct {
	Levels    []Level
	Aggregate Aggregate

	// Degenerate rejects an aggregate; nil accepts every value.
	Degenerate func(float64) bool

	// Cumulative computes each level from the column state after earlier
	// levels were applied instead of from the original values.
	Cumulative bool

	// Global names the final fallback over all original values; "" disables it.
	Global string
}

// Fill imputes absent rows in place and returns the provenance of every
// row: Original, a level name, Global, or Unresolved.
func (e *Engine) Fill(col Column) []string {
	provenance := make([]string, col.Len)
	original := make([][]float64, col.Len)

	for i := range col.Len {
		if v, ok := col.Get(i); ok {
			original[i] = v
			provenance[i] = Original
		}
	}

	current := original
	if e.Cumulative {
		current = make([][]float64, col.Len)
		copy(current, original)
	}

	for _, level := range e.Levels {
		table := e.groupTable(level, current, col.Dims)

		for i := range col.Len {
			if provenance[i] != "" {
				continue
			}

			key, ok := level.Key(i)
			if !ok {
				continue
			}

			if v, ok := table[key]; ok {
				col.Set(i, v)
				provenance[i] = level.Name

				if e.Cumulative {
					current[i] = v
				}
			}
		}
	}

	e.fillGlobal(col, original, provenance)

	return provenance
}

func (e *Engine) fillGlobal(col Column, original [][]float64, provenance []string) {
	var global []float64
	if e.Global != "" {
		global = e.aggregate(original, col.Dims, false)
	}

	for i := range col.Len {
		if provenance[i] != "" {
			continue
		}

		if global == nil {
			provenance[i] = Unresolved
			continue
		}

		col.Set(i, global)
		provenance[i] = e.Global
	}
}

// groupTable aggregates present values per key. Groups whose aggregate is
// degenerate in any dimension are left out.
func (e *Engine) groupTable(level Level, values [][]float64, dims int) map[string][]float64 {
	groups := make(map[string][][]float64)
	for i, v := range values {
		if v == nil {
			continue
		}

		if key, ok := level.Key(i); ok {
			groups[key] = append(groups[key], v)
		}
	}

	table := make(map[string][]float64, len(groups))
	for key, vs := range groups {
		if agg := e.aggregate(vs, dims, true); agg != nil {
			table[key] = agg
		}
	}

	return table
}

// aggregate reduces every dimension of vs; nil when there is nothing to
// aggregate or, with checkDegenerate, when a dimension is degenerate.
func (e *Engine) aggregate(vs [][]float64, dims int, checkDegenerate bool) []float64 {
	out := make([]float64, dims)

	for d := range dims {
		data := make(stats.Float64Data, 0, len(vs))
		for _, v := range vs {
			if v != nil {
				data = append(data, v[d])
			}
		}

		agg, err := e.Aggregate(data)
		if err != nil {
			return nil
		}

		if checkDegenerate && e.Degenerate != nil && e.Degenerate(agg) {
			return nil
		}

		out[d] = agg
	}

	return out
}

// Zero is the degenerate predicate for costs that are never legitimately 0
// as a group aggregate.
func Zero(v float64) bool {
	return v == 0
}
