// Package timegrid selects time samples from a monotonically increasing
// time grid.
//
// Two search contracts are provided and never substituted for each other:
// [LowerBound] returns the insert position of a value (the first element
// not less than it) and is what subsetting uses; [NearestIndex] returns the
// element closest in value.
package timegrid

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
)

// LowerBound returns the index of the first element of grid that is >= x.
// The result equals len(grid) when x exceeds every element.
func LowerBound(grid []float64, x float64) int {
	return sort.SearchFloat64s(grid, x)
}

// NearestIndex returns the index of the element of grid closest to x. Ties
// resolve to the lower index. grid must be non-empty.
func NearestIndex(grid []float64, x float64) int {
	idx := LowerBound(grid, x)
	if idx == 0 {
		return 0
	}
	if idx == len(grid) {
		return len(grid) - 1
	}
	if math.Abs(x-grid[idx-1]) <= math.Abs(grid[idx]-x) {
		return idx - 1
	}
	return idx
}

// MaxQueryPoints bounds the length of a query grid.
const MaxQueryPoints = 1 << 24

// QueryGrid returns floor(tEnd/dt)+1 evenly spaced values from 0 to tEnd.
func QueryGrid(tEnd, dt float64) ([]float64, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, tracer.Rangef("dt must be positive, got %g", dt)
	}
	if !(tEnd >= 0) || math.IsInf(tEnd, 0) {
		return nil, tracer.Rangef("end time must be non-negative, got %g", tEnd)
	}

	ratio := tEnd / dt
	if ratio > MaxQueryPoints {
		return nil, tracer.Rangef("end time %g over dt %g needs more than %d query points", tEnd, dt, MaxQueryPoints)
	}
	n := int(ratio)
	q := make([]float64, n+1)
	if n > 0 {
		floats.Span(q, 0, tEnd)
	}
	return q, nil
}

// SubsetIndices maps the query grid 0, dt, 2dt, ..., tEnd onto grid by
// LowerBound. The result has floor(tEnd/dt)+1 entries and is non-decreasing.
// A query beyond the last grid value cannot be dereferenced and is reported
// as an out-of-range error.
func SubsetIndices(grid []float64, tEnd, dt float64) ([]int, error) {
	if len(grid) == 0 {
		return nil, tracer.Shapef("empty time grid")
	}
	// the last query is tEnd itself
	if tEnd > last(grid) {
		return nil, tracer.Rangef("end time %g beyond end of time grid (max %g)", tEnd, last(grid))
	}
	q, err := QueryGrid(tEnd, dt)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(q))
	for i, x := range q {
		j := LowerBound(grid, x)
		if j == len(grid) {
			return nil, tracer.Rangef("query time %g beyond end of time grid (max %g)", x, last(grid))
		}
		idx[i] = j
	}
	return idx, nil
}

// Select returns grid[idx[k]] for every k.
func Select(grid []float64, idx []int) ([]float64, error) {
	out := make([]float64, len(idx))
	for k, j := range idx {
		if j < 0 || j >= len(grid) {
			return nil, tracer.Rangef("index %d not in [0, %d)", j, len(grid))
		}
		out[k] = grid[j]
	}
	return out, nil
}

// SelectRows returns the rows of m at idx as a new matrix.
func SelectRows(m mat.Matrix, idx []int) (*mat.Dense, error) {
	r, c := m.Dims()
	if len(idx) == 0 {
		return nil, tracer.Shapef("no rows selected")
	}
	out := mat.NewDense(len(idx), c, nil)
	for k, j := range idx {
		if j < 0 || j >= r {
			return nil, tracer.Rangef("row %d not in [0, %d)", j, r)
		}
		for col := 0; col < c; col++ {
			out.Set(k, col, m.At(j, col))
		}
	}
	return out, nil
}

func last(grid []float64) float64 {
	if len(grid) == 0 {
		return math.NaN()
	}
	return grid[len(grid)-1]
}
