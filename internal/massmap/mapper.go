// Package massmap interpolates dataset-B profile snapshots from their native
// mass grid onto the tracer mass grid of dataset A.
package massmap

import (
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/profile"
	"github.com/san-kum/trajstitch/internal/tracer"
	"github.com/san-kum/trajstitch/internal/units"
)

// rows per goroutine when interpolating snapshots in parallel
const minRowChunk = 16

// Options configures a Mapper.
type Options struct {
	// MassScale converts native mass coordinates into the target unit.
	// Zero means grams to solar masses.
	MassScale float64
	Policy    Extrapolation
	// TimeLen, when positive, is the required number of rows (time samples)
	// in every profile.
	TimeLen int
}

// Mapper maps variables at a fixed set of retained time indices.
type Mapper struct {
	src     profile.Source
	indices []int
	opts    Options
	native  []float64
}

// New returns a Mapper reading from src and interpolating the snapshots at
// the given time indices.
func New(src profile.Source, indices []int, opts Options) *Mapper {
	if opts.MassScale == 0 {
		opts.MassScale = units.GramToSolarMass
	}
	idx := make([]int, len(indices))
	copy(idx, indices)
	return &Mapper{src: src, indices: idx, opts: opts}
}

// NativeGrid returns the native mass grid converted to target units. It is
// loaded and validated once.
func (m *Mapper) NativeGrid() ([]float64, error) {
	if m.native != nil {
		return m.native, nil
	}

	raw, err := m.src.Vector(profile.MassGridName)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, tracer.Shapef("native mass grid needs at least 2 points, has %d", len(raw))
	}

	grid := make([]float64, len(raw))
	for i, v := range raw {
		grid[i] = v * m.opts.MassScale
		if i > 0 && !(grid[i] > grid[i-1]) {
			return nil, tracer.Shapef("native mass grid not strictly increasing at index %d", i)
		}
	}

	m.native = grid
	return grid, nil
}

// Map interpolates variable at every retained time index onto target and
// returns a [retained time, target mass] array.
func (m *Mapper) Map(variable string, target []float64) (*mat.Dense, error) {
	if len(m.indices) == 0 {
		return nil, tracer.Shapef("no time indices retained")
	}
	if len(target) == 0 {
		return nil, tracer.Shapef("empty target mass grid")
	}

	native, err := m.NativeGrid()
	if err != nil {
		return nil, err
	}
	if err := m.checkDomain(native, target); err != nil {
		return nil, err
	}

	prof, err := m.src.Load(variable)
	if err != nil {
		return nil, err
	}
	nTime, nMass := prof.Dims()
	if nMass != len(native) {
		return nil, tracer.Shapef("%s has %d mass points, native grid has %d", variable, nMass, len(native))
	}
	if m.opts.TimeLen > 0 && nTime != m.opts.TimeLen {
		return nil, tracer.Shapef("%s has %d time samples, time grid has %d", variable, nTime, m.opts.TimeLen)
	}
	for _, j := range m.indices {
		if j < 0 || j >= nTime {
			return nil, tracer.Rangef("%s: time index %d not in [0, %d)", variable, j, nTime)
		}
	}

	out := mat.NewDense(len(m.indices), len(target), nil)

	tracer.ParallelFor(len(m.indices), minRowChunk, func(start, end int) {
		row := make([]float64, nMass)
		for k := start; k < end; k++ {
			mat.Row(row, m.indices[k], prof)

			// Fit panics rather than erroring on short or unordered input;
			// NativeGrid has already checked both.
			var pl interp.PiecewiseLinear
			_ = pl.Fit(native, row)
			for j, x := range target {
				out.Set(k, j, m.eval(&pl, native, row, x))
			}
		}
	})

	return out, nil
}

func (m *Mapper) checkDomain(native, target []float64) error {
	lo, hi := native[0], native[len(native)-1]
	for i, x := range target {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return tracer.Rangef("target mass %d is %v", i, x)
		}
		if m.opts.Policy == Reject && (x < lo || x > hi) {
			return tracer.Rangef("target mass %d = %g outside native grid [%g, %g]", i, x, lo, hi)
		}
	}
	return nil
}

func (m *Mapper) eval(pl *interp.PiecewiseLinear, xs, ys []float64, x float64) float64 {
	n := len(xs)
	if m.opts.Policy == Linear {
		switch {
		case x < xs[0]:
			return ys[0] + (x-xs[0])*(ys[1]-ys[0])/(xs[1]-xs[0])
		case x > xs[n-1]:
			return ys[n-1] + (x-xs[n-1])*(ys[n-1]-ys[n-2])/(xs[n-1]-xs[n-2])
		}
	}
	// PiecewiseLinear holds the end values outside [xs[0], xs[n-1]].
	return pl.Predict(x)
}
