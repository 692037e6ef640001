package tracer

import (
	"gonum.org/v1/gonum/mat"
)

// Set is a dense 3-D array indexed by [tracer, time sample, variable].
// Variable 0 is time. A Set is not mutated after construction and may be
// shared between goroutines.
type Set struct {
	nTracer, nTime, nVar int
	vars                 []string
	data                 []float64
}

// NewSet allocates a zeroed Set. vars names the columns after time and may be
// nil when the columns are anonymous (e.g. raw trajectories).
func NewSet(nTracer, nTime, nVar int, vars []string) (*Set, error) {
	if nTracer <= 0 || nTime <= 0 || nVar <= 0 {
		return nil, Shapef("set dimensions must be > 0, got [%d %d %d]", nTracer, nTime, nVar)
	}
	if vars != nil && len(vars) != nVar-1 {
		return nil, Shapef("%d variable names for %d columns after time", len(vars), nVar-1)
	}
	names := make([]string, len(vars))
	copy(names, vars)
	return &Set{
		nTracer: nTracer,
		nTime:   nTime,
		nVar:    nVar,
		vars:    names,
		data:    make([]float64, nTracer*nTime*nVar),
	}, nil
}

func (s *Set) offset(i, t, v int) int {
	return (i*s.nTime+t)*s.nVar + v
}

// Shape returns the tracer, time and variable dimensions.
func (s *Set) Shape() (nTracer, nTime, nVar int) {
	return s.nTracer, s.nTime, s.nVar
}

// Variables returns the names of columns 1..nVar-1.
func (s *Set) Variables() []string {
	out := make([]string, len(s.vars))
	copy(out, s.vars)
	return out
}

func (s *Set) At(i, t, v int) float64 {
	return s.data[s.offset(i, t, v)]
}

// set is unexported: only builders in this package and its loaders write.
func (s *Set) set(i, t, v int, x float64) {
	s.data[s.offset(i, t, v)] = x
}

// SetTracer copies a [time, variable] matrix into tracer i.
func (s *Set) SetTracer(i int, m mat.Matrix) error {
	if i < 0 || i >= s.nTracer {
		return Rangef("tracer index %d not in [0, %d)", i, s.nTracer)
	}
	r, c := m.Dims()
	if r != s.nTime || c != s.nVar {
		return Shapef("tracer %d has shape [%d %d], want [%d %d]", i, r, c, s.nTime, s.nVar)
	}
	for t := 0; t < r; t++ {
		for v := 0; v < c; v++ {
			s.set(i, t, v, m.At(t, v))
		}
	}
	return nil
}

// Tracer returns a copy of tracer i as a [time, variable] matrix.
func (s *Set) Tracer(i int) (*mat.Dense, error) {
	if i < 0 || i >= s.nTracer {
		return nil, Rangef("tracer index %d not in [0, %d)", i, s.nTracer)
	}
	start := s.offset(i, 0, 0)
	block := make([]float64, s.nTime*s.nVar)
	copy(block, s.data[start:start+len(block)])
	return mat.NewDense(s.nTime, s.nVar, block), nil
}
