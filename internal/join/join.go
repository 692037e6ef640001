// Package join stitches a tracer's dataset-A trajectory to its mapped
// dataset-B continuation.
package join

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
)

// Source supplies dataset-A trajectories by tracer index.
type Source interface {
	LoadOne(i int) (*mat.Dense, error)
}

// Joiner is safe for concurrent use as long as its Source is.
type Joiner struct {
	src Source
	// Verify checks that the joined time column is strictly increasing.
	Verify bool
}

func New(src Source) *Joiner {
	return &Joiner{src: src, Verify: true}
}

// Join returns tracer i's dataset-A trajectory followed by its mapped
// continuation from set. The first nSkip mapped samples overlap the end of
// the A phase and are dropped; the remaining samples are shifted onto the A
// clock by the last A time.
func (j *Joiner) Join(set *tracer.Set, i, nSkip int) (*mat.Dense, error) {
	if err := checkArgs(set, i, nSkip); err != nil {
		return nil, err
	}
	a, err := j.src.LoadOne(i)
	if err != nil {
		return nil, err
	}
	return j.JoinWith(a, set, i, nSkip)
}

// JoinWith is Join with the dataset-A trajectory supplied by the caller.
func (j *Joiner) JoinWith(a *mat.Dense, set *tracer.Set, i, nSkip int) (*mat.Dense, error) {
	if err := checkArgs(set, i, nSkip); err != nil {
		return nil, err
	}
	_, nTime, nVar := set.Shape()
	nA, fields := a.Dims()
	if nA == 0 || fields != nVar {
		return nil, tracer.Shapef("tracer %d has %d fields, mapped set has %d", i, fields, nVar)
	}

	offset := a.At(nA-1, 0)
	nB := nTime - nSkip

	out := mat.NewDense(nA+nB, nVar, nil)
	for k := 0; k < nA; k++ {
		out.SetRow(k, a.RawRowView(k))
	}
	for t := 0; t < nB; t++ {
		row := nA + t
		out.Set(row, 0, set.At(i, nSkip+t, 0)+offset)
		for v := 1; v < nVar; v++ {
			out.Set(row, v, set.At(i, nSkip+t, v))
		}
	}

	if j.Verify {
		if err := CheckMonotonic(out); err != nil {
			return nil, fmt.Errorf("tracer %d (skip %d): %w", i, nSkip, err)
		}
	}
	return out, nil
}

func checkArgs(set *tracer.Set, i, nSkip int) error {
	nTracer, nTime, _ := set.Shape()
	if i < 0 || i >= nTracer {
		return tracer.Rangef("tracer %d not in mapped set of %d", i, nTracer)
	}
	if nSkip < 0 || nSkip > nTime {
		return tracer.Rangef("skip %d not in [0, %d]", nSkip, nTime)
	}
	return nil
}

// CheckMonotonic reports the first row whose time (column 0) does not
// exceed the previous row's.
func CheckMonotonic(m mat.Matrix) error {
	r, _ := m.Dims()
	for k := 1; k < r; k++ {
		if prev, cur := m.At(k-1, 0), m.At(k, 0); !(cur > prev) {
			return fmt.Errorf("%w: row %d time %g follows %g", tracer.ErrNonMonotonic, k, cur, prev)
		}
	}
	return nil
}
