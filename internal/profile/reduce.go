package profile

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
	"github.com/san-kum/trajstitch/internal/xg"
)

// Reduced is a parsed profile flattened into a dense [time, mass] array with
// its time and mass grids.
type Reduced struct {
	Profile *mat.Dense
	Times   []float64
	Mass    []float64
}

// Reduce converts a parsed profile into dense form. Blocks are ordered by
// time, so the result does not depend on block order in the source. The
// mass grid is taken from the earliest block and every block must have the
// same number of rows.
func Reduce(p xg.Profile) (*Reduced, error) {
	if len(p) == 0 {
		return nil, tracer.Shapef("profile has no blocks")
	}

	times := p.Times()
	mass := p[times[0]].Mass()
	nMass := len(mass)

	out := mat.NewDense(len(times), nMass, nil)
	for i, t := range times {
		snap := p[t]
		if snap.Len() != nMass {
			return nil, tracer.Shapef("block at time %g has %d rows, first block has %d", t, snap.Len(), nMass)
		}
		out.SetRow(i, snap.Values())
	}

	return &Reduced{Profile: out, Times: times, Mass: mass}, nil
}
