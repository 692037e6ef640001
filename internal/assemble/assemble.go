// Package assemble builds the mapped tracer set: dataset-B profiles sampled
// on a reduced time grid and interpolated onto the tracer mass grid.
package assemble

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/massmap"
	"github.com/san-kum/trajstitch/internal/profile"
	"github.com/san-kum/trajstitch/internal/timegrid"
	"github.com/san-kum/trajstitch/internal/tracer"
)

type Assembler struct {
	src  profile.Source
	opts massmap.Options
	log  *zap.Logger
}

func New(src profile.Source, opts massmap.Options, log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{src: src, opts: opts, log: log}
}

// Build maps every variable onto target at the reduced time grid selected by
// tEnd and dt. The returned set has one tracer per target mass, variable 0
// holding the reduced time grid and variables 1..N the mapped profiles in
// the order requested.
func (a *Assembler) Build(tEnd, dt float64, variables []string, target []float64) (*tracer.Set, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("no variables requested")
	}
	if len(target) == 0 {
		return nil, tracer.Shapef("empty target mass grid")
	}
	seen := make(map[string]bool, len(variables))
	for _, v := range variables {
		if v == profile.TimeGridName || v == profile.MassGridName {
			return nil, fmt.Errorf("%s is a grid, not a variable", v)
		}
		if seen[v] {
			return nil, fmt.Errorf("variable %s requested twice", v)
		}
		seen[v] = true
	}

	full, err := a.src.Vector(profile.TimeGridName)
	if err != nil {
		return nil, err
	}
	idx, err := timegrid.SubsetIndices(full, tEnd, dt)
	if err != nil {
		return nil, err
	}
	times, err := timegrid.Select(full, idx)
	if err != nil {
		return nil, err
	}
	a.log.Info("reduced time grid",
		zap.Int("native", len(full)),
		zap.Int("retained", len(idx)),
		zap.Float64("t_end", tEnd),
		zap.Float64("dt", dt))

	opts := a.opts
	opts.TimeLen = len(full)
	mapper := massmap.New(a.src, idx, opts)

	mapped := make([]*mat.Dense, len(variables))
	for j, v := range variables {
		a.log.Info("mapping profile onto tracer mass grid", zap.String("variable", v))
		m, err := mapper.Map(v, target)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", v, err)
		}
		if r, c := m.Dims(); r != len(idx) || c != len(target) {
			return nil, tracer.Shapef("%s mapped to [%d %d], want [%d %d]", v, r, c, len(idx), len(target))
		}
		mapped[j] = m
	}

	set, err := tracer.NewSet(len(target), len(idx), len(variables)+1, variables)
	if err != nil {
		return nil, err
	}

	a.log.Debug("building mass tracers from mapped profiles", zap.Int("tracers", len(target)))
	block := mat.NewDense(len(idx), len(variables)+1, nil)
	for i := range target {
		block.SetCol(0, times)
		for j, m := range mapped {
			for t := range idx {
				block.Set(t, j+1, m.At(t, i))
			}
		}
		if err := set.SetTracer(i, block); err != nil {
			return nil, err
		}
	}

	return set, nil
}
