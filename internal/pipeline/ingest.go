package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/trajstitch/internal/profile"
	"github.com/san-kum/trajstitch/internal/timegrid"
	"github.com/san-kum/trajstitch/internal/xg"
)

// Thinning keeps only the samples a reduced time grid 0, Dt, ..., TimeEnd
// would select. The zero value keeps every sample; a zero TimeEnd runs to
// the end of the native grid.
type Thinning struct {
	TimeEnd float64
	Dt      float64
}

func (t Thinning) enabled() bool {
	return t.Dt > 0
}

// Ingest parses a text export of one variable, reduces it to a dense
// [time, mass] array and stores it with its grids.
func Ingest(store *profile.Store, path, variable string, thin Thinning, log *zap.Logger) (*profile.Reduced, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("parsing profile export", zap.String("path", path), zap.String("variable", variable))

	p, err := xg.ParseFile(path, func(done, total int) {
		log.Debug("parse progress", zap.Int("line", done), zap.Int("lines", total))
	})
	if err != nil {
		return nil, err
	}
	r, err := profile.Reduce(p)
	if err != nil {
		return nil, fmt.Errorf("reducing %s: %w", path, err)
	}
	if thin.enabled() {
		native := len(r.Times)
		if r, err = Thin(r, thin); err != nil {
			return nil, fmt.Errorf("thinning %s: %w", path, err)
		}
		log.Info("thinned time grid", zap.Int("native", native), zap.Int("kept", len(r.Times)))
	}
	if err := store.Ingest(variable, r); err != nil {
		return nil, err
	}

	log.Info("stored profile",
		zap.String("variable", variable),
		zap.Int("times", len(r.Times)),
		zap.Int("masses", len(r.Mass)),
		zap.String("path", store.Path(variable)))
	return r, nil
}

// Thin returns the distinct samples of r selected by the lower-bound subset
// of its time grid. Repeated indices collapse so the kept grid stays
// strictly increasing.
func Thin(r *profile.Reduced, thin Thinning) (*profile.Reduced, error) {
	end := thin.TimeEnd
	if end <= 0 && len(r.Times) > 0 {
		end = r.Times[len(r.Times)-1]
	}
	idx, err := timegrid.SubsetIndices(r.Times, end, thin.Dt)
	if err != nil {
		return nil, err
	}
	kept := idx[:1]
	for _, j := range idx[1:] {
		if j != kept[len(kept)-1] {
			kept = append(kept, j)
		}
	}

	times, err := timegrid.Select(r.Times, kept)
	if err != nil {
		return nil, err
	}
	rows, err := timegrid.SelectRows(r.Profile, kept)
	if err != nil {
		return nil, err
	}
	return &profile.Reduced{
		Profile: rows,
		Times:   times,
		Mass:    append([]float64(nil), r.Mass...),
	}, nil
}
