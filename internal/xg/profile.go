package xg

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Snapshot is one finalized block of an export: the (mass, value) rows
// recorded at a single time. It is immutable.
type Snapshot struct {
	Time float64
	rows *mat.Dense
}

// Len returns the number of rows.
func (s Snapshot) Len() int {
	if s.rows == nil {
		return 0
	}
	r, _ := s.rows.Dims()
	return r
}

// Mass returns a copy of the mass coordinates.
func (s Snapshot) Mass() []float64 {
	return mat.Col(nil, 0, s.rows)
}

// Values returns a copy of the profile values.
func (s Snapshot) Values() []float64 {
	return mat.Col(nil, 1, s.rows)
}

// Profile maps a time value to the snapshot recorded at that time.
type Profile map[float64]Snapshot

// Times returns the profile's time keys in ascending order.
func (p Profile) Times() []float64 {
	times := make([]float64, 0, len(p))
	for t := range p {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

// Builder accumulates blocks while a file is scanned. Rows of the open block
// are buffered privately and converted to an immutable Snapshot when the
// block is closed.
type Builder struct {
	profile Profile
	open    bool
	time    float64
	rows    []float64
}

func NewBuilder() *Builder {
	return &Builder{profile: make(Profile)}
}

// Open starts a block at time t, closing any block still open.
func (b *Builder) Open(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("invalid time value %v", t)
	}
	if err := b.Close(); err != nil {
		return err
	}
	if _, dup := b.profile[t]; dup {
		return fmt.Errorf("duplicate block for time %g", t)
	}
	b.open = true
	b.time = t
	b.rows = b.rows[:0]
	return nil
}

// Add appends a row to the open block.
func (b *Builder) Add(mass, value float64) error {
	if !b.open {
		return errors.New("data row outside a Time block")
	}
	if n := len(b.rows); n > 0 && mass <= b.rows[n-2] {
		return fmt.Errorf("mass coordinate %g does not increase (previous %g)", mass, b.rows[n-2])
	}
	b.rows = append(b.rows, mass, value)
	return nil
}

// Close finalizes the open block. Closing with no open block is a no-op.
func (b *Builder) Close() error {
	if !b.open {
		return nil
	}
	b.open = false
	if len(b.rows) == 0 {
		return fmt.Errorf("block at time %g has no rows", b.time)
	}
	data := make([]float64, len(b.rows))
	copy(data, b.rows)
	b.profile[b.time] = Snapshot{Time: b.time, rows: mat.NewDense(len(data)/2, 2, data)}
	return nil
}

// Profile closes any open block and returns the accumulated profile.
func (b *Builder) Profile() (Profile, error) {
	if err := b.Close(); err != nil {
		return nil, err
	}
	return b.profile, nil
}
