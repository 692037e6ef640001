package profile

import (
	"io/fs"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
)

// MemStore is an in-memory Source.
type MemStore struct {
	arrays  map[string]*mat.Dense
	vectors map[string][]float64
}

func NewMemStore() *MemStore {
	return &MemStore{
		arrays:  make(map[string]*mat.Dense),
		vectors: make(map[string][]float64),
	}
}

func (s *MemStore) Put(name string, m *mat.Dense) {
	s.arrays[name] = mat.DenseCopyOf(m)
}

func (s *MemStore) PutVector(name string, v []float64) {
	s.vectors[name] = append([]float64(nil), v...)
}

// PutReduced stores a reduced profile under variable along with its grids.
func (s *MemStore) PutReduced(variable string, r *Reduced) {
	s.Put(variable, r.Profile)
	s.PutVector(TimeGridName, r.Times)
	s.PutVector(MassGridName, r.Mass)
}

func (s *MemStore) Load(name string) (*mat.Dense, error) {
	m, ok := s.arrays[name]
	if !ok {
		return nil, tracer.IOError(&fs.PathError{Op: "load", Path: name, Err: fs.ErrNotExist})
	}
	return mat.DenseCopyOf(m), nil
}

func (s *MemStore) Vector(name string) ([]float64, error) {
	v, ok := s.vectors[name]
	if !ok {
		return nil, tracer.IOError(&fs.PathError{Op: "load", Path: name, Err: fs.ErrNotExist})
	}
	return append([]float64(nil), v...), nil
}
