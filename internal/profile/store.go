package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
)

// Names of the grid arrays shared by every variable of a dataset.
const (
	TimeGridName = "time_grid"
	MassGridName = "mass_grid"
)

// Source provides persisted profile arrays by name.
type Source interface {
	// Load returns a 2-D [time, mass] array.
	Load(name string) (*mat.Dense, error)
	// Vector returns a 1-D array such as a grid.
	Vector(name string) ([]float64, error)
}

// Store keeps one NumPy .npy file per array under a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.dir, 0755)
}

// Path returns the file backing the named array.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".npy")
}

func (s *Store) Load(name string) (*mat.Dense, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		return nil, tracer.IOError(err)
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", tracer.ErrFormat, s.Path(name), err)
	}
	return &m, nil
}

func (s *Store) Vector(name string) ([]float64, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		return nil, tracer.IOError(err)
	}
	defer f.Close()

	var v []float64
	if err := npyio.Read(f, &v); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", tracer.ErrFormat, s.Path(name), err)
	}
	return v, nil
}

func (s *Store) Save(name string, m *mat.Dense) error {
	return s.write(name, m)
}

func (s *Store) SaveVector(name string, v []float64) error {
	return s.write(name, v)
}

func (s *Store) write(name string, val any) error {
	f, err := os.Create(s.Path(name))
	if err != nil {
		return tracer.IOError(err)
	}
	if err := npyio.Write(f, val); err != nil {
		f.Close()
		return tracer.IOError(err)
	}
	return tracer.IOError(f.Close())
}

// Ingest persists a reduced profile under variable together with its grids.
// Grids already present must be identical to the profile's.
func (s *Store) Ingest(variable string, r *Reduced) error {
	if variable == TimeGridName || variable == MassGridName {
		return fmt.Errorf("variable name %q is reserved", variable)
	}
	if err := s.Init(); err != nil {
		return tracer.IOError(err)
	}

	grids := []struct {
		name string
		v    []float64
	}{
		{TimeGridName, r.Times},
		{MassGridName, r.Mass},
	}
	for _, g := range grids {
		existing, err := s.Vector(g.name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if err := s.SaveVector(g.name, g.v); err != nil {
				return err
			}
		case err != nil:
			return err
		case len(existing) != len(g.v) || !floats.Equal(existing, g.v):
			return tracer.Shapef("%s of %s differs from stored %s", g.name, variable, s.Path(g.name))
		}
	}

	return s.Save(variable, r.Profile)
}
