// Package traj loads dataset-A tracer trajectories: one text file per
// tracer, a short header whose first line carries the tracer's mass
// coordinate, then whitespace-separated rows with time in column 0.
package traj

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
)

const (
	DefaultPrefix      = "_tracer"
	DefaultExtension   = ".dat"
	DefaultHeaderLines = 2
	DefaultMassColumn  = 3
)

// Loader locates and reads the trajectory files of one run.
type Loader struct {
	Dir         string
	Run         string
	Prefix      string
	Extension   string
	HeaderLines int
	MassColumn  int

	Log *zap.Logger
}

// NewLoader returns a Loader with the default file naming and header layout.
func NewLoader(dir, run string) *Loader {
	return &Loader{
		Dir:         dir,
		Run:         run,
		Prefix:      DefaultPrefix,
		Extension:   DefaultExtension,
		HeaderLines: DefaultHeaderLines,
		MassColumn:  DefaultMassColumn,
	}
}

func (l *Loader) logger() *zap.Logger {
	if l.Log == nil {
		return zap.NewNop()
	}
	return l.Log
}

// Path returns the trajectory file of tracer i.
func (l *Loader) Path(i int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%s%s%d%s", l.Run, l.Prefix, i, l.Extension))
}

// LoadOne reads the trajectory of tracer i as a [sample, field] matrix.
func (l *Loader) LoadOne(i int) (*mat.Dense, error) {
	path := l.Path(i)
	f, err := os.Open(path)
	if err != nil {
		return nil, tracer.IOError(err)
	}
	defer f.Close()

	m, err := ReadTable(f, l.HeaderLines)
	if err != nil {
		var fe *tracer.FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return m, nil
}

// LoadAll reads tracers 0..n-1 into one set. Every trajectory must have the
// shape of tracer 0.
func (l *Loader) LoadAll(n int) (*tracer.Set, error) {
	if n <= 0 {
		return nil, fmt.Errorf("tracer count must be positive, got %d", n)
	}

	first, err := l.LoadOne(0)
	if err != nil {
		return nil, &tracer.TracerError{Index: 0, Wrapped: err}
	}
	nTime, nVar := first.Dims()

	set, err := tracer.NewSet(n, nTime, nVar, nil)
	if err != nil {
		return nil, err
	}
	if err := set.SetTracer(0, first); err != nil {
		return nil, err
	}

	for i := 1; i < n; i++ {
		l.logger().Debug("loading tracer", zap.Int("tracer", i+1), zap.Int("of", n))
		m, err := l.LoadOne(i)
		if err != nil {
			return nil, &tracer.TracerError{Index: i, Wrapped: err}
		}
		if err := set.SetTracer(i, m); err != nil {
			return nil, &tracer.TracerError{Index: i, Wrapped: err}
		}
	}
	return set, nil
}

// MassCoordinate reads the mass coordinate from the first header line of
// tracer i.
func (l *Loader) MassCoordinate(i int) (float64, error) {
	path := l.Path(i)
	f, err := os.Open(path)
	if err != nil {
		return 0, tracer.IOError(err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return 0, &tracer.FormatError{Path: path, Line: 1, Msg: "missing header"}
	}

	fields := strings.Fields(line)
	if l.MassColumn < 0 || l.MassColumn >= len(fields) {
		return 0, &tracer.FormatError{Path: path, Line: 1, Msg: fmt.Sprintf("header has %d fields, mass is field %d", len(fields), l.MassColumn)}
	}
	v, err := strconv.ParseFloat(fields[l.MassColumn], 64)
	if err != nil {
		return 0, &tracer.FormatError{Path: path, Line: 1, Msg: fmt.Sprintf("bad mass coordinate %q", fields[l.MassColumn])}
	}
	return v, nil
}

// ExtractMassGrid returns the mass coordinates of tracers 0..n-1 in tracer
// order. The order is the tracer-to-mass association used by the rest of
// the pipeline and is never sorted.
func (l *Loader) ExtractMassGrid(n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("tracer count must be positive, got %d", n)
	}
	grid := make([]float64, n)
	for i := range grid {
		m, err := l.MassCoordinate(i)
		if err != nil {
			return nil, &tracer.TracerError{Index: i, Wrapped: err}
		}
		grid[i] = m
	}
	return grid, nil
}
