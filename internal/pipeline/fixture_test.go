package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/config"
	"github.com/san-kum/trajstitch/internal/profile"
	"github.com/san-kum/trajstitch/internal/units"
)

// Dataset B: six samples 0.25 apart on mass grid 1..3 msun with
// temp = 100*t + m. Dataset A: tracer i sits at tracerMasses[i] and runs
// from t=0 to t=2.
var (
	fixtureTimes = []float64{0, 0.25, 0.5, 0.75, 1, 1.25}
	fixtureMass  = []float64{1, 2, 3}
	tracerMasses = []float64{1.5, 2, 2.5}
	phaseATimes  = []float64{0, 1, 2}
)

const fixtureRun = "s12"

func temp(t, m float64) float64 {
	return 100*t + m
}

func fixtureConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Run = "concat"
	cfg.Workers = 2
	cfg.Profiles.Dir = filepath.Join(dir, "profiles")
	cfg.Profiles.Variables = []string{"temp"}
	cfg.Profiles.MassUnit = "msun"
	cfg.Profiles.TimeEnd = 1
	cfg.Profiles.Dt = 0.25
	cfg.Tracers.Dir = filepath.Join(dir, "traj")
	cfg.Tracers.Run = fixtureRun
	cfg.Tracers.Count = len(tracerMasses)
	cfg.Join.Skip = 1
	cfg.Output.Dir = filepath.Join(dir, "out")
	return cfg
}

func fixtureSource() *profile.MemStore {
	src := profile.NewMemStore()
	src.PutVector(profile.TimeGridName, fixtureTimes)
	src.PutVector(profile.MassGridName, fixtureMass)

	m := mat.NewDense(len(fixtureTimes), len(fixtureMass), nil)
	for i, t := range fixtureTimes {
		for j, mass := range fixtureMass {
			m.Set(i, j, temp(t, mass))
		}
	}
	src.Put("temp", m)
	return src
}

// writeTracers writes the dataset-A files for cfg. Tracer i has
// temp = 7 + i on every row.
func writeTracers(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Tracers.Dir, 0755); err != nil {
		return err
	}
	l := cfg.Loader()
	for i, mass := range tracerMasses {
		f, err := os.Create(l.Path(i))
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		fmt.Fprintf(w, "# tracer %d %.6f msun\n", i, mass)
		fmt.Fprintln(w, "# time temp")
		for _, t := range phaseATimes {
			fmt.Fprintf(w, "%g %g\n", t, float64(7+i))
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// writeExport writes the temp profile as a text export with masses in grams.
func writeExport(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, t := range fixtureTimes {
		fmt.Fprintf(w, "\"Time = %.17g\n", t)
		for _, m := range fixtureMass {
			fmt.Fprintf(w, " %.17g %.17g\n", m*units.SolarMassGrams, temp(t, m))
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
