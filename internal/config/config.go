package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/trajstitch/internal/massmap"
	"github.com/san-kum/trajstitch/internal/storage"
	"github.com/san-kum/trajstitch/internal/traj"
	"github.com/san-kum/trajstitch/internal/units"
)

const (
	DefaultRun      = "concat_stir_snec"
	DefaultTimeEnd  = 20.0
	DefaultDt       = 0.01
	DefaultTracers  = 100
	DefaultSkip     = 1
	DefaultMassUnit = "g"
)

var DefaultVariables = []string{"temp", "rho", "radius", "ye"}

type Config struct {
	Run      string        `yaml:"run"`
	Workers  int           `yaml:"workers"`
	FailFast bool          `yaml:"fail_fast"`
	Profiles ProfileConfig `yaml:"profiles"`
	Tracers  TracerConfig  `yaml:"tracers"`
	Join     JoinConfig    `yaml:"join"`
	Output   OutputConfig  `yaml:"output"`
}

// ProfileConfig describes the dataset-B arrays and the reduced time grid.
type ProfileConfig struct {
	Dir       string   `yaml:"dir"`
	Variables []string `yaml:"variables"`
	MassUnit  string   `yaml:"mass_unit"`
	TimeEnd   float64  `yaml:"time_end"`
	Dt        float64  `yaml:"dt"`
}

// TracerConfig describes the dataset-A trajectory files.
type TracerConfig struct {
	Dir         string `yaml:"dir"`
	Run         string `yaml:"run"`
	Prefix      string `yaml:"prefix"`
	Extension   string `yaml:"extension"`
	HeaderLines int    `yaml:"header_lines"`
	MassColumn  int    `yaml:"mass_column"`
	Count       int    `yaml:"count"`
}

type JoinConfig struct {
	Skip          int    `yaml:"skip"`
	Extrapolation string `yaml:"extrapolation"`
	Verify        bool   `yaml:"verify"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Template    string `yaml:"template"`
	MetricsFile string `yaml:"metrics_file"`
}

func DefaultConfig() *Config {
	return &Config{
		Run: DefaultRun,
		Profiles: ProfileConfig{
			Dir:       "Data",
			Variables: append([]string(nil), DefaultVariables...),
			MassUnit:  DefaultMassUnit,
			TimeEnd:   DefaultTimeEnd,
			Dt:        DefaultDt,
		},
		Tracers: TracerConfig{
			Dir:         "traj",
			Prefix:      traj.DefaultPrefix,
			Extension:   traj.DefaultExtension,
			HeaderLines: traj.DefaultHeaderLines,
			MassColumn:  traj.DefaultMassColumn,
			Count:       DefaultTracers,
		},
		Join: JoinConfig{
			Skip:          DefaultSkip,
			Extrapolation: massmap.Reject.String(),
			Verify:        true,
		},
		Output: OutputConfig{
			Dir:      "concat",
			Template: storage.DefaultTemplate,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base, so keys missing from the file keep
// base's values. base is modified and returned.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, err
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting that cannot drive a run.
func (c *Config) Validate() error {
	switch {
	case c.Run == "":
		return fmt.Errorf("run name is required")
	case c.Workers < 0:
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	case len(c.Profiles.Variables) == 0:
		return fmt.Errorf("at least one profile variable is required")
	case !(c.Profiles.Dt > 0):
		return fmt.Errorf("dt must be positive, got %g", c.Profiles.Dt)
	case !(c.Profiles.TimeEnd >= 0):
		return fmt.Errorf("time_end must be non-negative, got %g", c.Profiles.TimeEnd)
	case c.Tracers.Count <= 0:
		return fmt.Errorf("tracer count must be positive, got %d", c.Tracers.Count)
	case c.Tracers.HeaderLines < 1:
		return fmt.Errorf("header_lines must be >= 1, the mass coordinate is read from the first line")
	case c.Tracers.MassColumn < 0:
		return fmt.Errorf("mass_column must be >= 0, got %d", c.Tracers.MassColumn)
	case c.Join.Skip < 0:
		return fmt.Errorf("skip must be >= 0, got %d", c.Join.Skip)
	}
	if _, err := c.MassScale(); err != nil {
		return err
	}
	if _, err := c.Extrapolation(); err != nil {
		return err
	}
	return storage.ValidateTemplate(c.Output.Template)
}

// MassScale is the factor converting dataset-B masses to solar masses.
func (c *Config) MassScale() (float64, error) {
	return units.Factor(c.Profiles.MassUnit, "msun")
}

func (c *Config) Extrapolation() (massmap.Extrapolation, error) {
	return massmap.ParseExtrapolation(c.Join.Extrapolation)
}

// WorkerCount resolves Workers, where 0 means one per CPU.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Loader returns a trajectory loader for the configured dataset-A files.
func (c *Config) Loader() *traj.Loader {
	l := traj.NewLoader(c.Tracers.Dir, c.Tracers.Run)
	l.Prefix = c.Tracers.Prefix
	l.Extension = c.Tracers.Extension
	l.HeaderLines = c.Tracers.HeaderLines
	l.MassColumn = c.Tracers.MassColumn
	return l
}
