package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
	"github.com/san-kum/trajstitch/internal/traj"
)

// DefaultTemplate names joined trajectories the way the concatenated runs
// have always been named.
const DefaultTemplate = "{run}_tracer{index}.dat"

const (
	metaSuffix = ".meta.json"
	delimiter  = "    "
	precision  = 10
)

type Store struct {
	baseDir  string
	template string
}

func New(baseDir, template string) *Store {
	if template == "" {
		template = DefaultTemplate
	}
	return &Store{baseDir: baseDir, template: template}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// ValidateTemplate checks that a path template names each tracer uniquely.
func ValidateTemplate(template string) error {
	if !strings.Contains(template, "{index}") {
		return fmt.Errorf("output template %q must contain {index}", template)
	}
	if filepath.IsAbs(template) || strings.Contains(template, "..") {
		return fmt.Errorf("output template %q must be relative to the output directory", template)
	}
	return nil
}

// TrajectoryPath expands the template for tracer i of run.
func (s *Store) TrajectoryPath(run string, i int) string {
	name := strings.NewReplacer("{run}", run, "{index}", strconv.Itoa(i)).Replace(s.template)
	return filepath.Join(s.baseDir, name)
}

// SaveTrajectory writes tracer i of run and returns the file path. The file
// is written under a temporary name and renamed into place.
func (s *Store) SaveTrajectory(run string, i int, m mat.Matrix) (string, error) {
	path := s.TrajectoryPath(run, i)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", tracer.IOError(err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", tracer.IOError(err)
	}
	if err := WriteTrajectory(f, m); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", tracer.IOError(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", tracer.IOError(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", tracer.IOError(err)
	}
	return path, nil
}

// WriteTrajectory writes m as rows of %.10e values separated by four spaces.
func WriteTrajectory(w io.Writer, m mat.Matrix) error {
	bw := bufio.NewWriter(w)
	r, c := m.Dims()
	buf := make([]byte, 0, c*(precision+12))
	for i := 0; i < r; i++ {
		buf = buf[:0]
		for j := 0; j < c; j++ {
			if j > 0 {
				buf = append(buf, delimiter...)
			}
			buf = strconv.AppendFloat(buf, m.At(i, j), 'e', precision, 64)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadTrajectory reads back a trajectory written by SaveTrajectory.
func (s *Store) LoadTrajectory(run string, i int) (*mat.Dense, error) {
	path := s.TrajectoryPath(run, i)
	f, err := os.Open(path)
	if err != nil {
		return nil, tracer.IOError(err)
	}
	defer f.Close()

	m, err := traj.ReadTable(f, 0)
	if err != nil {
		var fe *tracer.FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return m, nil
}

// TracerRecord is the outcome of joining one tracer.
type TracerRecord struct {
	Index int     `json:"index"`
	Mass  float64 `json:"mass"`
	Rows  int     `json:"rows,omitempty"`
	Path  string  `json:"path,omitempty"`
	Error string  `json:"error,omitempty"`
}

type RunMetadata struct {
	ID            string         `json:"id"`
	Run           string         `json:"run"`
	Timestamp     time.Time      `json:"timestamp"`
	Tracers       int            `json:"tracers"`
	Skip          int            `json:"skip"`
	TimeEnd       float64        `json:"time_end"`
	Dt            float64        `json:"dt"`
	Variables     []string       `json:"variables"`
	Extrapolation string         `json:"extrapolation"`
	Elapsed       float64        `json:"elapsed_seconds"`
	Failed        int            `json:"failed"`
	Records       []TracerRecord `json:"records"`
}

func (s *Store) metaPath(run string) string {
	return filepath.Join(s.baseDir, run+metaSuffix)
}

func (s *Store) SaveRun(meta *RunMetadata) error {
	if err := s.Init(); err != nil {
		return tracer.IOError(err)
	}
	path := s.metaPath(meta.Run)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return tracer.IOError(err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return tracer.IOError(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return tracer.IOError(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return tracer.IOError(err)
	}
	return nil
}

func (s *Store) Load(run string) (*RunMetadata, error) {
	data, err := os.ReadFile(s.metaPath(run))
	if err != nil {
		return nil, tracer.IOError(err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List returns the metadata of every run in the store, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, metaSuffix) {
			continue
		}

		meta, err := s.Load(strings.TrimSuffix(name, metaSuffix))
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}
