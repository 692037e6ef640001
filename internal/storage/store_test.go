package storage

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
)

func TestWriteTrajectoryFormat(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		0, 1.5, -2e9,
		5.02, 1e-30, 0.49,
	})

	var buf bytes.Buffer
	if err := WriteTrajectory(&buf, m); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := "0.0000000000e+00    1.5000000000e+00    -2.0000000000e+09\n" +
		"5.0200000000e+00    1.0000000000e-30    4.9000000000e-01\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestStoreSaveLoadTrajectory(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir, "")

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	m := mat.NewDense(3, 2, []float64{
		0.0, 1e9,
		0.1, 2e9,
		0.2, 3e9,
	})

	path, err := st.SaveTrajectory("concat", 7, m)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if path != filepath.Join(tmpDir, "concat_tracer7.dat") {
		t.Errorf("unexpected path %s", path)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	got, err := st.LoadTrajectory("concat", 7)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !mat.Equal(m, got) {
		t.Errorf("expected %v, got %v", mat.Formatted(m), mat.Formatted(got))
	}
}

func TestStoreTemplateSubdir(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir, "{run}/t{index}.txt")

	path, err := st.SaveTrajectory("r1", 0, mat.NewDense(1, 1, []float64{1}))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if path != filepath.Join(tmpDir, "r1", "t0.txt") {
		t.Errorf("unexpected path %s", path)
	}
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		template string
		ok       bool
	}{
		{DefaultTemplate, true},
		{"{run}/{index}.dat", true},
		{"{run}.dat", false},
		{"../{index}.dat", false},
		{"/abs/{index}.dat", false},
	}

	for _, tt := range tests {
		err := ValidateTemplate(tt.template)
		if (err == nil) != tt.ok {
			t.Errorf("template %q: ok=%v, err=%v", tt.template, tt.ok, err)
		}
	}
}

func TestStoreRunMetadata(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir, "")

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	older := &RunMetadata{Run: "a", Timestamp: time.Now().Add(-time.Hour), Tracers: 2}
	newer := &RunMetadata{
		Run:       "b",
		Timestamp: time.Now(),
		Tracers:   2,
		Skip:      1,
		Variables: []string{"temp", "rho"},
		Failed:    1,
		Records: []TracerRecord{
			{Index: 0, Mass: 1.4, Rows: 10, Path: "b_tracer0.dat"},
			{Index: 1, Mass: 1.5, Error: "tracer: i/o failure"},
		},
	}

	for _, m := range []*RunMetadata{older, newer} {
		if err := st.SaveRun(m); err != nil {
			t.Fatalf("save run failed: %v", err)
		}
	}

	meta, err := st.Load("b")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Failed != 1 || len(meta.Records) != 2 {
		t.Errorf("unexpected metadata %+v", meta)
	}

	if meta.Records[1].Error == "" {
		t.Error("expected failure record")
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	if runs[0].Run != "b" {
		t.Errorf("expected newest run first, got %s", runs[0].Run)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir(), "")
	if _, err := st.LoadTrajectory("nope", 0); err == nil {
		t.Error("expected error for missing trajectory")
	}
	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestSaveRunEncodeFailure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, "")

	err := st.SaveRun(&RunMetadata{Run: "bad", Dt: math.NaN()})
	if !errors.Is(err, tracer.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files after failed save, found %d", len(entries))
	}
}
