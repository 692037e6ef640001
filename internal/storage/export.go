package storage

import (
	"encoding/json"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/timegrid"
	"github.com/san-kum/trajstitch/internal/tracer"
)

// ExportData is one joined trajectory with its run context, laid out by
// column for plotting tools.
type ExportData struct {
	Run       string               `json:"run"`
	Tracer    int                  `json:"tracer"`
	Mass      float64              `json:"mass"`
	Skip      int                  `json:"skip"`
	Samples   int                  `json:"samples"`
	Times     []float64            `json:"times"`
	Variables map[string][]float64 `json:"variables"`
}

// NewExportData names the columns of m after meta.Variables. Columns without
// a name are dropped.
func NewExportData(meta *RunMetadata, index int, m mat.Matrix) *ExportData {
	rows, cols := m.Dims()
	data := &ExportData{
		Run:       meta.Run,
		Tracer:    index,
		Skip:      meta.Skip,
		Samples:   rows,
		Times:     mat.Col(nil, 0, m),
		Variables: make(map[string][]float64, len(meta.Variables)),
	}
	for _, r := range meta.Records {
		if r.Index == index {
			data.Mass = r.Mass
			break
		}
	}
	for j, name := range meta.Variables {
		if j+1 >= cols {
			break
		}
		data.Variables[name] = mat.Col(nil, j+1, m)
	}
	return data
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return EncodeJSON(file, data)
}

func EncodeJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// NearestSample returns the row of m whose time (column 0) is closest to t.
func NearestSample(m mat.Matrix, t float64) (int, error) {
	rows, _ := m.Dims()
	if rows == 0 {
		return 0, tracer.Shapef("empty trajectory")
	}
	return timegrid.NearestIndex(mat.Col(nil, 0, m), t), nil
}
