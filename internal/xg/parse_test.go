package xg

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/trajstitch/internal/tracer"
	"github.com/stretchr/testify/require"
)

const sample = `"Time =   0.0000000E+00
 1.0E+33   5.0E+09
 2.0E+33   4.0E+09
 3.0E+33   3.0E+09

"Time =   1.0000000E-02
 1.0E+33   5.5E+09
 2.0E+33   4.5E+09
 3.0E+33   3.5E+09

`

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, p, 2)
	require.Equal(t, []float64{0, 0.01}, p.Times())

	snap := p[0.01]
	require.Equal(t, 3, snap.Len())
	require.Equal(t, []float64{1e33, 2e33, 3e33}, snap.Mass())
	require.Equal(t, []float64{5.5e9, 4.5e9, 3.5e9}, snap.Values())
}

func TestParseMissingTrailingBlank(t *testing.T) {
	src := strings.TrimRight(sample, "\n")
	p, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, p, 2)
	require.Equal(t, 3, p[0.01].Len())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"three columns", "Time 0.0\n1.0 2.0\n1.5 2.0 3.0\n", 3},
		{"bad value", "Time 0.0\n1.0 abc\n", 2},
		{"bad time", "Time zero\n1.0 2.0\n", 1},
		{"row outside block", "1.0 2.0\n", 1},
		{"empty block", "Time 0.0\n\nTime 1.0\n1.0 2.0\n", 2},
		{"duplicate time", "Time 0.0\n1.0 2.0\n\nTime 0.0\n1.0 2.0\n", 4},
		{"decreasing mass", "Time 0.0\n2.0 2.0\n1.0 2.0\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.ErrorIs(t, err, tracer.ErrFormat)

			var fe *tracer.FormatError
			require.True(t, errors.As(err, &fe))
			require.Equal(t, tt.line, fe.Line)
		})
	}
}

func TestParseFileProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp.xg")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	var done, total int
	p, err := ParseFile(path, func(d, n int) {
		done, total = d, n
	})
	require.NoError(t, err)
	require.Len(t, p, 2)
	require.Equal(t, 10, total)
	require.Equal(t, total, done)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.xg"), nil)
	require.ErrorIs(t, err, tracer.ErrIO)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCountLines(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"no trailing newline", "a\nb", 1},
		{"three", "a\nb\nc\n", 3},
		{"larger than buffer", strings.Repeat("x\n", countBufSize), countBufSize},
	}

	for _, tt := range tests {
		path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_"))
		require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

		n, err := CountLines(path)
		require.NoError(t, err)
		require.Equal(t, tt.want, n, tt.name)
	}
}

func TestBuilderSnapshotsAreIsolated(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Open(1))
	require.NoError(t, b.Add(1, 10))
	require.NoError(t, b.Add(2, 20))
	require.NoError(t, b.Open(2))
	require.NoError(t, b.Add(1, 30))
	require.NoError(t, b.Add(2, 40))

	p, err := b.Profile()
	require.NoError(t, err)
	require.Equal(t, []float64{10, 20}, p[1].Values())
	require.Equal(t, []float64{30, 40}, p[2].Values())

	vals := p[1].Values()
	vals[0] = -1
	require.Equal(t, []float64{10, 20}, p[1].Values())
}
