package traj

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajstitch/internal/tracer"
)

// ReadTable reads whitespace-separated numeric rows from r after skipping
// skip lines. Blank lines are ignored; every other row must have the same
// number of columns as the first.
func ReadTable(r io.Reader, skip int) (*mat.Dense, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var data []float64
	cols, rows, lineNo := 0, 0, 0
	for sc.Scan() {
		lineNo++
		if lineNo <= skip {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if rows == 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, &tracer.FormatError{Line: lineNo, Msg: fmt.Sprintf("expected %d columns, got %d", cols, len(fields))}
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, &tracer.FormatError{Line: lineNo, Msg: fmt.Sprintf("bad number %q", f)}
			}
			data = append(data, v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, tracer.IOError(err)
	}
	if rows == 0 {
		return nil, &tracer.FormatError{Line: lineNo, Msg: "no data rows"}
	}

	return mat.NewDense(rows, cols, data), nil
}
