package xg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/trajstitch/internal/tracer"
)

// HeaderToken marks the line that opens a block.
const HeaderToken = "Time"

const (
	countBufSize   = 1 << 20
	maxLineSize    = 1 << 20
	progressStride = 4096
)

// ProgressFunc receives the number of lines consumed and the total line
// count of the file.
type ProgressFunc func(done, total int)

// Parse reads an export from r. Malformed lines are reported as
// *tracer.FormatError.
func Parse(r io.Reader) (Profile, error) {
	return parse(r, "", 0, nil)
}

// ParseFile parses the export at path. When progress is non-nil the file is
// first scanned by CountLines so progress can be reported as a fraction.
func ParseFile(path string, progress ProgressFunc) (Profile, error) {
	total := 0
	if progress != nil {
		n, err := CountLines(path)
		if err != nil {
			return nil, err
		}
		total = n
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, tracer.IOError(err)
	}
	defer f.Close()

	return parse(f, path, total, progress)
}

func parse(r io.Reader, path string, total int, progress ProgressFunc) (Profile, error) {
	b := NewBuilder()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	fail := func(line int, format string, args ...any) error {
		return &tracer.FormatError{Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		fields := strings.Fields(line)

		switch {
		case strings.Contains(line, HeaderToken):
			t, err := strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil {
				return nil, fail(lineNo, "bad time value %q", fields[len(fields)-1])
			}
			if err := b.Open(t); err != nil {
				return nil, fail(lineNo, "%v", err)
			}

		case len(fields) == 2:
			mass, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fail(lineNo, "bad mass coordinate %q", fields[0])
			}
			val, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fail(lineNo, "bad value %q", fields[1])
			}
			if err := b.Add(mass, val); err != nil {
				return nil, fail(lineNo, "%v", err)
			}

		case len(fields) == 0:
			if err := b.Close(); err != nil {
				return nil, fail(lineNo, "%v", err)
			}

		default:
			return nil, fail(lineNo, "expected 2 columns, got %d", len(fields))
		}

		if progress != nil && lineNo%progressStride == 0 {
			progress(lineNo, total)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, tracer.IOError(err)
	}

	p, err := b.Profile()
	if err != nil {
		return nil, fail(lineNo, "%v", err)
	}
	if progress != nil {
		progress(lineNo, total)
	}
	return p, nil
}

// CountLines counts newline bytes in the file at path using a large read
// buffer. It is only used for progress reporting.
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, tracer.IOError(err)
	}
	defer f.Close()

	buf := make([]byte, countBufSize)
	lines := 0
	for {
		n, err := f.Read(buf)
		lines += bytes.Count(buf[:n], []byte{'\n'})
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return 0, tracer.IOError(err)
		}
	}
}
