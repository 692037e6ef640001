package pipeline

import (
	"errors"
	"time"

	"github.com/san-kum/trajstitch/internal/storage"
)

type Failure struct {
	Index int
	Err   error
}

// Summary is the outcome of one run. Records and Failures are ordered by
// tracer index.
type Summary struct {
	ID       string
	Run      string
	Tracers  int
	Joined   int
	Failures []Failure
	Records  []storage.TracerRecord
	Elapsed  time.Duration
}

// Err joins every per-tracer failure, or returns nil when all succeeded.
func (s *Summary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(s.Failures))
	for i, f := range s.Failures {
		errs[i] = f.Err
	}
	return errors.Join(errs...)
}

func (s *Summary) OK() bool {
	return len(s.Failures) == 0
}
