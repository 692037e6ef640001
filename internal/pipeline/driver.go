// Package pipeline drives a concatenation run: the mapped tracer set is
// built once, then every tracer is joined and written by a bounded pool of
// workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/trajstitch/internal/assemble"
	"github.com/san-kum/trajstitch/internal/config"
	"github.com/san-kum/trajstitch/internal/join"
	"github.com/san-kum/trajstitch/internal/massmap"
	"github.com/san-kum/trajstitch/internal/metrics"
	"github.com/san-kum/trajstitch/internal/profile"
	"github.com/san-kum/trajstitch/internal/storage"
	"github.com/san-kum/trajstitch/internal/tracer"
	"github.com/san-kum/trajstitch/internal/traj"
)

type Driver struct {
	cfg     *config.Config
	src     profile.Source
	loader  *traj.Loader
	out     *storage.Store
	log     *zap.Logger
	metrics *metrics.Recorder
}

// New returns a Driver for cfg reading dataset-B arrays from src. log and
// rec may be nil.
func New(cfg *config.Config, src profile.Source, log *zap.Logger, rec *metrics.Recorder) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	loader := cfg.Loader()
	loader.Log = log
	return &Driver{
		cfg:     cfg,
		src:     src,
		loader:  loader,
		out:     storage.New(cfg.Output.Dir, cfg.Output.Template),
		log:     log,
		metrics: rec,
	}
}

func (d *Driver) Store() *storage.Store {
	return d.out
}

// Plan is a mapped set together with the tracer files it was built for:
// row k of Set belongs to tracer Indices[k] at mass Masses[k].
type Plan struct {
	Set     *tracer.Set
	Indices []int
	Masses  []float64
	// Skipped holds the tracers whose mass coordinate could not be read.
	Skipped []Failure
	// Total is the number of tracers requested.
	Total int
}

// BuildSet reads the mass coordinates of tracers 0..nTracers-1 and maps the
// configured profiles onto the readable ones. Unreadable tracers are skipped
// and reported in the plan unless the configuration asks to fail fast. Set
// is nil when no tracer could be read.
func (d *Driver) BuildSet(nTracers int) (*Plan, error) {
	if nTracers <= 0 {
		return nil, fmt.Errorf("tracer count must be positive, got %d", nTracers)
	}
	scale, err := d.cfg.MassScale()
	if err != nil {
		return nil, err
	}
	policy, err := d.cfg.Extrapolation()
	if err != nil {
		return nil, err
	}

	plan := &Plan{Total: nTracers}
	for i := 0; i < nTracers; i++ {
		mass, err := d.loader.MassCoordinate(i)
		if err != nil {
			terr := &tracer.TracerError{Index: i, Wrapped: err}
			if d.cfg.FailFast {
				return nil, terr
			}
			d.metrics.ObserveFailure(err)
			d.log.Warn("skipping tracer without mass coordinate", zap.Int("tracer", i), zap.Error(err))
			plan.Skipped = append(plan.Skipped, Failure{Index: i, Err: terr})
			continue
		}
		plan.Indices = append(plan.Indices, i)
		plan.Masses = append(plan.Masses, mass)
	}
	if len(plan.Indices) == 0 {
		d.log.Warn("no tracer mass coordinates readable", zap.Int("tracers", nTracers))
		return plan, nil
	}

	start := time.Now()
	a := assemble.New(d.src, massmap.Options{MassScale: scale, Policy: policy}, d.log)
	plan.Set, err = a.Build(d.cfg.Profiles.TimeEnd, d.cfg.Profiles.Dt, d.cfg.Profiles.Variables, plan.Masses)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	d.metrics.ObserveBuild(elapsed)
	d.log.Info("built mass tracers",
		zap.Int("tracers", len(plan.Indices)),
		zap.Int("skipped", len(plan.Skipped)),
		zap.Duration("elapsed", elapsed))
	return plan, nil
}

// Run builds the mapped set once and joins tracers 0..nTracers-1.
func (d *Driver) Run(ctx context.Context, nTracers, nSkip int) (*Summary, error) {
	plan, err := d.BuildSet(nTracers)
	if err != nil {
		return nil, err
	}
	return d.RunWithSet(ctx, plan, nSkip)
}

// RunWithSet joins and writes every tracer of plan. Per-tracer failures,
// including the tracers the plan skipped, are collected in the summary
// unless the configuration asks to fail fast, in which case the first one
// cancels the remaining work and is returned.
func (d *Driver) RunWithSet(ctx context.Context, plan *Plan, nSkip int) (*Summary, error) {
	if err := checkPlan(plan, nSkip); err != nil {
		return nil, err
	}
	if err := d.out.Init(); err != nil {
		return nil, tracer.IOError(err)
	}

	joiner := join.New(d.loader)
	joiner.Verify = d.cfg.Join.Verify
	run := d.cfg.Run
	id := uuid.New().String()
	log := d.log.With(zap.String("run_id", id))

	start := time.Now()
	records := make([]storage.TracerRecord, plan.Total)
	errs := make([]error, plan.Total)
	for i := range records {
		records[i].Index = i
	}
	for _, f := range plan.Skipped {
		errs[f.Index] = f.Err
	}

	n := len(plan.Indices)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.WorkerCount())

	for k, i := range plan.Indices {
		records[i].Mass = plan.Masses[k]
		if err := gctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			t0 := time.Now()
			rows, path, err := d.joinOne(joiner, plan.Set, run, k, i, nSkip)
			if err != nil {
				errs[i] = &tracer.TracerError{Index: i, Wrapped: err}
				d.metrics.ObserveFailure(err)
				log.Warn("tracer failed", zap.Int("tracer", i), zap.Error(err))
				if d.cfg.FailFast {
					return errs[i]
				}
				return nil
			}
			records[i].Rows = rows
			records[i].Path = path
			d.metrics.ObserveJoin(rows, time.Since(t0))

			c := done.Add(1)
			log.Info("joined tracer",
				zap.Int("tracer", i),
				zap.String("progress", fmt.Sprintf("%d of %d", c, n)),
				zap.Int("rows", rows))
			return nil
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	summary := &Summary{
		ID:      id,
		Run:     run,
		Tracers: plan.Total,
		Elapsed: time.Since(start),
		Records: records,
	}
	for i, err := range errs {
		if err != nil {
			records[i].Error = err.Error()
			summary.Failures = append(summary.Failures, Failure{Index: i, Err: err})
		} else if records[i].Path != "" {
			summary.Joined++
		}
	}

	if err := d.finish(summary, nSkip); err != nil {
		return summary, errors.Join(runErr, err)
	}
	return summary, runErr
}

func checkPlan(p *Plan, nSkip int) error {
	if p == nil {
		return fmt.Errorf("no plan to run")
	}
	switch {
	case p.Total <= 0:
		return fmt.Errorf("no tracers to join")
	case len(p.Indices) != len(p.Masses):
		return tracer.Shapef("%d tracer indices for %d masses", len(p.Indices), len(p.Masses))
	case len(p.Indices) > 0 && p.Set == nil:
		return fmt.Errorf("plan has tracers but no mapped set")
	}
	for _, f := range p.Skipped {
		if f.Index < 0 || f.Index >= p.Total {
			return tracer.Rangef("skipped tracer %d not in [0, %d)", f.Index, p.Total)
		}
	}
	for _, i := range p.Indices {
		if i < 0 || i >= p.Total {
			return tracer.Rangef("tracer %d not in [0, %d)", i, p.Total)
		}
	}
	if p.Set == nil {
		return nil
	}
	nSet, nTime, _ := p.Set.Shape()
	if len(p.Indices) > nSet {
		return tracer.Shapef("%d tracers requested, mapped set holds %d", len(p.Indices), nSet)
	}
	if nSkip < 0 || nSkip > nTime {
		return tracer.Rangef("skip %d outside [0, %d]", nSkip, nTime)
	}
	return nil
}

// joinOne joins row k of set to the trajectory file of tracer i and writes
// the result under tracer i.
func (d *Driver) joinOne(j *join.Joiner, set *tracer.Set, run string, k, i, nSkip int) (int, string, error) {
	a, err := d.loader.LoadOne(i)
	if err != nil {
		return 0, "", err
	}
	m, err := j.JoinWith(a, set, k, nSkip)
	if err != nil {
		return 0, "", err
	}
	path, err := d.out.SaveTrajectory(run, i, m)
	if err != nil {
		return 0, "", err
	}
	rows, _ := m.Dims()
	return rows, path, nil
}

func (d *Driver) finish(s *Summary, nSkip int) error {
	now := time.Now()
	meta := &storage.RunMetadata{
		ID:            s.ID,
		Run:           s.Run,
		Timestamp:     now,
		Tracers:       s.Tracers,
		Skip:          nSkip,
		TimeEnd:       d.cfg.Profiles.TimeEnd,
		Dt:            d.cfg.Profiles.Dt,
		Variables:     append([]string(nil), d.cfg.Profiles.Variables...),
		Extrapolation: d.cfg.Join.Extrapolation,
		Elapsed:       s.Elapsed.Seconds(),
		Failed:        len(s.Failures),
		Records:       s.Records,
	}
	if err := d.out.SaveRun(meta); err != nil {
		return fmt.Errorf("saving run metadata: %w", err)
	}

	d.metrics.MarkComplete(now)
	if path := d.cfg.Output.MetricsFile; path != "" {
		if err := d.metrics.WriteTextfile(path); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	d.log.Info("run complete",
		zap.String("run", s.Run),
		zap.String("run_id", s.ID),
		zap.Int("joined", s.Joined),
		zap.Int("failed", len(s.Failures)),
		zap.Duration("elapsed", s.Elapsed))
	return nil
}
