package pipeline

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trajstitch/internal/config"
	"github.com/san-kum/trajstitch/internal/join"
	"github.com/san-kum/trajstitch/internal/profile"
	"github.com/san-kum/trajstitch/internal/tracer"
)

var _ = Describe("export to joined trajectories", func() {
	var (
		cfg   *config.Config
		store *profile.Store
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		cfg = fixtureConfig(dir)
		cfg.Profiles.MassUnit = "g"
		Expect(writeTracers(cfg)).To(Succeed())

		export := filepath.Join(dir, "temp.xg")
		Expect(writeExport(export)).To(Succeed())

		store = profile.NewStore(cfg.Profiles.Dir)
		r, err := Ingest(store, export, "temp", Thinning{}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Times).To(Equal(fixtureTimes))
	})

	It("persists the grids next to the variable", func() {
		times, err := store.Vector(profile.TimeGridName)
		Expect(err).NotTo(HaveOccurred())
		Expect(times).To(HaveLen(len(fixtureTimes)))

		m, err := store.Load("temp")
		Expect(err).NotTo(HaveOccurred())
		r, c := m.Dims()
		Expect(r).To(Equal(len(fixtureTimes)))
		Expect(c).To(Equal(len(fixtureMass)))
	})

	It("accepts a second export on the same grids", func() {
		export := filepath.Join(GinkgoT().TempDir(), "rho.xg")
		Expect(writeExport(export)).To(Succeed())
		_, err := Ingest(profile.NewStore(cfg.Profiles.Dir), export, "rho", Thinning{}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("thins the stored grid when asked", func() {
		export := filepath.Join(GinkgoT().TempDir(), "temp.xg")
		Expect(writeExport(export)).To(Succeed())

		thinned := profile.NewStore(filepath.Join(GinkgoT().TempDir(), "thin"))
		r, err := Ingest(thinned, export, "temp", Thinning{TimeEnd: 1, Dt: 0.5}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Times).To(Equal([]float64{0, 0.5, 1}))

		m, err := thinned.Load("temp")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.At(2, 0)).To(BeNumerically("~", temp(1, 1), 1e-9))
	})

	It("reports a missing export as an i/o failure", func() {
		_, err := Ingest(store, "missing.xg", "rho", Thinning{}, nil)
		Expect(err).To(MatchError(tracer.ErrIO))
	})

	It("joins every tracer onto a monotonic clock", func() {
		d := New(cfg, store, nil, nil)
		s, err := d.Run(context.Background(), cfg.Tracers.Count, cfg.Join.Skip)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.OK()).To(BeTrue())

		for i, mass := range tracerMasses {
			m, err := d.Store().LoadTrajectory(cfg.Run, i)
			Expect(err).NotTo(HaveOccurred())
			Expect(join.CheckMonotonic(m)).To(Succeed())

			rows, _ := m.Dims()
			Expect(rows).To(Equal(len(phaseATimes) + 5 - cfg.Join.Skip))
			Expect(m.At(rows-1, 0)).To(BeNumerically("~", 3, 1e-9))
			Expect(m.At(rows-1, 1)).To(BeNumerically("~", temp(1, mass), 1e-6))
		}
	})

	It("lists the finished run", func() {
		d := New(cfg, store, nil, nil)
		_, err := d.Run(context.Background(), cfg.Tracers.Count, cfg.Join.Skip)
		Expect(err).NotTo(HaveOccurred())

		runs, err := d.Store().List()
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Run).To(Equal(cfg.Run))
		Expect(runs[0].Records).To(HaveLen(len(tracerMasses)))
	})
})
