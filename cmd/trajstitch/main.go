package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/trajstitch/internal/config"
	"github.com/san-kum/trajstitch/internal/logging"
	"github.com/san-kum/trajstitch/internal/metrics"
	"github.com/san-kum/trajstitch/internal/pipeline"
	"github.com/san-kum/trajstitch/internal/profile"
	"github.com/san-kum/trajstitch/internal/report"
	"github.com/san-kum/trajstitch/internal/storage"
)

var (
	configFile string
	preset     string
	verbose    bool
	log        *zap.Logger

	// join overrides
	runName       string
	nTracers      int
	nSkip         int
	timeEnd       float64
	dt            float64
	variables     []string
	extrapolation string
	workers       int
	failFast      bool
	noVerify      bool
	profilesDir   string
	tracersDir    string
	tracersRun    string
	outputDir     string
	metricsFile   string

	// ingest
	ingestVar string
	thinEnd   float64
	thinDt    float64

	// plot
	plotVar int
	plotAt  float64

	// export
	exportPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "trajstitch",
		Short:         "join tracer trajectories across two simulation codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(verbose)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&profilesDir, "profiles", "", "directory of profile arrays")
	rootCmd.PersistentFlags().StringVar(&tracersDir, "traj", "", "directory of tracer trajectories")
	rootCmd.PersistentFlags().StringVar(&tracersRun, "traj-run", "", "run name prefixing tracer files")
	rootCmd.PersistentFlags().StringVar(&outputDir, "out", "", "output directory")
	rootCmd.PersistentFlags().IntVar(&nTracers, "tracers", config.DefaultTracers, "number of tracers")

	ingestCmd := &cobra.Command{
		Use:   "ingest [export]",
		Short: "convert a profile text export to arrays",
		Args:  cobra.ExactArgs(1),
		RunE:  ingestExport,
	}
	ingestCmd.Flags().StringVar(&ingestVar, "var", "", "variable name to store the profile under")
	ingestCmd.Flags().Float64Var(&thinEnd, "thin-end", 0, "last time kept when thinning (0 = end of export)")
	ingestCmd.Flags().Float64Var(&thinDt, "thin-dt", 0, "keep one sample per interval (0 keeps all)")
	_ = ingestCmd.MarkFlagRequired("var")

	massesCmd := &cobra.Command{
		Use:   "masses",
		Short: "print the tracer mass grid",
		RunE:  printMasses,
	}

	joinCmd := &cobra.Command{
		Use:   "join",
		Short: "map profiles onto tracers and write joined trajectories",
		RunE:  runJoin,
	}
	joinCmd.Flags().StringVar(&runName, "run", "", "output run name")
	joinCmd.Flags().IntVar(&nSkip, "skip", config.DefaultSkip, "mapped samples to drop at the seam")
	joinCmd.Flags().Float64Var(&timeEnd, "time-end", config.DefaultTimeEnd, "end of the reduced time grid")
	joinCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "reduced time grid spacing")
	joinCmd.Flags().StringSliceVar(&variables, "vars", config.DefaultVariables, "profile variables to map")
	joinCmd.Flags().StringVar(&extrapolation, "extrapolation", "reject", "mass grid policy: reject, clamp, linear")
	joinCmd.Flags().IntVar(&workers, "workers", 0, "parallel joins (0 = one per cpu)")
	joinCmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failed tracer")
	joinCmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip the monotonic time check")
	joinCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run] [tracer]",
		Short: "plot a joined trajectory",
		Args:  cobra.ExactArgs(2),
		RunE:  plotTracer,
	}
	plotCmd.Flags().IntVar(&plotVar, "var", 1, "column to plot against time")
	plotCmd.Flags().Float64Var(&plotAt, "at", 0, "also print the sample nearest this time")

	exportCmd := &cobra.Command{
		Use:   "export [run] [tracer]",
		Short: "export a joined trajectory to JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  exportTracer,
	}
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the effective configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(ingestCmd, massesCmd, joinCmd, listCmd, plotCmd, exportCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, report.StatusFail.Render("error:"), err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, preset, config file and changed flags, in
// that order. Keys absent from the config file keep the preset's values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("profiles") {
		cfg.Profiles.Dir = profilesDir
	}
	if flags.Changed("traj") {
		cfg.Tracers.Dir = tracersDir
	}
	if flags.Changed("traj-run") {
		cfg.Tracers.Run = tracersRun
	}
	if flags.Changed("out") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("tracers") {
		cfg.Tracers.Count = nTracers
	}
	if flags.Lookup("run") == nil {
		return cfg, cfg.Validate()
	}

	if flags.Changed("run") {
		cfg.Run = runName
	}
	if flags.Changed("skip") {
		cfg.Join.Skip = nSkip
	}
	if flags.Changed("time-end") {
		cfg.Profiles.TimeEnd = timeEnd
	}
	if flags.Changed("dt") {
		cfg.Profiles.Dt = dt
	}
	if flags.Changed("vars") {
		cfg.Profiles.Variables = variables
	}
	if flags.Changed("extrapolation") {
		cfg.Join.Extrapolation = extrapolation
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = failFast
	}
	if flags.Changed("no-verify") {
		cfg.Join.Verify = !noVerify
	}
	if flags.Changed("metrics-file") {
		cfg.Output.MetricsFile = metricsFile
	}
	return cfg, cfg.Validate()
}

func ingestExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store := profile.NewStore(cfg.Profiles.Dir)
	r, err := pipeline.Ingest(store, args[0], ingestVar, pipeline.Thinning{TimeEnd: thinEnd, Dt: thinDt}, log)
	if err != nil {
		return err
	}

	fmt.Printf("stored %s: %d times x %d masses\n", store.Path(ingestVar), len(r.Times), len(r.Mass))
	return nil
}

func printMasses(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	loader := cfg.Loader()
	loader.Log = log
	masses, err := loader.ExtractMassGrid(cfg.Tracers.Count)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRACER\tMASS [MSUN]\tFILE")
	for i, m := range masses {
		fmt.Fprintf(w, "%d\t%.6f\t%s\n", i, m, filepath.Base(loader.Path(i)))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%s %s\n", report.Label.Render("mass by tracer:"), report.Sparkline(masses, 60))
	return nil
}

func runJoin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting run",
		zap.String("run", cfg.Run),
		zap.Int("tracers", cfg.Tracers.Count),
		zap.Int("skip", cfg.Join.Skip),
		zap.Strings("variables", cfg.Profiles.Variables),
		zap.Int("workers", cfg.WorkerCount()))

	d := pipeline.New(cfg, profile.NewStore(cfg.Profiles.Dir), log, metrics.NewRecorder())
	summary, err := d.Run(ctx, cfg.Tracers.Count, cfg.Join.Skip)
	if summary != nil {
		fmt.Println(report.Summary(summary))
	}
	if err != nil {
		return err
	}
	if !summary.OK() {
		return fmt.Errorf("%d of %d tracers failed", len(summary.Failures), summary.Tracers)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	runs, err := storage.New(cfg.Output.Dir, cfg.Output.Template).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRUN\tTIME\tTRACERS\tFAILED\tSKIP\tDT\tT_END\tVARS\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%g\t%g\t%v\t%.2fs\n",
			shortID(run.ID),
			run.Run,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Tracers,
			run.Failed,
			run.Skip,
			run.Dt,
			run.TimeEnd,
			run.Variables,
			run.Elapsed,
		)
	}

	return w.Flush()
}

func plotTracer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	run := args[0]
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid tracer index %q", args[1])
	}

	st := storage.New(cfg.Output.Dir, cfg.Output.Template)
	meta, err := st.Load(run)
	if err != nil {
		return err
	}
	m, err := st.LoadTrajectory(run, index)
	if err != nil {
		return err
	}

	rows, cols := m.Dims()
	if plotVar < 1 || plotVar >= cols {
		return fmt.Errorf("column %d out of range [1, %d]", plotVar, cols-1)
	}

	data := make([]float64, rows)
	for i := range data {
		data[i] = m.At(i, plotVar)
	}

	caption := fmt.Sprintf("column %d vs time", plotVar)
	if plotVar-1 < len(meta.Variables) {
		caption = fmt.Sprintf("%s vs time (t = %.3g .. %.3g)", meta.Variables[plotVar-1], m.At(0, 0), m.At(rows-1, 0))
	}

	fmt.Printf("run: %s\n", meta.Run)
	fmt.Printf("tracer: %d (%.6f msun)\n", index, storage.NewExportData(meta, index, m).Mass)
	fmt.Printf("samples: %d\n\n", rows)

	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)

	if cmd.Flags().Changed("at") {
		k, err := storage.NearestSample(m, plotAt)
		if err != nil {
			return err
		}
		fmt.Printf("\nnearest sample to t=%g: row %d, t=%.10e, value=%.10e\n", plotAt, k, m.At(k, 0), m.At(k, plotVar))
	}
	return nil
}

func exportTracer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	run := args[0]
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid tracer index %q", args[1])
	}

	st := storage.New(cfg.Output.Dir, cfg.Output.Template)
	meta, err := st.Load(run)
	if err != nil {
		return err
	}
	m, err := st.LoadTrajectory(run, index)
	if err != nil {
		return err
	}

	data := storage.NewExportData(meta, index, m)
	if exportPath == "" {
		return storage.EncodeJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(exportPath, data); err != nil {
		return err
	}
	fmt.Printf("exported tracer %d of %s to %s\n", index, run, exportPath)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.ListPresets()
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tRUN\tTRACERS\tSKIP\tT_END\tDT\tVARS")
	for _, name := range names {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%g\t%g\t%v\n",
			name, p.Run, p.Tracers.Count, p.Join.Skip, p.Profiles.TimeEnd, p.Profiles.Dt, p.Profiles.Variables)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
