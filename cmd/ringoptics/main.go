package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/config"
	"github.com/san-kum/ringoptics/internal/lattice"
	"github.com/san-kum/ringoptics/internal/metrics"
	"github.com/san-kum/ringoptics/internal/optics"
	"github.com/san-kum/ringoptics/internal/optim"
	"github.com/san-kum/ringoptics/internal/report"
	"github.com/san-kum/ringoptics/internal/scan"
	"github.com/san-kum/ringoptics/internal/storage"
	"github.com/san-kum/ringoptics/internal/tracking"
)

var (
	dataDir      string
	configFile   string
	format       string
	verbose      bool
	settingsName string
	strict       bool
	delta        float64
	refptsSel    string
	chrom        bool
	ddp          float64
	save         bool
	label        string
	scanFrom     float64
	scanTo       float64
	scanSteps    int
	workers      int
	saveResults  bool
	knobs        []string
	targetTune   []float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ringoptics",
		Short:         "linear optics of circular accelerator lattices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ringoptics", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&settingsName, "settings", "", "settings preset (default, strict, coarse)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "fail when the closed orbit does not converge")

	orbitCmd := &cobra.Command{
		Use:   "orbit [lattice]",
		Short: "find the closed orbit",
		Args:  cobra.ExactArgs(1),
		RunE:  runOrbit,
	}
	addPointFlags(orbitCmd)

	m44Cmd := &cobra.Command{
		Use:   "m44 [lattice]",
		Short: "compute the one-turn transfer matrix",
		Args:  cobra.ExactArgs(1),
		RunE:  runM44,
	}
	addPointFlags(m44Cmd)

	twissCmd := &cobra.Command{
		Use:   "twiss [lattice]",
		Short: "compute periodic Twiss functions, tunes and chromaticity",
		Args:  cobra.ExactArgs(1),
		RunE:  runTwiss,
	}
	addPointFlags(twissCmd)
	twissCmd.Flags().BoolVar(&chrom, "chrom", false, "compute chromaticity and dispersion")
	twissCmd.Flags().Float64Var(&ddp, "ddp", optics.DefaultDDP, "momentum step for chromaticity")
	twissCmd.Flags().BoolVar(&save, "save", false, "store the result in the data directory")
	twissCmd.Flags().StringVar(&label, "label", "", "label of the stored run")

	checkCmd := &cobra.Command{
		Use:   "check [lattice]",
		Short: "report stability, symplecticity and closed orbit residual",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	checkCmd.Flags().Float64Var(&delta, "dp", 0, "relative momentum deviation")

	scanCmd := &cobra.Command{
		Use:   "scan [lattice]",
		Short: "sweep the momentum deviation and report tunes",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().Float64Var(&scanFrom, "from", config.DefaultScanFrom, "first momentum deviation")
	scanCmd.Flags().Float64Var(&scanTo, "to", config.DefaultScanTo, "last momentum deviation")
	scanCmd.Flags().IntVar(&scanSteps, "steps", config.DefaultScanSteps, "number of points")
	scanCmd.Flags().IntVar(&workers, "workers", config.DefaultScanWorker, "concurrent workers")
	scanCmd.Flags().BoolVar(&chrom, "chrom", false, "compute chromaticity at every point")
	scanCmd.Flags().Float64Var(&ddp, "ddp", optics.DefaultDDP, "momentum step for chromaticity")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&saveResults, "save", false, "store steps that name save_as")

	matchCmd := &cobra.Command{
		Use:   "match [lattice]",
		Short: "grid search element settings for target fractional tunes",
		Args:  cobra.ExactArgs(1),
		RunE:  runMatch,
	}
	matchCmd.Flags().Float64Var(&delta, "dp", 0, "relative momentum deviation")
	matchCmd.Flags().StringArrayVar(&knobs, "knob", nil, "FAMILY.PARAM=from:to:steps (repeatable)")
	matchCmd.Flags().Float64SliceVar(&targetTune, "tune", nil, "target fractional tunes qx,qy")
	matchCmd.Flags().BoolVar(&save, "save", false, "store the optics of the best candidate")
	matchCmd.Flags().StringVar(&label, "label", "", "label of the stored run")

	elementsCmd := &cobra.Command{
		Use:   "elements [lattice]",
		Short: "list the elements of a lattice",
		Args:  cobra.ExactArgs(1),
		RunE:  runElements,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in lattices and settings presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("lattices:")
			for _, name := range lattice.PresetNames() {
				fmt.Printf("  %-10s %s\n", name, lattice.PresetDescription(name))
			}
			fmt.Println("settings:")
			for _, name := range config.ListPresets() {
				s, _ := config.GetPreset(name)
				fmt.Printf("  %-10s tol=%g max_iter=%d strict=%v\n", name, s.Tolerance, s.MaxIterations, s.StrictConvergence)
			}
			return nil
		},
	}

	rootCmd.AddCommand(orbitCmd, m44Cmd, twissCmd, checkCmd, scanCmd, batchCmd, matchCmd,
		elementsCmd, listCmd, showCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPointFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&delta, "dp", 0, "relative momentum deviation")
	cmd.Flags().StringVar(&refptsSel, "refpts", config.DefaultRefpts, "reference points (all, end, or a list like 0,3,end)")
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadSettings resolves analysis settings: config file, then preset, then flags.
func loadSettings(cmd *cobra.Command) (optics.Settings, error) {
	cfg, err := loadConfig()
	if err != nil {
		return optics.Settings{}, err
	}
	settings := cfg.Settings
	if settingsName != "" {
		s, ok := config.GetPreset(settingsName)
		if !ok {
			return optics.Settings{}, fmt.Errorf("unknown settings preset: %s (available: %v)", settingsName, config.ListPresets())
		}
		settings = s
	}
	if f := cmd.Flags().Lookup("ddp"); f != nil && f.Changed {
		settings.DDP = ddp
	}
	if strict {
		settings.StrictConvergence = true
	}
	return settings, settings.Validate()
}

type invocation struct {
	cfg      *config.Config
	settings optics.Settings
	lat      *accel.Lattice
	refpts   []int
	analyzer *optics.Analyzer
	logger   *slog.Logger
	out      report.Format
}

func prepare(cmd *cobra.Command, args []string) (*invocation, error) {
	out, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	latArg := cfg.Lattice
	if len(args) > 0 {
		latArg = args[0]
	}
	lat, err := lattice.Resolve(latArg)
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("dp"); f != nil && !f.Changed {
		delta = cfg.Delta
	}
	sel := cfg.Refpts
	if f := cmd.Flags().Lookup("refpts"); f != nil && f.Changed {
		sel = refptsSel
	}
	refpts, err := config.ParseRefpts(sel, lat.Len())
	if err != nil {
		return nil, err
	}

	logger := newLogger(os.Stderr)
	return &invocation{
		cfg:      cfg,
		settings: settings,
		lat:      lat,
		refpts:   refpts,
		analyzer: scan.TrackingFactory(logger)(settings),
		logger:   logger,
		out:      out,
	}, nil
}

func runOrbit(cmd *cobra.Command, args []string) error {
	inv, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	res, err := inv.analyzer.FindClosedOrbit(inv.lat, delta, inv.refpts)
	if err != nil {
		return err
	}
	if inv.out == report.JSON {
		return report.WriteJSON(os.Stdout, res)
	}
	report.Orbit(os.Stdout, res, inv.refpts)
	return nil
}

func runM44(cmd *cobra.Command, args []string) error {
	inv, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	res, err := inv.analyzer.FindTransferMatrix(inv.lat, delta, inv.refpts, nil)
	if err != nil {
		return err
	}
	if inv.out == report.JSON {
		return report.WriteJSON(os.Stdout, res)
	}
	report.Matrix(os.Stdout, fmt.Sprintf("one-turn matrix of %s at delta=%g", inv.lat.Name, delta), res.M44)
	for i, m := range res.AtRefpts {
		report.Matrix(os.Stdout, fmt.Sprintf("refpt %d", inv.refpts[i]), m)
	}
	return nil
}

func runTwiss(cmd *cobra.Command, args []string) error {
	inv, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("chrom") {
		chrom = inv.cfg.Chromaticity
	}
	res, err := inv.analyzer.ComputeOptics(inv.lat, delta, inv.refpts, chrom)
	if err != nil {
		return err
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.Run{
			Label:    label,
			Lattice:  inv.lat,
			Settings: inv.settings,
			Result:   res,
			Metrics:  metrics.Evaluate(res, metrics.Default()...),
		})
		if err != nil {
			return err
		}
		inv.logger.Info("saved run", slog.String("id", runID))
		fmt.Fprintf(os.Stderr, "saved: %s\n", runID)
	}

	if inv.out == report.JSON {
		return report.WriteJSON(os.Stdout, res)
	}
	report.Optics(os.Stdout, inv.lat, res)
	return nil
}

type checkResult struct {
	HalfTrace [2]float64         `json:"half_trace"`
	Stable    [2]bool            `json:"stable"`
	Residual  float64            `json:"fixed_point_residual"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	inv, err := prepare(cmd, args)
	if err != nil {
		return err
	}

	orbit, err := inv.analyzer.FindClosedOrbit(inv.lat, delta, nil)
	if err != nil {
		return err
	}
	residual, err := metrics.FixedPointResidual(tracking.New(tracking.WithLogger(inv.logger)), inv.lat, orbit.Orbit, delta)
	if err != nil {
		return err
	}
	tm, err := inv.analyzer.FindTransferMatrix(inv.lat, delta, nil, &orbit.Orbit)
	if err != nil {
		return err
	}

	out := checkResult{
		HalfTrace: metrics.HalfTrace(tm.M44),
		Stable:    metrics.Stable(tm.M44),
		Residual:  residual,
	}
	res, err := inv.analyzer.ComputeOptics(inv.lat, delta, inv.lat.AllRefpts(), false)
	switch {
	case errors.Is(err, optics.ErrUnstable):
		out.Error = err.Error()
	case err != nil:
		return err
	default:
		out.Metrics = metrics.Evaluate(res, metrics.Default()...)
	}

	if inv.out == report.JSON {
		return report.WriteJSON(os.Stdout, out)
	}
	values := map[string]float64{"fixed_point_residual": residual}
	for k, v := range out.Metrics {
		values[k] = v
	}
	report.Check(os.Stdout, values, out.HalfTrace, out.Stable)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	inv, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	sweep := scan.MomentumSweep{From: scanFrom, To: scanTo, Steps: scanSteps, Chromaticity: chrom}
	if !cmd.Flags().Changed("from") {
		sweep.From = inv.cfg.Scan.From
	}
	if !cmd.Flags().Changed("to") {
		sweep.To = inv.cfg.Scan.To
	}
	if !cmd.Flags().Changed("steps") {
		sweep.Steps = inv.cfg.Scan.Steps
	}
	if !cmd.Flags().Changed("workers") {
		workers = inv.cfg.Scan.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := scan.NewRunner(scan.TrackingFactory(inv.logger),
		scan.WithLogger(inv.logger),
		scan.WithWorkers(workers))
	points, err := runner.Sweep(ctx, inv.lat, inv.settings, sweep)
	if err != nil {
		return err
	}

	if inv.out == report.JSON {
		return report.WriteJSON(os.Stdout, points)
	}
	report.Sweep(os.Stdout, points)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	out, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	sc, err := scan.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger(os.Stderr)
	runner := scan.NewRunner(scan.TrackingFactory(logger), scan.WithLogger(logger))
	results, runErr := runner.RunScenario(ctx, sc)

	if saveResults {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		for _, r := range results {
			if r.Step.SaveAs == "" {
				continue
			}
			settings := optics.DefaultSettings()
			if s, ok := config.GetPreset(r.Step.Settings); ok {
				settings = s
			}
			runID, err := st.Save(storage.Run{
				Label:    r.Step.SaveAs,
				Lattice:  r.Lattice,
				Settings: settings,
				Result:   r.Result,
				Metrics:  metrics.Evaluate(r.Result, metrics.Default()...),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "saved %s: %s\n", r.Step.SaveAs, runID)
		}
	}

	if out == report.JSON {
		type stepOut struct {
			Lattice string               `json:"lattice"`
			SaveAs  string               `json:"save_as,omitempty"`
			Result  *optics.OpticsResult `json:"result"`
		}
		steps := make([]stepOut, len(results))
		for i, r := range results {
			steps[i] = stepOut{Lattice: r.Step.Lattice, SaveAs: r.Step.SaveAs, Result: r.Result}
		}
		if err := report.WriteJSON(os.Stdout, steps); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			report.Optics(os.Stdout, r.Lattice, r.Result)
		}
	}
	return runErr
}

func runMatch(cmd *cobra.Command, args []string) error {
	inv, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	if len(targetTune) != 2 {
		return fmt.Errorf("--tune needs two values, got %d", len(targetTune))
	}
	if len(knobs) == 0 {
		return fmt.Errorf("at least one --knob is required")
	}
	parsed := make([]optim.Knob, len(knobs))
	for i, k := range knobs {
		if parsed[i], err = optim.ParseKnob(k); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	quiet := scan.TrackingFactory(newLogger(io.Discard))(inv.settings)
	target := [2]float64{targetTune[0], targetTune[1]}
	best, err := optim.NewGridSearch(parsed...).Search(ctx, inv.lat, optim.TuneObjective(quiet, delta, target))
	if err != nil {
		return err
	}
	inv.logger.Debug("grid search done",
		slog.Int("evaluated", best.Evaluated),
		slog.Int("failed", best.Failed),
		slog.Float64("score", best.Score))

	matched := inv.lat.Clone()
	for _, k := range parsed {
		for i := range matched.Elements {
			if matched.Elements[i].FamName == k.Family {
				matched.Elements[i].SetParam(k.Param, best.Values[k.Name()])
			}
		}
	}
	res, err := inv.analyzer.ComputeOptics(matched, delta, inv.refpts, false)
	if err != nil {
		return err
	}
	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.Run{
			Label:    label,
			Lattice:  matched,
			Settings: inv.settings,
			Result:   res,
			Metrics:  metrics.Evaluate(res, metrics.Default()...),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved: %s\n", runID)
	}

	if inv.out == report.JSON {
		return report.WriteJSON(os.Stdout, best)
	}
	fmt.Printf("evaluated %d candidates (%d failed), best distance %.3e\n", best.Evaluated, best.Failed, best.Score)
	for _, k := range parsed {
		fmt.Printf("  %s = %g\n", k.Name(), best.Values[k.Name()])
	}
	report.Optics(os.Stdout, matched, res)
	return nil
}

func runElements(cmd *cobra.Command, args []string) error {
	lat, err := lattice.Resolve(args[0])
	if err != nil {
		return err
	}
	return report.Elements(os.Stdout, lat)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	return report.Runs(os.Stdout, runs)
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	records, err := st.LoadRecords(args[0])
	if err != nil {
		return err
	}
	lat, err := lattice.Load(st.LatticePath(args[0]))
	if err != nil {
		return err
	}
	report.Optics(os.Stdout, lat, &optics.OpticsResult{
		Delta:        meta.Delta,
		Records:      records,
		Tune:         meta.Tune,
		Chromaticity: meta.Chromaticity,
		Converged:    meta.Converged,
	})
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).Export(os.Stdout, args[0])
}
