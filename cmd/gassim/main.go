package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/gassim/internal/automation"
	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/experiment"
	"github.com/san-kum/gassim/internal/export"
	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/storage"
	"github.com/san-kum/gassim/internal/viz"
)

var (
	dataDir  string
	logLevel string

	configFile string
	preset     string
	seed       int64
	steps      int
	rate       float64
	dt         float64
	particles  int
	temp       float64
	pressure   float64
	boxX       float64
	boxY       float64
	boxZ       float64
	workers    int

	isoRatio  float64
	adRatio   float64
	legSteps  int
	cycles    int
	frameRate int

	listProcess string
	listLimit   int
	outFile     string
	rateMin     float64
	rateMax     float64
	points      int
	trials      int
)

// main registers the commands and runs the interactive menu when no
// subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:   "gassim",
		Short: "ideal gas in a box: thermodynamic processes and carnot cycles",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(snapshotter())
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gassim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [process]",
		Short: "run a thermodynamic process and store the history",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcess,
	}
	addGasFlags(runCmd)
	addRunFlags(runCmd)

	carnotCmd := &cobra.Command{
		Use:   "carnot",
		Short: "run carnot cycles and check that each one closes",
		Args:  cobra.NoArgs,
		RunE:  runCarnot,
	}
	addGasFlags(carnotCmd)
	addCarnotFlags(carnotCmd)

	liveCmd := &cobra.Command{
		Use:   "live [process]",
		Short: "watch the gas respond to a process in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addGasFlags(liveCmd)
	addRunFlags(liveCmd)
	addCarnotFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&listProcess, "process", "", "only runs of this process")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of runs")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the run catalog from the data directory",
		Args:  cobra.NoArgs,
		RunE:  reindexRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the state variables of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	pvCmd := &cobra.Command{
		Use:   "pv [run_id]",
		Short: "write the pressure-volume diagram of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  pvDiagram,
	}
	pvCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>-pv.svg)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run history to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and history to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [process]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processes := config.PresetProcesses()
			if len(args) > 0 {
				processes = args
			}
			for _, p := range processes {
				names := config.ListPresets(p)
				if len(names) == 0 {
					return fmt.Errorf("no presets for process: %s", p)
				}
				fmt.Printf("%s:\n", p)
				for _, name := range names {
					fmt.Printf("  %s\n", name)
				}
			}
			return nil
		},
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of processes",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [process]",
		Short: "run a process at evenly spaced rates",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addGasFlags(sweepCmd)
	addRunFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&rateMin, "rate-min", -0.1, "lowest rate")
	sweepCmd.Flags().Float64Var(&rateMax, "rate-max", 0.1, "highest rate")
	sweepCmd.Flags().IntVar(&points, "points", 5, "number of rates")

	montecarloCmd := &cobra.Command{
		Use:   "montecarlo [process]",
		Short: "repeat a run under many particle seeds",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	addGasFlags(montecarloCmd)
	addRunFlags(montecarloCmd)
	addCarnotFlags(montecarloCmd)
	montecarloCmd.Flags().IntVar(&trials, "trials", 20, "number of seeds")

	rootCmd.AddCommand(runCmd, carnotCmd, liveCmd, listCmd, reindexCmd, plotCmd, pvCmd, exportCmd,
		exportCSVCmd, exportJSONCmd, presetsCmd, scenarioCmd, sweepCmd, montecarloCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addGasFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (yaml or ini)")
	f.StringVar(&preset, "preset", "", "named preset for the process")
	f.Int64Var(&seed, "seed", 0, "random seed for particle placement")
	f.IntVar(&particles, "particles", gas.DefaultParticles, "number of particles")
	f.Float64Var(&temp, "temp", gas.DefaultTemperature, "initial temperature")
	f.Float64Var(&pressure, "pressure", 0, "initial pressure, used when --temp is 0")
	f.Float64Var(&boxX, "box-x", gas.DefaultHalfExtent, "box half-extent along x")
	f.Float64Var(&boxY, "box-y", gas.DefaultHalfExtent, "box half-extent along y")
	f.Float64Var(&boxZ, "box-z", gas.DefaultHalfExtent, "box half-extent along z")
	f.Float64Var(&dt, "dt", gas.DefaultDt, "particle time step")
	f.IntVar(&workers, "workers", 0, "particle update workers (0 = one per cpu)")
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	f.Float64Var(&rate, "rate", gas.DefaultRate, "absolute increment per step: energy for isochoric, volume otherwise")
}

func addCarnotFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&isoRatio, "iso-ratio", config.DefaultIsothermalRatio, "isothermal expansion ratio")
	f.Float64Var(&adRatio, "ad-ratio", config.DefaultAdiabaticRatio, "adiabatic expansion ratio")
	f.IntVar(&legSteps, "leg-steps", config.DefaultStepsPerLeg, "steps per cycle leg")
	f.IntVar(&cycles, "cycles", config.DefaultCycles, "number of cycles")
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// resolveConfig layers the defaults, a preset, a config file and the
// flags the user set explicitly, in that order.
func resolveConfig(cmd *cobra.Command, process string) (*config.Config, error) {
	process, err := config.CanonicalProcess(process)
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(process, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(process))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	cfg.Run.Process = process

	changed := cmd.Flags().Changed
	if changed("seed") {
		cfg.Run.Seed = seed
	}
	if changed("steps") {
		cfg.Run.Steps = steps
	}
	if changed("rate") {
		cfg.Run.Rate = rate
	}
	if changed("dt") {
		cfg.Run.Dt = dt
	}
	if changed("workers") {
		cfg.Run.Workers = workers
	}
	if changed("particles") {
		cfg.Gas.Particles = particles
	}
	if changed("temp") {
		cfg.Gas.Temperature = temp
	}
	if changed("pressure") {
		cfg.Gas.Pressure = pressure
		if !changed("temp") {
			cfg.Gas.Temperature = 0
		}
	}
	if changed("box-x") {
		cfg.Box.X = boxX
	}
	if changed("box-y") {
		cfg.Box.Y = boxY
	}
	if changed("box-z") {
		cfg.Box.Z = boxZ
	}
	if changed("iso-ratio") {
		cfg.Carnot.IsothermalRatio = isoRatio
	}
	if changed("ad-ratio") {
		cfg.Carnot.AdiabaticRatio = adRatio
	}
	if changed("leg-steps") {
		cfg.Carnot.StepsPerLeg = legSteps
	}
	if changed("cycles") {
		cfg.Carnot.Cycles = cycles
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	return execute(cfg)
}

func runCarnot(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, "carnot")
	if err != nil {
		return err
	}
	return execute(cfg)
}

// execute runs cfg, stores the result and prints a summary. A run that
// stops at a physical limit is stored with its partial history.
func execute(cfg *config.Config) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	exp := experiment.New(cfg, registry)
	if err := exp.Setup(registry.DefaultMetrics(cfg.Run.Process)); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s simulation...\n", cfg.Run.Process)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	meta, err := st.Save(cfg, result, runErr)
	if err != nil {
		return err
	}
	if err := catalogAdd(meta); err != nil {
		slog.Warn("catalog update failed", "run", meta.ID, "err", err)
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", meta.ID)
	fmt.Printf("steps: %s\n", humanize.Comma(int64(result.StepsTaken)))
	printThermo(result.Final)

	if len(result.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range sortedKeys(result.Metrics) {
			fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
		}
	}
	if len(result.Closures) > 0 {
		fmt.Println("\ncycles:")
		for i, c := range result.Closures {
			fmt.Printf("  %d: volume %.2e  temperature %.2e  pressure %.2e\n", i+1, c.VolumeRes, c.TempRes, c.PressureRes)
		}
	}

	if runErr != nil {
		return fmt.Errorf("stopped after %d steps: %w", result.StepsTaken, runErr)
	}
	return nil
}

func printThermo(t gas.Thermo) {
	fmt.Println("\nfinal state:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  temperature\t%.6g\n", t.Temperature)
	fmt.Fprintf(w, "  pressure\t%.6g\n", t.Pressure)
	fmt.Fprintf(w, "  energy\t%.6g\n", t.Energy)
	fmt.Fprintf(w, "  volume\t%.6g\n", t.Volume)
	w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func openCatalog() (*storage.Catalog, error) {
	if err := storage.New(dataDir).Init(); err != nil {
		return nil, err
	}
	return storage.OpenCatalog(filepath.Join(dataDir, storage.CatalogFile))
}

func catalogAdd(meta *storage.RunMetadata) error {
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()
	return cat.Add(meta)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	opts := viz.Options{Title: cfg.Run.Process, FPS: frameRate, OnSnapshot: snapshotter()}
	if cfg.IsCarnot() {
		sched, err := experiment.NewRegistry().GetSchedule(cfg, cfg.GasConfig().Box.Volume())
		if err != nil {
			return err
		}
		opts.Schedule = sched
	} else {
		p, err := gas.ParseProcess(cfg.Run.Process)
		if err != nil {
			return err
		}
		opts.Process = p
		opts.Rate = cfg.Run.Rate
	}

	m, err := viz.NewModel(viz.ConfigSource(cfg), opts)
	if err != nil {
		return err
	}
	return viz.Run(m)
}

// snapshotter writes the live canvas as SVG under the data directory.
func snapshotter() viz.SnapshotFunc {
	return func(c *viz.Canvas) (string, error) {
		dir := filepath.Join(dataDir, "snapshots")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		path := filepath.Join(dir, fmt.Sprintf("snapshot-%s.svg", time.Now().Format("20060102-150405")))
		f, err := os.Create(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		if err := export.Write(f, export.CanvasToSVG(c, 4)); err != nil {
			return "", err
		}
		return "saved " + path, nil
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	runs, err := cat.List(listProcess, listLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROCESS\tCREATED\tPARTICLES\tSTEPS\tT\tP\tV\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Failed {
			status = "halted"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.4g\t%.4g\t%.4g\t%s\n",
			run.ID,
			run.Process,
			humanize.Time(run.Created()),
			humanize.Comma(int64(run.Particles)),
			humanize.Comma(int64(run.Steps)),
			run.FinalTemperature,
			run.FinalPressure,
			run.FinalVolume,
			status,
		)
	}
	return w.Flush()
}

func reindexRuns(cmd *cobra.Command, args []string) error {
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	n, err := cat.Reindex(storage.New(dataDir))
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d runs\n", n)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("process: %s\n", meta.Process)
	fmt.Printf("samples: %d\n\n", len(records))

	for _, field := range []string{"temperature", "pressure", "energy", "volume"} {
		pick := export.Fields[field]
		data := make([]float64, len(records))
		for i, r := range records {
			data[i] = pick(r.Thermo)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(field),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func pvDiagram(cmd *cobra.Command, args []string) error {
	runID := args[0]

	records, err := storage.New(dataDir).LoadHistory(runID)
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = runID + "-pv.svg"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.Write(f, export.PVDiagramSVG(records, 800, 600)); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, nil)
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var records []gas.Record
	rec := gas.RecorderFunc(func(r gas.Record) { records = append(records, r) })
	results, runErr := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), rec)

	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("%s\n", scenario.Description)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEG\tPROCESS\tSTEPS\tT\tP\tV")
	for i, r := range results {
		if r.Result == nil {
			continue
		}
		f := r.Result.Final
		fmt.Fprintf(w, "%d\t%s\t%d\t%.4g\t%.4g\t%.4g\n", i+1, r.Leg.Process, r.Result.StepsTaken, f.Temperature, f.Pressure, f.Volume)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(records) > 1 {
		path := filepath.Join(dataDir, sanitize(scenario.Name)+"-pv.svg")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.Write(f, export.PVDiagramSVG(records, 800, 600)); err != nil {
			return err
		}
		fmt.Printf("\npv diagram: %s\n", path)
	}
	return runErr
}

func sanitize(name string) string {
	if name == "" {
		return "scenario"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sweep := &automation.RateSweep{Config: cfg, RateMin: rateMin, RateMax: rateMax, NumSteps: points, Workers: cfg.Run.Workers}
	results, err := automation.RunSweep(ctx, sweep, experiment.NewRegistry())
	if err != nil {
		return err
	}

	fmt.Printf("%s sweep, %d steps per rate\n\n", cfg.Run.Process, cfg.Run.Steps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RATE\tSTEPS\tT\tP\tV\tWORK\tSTATUS")
	for _, r := range results {
		status := "ok"
		if r.Err != "" {
			status = r.Err
		}
		fmt.Fprintf(w, "%.4g\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%s\n",
			r.Rate, r.Steps, r.Final.Temperature, r.Final.Pressure, r.Final.Volume, r.Work, status)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	mc := &automation.MonteCarloConfig{Config: cfg, NumTrials: trials, Seed: cfg.Run.Seed}
	results, err := automation.RunMonteCarlo(ctx, mc, experiment.NewRegistry())
	if err != nil {
		return err
	}

	worst := 0.0
	for _, r := range results {
		if r.Residual > worst {
			worst = r.Residual
		}
	}
	contained, escaped := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d\n", len(results))
	fmt.Printf("contained: %d\n", contained)
	fmt.Printf("escaped: %d\n", escaped)
	fmt.Printf("worst ideal gas residual: %.3e\n", worst)
	if escaped > 0 {
		return fmt.Errorf("%d trials let particles leave the box", escaped)
	}
	return nil
}
