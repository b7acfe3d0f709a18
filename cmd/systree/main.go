package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/systree/internal/config"
	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/integrators"
	"github.com/san-kum/systree/internal/metrics"
	"github.com/san-kum/systree/internal/physics"
	"github.com/san-kum/systree/internal/sim"
	"github.com/san-kum/systree/internal/storage"
	"github.com/san-kum/systree/internal/telemetry"
	"github.com/san-kum/systree/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	duration   float64
	integrator string
	masses     int
	noCache    bool
	verify     bool
	logLevel   string
	paramFlags []string
	inputFlags []string
	initState  []float64
	jsonOut    string
	frameRate  int
	stepsFrame int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "systree",
		Short:        "cached system trees and incremental simulation",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".systree", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run simulation and store the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addModelFlags(runCmd)
	runCmd.Flags().BoolVar(&verify, "verify", false, "also run uncached and compare")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "export the run as JSON to this path")

	verifyCmd := &cobra.Command{
		Use:   "verify [model]",
		Short: "compare cached and uncached trajectories",
		Args:  cobra.MaximumNArgs(1),
		RunE:  verifyModel,
	}
	addModelFlags(verifyCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect [model]",
		Short: "show the system tree, its sources and cache entries",
		Args:  cobra.MaximumNArgs(1),
		RunE:  inspectModel,
	}
	addModelFlags(inspectCmd)

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run simulation with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addModelFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	liveCmd.Flags().IntVar(&stepsFrame, "steps-per-frame", 2, "integration steps per frame")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list available models and integrators",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("models: %s\n", strings.Join(physics.NewRegistry().Names(), ", "))
			fmt.Printf("integrators: %s\n", strings.Join(integrators.Names(), ", "))
		},
	}

	rootCmd.AddCommand(runCmd, verifyCmd, inspectCmd, liveCmd, listCmd, plotCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep (overrides config)")
	cmd.Flags().Float64Var(&duration, "time", 0, "duration (overrides config)")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator (overrides config)")
	cmd.Flags().IntVar(&masses, "masses", 0, "number of masses (bank)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringArrayVar(&paramFlags, "param", nil, "parameter override name=value")
	cmd.Flags().StringArrayVar(&inputFlags, "input", nil, "input port value port=value")
	cmd.Flags().Float64SliceVar(&initState, "x0", nil, "initial stacked state")
}

// resolveConfig layers defaults, config file, preset and flags, in that
// order.
func resolveConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Model = args[0]
	}
	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		p.Logging = cfg.Logging
		cfg = p
	}

	if dt > 0 {
		cfg.Dt = dt
	}
	if duration > 0 {
		cfg.Duration = duration
	}
	if integrator != "" {
		cfg.Integrator = integrator
	}
	if masses > 0 {
		cfg.Bank.Masses = masses
	}
	if noCache {
		cfg.Caching.Enabled = false
	}
	if verify {
		cfg.Caching.Verify = true
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if len(initState) > 0 {
		cfg.InitState = initState
	}
	var err error
	if cfg.Params, err = mergeAssignments(cfg.Params, paramFlags); err != nil {
		return nil, err
	}
	if cfg.Inputs, err = mergeAssignments(cfg.Inputs, inputFlags); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func mergeAssignments(dst map[string]float64, flags []string) (map[string]float64, error) {
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", f)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if dst == nil {
			dst = make(map[string]float64)
		}
		dst[name] = v
	}
	return dst, nil
}

// session is a model, its context and everything needed to run it.
type session struct {
	cfg       *config.Config
	log       zerolog.Logger
	model     physics.Model
	ctx       *framework.Context
	collector *telemetry.Collector
	prepare   sim.Prepare
	x0        framework.Vector
}

func newSession(cfg *config.Config) (*session, error) {
	log, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	model, err := physics.NewRegistry().New(cfg.Model, physics.Options{Masses: cfg.Bank.Masses})
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:       cfg,
		log:       log,
		model:     model,
		collector: telemetry.NewCollector("systree"),
	}
	s.prepare = func(ctx *framework.Context) error {
		for _, name := range sortedKeys(cfg.Params) {
			if err := model.SetParam(ctx, name, cfg.Params[name]); err != nil {
				return err
			}
		}
		for _, port := range sortedKeys(cfg.Inputs) {
			if err := physics.SetInput(ctx, port, cfg.Inputs[port]); err != nil {
				return err
			}
		}
		return nil
	}

	observer := framework.Observer(s.collector)
	if log.GetLevel() <= zerolog.TraceLevel {
		observer = telemetry.Tee(s.collector, telemetry.NewLogObserver(log))
	}
	opts := []framework.ContextOption{framework.WithLogger(log), framework.WithObserver(observer)}
	if !cfg.Caching.Enabled {
		opts = append(opts, framework.WithCachingDisabled())
	}
	s.ctx = model.AllocateContext(opts...)
	if err := s.prepare(s.ctx); err != nil {
		return nil, err
	}
	s.x0 = framework.Vector(cfg.GetInitState(len(model.StateLabels())))
	return s, nil
}

func (s *session) simConfig() sim.Config {
	return sim.Config{
		Dt:            s.cfg.Dt,
		Duration:      s.cfg.Duration,
		ValidateState: true,
		CheckContext:  s.cfg.Caching.CheckContext,
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	drift := metrics.NewEnergyDrift()
	stab := metrics.NewStability(1e6)
	result, err := sim.New(s.model, integ,
		sim.WithLogger(s.log),
		sim.WithStepObserver(metrics.Observer(drift, stab)),
	).Run(ctx, s.ctx, s.x0, s.simConfig())
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	params, err := s.model.Params(s.ctx)
	if err != nil {
		return err
	}
	spec := storage.RunSpec{
		Model:      cfg.Model,
		Integrator: cfg.Integrator,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Caching:    cfg.Caching.Enabled,
		Params:     params,
	}
	runID, err := st.Save(spec, result)
	if err != nil {
		return err
	}
	if jsonOut != "" {
		if err := storage.ExportJSONFile(jsonOut, spec, result); err != nil {
			return err
		}
	}

	totals, err := s.collector.Totals()
	if err != nil {
		return err
	}
	fmt.Printf("run: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("energy drift: %.3e (max %.3e)\n", result.EnergyDrift, drift.Value())
	if v := stab.Value(); v > 0 {
		fmt.Printf("warning: %.1f%% of steps left the stability bound\n", v*100)
	}
	fmt.Printf("cache: %d hits, %d recomputes (%.1f%% hit ratio), %d invalidations\n",
		result.Stats.Hits, result.Stats.Recomputes, totals.HitRatio()*100, result.Stats.Invalidations)

	if cfg.Caching.Verify {
		return runVerify(ctx, s)
	}
	return nil
}

func verifyModel(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return runVerify(ctx, s)
}

func runVerify(ctx context.Context, s *session) error {
	report, err := sim.Verify(ctx, s.model, s.cfg.Integrator, s.x0, s.simConfig(), s.prepare,
		framework.WithLogger(s.log))
	if err != nil {
		return err
	}
	fmt.Printf("cached:   %d hits, %d recomputes\n", report.Cached.Stats.Hits, report.Cached.Stats.Recomputes)
	fmt.Printf("uncached: %d hits, %d recomputes\n", report.Uncached.Stats.Hits, report.Uncached.Stats.Recomputes)
	if !report.Equal() {
		fmt.Println(report.Diff)
		return fmt.Errorf("cached and uncached trajectories differ")
	}
	fmt.Printf("verified: %d samples identical\n", len(report.Cached.Times))
	return nil
}

func inspectModel(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	plant, err := sim.NewPlant(s.ctx)
	if err != nil {
		return err
	}
	if err := plant.SetState(0, s.x0); err != nil {
		return err
	}
	energy, err := s.model.Energy(s.ctx)
	if err != nil {
		return err
	}

	fmt.Println(viz.RenderTree(s.ctx))
	fmt.Printf("\nenergy at x0: %.6f\n", energy)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	// The terminal belongs to the monitor.
	if cfg.Logging.Output == "stderr" || cfg.Logging.Output == "" {
		cfg.Logging.Level = "disabled"
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return err
	}
	m, err := viz.NewMonitor(s.model, s.ctx, integ, s.x0, viz.MonitorConfig{
		Dt:            cfg.Dt,
		StepsPerFrame: stepsFrame,
		FPS:           frameRate,
		Collector:     s.collector,
	})
	if err != nil {
		return err
	}
	return viz.RunMonitor(m)
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

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tDURATION\tDT\tINTEG\tCACHE\tHITS\tRECOMPUTES")

	for _, run := range runs {
		cache := "on"
		if !run.Caching {
			cache = "off"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			cache,
			run.Cache.Hits,
			run.Cache.Recomputes,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traj, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(traj.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(traj.States))

	numVars := len(traj.Labels)
	maxPlots := 6
	if numVars > maxPlots {
		numVars = maxPlots
	}

	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(traj.States))
		for i := range traj.States {
			data[i] = traj.States[i][varIdx]
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(traj.Labels[varIdx]),
		))
		fmt.Println()
	}

	fmt.Println(asciigraph.Plot(traj.Energies,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("energy"),
	))
	return nil
}
