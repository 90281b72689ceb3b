package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dpend/internal/analysis"
	"github.com/san-kum/dpend/internal/config"
	"github.com/san-kum/dpend/internal/logging"
	"github.com/san-kum/dpend/internal/metrics"
	"github.com/san-kum/dpend/internal/pendulum"
	"github.com/san-kum/dpend/internal/sim"
	"github.com/san-kum/dpend/internal/storage"
	"github.com/san-kum/dpend/internal/stream"
	"github.com/san-kum/dpend/internal/tui"
	"github.com/san-kum/dpend/internal/viz"
)

var (
	dataDir    string
	configFile string
	envFile    string
	preset     string

	dt       float64
	duration float64
	maxSteps int
	phi      float64
	psi      float64
	phiDot   float64
	psiDot   float64
	damping  float64
	gravity  float64
	length   float64

	// Live view
	frameRate int
	theme     string
	decoupled bool

	// Streaming
	redisAddr string
	channel   string
	ascii     bool

	// Phase plot axes
	xAxis    string
	yAxis    string
	poincare bool

	lyapunovTime float64
	byComponent  bool
	numRuns      int
	epsilon      float64
)

var logger = logging.NewLogger()

// stabilityThreshold is the angular speed in rad/s above which a tick
// counts as unstable. Released from rest at the default angles the links
// stay well below it.
const stabilityThreshold = 20.0

func main() {
	rootCmd := &cobra.Command{
		Use:   "dpend",
		Short: "double pendulum simulation lab",
		// With no subcommand, open the live view with the defaults.
		RunE: runLive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with DPEND_* overrides")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	addPhysicsFlags(rootCmd)
	addLiveFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addPhysicsFlags(runCmd)
	runCmd.Flags().IntVar(&maxSteps, "steps", 0, "stop after this many steps (overrides --time)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addPhysicsFlags(liveCmd)
	addLiveFlags(liveCmd)

	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "run in real time and publish every step to redis",
		Args:  cobra.NoArgs,
		RunE:  runStream,
	}
	addPhysicsFlags(streamCmd)
	addRedisFlags(streamCmd)
	streamCmd.Flags().BoolVar(&ascii, "ascii", false, "draw ascii frames while streaming")
	streamCmd.Flags().IntVar(&frameRate, "fps", 30, "ascii frame rate")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "follow a pendulum streamed by another process",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	addRedisFlags(watchCmd)
	watchCmd.Flags().IntVar(&frameRate, "fps", 30, "ascii frame rate")

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

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xAxis, "x-axis", "phi", "state component for x-axis")
	phaseCmd.Flags().StringVar(&yAxis, "y-axis", "phi_dot", "state component for y-axis")
	phaseCmd.Flags().BoolVar(&poincare, "poincare", false, "plot the section at upward phi = 0 crossings instead")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and chaos analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&lyapunovTime, "lyapunov-time", 10.0, "seconds of trajectory for the lyapunov estimate")
	analyzeCmd.Flags().BoolVar(&byComponent, "by-component", false, "repeat the estimate with the offset on each state component")

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "re-run a stored run with its recorded tick lengths",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPHI\tPSI\tDAMPING\tDT\tDURATION")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.4f\t%.4f\t%.1fs\n",
					name, p.InitState.Phi, p.InitState.Psi, p.Damping, p.Dt, p.Duration)
			}
			return w.Flush()
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the stepper",
		Args:  cobra.NoArgs,
		RunE:  benchStepper,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [damping1] [damping2] ...",
		Short: "compare damping factors on the same release",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareDamping,
	}
	addPhysicsFlags(compareCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run nearby releases side by side and report how they separate",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addPhysicsFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of trajectories")
	ensembleCmd.Flags().Float64Var(&epsilon, "epsilon", 1e-9, "phi offset between neighbouring runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "poincaré values as the release angle grows",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addPhysicsFlags(sweepCmd)

	rootCmd.AddCommand(runCmd, liveCmd, streamCmd, watchCmd, listCmd, plotCmd, phaseCmd, analyzeCmd,
		replayCmd, exportCSVCmd, exportJSONCmd, deleteCmd, presetsCmd, benchCmd, compareCmd, ensembleCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPhysicsFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&phi, "phi", config.DefaultPhi, "initial angle of the upper link")
	cmd.Flags().Float64Var(&psi, "psi", config.DefaultPsi, "initial angle of the lower link")
	cmd.Flags().Float64Var(&phiDot, "phi-dot", 0, "initial angular velocity of the upper link")
	cmd.Flags().Float64Var(&psiDot, "psi-dot", 0, "initial angular velocity of the lower link")
	cmd.Flags().Float64Var(&damping, "damping", pendulum.DefaultDamping, "velocity factor applied every step, in (0, 1]")
	cmd.Flags().Float64Var(&gravity, "gravity", pendulum.DefaultGravity, "gravitational acceleration")
	cmd.Flags().Float64Var(&length, "length", pendulum.DefaultArmLength, "link length")
}

func addLiveFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "frame rate")
	cmd.Flags().StringVar(&theme, "theme", "classic", "color theme")
	cmd.Flags().BoolVar(&decoupled, "decoupled", false, "step in a separate loop capped at max_loop_rate")
}

func addRedisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address (default from config)")
	cmd.Flags().StringVar(&channel, "channel", "", "pub/sub channel (default from config)")
}

// resolveConfig builds the effective configuration. Later sources win:
// defaults, preset, config file, environment, then explicitly set flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	floats := []struct {
		name string
		src  float64
		dst  *float64
	}{
		{"dt", dt, &cfg.Dt},
		{"time", duration, &cfg.Duration},
		{"phi", phi, &cfg.InitState.Phi},
		{"psi", psi, &cfg.InitState.Psi},
		{"phi-dot", phiDot, &cfg.InitState.PhiDot},
		{"psi-dot", psiDot, &cfg.InitState.PsiDot},
		{"damping", damping, &cfg.Damping},
		{"gravity", gravity, &cfg.Gravity},
		{"length", length, &cfg.ArmLength},
	}
	for _, f := range floats {
		if flags.Changed(f.name) {
			*f.dst = f.src
		}
	}
	if flags.Changed("fps") {
		cfg.FPS = frameRate
	}
	if redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if channel != "" {
		cfg.Redis.Channel = channel
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func presetName() string {
	if preset != "" {
		return preset
	}
	return "custom"
}

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStoreAt(cfg.DataDir)
}

func openStoreAt(dir string) (*storage.Store, error) {
	st := storage.New(dir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStoreAt(cfg.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	s := sim.New(cfg.Stepper())
	s.AddMetric(metrics.NewEnergy(cfg.Constants()))
	s.AddMetric(metrics.NewEnergyDrift(cfg.Constants()))
	s.AddMetric(metrics.NewPeakVelocity())
	s.AddMetric(metrics.NewStability(stabilityThreshold))

	ctx := logging.WithRunID(cmd.Context(), "")
	fmt.Printf("running double pendulum from phi=%.3f psi=%.3f...\n", cfg.InitState.Phi, cfg.InitState.Psi)
	start := time.Now()

	result, err := s.Run(ctx, cfg.GetInitState(), &sim.FixedClock{Dt: cfg.Dt}, sim.Config{Duration: cfg.Duration, MaxSteps: maxSteps})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunMetadata{
		Preset:    presetName(),
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		Gravity:   cfg.Gravity,
		ArmLength: cfg.ArmLength,
		Damping:   cfg.Damping,
	}, result)
	if err != nil {
		return logging.WrapError(err, "save run")
	}
	logger.Info(ctx, "run saved", "id", runID, "steps", result.StepsTaken, "elapsed", elapsed.String())

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	final := result.Final()
	fmt.Printf("final: phi=%.4f psi=%.4f phi'=%.4f psi'=%.4f\n", final.Phi, final.Psi, final.PhiDot, final.PsiDot)
	if !final.IsFinite() {
		fmt.Println("warning: state is no longer finite; try a smaller dt or stronger damping")
	}
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)

	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	opts := viz.Options{FPS: cfg.FPS, Title: "double pendulum", Theme: theme}

	if !decoupled {
		return viz.Run(viz.NewModel(cfg.Stepper(), cfg.GetInitState(), opts))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	loop := sim.NewLoop(cfg.Stepper())
	loop.MinInterval = time.Second / time.Duration(cfg.MaxLoopRate)

	errc := make(chan error, 1)
	go func() {
		_, err := loop.Run(ctx, cfg.GetInitState())
		errc <- err
	}()

	uiErr := viz.Run(viz.NewFollowModel(loop.Latest, cfg.Constants(), opts))
	cancel()
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return uiErr
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, "")

	// Only a --time given on the command line bounds the stream.
	if cmd.Flags().Changed("time") {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Duration*float64(time.Second)))
		defer cancel()
	}

	client, err := stream.NewClient(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := stream.DefaultOptions()
	opts.Channel = cfg.Redis.Channel
	opts.LatestKey = cfg.Redis.LatestKey
	pub := stream.NewPublisher(client, opts, logger)
	go pub.Run(ctx)

	loop := sim.NewLoop(cfg.Stepper())
	loop.MinInterval = time.Second / time.Duration(cfg.MaxLoopRate)
	loop.AddObserver(pub)

	if ascii {
		r := tui.NewLiveRenderer(os.Stdout, "dpend stream", frameRate)
		r.Start()
		defer r.Stop()
		loop.AddObserver(r)
	}

	logger.Info(ctx, "streaming", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel, "max_loop_rate", cfg.MaxLoopRate)
	final, err := loop.Run(ctx, cfg.GetInitState())

	stats := pub.Stats()
	logger.Info(ctx, "stream stopped",
		"published", stats.Published,
		"dropped", stats.Dropped,
		"failed", stats.Failed,
		"phi", final.Phi,
		"psi", final.Psi,
	)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := stream.NewClient(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer client.Close()

	r := tui.NewLiveRenderer(os.Stdout, "dpend watch "+cfg.Redis.Channel, frameRate)
	r.Start()
	defer r.Stop()

	err = stream.Watch(ctx, client, cfg.Redis.Channel, logger, func(m stream.Message) {
		r.OnStep(sim.Snapshot{State: m.State, Time: m.Time, Dt: m.Dt, Step: m.Step})
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tDT\tDAMPING\tSTEPS\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%.4f\t%d\t%.4f\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Damping,
			run.Steps,
			run.EnergyDrift,
		)
	}

	return w.Flush()
}

func loadRun(cmd *cobra.Command, runID string) (*storage.RunMetadata, *storage.Trajectory, error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	tr, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(tr.States) == 0 {
		return nil, nil, fmt.Errorf("run %s has no data", runID)
	}
	return meta, tr, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("damping: %.4f\n", meta.Damping)
	fmt.Printf("samples: %d\n\n", len(tr.States))

	series := []struct {
		axis    analysis.Axis
		caption string
	}{
		{analysis.AxisPhi, "phi (upper link angle)"},
		{analysis.AxisPsi, "psi (lower link angle)"},
		{analysis.AxisPhiDot, "phi' (upper link angular velocity)"},
		{analysis.AxisPsiDot, "psi' (lower link angular velocity)"},
	}

	for _, s := range series {
		data := make([]float64, len(tr.States))
		for i, x := range tr.States {
			data[i] = s.axis.Of(x)
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	energy := make([]float64, len(tr.States))
	c := pendulum.NewConstants(meta.Gravity, meta.ArmLength)
	for i, x := range tr.States {
		energy[i] = pendulum.Energy(x, c)
	}
	fmt.Println(asciigraph.Plot(energy, asciigraph.Height(8), asciigraph.Width(80), asciigraph.Caption("energy")))

	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	xa, err := analysis.ParseAxis(xAxis)
	if err != nil {
		return err
	}
	ya, err := analysis.ParseAxis(yAxis)
	if err != nil {
		return err
	}

	if poincare {
		st := pendulum.NewStepper(pendulum.NewConstants(meta.Gravity, meta.ArmLength), meta.Damping)
		section := analysis.GeneratePoincareSection(st, tr.States[0], analysis.AxisPhi, 0, xa, ya, meta.Dt, meta.Duration)
		fmt.Printf("poincaré section: %s (%s vs %s at phi = 0)\n\n", meta.ID, ya, xa)
		fmt.Print(analysis.PoincareSectionToASCII(section, 70, 25))
		return nil
	}

	portrait := analysis.PhasePortraitFromStates(tr.States, xa, ya)
	fmt.Printf("phase portrait: %s (%s vs %s)\n\n", meta.ID, ya, xa)
	fmt.Print(analysis.PhasePortraitToASCII(portrait, 70, 25))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n\n", meta.ID)

	sampleDt := meta.Dt
	if sampleDt <= 0 && len(tr.Times) > 1 {
		sampleDt = tr.Times[len(tr.Times)-1] / float64(len(tr.Times)-1)
	}

	for _, axis := range []analysis.Axis{analysis.AxisPhi, analysis.AxisPsi} {
		data := make([]float64, len(tr.States))
		for i, x := range tr.States {
			data[i] = axis.Of(x)
		}

		ps := analysis.PowerSpectrum(data)
		if len(ps) < 4 {
			return fmt.Errorf("run %s is too short for a spectrum", meta.ID)
		}
		graph := asciigraph.Plot(ps[:len(ps)/4],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", axis)),
		)
		fmt.Println(graph)

		freq := analysis.DominantFrequency(data, sampleDt)
		fmt.Printf("%s dominant frequency: %.3f hz", axis, freq)
		if freq > 0 {
			fmt.Printf(" (period %.3f s)", 1.0/freq)
		}
		fmt.Print("\n\n")
	}

	st := pendulum.NewStepper(pendulum.NewConstants(meta.Gravity, meta.ArmLength), meta.Damping)
	lambda := analysis.LyapunovExponent(st, tr.States[0], meta.Dt, lyapunovTime, 1e-8)
	fmt.Printf("largest lyapunov exponent (%.0fs): %.4f /s\n", lyapunovTime, lambda)
	if lambda > 0 {
		fmt.Println("nearby releases diverge: chaotic regime")
	} else {
		fmt.Println("nearby releases stay together")
	}

	if byComponent {
		fmt.Println()
		exps := analysis.LyapunovByComponent(st, tr.States[0], meta.Dt, lyapunovTime, 1e-8)
		for i, a := range []analysis.Axis{analysis.AxisPhi, analysis.AxisPsi, analysis.AxisPhiDot, analysis.AxisPsiDot} {
			fmt.Printf("  offset on %-8s %.4f /s\n", a.String()+":", exps[i])
		}
	}

	return nil
}

func replayRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	s := sim.New(pendulum.NewStepper(pendulum.NewConstants(meta.Gravity, meta.ArmLength), meta.Damping))
	result, err := s.Run(cmd.Context(), tr.States[0], sim.NewSequenceClock(tr.TickDts()), sim.Config{})
	if err != nil {
		return err
	}

	diverged := -1
	for i, x := range result.States {
		if i >= len(tr.States) || x != tr.States[i] {
			diverged = i
			break
		}
	}

	if diverged < 0 && len(result.States) != len(tr.States) {
		diverged = len(result.States)
	}

	fmt.Printf("replayed %d steps of %s\n", result.StepsTaken, meta.ID)
	if diverged >= 0 {
		return fmt.Errorf("replay diverged at sample %d", diverged)
	}
	fmt.Println("trajectory reproduced exactly")
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, tr, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"time", "dt", "phi", "psi", "phi_dot", "psi_dot", "phi_deg", "psi_deg"}); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for i, x := range tr.States {
		row := []string{
			format(tr.Times[i]), format(tr.Dts[i]),
			format(x.Phi), format(x.Psi), format(x.PhiDot), format(x.PsiDot),
			format(viz.Degrees(x.Phi)), format(viz.Degrees(x.Psi)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, tr)
}

func deleteRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func benchStepper(cmd *cobra.Command, args []string) error {
	st := pendulum.NewStepper(pendulum.DefaultConstants(), pendulum.DefaultDamping)
	x0 := pendulum.State{Phi: config.DefaultPhi, Psi: config.DefaultPsi}

	durations := []float64{1.0, 10.0, 100.0}
	dts := []float64{0.0001, 0.001, 0.01}

	fmt.Println("benchmarking euler stepper")
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tDT\tSTEPS\tTIME\tSTEPS/SEC")

	for _, dur := range durations {
		for _, dt := range dts {
			s := sim.New(st)
			start := time.Now()
			result, err := s.Run(cmd.Context(), x0, &sim.FixedClock{Dt: dt}, sim.Config{Duration: dur})
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			stepsPerSec := float64(result.StepsTaken) / elapsed.Seconds()
			fmt.Fprintf(w, "%.1fs\t%.4fs\t%d\t%v\t%.0f\n",
				dur, dt, result.StepsTaken, elapsed, stepsPerSec)
		}
	}

	return w.Flush()
}

func compareDamping(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	factors := make([]float64, 0, len(args))
	for _, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("damping %q: %w", a, err)
		}
		if err := pendulum.ValidateDamping(f); err != nil {
			return err
		}
		factors = append(factors, f)
	}

	fmt.Printf("comparing damping from phi=%.2f psi=%.2f over %.1fs (dt=%.4f)\n\n",
		cfg.InitState.Phi, cfg.InitState.Psi, cfg.Duration, cfg.Dt)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAMPING\tFINAL PHI\tFINAL PSI\tPEAK VEL\tENERGY\tDRIFT\tSTABILITY\tTIME")

	c := cfg.Constants()
	finals := make([][]float64, 0, len(factors))
	for _, f := range factors {
		s := sim.New(pendulum.NewStepper(c, f))
		energy := metrics.NewEnergyDrift(c)
		s.AddMetric(energy)
		s.AddMetric(metrics.NewPeakVelocity())
		s.AddMetric(metrics.NewStability(stabilityThreshold))

		start := time.Now()
		result, err := s.Run(cmd.Context(), cfg.GetInitState(), &sim.FixedClock{Dt: cfg.Dt}, sim.Config{Duration: cfg.Duration})
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		final := result.Final()
		fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%.3f\t%.4f\t%.4f\t%.3f\t%v\n",
			f, final.Phi, final.Psi,
			result.Metrics["peak_velocity"],
			pendulum.Energy(final, c),
			result.EnergyDrift,
			result.Metrics["stability"],
			elapsed,
		)

		phis := make([]float64, len(result.States))
		for i, x := range result.States {
			phis[i] = x.Phi
		}
		finals = append(finals, phis)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(asciigraph.PlotMany(finals, asciigraph.Height(12), asciigraph.Width(80), asciigraph.Caption("phi for each damping factor")))
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if numRuns < 2 {
		return fmt.Errorf("need at least 2 runs, got %d", numRuns)
	}

	e := sim.NewEnsemble(sim.New(cfg.Stepper()), numRuns, epsilon, func() sim.Clock {
		return &sim.FixedClock{Dt: cfg.Dt}
	})
	results, err := e.Run(cmd.Context(), cfg.GetInitState(), sim.Config{Duration: cfg.Duration})
	if err != nil {
		return err
	}

	n := len(results[0].States)
	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range results {
			lo = math.Min(lo, r.States[i].Phi)
			hi = math.Max(hi, r.States[i].Phi)
		}
		spread[i] = math.Log10(math.Max(hi-lo, 1e-18))
	}

	fmt.Printf("%d releases %.0e rad apart, %.1fs at dt=%.4f\n\n", numRuns, epsilon, cfg.Duration, cfg.Dt)
	fmt.Println(asciigraph.Plot(spread, asciigraph.Height(12), asciigraph.Width(80), asciigraph.Caption("log10 spread of phi")))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nRUN\tFINAL PHI\tFINAL PSI")
	for i, r := range results {
		final := r.Final()
		fmt.Fprintf(w, "%d\t%.6f\t%.6f\n", i, final.Phi, final.Psi)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	points := analysis.EnergySweep(cfg.Stepper(), 0.1, 3.0, 30, cfg.Dt, 5, cfg.Duration)

	var portrait analysis.PhasePortrait2D
	for _, p := range points {
		for _, v := range p.Values {
			portrait.Points = append(portrait.Points, analysis.Point{X: p.Phi0, Y: v})
		}
	}

	fmt.Println("psi at upward phi = 0 crossings vs release angle")
	fmt.Println()
	out := analysis.PhasePortraitToASCII(&portrait, 70, 25)
	if out == "" {
		fmt.Println("no crossings; try a longer --time or weaker damping")
		return nil
	}
	fmt.Print(out)
	return nil
}
