package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/simbridge/internal/config"
	"github.com/san-kum/simbridge/internal/experiment"
	"github.com/san-kum/simbridge/internal/logging"
	"github.com/san-kum/simbridge/internal/script"
	"github.com/san-kum/simbridge/internal/storage"
	"github.com/san-kum/simbridge/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	integrator string
	seed       int64
	fps        int
	paused     bool
	noiseStd   float64
	noiseRate  float64
	noiseClamp bool
	logLevel   string
	// run/exec
	duration    float64
	scriptFile  string
	exampleName string
	record      bool
	realtime    bool
	runs        int
	timeout     time.Duration
	sceneName   string
	// live
	theme string
	// plot/analyze
	columns []string
	phaseX  string
	phaseY  string
	outFile string
	// snapshot
	snapCols int
	snapRows int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "simbridge [scene]",
		Short:        "scriptable rigid-body robot viewer",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runLive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".simbridge", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level")
	addSimFlags(rootCmd)
	rootCmd.Flags().StringVar(&scriptFile, "script", "", "script file run by the s key")
	rootCmd.Flags().StringVar(&theme, "theme", "", "panel theme ("+fmt.Sprint(viz.ThemeNames())+")")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "open the terminal viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().StringVar(&scriptFile, "script", "", "script file run by the s key")
	liveCmd.Flags().StringVar(&theme, "theme", "", "panel theme")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run headless on a virtual clock",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHeadless,
	}
	addSimFlags(runCmd)
	runCmd.Flags().Float64Var(&duration, "time", 5.0, "seconds of render clock to drive")
	runCmd.Flags().StringVar(&scriptFile, "script", "", "script file to run alongside")
	runCmd.Flags().StringVar(&exampleName, "example", "", "built-in example to run alongside")
	runCmd.Flags().BoolVar(&record, "record", false, "store the trace under --data")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace frames on the wall clock")
	runCmd.Flags().IntVar(&runs, "runs", 1, "repeat over consecutive seeds")

	execCmd := &cobra.Command{
		Use:   "exec [file]",
		Short: "run a script file headless until it ends",
		Args:  cobra.ExactArgs(1),
		RunE:  execScript,
	}
	addSimFlags(execCmd)
	execCmd.Flags().StringVar(&sceneName, "scene", "", "scene to load (default from config)")
	execCmd.Flags().DurationVar(&timeout, "timeout", 0, "abort after this long (default from config)")
	execCmd.Flags().BoolVar(&record, "record", false, "store the trace under --data")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list built-in scenes, presets and examples",
		RunE:  listScenes,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded columns",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "column", nil, "columns to plot (default first six)")

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

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "dominant frequency of recorded columns",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&columns, "column", nil, "columns to analyze (default all)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of two recorded columns",
		Args:  cobra.ExactArgs(1),
		RunE:  phaseRun,
	}
	phaseCmd.Flags().StringVar(&phaseX, "x", "q0", "horizontal column")
	phaseCmd.Flags().StringVar(&phaseY, "y", "v0", "vertical column")
	phaseCmd.Flags().StringVar(&outFile, "svg", "", "write SVG instead of printing")
	phaseCmd.Flags().StringVar(&theme, "theme", "", "stroke theme")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [scene]",
		Short: "drive a scene headless and save the last frame as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  snapshotScene,
	}
	addSimFlags(snapshotCmd)
	snapshotCmd.Flags().Float64Var(&duration, "time", 1.0, "seconds of render clock to drive")
	snapshotCmd.Flags().StringVar(&scriptFile, "script", "", "script file to run alongside")
	snapshotCmd.Flags().StringVar(&exampleName, "example", "", "built-in example to run alongside")
	snapshotCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	snapshotCmd.Flags().IntVar(&snapCols, "cols", 120, "canvas width in cells")
	snapshotCmd.Flags().IntVar(&snapRows, "rows", 40, "canvas height in cells")
	snapshotCmd.Flags().StringVar(&theme, "theme", "", "dot theme")

	rootCmd.AddCommand(liveCmd, runCmd, execCmd, scenesCmd, listCmd, plotCmd, analyzeCmd, phaseCmd, snapshotCmd, exportCSVCmd, exportJSONCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "scene preset")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	cmd.Flags().Int64Var(&seed, "seed", 0, "noise seed (0 picks one from the clock)")
	cmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "render callbacks per second")
	cmd.Flags().BoolVar(&paused, "paused", false, "start paused")
	cmd.Flags().Float64Var(&noiseStd, "noise-std", 0, "control noise deviation")
	cmd.Flags().Float64Var(&noiseRate, "noise-rate", 0, "control noise correlation time (s)")
	cmd.Flags().BoolVar(&noiseClamp, "noise-clamp", false, "clamp noisy controls to actuator ranges")
}

// resolveConfig layers defaults, preset, config file and changed flags,
// in that order.
func resolveConfig(cmd *cobra.Command, scene string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if scene != "" {
		cfg.Scene = scene
	}
	if cmd.Flags().Changed("preset") {
		p := config.GetPreset(cfg.Scene, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Scene))
		}
		p.Seed, p.Log, p.Script = cfg.Seed, cfg.Log, cfg.Script
		cfg = p
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("paused") {
		cfg.Paused = paused
	}
	if flags.Changed("noise-std") {
		cfg.Noise.Std = noiseStd
	}
	if flags.Changed("noise-rate") {
		cfg.Noise.Rate = noiseRate
	}
	if flags.Changed("noise-clamp") {
		cfg.Noise.ClampToRange = noiseClamp
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, cfg.Validate()
}

func sceneArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, sceneArg(args))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = filepath.Join(dataDir, "simbridge.log")
	}
	log, closer, err := logging.ToFile(cfg.Log.Level, logPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	graph := viz.NewGraph()
	exp, err := experiment.New(cfg, experiment.Options{Proxies: graph.Proxies, Log: log})
	if err != nil {
		return err
	}
	exp.Table().PrintInfo()

	m := viz.NewModel(viz.Options{
		Session: exp.Session(),
		Graph:   graph,
		Table:   exp.Table(),
		Runner:  exp.Runner(),
		Output:  exp.Output(),
		Scenes:  config.SceneOrder(),
		Script:  scriptFile,
		FPS:     cfg.FPS,
		Theme:   theme,
		Log:     log,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	exp.Runner().Stop()
	return nil
}

func stderrLogger(level string) (*logrus.Logger, error) {
	return logging.New(level, os.Stderr)
}

func headlessScript() (string, string, error) {
	switch {
	case scriptFile != "" && exampleName != "":
		return "", "", errors.New("use either --script or --example")
	case scriptFile != "":
		data, err := os.ReadFile(scriptFile)
		if err != nil {
			return "", "", err
		}
		return filepath.Base(scriptFile), string(data), nil
	case exampleName != "":
		code, ok := script.Examples[exampleName]
		if !ok {
			return "", "", fmt.Errorf("unknown example: %s (available: %v)", exampleName, script.ExampleNames())
		}
		return exampleName, code, nil
	}
	return "", "", nil
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, sceneArg(args))
	if err != nil {
		return err
	}
	log, err := stderrLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	name, code, err := headlessScript()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rc := experiment.RunConfig{Duration: duration, Script: name, Code: code, Realtime: realtime}
	opts := experiment.Options{Tee: os.Stdout, Log: log, Record: record, Registry: experiment.NewRegistry()}

	var exps []*experiment.Experiment
	var results []*experiment.Result
	if runs > 1 {
		exps, results, err = experiment.NewEnsemble(cfg, opts, runs).Run(ctx, rc)
	} else {
		var exp *experiment.Experiment
		exp, err = experiment.New(cfg, opts)
		if err != nil {
			return err
		}
		var res *experiment.Result
		res, err = exp.Run(ctx, rc)
		exps, results = []*experiment.Experiment{exp}, []*experiment.Result{res}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	st := storage.New(dataDir)
	for i, exp := range exps {
		if exp == nil || results[i] == nil {
			continue
		}
		printResult(os.Stdout, exp, results[i])
		if record {
			id, err := exp.Save(st, name)
			if err != nil {
				return err
			}
			fmt.Printf("saved run: %s\n", id)
		}
	}
	return nil
}

func execScript(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, sceneName)
	if err != nil {
		return err
	}
	log, err := stderrLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	limit := cfg.Script.Timeout
	if cmd.Flags().Changed("timeout") {
		limit = timeout
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	exp, err := experiment.New(cfg, experiment.Options{Tee: os.Stdout, Log: log, Record: record})
	if err != nil {
		return err
	}
	name := filepath.Base(args[0])
	res, runErr := exp.Run(ctx, experiment.RunConfig{Script: name, Code: string(data), Realtime: true})
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	if record {
		id, err := exp.Save(storage.New(dataDir), name)
		if err != nil {
			return err
		}
		fmt.Printf("saved run: %s\n", id)
	}
	if res != nil && res.Fault != nil {
		return res.Fault
	}
	if errors.Is(runErr, context.DeadlineExceeded) {
		return fmt.Errorf("%s: timed out after %s", name, limit)
	}
	return nil
}

func printResult(w io.Writer, exp *experiment.Experiment, res *experiment.Result) {
	fmt.Fprintf(w, "scene: %s  seed: %d\n", exp.Config().Scene, exp.Config().Seed)
	fmt.Fprintf(w, "frames: %d  steps: %d  snaps: %d  time: %.3fs\n", res.Frames, res.Steps, res.Snaps, res.Time)
	values := exp.Metrics().Values()
	for _, k := range values.Keys() {
		v, _ := values.Get(k)
		fmt.Fprintf(w, "  %-16s %.6f\n", k, v)
	}
	if res.Fault != nil {
		fmt.Fprintf(w, "script error: %v\n", res.Fault)
	}
}

func listScenes(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENE\tBODIES\tACTUATORS\tPRESETS\tHASH")
	for _, name := range config.SceneOrder() {
		sim, err := reg.Load(name, config.DefaultIntegrator)
		if err != nil {
			return err
		}
		m := sim.Model()
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%s\n", name, m.NBody, m.NU, config.ListPresets(name), reg.Hash(name))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nintegrators: %v\nexamples: %v\n", reg.Integrators(), script.ExampleNames())
	return nil
}
