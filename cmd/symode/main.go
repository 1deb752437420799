package main

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/symode/internal/config"
	"github.com/san-kum/symode/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	env *config.Env

	dataDir    string
	logLevel   string
	verbose    bool
	plotWidth  int
	plotHeight int

	// problem selection and overrides
	preset        string
	equations     []string
	initial       map[string]string
	params        map[string]string
	tStart        float64
	tEnd          float64
	method        string
	rtol          float64
	atol          float64
	h0            float64
	hMin          float64
	hMax          float64
	maxSteps      int
	newtonTol     float64
	newtonMaxIter int

	// solve output
	showPlot   bool
	pngOut     string
	metricsOut string
	noSave     bool
	invariant  string
	timeout    time.Duration
	methods    []string

	// run inspection
	xAxis      int
	yAxis      int
	sectionIdx int
	sectionAt  float64
	outFile    string
	phaseOut   bool
	diffAt     map[string]string
)

func main() {
	env = config.LoadEnvOrDefault()

	rootCmd := &cobra.Command{
		Use:           "symode",
		Short:         "symbolic ODE models and numeric integration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", env.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", env.LogDev, "development logging at debug level")
	rootCmd.PersistentFlags().IntVar(&plotWidth, "width", env.PlotWidth, "terminal plot width")
	rootCmd.PersistentFlags().IntVar(&plotHeight, "height", env.PlotHeight, "terminal plot height")

	solveCmd := &cobra.Command{
		Use:   "solve [problem.yaml]",
		Short: "solve a problem from a file, a preset or flags",
		Args:  cobra.MaximumNArgs(1),
		RunE:  solveProblem,
	}
	addProblemFlags(solveCmd)
	solveCmd.Flags().BoolVar(&showPlot, "plot", false, "plot every component after solving")
	solveCmd.Flags().StringVar(&pngOut, "png", "", "write a trajectory plot (.png, .svg, .pdf)")
	solveCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write solver counters in Prometheus text format")
	solveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	solveCmd.Flags().StringVar(&invariant, "invariant", "", "expression whose drift along the solution is reported")
	solveCmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the solve after this long")

	compareCmd := &cobra.Command{
		Use:   "compare [problem.yaml]",
		Short: "solve one problem with several methods",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareMethods,
	}
	addProblemFlags(compareCmd)
	compareCmd.Flags().StringSliceVar(&methods, "methods", []string{"rk45", "implicit_euler", "rk4", "euler"}, "methods to compare")
	compareCmd.Flags().StringVar(&invariant, "invariant", "", "expression whose drift is compared")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in problems",
		RunE:  listPresets,
	}

	jacobianCmd := &cobra.Command{
		Use:   "jacobian [problem.yaml]",
		Short: "print the model and its symbolic Jacobian",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printJacobian,
	}
	addProblemFlags(jacobianCmd)

	diffCmd := &cobra.Command{
		Use:   "diff [expr] [var]",
		Short: "differentiate an expression",
		Args:  cobra.ExactArgs(2),
		RunE:  differentiate,
	}
	diffCmd.Flags().StringToStringVar(&diffAt, "at", nil, "check against a finite difference at a point, e.g. --at x=1,y=2")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	phaseCmd.Flags().IntVar(&sectionIdx, "section", -1, "draw a Poincaré section where this state index rises through --section-at")
	phaseCmd.Flags().Float64Var(&sectionAt, "section-at", 0, "section threshold")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a run interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  viewRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (stdout if empty)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (<run_id>.csv if empty)")

	exportPlotCmd := &cobra.Command{
		Use:   "export-plot [run_id]",
		Short: "render a run to PNG, SVG or PDF",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportPlot,
	}
	exportPlotCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (<run_id>.png if empty)")
	exportPlotCmd.Flags().BoolVar(&phaseOut, "phase", false, "plot --y-axis against --x-axis instead of time")
	exportPlotCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	exportPlotCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	rootCmd.AddCommand(solveCmd, compareCmd, presetsCmd, jacobianCmd, diffCmd, listCmd, plotCmd, phaseCmd, viewCmd, exportJSONCmd, exportCSVCmd, exportPlotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addProblemFlags(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "start from a built-in problem")
	f.StringArrayVarP(&equations, "eq", "e", nil, "equation, repeatable (replaces the problem's equations)")
	f.StringToStringVar(&initial, "init", nil, "initial values, e.g. --init x=1,v=0")
	f.StringToStringVar(&params, "param", nil, "parameter values, e.g. --param k=2")
	f.Float64Var(&tStart, "t0", defaults.TSpan[0], "start time")
	f.Float64Var(&tEnd, "tf", defaults.TSpan[1], "end time")
	f.StringVarP(&method, "method", "m", defaults.Method, "integration method")
	f.Float64Var(&rtol, "rtol", defaults.Rtol, "relative tolerance")
	f.Float64Var(&atol, "atol", defaults.Atol, "absolute tolerance")
	f.Float64Var(&h0, "h0", defaults.H0, "initial step size")
	f.Float64Var(&hMin, "h-min", defaults.HMin, "minimum step size")
	f.Float64Var(&hMax, "h-max", defaults.HMax, "maximum step size")
	f.IntVar(&maxSteps, "max-steps", defaults.MaxSteps, "accepted step budget")
	f.Float64Var(&newtonTol, "newton-tol", defaults.NewtonTol, "Newton residual tolerance")
	f.IntVar(&newtonMaxIter, "newton-max-iter", defaults.NewtonMaxIter, "Newton iteration budget")
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return logging.NewDevelopment(), nil
	}
	cfg := logging.DefaultConfig()
	cfg.Level = logLevel
	return logging.New(cfg)
}
