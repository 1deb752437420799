package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/symode/internal/analysis"
	"github.com/san-kum/symode/internal/config"
	"github.com/san-kum/symode/internal/equation"
	"github.com/san-kum/symode/internal/export"
	"github.com/san-kum/symode/internal/expr"
	"github.com/san-kum/symode/internal/integrators"
	"github.com/san-kum/symode/internal/metrics"
	"github.com/san-kum/symode/internal/storage"
	"github.com/san-kum/symode/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func solveProblem(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	prob, err := cfg.Build(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fmt.Printf("solving %s with %s on [%g, %g]...\n", prob.Name, prob.Method, prob.Span[0], prob.Span[1])
	start := time.Now()
	res, err := integrators.Solve(ctx, prob.Model, prob.Span, prob.Y0, prob.Method, prob.Options)
	elapsed := time.Since(start)
	if res == nil {
		return err
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	rec := metrics.NewRecorder()
	rec.Observe(res, elapsed)

	names := prob.Model.Vars()
	fmt.Printf("completed in %v\n", elapsed)
	printResult(res, names)

	if invariant != "" {
		if err := reportDrift(res, names); err != nil {
			return err
		}
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.Run{
			Name:      prob.Name,
			Equations: cfg.Equations,
			Vars:      names,
			Params:    cfg.Params,
			Span:      prob.Span,
			Result:    res,
		})
		if err != nil {
			return err
		}
		logger.Info("run saved", zap.String("id", runID), zap.String("dir", dataDir))
		fmt.Printf("run id: %s\n", runID)
	}

	if showPlot {
		fmt.Println()
		fmt.Print(viz.PlotAll(res, names, plotWidth, plotHeight))
		if res.Method.Adaptive() {
			fmt.Println(viz.PlotSteps(res, plotWidth, plotHeight/2+1))
		}
	}

	if pngOut != "" {
		opts := export.DefaultOptions()
		opts.Title = prob.Name
		p, err := export.Trajectory(res, names, opts)
		if err != nil {
			return err
		}
		if err := export.Save(p, pngOut, opts); err != nil {
			return err
		}
		fmt.Printf("plot written to %s\n", pngOut)
	}

	if metricsOut != "" {
		if err := rec.WriteTextfile(metricsOut); err != nil {
			return err
		}
	}

	if err != nil {
		return err
	}
	if res.Err != nil {
		return res.Err
	}
	return nil
}

func printResult(res *integrators.Result, names []string) {
	fmt.Printf("status: %s\n", viz.StatusBadge(res.Status))
	fmt.Printf("%s  %s  %s  %s",
		viz.Metric("accepted", res.Stats.Accepted),
		viz.Metric("rejected", res.Stats.Rejected),
		viz.Metric("rhs evals", res.Stats.RHSEvals),
		viz.Metric("points", res.Len()))
	if res.Stats.JacobianEvals > 0 {
		fmt.Printf("  %s  %s",
			viz.Metric("jacobian evals", res.Stats.JacobianEvals),
			viz.Metric("newton iters", res.Stats.NewtonIters))
	}
	fmt.Println()

	sum, err := analysis.Summarize(res, names)
	if err != nil {
		return
	}
	fmt.Printf("\nfinal state at t=%g:\n", sum.TFinal)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VAR\tFINAL\tMIN\tMAX\tMEAN\tSTD")
	for _, c := range sum.Components {
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\n", c.Name, c.Final, c.Min, c.Max, c.Mean, c.Std)
	}
	w.Flush()
}

func reportDrift(res *integrators.Result, names []string) error {
	e, err := equation.ParseExpr(invariant)
	if err != nil {
		return fmt.Errorf("--invariant: %w", err)
	}
	drift, err := metrics.NewDrift("drift", e, names)
	if err != nil {
		return fmt.Errorf("--invariant: %w", err)
	}
	vals, err := metrics.Evaluate(res, drift, metrics.NewBounded(1e6))
	if err != nil {
		return err
	}
	fmt.Printf("\n%s  %s\n", viz.Metric("invariant drift", fmt.Sprintf("%.3e", vals["drift"])),
		viz.Metric("bounded", fmt.Sprintf("%.3f", vals["bounded"])))
	return nil
}

func compareMethods(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	var inv *expr.Expr
	if invariant != "" {
		if inv, err = equation.ParseExpr(invariant); err != nil {
			return fmt.Errorf("--invariant: %w", err)
		}
	}

	fmt.Printf("comparing methods for %s on [%g, %g]\n\n", cfg.Name, cfg.TSpan[0], cfg.TSpan[1])
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "METHOD\tSTATUS\tPOINTS\tREJECTED\tRHS\tJAC\tTIME_MS\tFINAL"
	if inv != nil {
		header += "\tDRIFT"
	}
	fmt.Fprintln(w, header)

	for _, m := range methods {
		run := cfg.Clone()
		run.Method = m
		prob, err := run.Build(logger)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", m, err)
			continue
		}

		start := time.Now()
		res, err := integrators.Solve(cmd.Context(), prob.Model, prob.Span, prob.Y0, prob.Method, prob.Options)
		elapsed := time.Since(start)
		if res == nil {
			fmt.Fprintf(w, "%s\terror: %v\n", m, err)
			continue
		}

		_, final := res.Final()
		line := fmt.Sprintf("%s\t%s\t%d\t%d\t%d\t%d\t%.2f\t%s",
			m, res.Status, res.Len(), res.Stats.Rejected, res.Stats.RHSEvals, res.Stats.JacobianEvals,
			float64(elapsed.Microseconds())/1000, formatState(final))
		if inv != nil {
			drift, err := metrics.NewDrift("drift", inv, prob.Model.Vars())
			if err != nil {
				return fmt.Errorf("--invariant: %w", err)
			}
			vals, err := metrics.Evaluate(res, drift)
			if err != nil {
				line += "\t" + err.Error()
			} else {
				line += fmt.Sprintf("\t%.2e", vals["drift"])
			}
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

func formatState(s []float64) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMETHOD\tT_SPAN\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t[%g, %g]\t%s\n", name, p.Method, p.TSpan[0], p.TSpan[1], p.Description)
	}
	return w.Flush()
}

func printJacobian(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	prob, err := cfg.Build(nil)
	if err != nil {
		return err
	}

	fmt.Println(prob.Model.String())
	jac, err := prob.Model.Jacobian()
	if err != nil {
		return err
	}

	vars := prob.Model.Vars()
	fmt.Println("\njacobian:")
	for i, row := range jac {
		for j, e := range row {
			fmt.Printf("  d(%s')/d%s = %s\n", vars[i], vars[j], e)
		}
	}
	return nil
}

func differentiate(cmd *cobra.Command, args []string) error {
	e, err := equation.ParseExpr(args[0])
	if err != nil {
		return err
	}
	wrt := args[1]

	d, err := e.Diff(wrt)
	if err != nil {
		return err
	}
	fmt.Printf("d/d%s %s = %s\n", wrt, expr.SimplifyFixed(e), expr.SimplifyFixed(d))

	if len(diffAt) == 0 {
		return nil
	}
	point, err := parsePoint(diffAt)
	if err != nil {
		return err
	}
	check, err := expr.CheckDerivative(e, wrt, point, 1e-6)
	if err != nil {
		return err
	}

	var at []string
	for _, k := range sortedKeys(point) {
		at = append(at, fmt.Sprintf("%s=%g", k, point[k]))
	}
	verdict := "ok"
	if !check.Passed {
		verdict = "MISMATCH"
	}
	fmt.Printf("at %s: symbolic %.10g, finite difference %.10g, error %.2e (%s)\n",
		strings.Join(at, ","), check.Symbolic, check.Numerical, check.AbsError, verdict)
	if !check.Passed {
		return fmt.Errorf("derivative check failed")
	}
	return nil
}
