package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/symode/internal/analysis"
	"github.com/san-kum/symode/internal/export"
	"github.com/san-kum/symode/internal/integrators"
	"github.com/san-kum/symode/internal/storage"
	"github.com/san-kum/symode/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
)

// loadRun resolves the optional run_id argument, defaulting to the most
// recent run.
func loadRun(args []string) (*storage.RunMetadata, *integrators.Result, error) {
	st := storage.New(dataDir)
	runID := ""
	if len(args) > 0 {
		runID = args[0]
	} else {
		latest, err := st.Latest()
		if err != nil {
			return nil, nil, err
		}
		runID = latest
	}
	return st.LoadRun(runID)
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
	fmt.Fprintln(w, "ID\tTIME\tMETHOD\tT_SPAN\tSTEPS\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t[%g, %g]\t%d\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Method,
			run.TSpan[0], run.TSpan[1],
			run.Stats.Accepted,
			run.Status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	if res.Len() == 0 {
		return fmt.Errorf("run %s has no data", meta.ID)
	}

	fmt.Printf("run: %s (%s, %s)\n\n", meta.ID, meta.Method, viz.StatusBadge(res.Status))
	fmt.Print(viz.PlotAll(res, meta.Vars, plotWidth, plotHeight))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}

	var p *analysis.PhasePortrait
	if sectionIdx >= 0 {
		p, err = analysis.NewPoincareSection(res, sectionIdx, sectionAt, xAxis, yAxis)
	} else {
		p, err = analysis.NewPhasePortrait(res, xAxis, yAxis)
	}
	if err != nil {
		return err
	}
	if len(p.Points) == 0 {
		fmt.Println("no crossings detected")
		return nil
	}

	name := func(i int) string {
		if i < len(meta.Vars) {
			return meta.Vars[i]
		}
		return fmt.Sprintf("x%d", i)
	}
	fmt.Printf("run: %s  %s vs %s (%d points)\n\n", meta.ID, name(yAxis), name(xAxis), len(p.Points))
	fmt.Print(p.ASCII(plotWidth, 2*plotHeight))
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	return viz.Browse(meta.ID, res, meta.Vars)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	if outFile == "" {
		return storage.WriteJSON(os.Stdout, meta, res)
	}
	if err := storage.ExportJSON(outFile, meta, res); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	path := outFile
	if path == "" {
		path = meta.ID + ".csv"
	}
	if err := storage.ExportCSV(path, meta.Vars, res); err != nil {
		return err
	}
	fmt.Printf("exported %d rows to %s\n", res.Len(), path)
	return nil
}

func exportPlot(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args)
	if err != nil {
		return err
	}
	path := outFile
	if path == "" {
		path = meta.ID + ".png"
	}

	opts := export.DefaultOptions()
	opts.Title = meta.Name
	var p *plot.Plot
	if phaseOut {
		p, err = export.Phase(res, meta.Vars, xAxis, yAxis, opts)
	} else {
		p, err = export.Trajectory(res, meta.Vars, opts)
	}
	if err != nil {
		return err
	}
	if err := export.Save(p, path, opts); err != nil {
		return err
	}
	fmt.Printf("plot written to %s\n", path)
	return nil
}
