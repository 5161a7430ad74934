package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/simbridge/internal/analysis"
	"github.com/san-kum/simbridge/internal/experiment"
	"github.com/san-kum/simbridge/internal/export"
	"github.com/san-kum/simbridge/internal/storage"
	"github.com/san-kum/simbridge/internal/viz"
	"github.com/spf13/cobra"
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	names := columns
	if len(names) == 0 {
		names = meta.Columns
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tFREQ (Hz)\tAMPLITUDE")
	for _, name := range names {
		data, times, err := st.Column(meta.ID, name)
		if err != nil {
			return err
		}
		freq, amp, err := analysis.DominantFrequency(data, analysis.SampleRate(times))
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t%v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.4g\n", name, freq, amp)
	}
	return w.Flush()
}

func phaseRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	xs, _, err := st.Column(args[0], phaseX)
	if err != nil {
		return err
	}
	ys, _, err := st.Column(args[0], phaseY)
	if err != nil {
		return err
	}
	p, err := analysis.NewPortrait(phaseX, xs, phaseY, ys)
	if err != nil {
		return err
	}

	if outFile == "" {
		fmt.Printf("%s vs %s\n", phaseY, phaseX)
		fmt.Print(p.ASCII(80, 24))
		return nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.Portrait(f, p, 800, 600, string(viz.GetTheme(theme).Primary)); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

// snapshotScene drives a scene headless and writes the final frame as SVG.
func snapshotScene(cmd *cobra.Command, args []string) error {
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

	graph := viz.NewGraph()
	exp, err := experiment.New(cfg, experiment.Options{Proxies: graph.Proxies, Log: log})
	if err != nil {
		return err
	}
	res, err := exp.Run(context.Background(), experiment.RunConfig{Duration: duration, Script: name, Code: code})
	if err != nil {
		return err
	}
	if res.Fault != nil {
		fmt.Fprintf(os.Stderr, "script fault: %v\n", res.Fault)
	}

	canvas := viz.NewCanvas(snapCols, snapRows)
	w, h := canvas.Pixels()
	graph.Render(canvas, viz.NewProjector(exp.Session().Status().Camera, w, h))

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := export.Canvas(out, canvas, 4, string(viz.GetTheme(theme).Primary)); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("wrote %s (t=%.3fs)\n", outFile, res.Time)
	}
	return nil
}
