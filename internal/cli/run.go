package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"vlmeval/internal/dataset"
	"vlmeval/internal/manager"
	"vlmeval/internal/report"
	"vlmeval/pkg/types"
)

// RunOptions configure a directory evaluation.
type RunOptions struct {
	Dir      string
	Mode     string
	Positive string
	Negative string
	Limit    int
	MaxMB    int
	// OutDir receives the result rows and the JSON summary. Empty disables output files.
	OutDir string
	Format string
	Prefix string
}

// runResult names the files written by runDir.
type runResult struct {
	Batch   types.BatchEvaluation
	Rows    string
	Summary string
}

// runDir evaluates every image of a dataset directory and prints progress and
// a per-model summary to w.
func runDir(ctx context.Context, rt *runtime, opt RunOptions, w io.Writer) (runResult, error) {
	var res runResult
	ds, err := dataset.LoadDir(opt.Dir, dataset.Options{MaxFileBytes: int64(opt.MaxMB) << 20, Limit: opt.Limit})
	if err != nil {
		return res, err
	}
	mode := types.ParsePromptMode(opt.Mode)
	var labels *types.ClassificationLabels
	if opt.Positive != "" || opt.Negative != "" {
		labels = &types.ClassificationLabels{Positive: opt.Positive, Negative: opt.Negative}
	}
	if mode == types.ModeDescription && len(ds.Truth) > 0 {
		rt.log.Warn().Int("labelled", len(ds.Truth)).Msg("ground truth ignored in description mode")
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %d images from %s, mode %s\n", bold("Evaluating"), len(ds.Images), ds.Root, mode)

	start := time.Now()
	be, err := rt.mgr.EvaluateBatch(ctx, manager.BatchRequest{
		Images:       ds.Images,
		Mode:         mode,
		Labels:       labels,
		Truth:        ds.Truth,
		OnEvaluation: func(done, total int, ev types.Evaluation) { printProgress(w, done, total, ev) },
	})
	if err != nil {
		return res, err
	}
	res.Batch = be
	printSummary(w, be, time.Since(start))

	if opt.OutDir == "" {
		return res, nil
	}
	at := time.Now()
	format := strings.ToLower(opt.Format)
	if format == "" {
		format = "csv"
	}
	ext := format
	if ext == "json" {
		ext = "jsonl"
	}
	summary, err := report.WriteSummary(opt.OutDir, opt.Prefix, rt.cfg.Backend.Kind, be, at)
	if err != nil {
		return res, err
	}
	res.Summary = summary
	res.Rows = strings.TrimSuffix(summary, ".json") + "." + ext
	rw, err := report.New(format, res.Rows)
	if err != nil {
		return res, err
	}
	if err := report.WriteAll(rw, report.Rows(be, ds.Truth, at)); err != nil {
		return res, fmt.Errorf("write %s: %w", filepath.Base(res.Rows), err)
	}
	fmt.Fprintf(w, "Results: %s\nSummary: %s\n", res.Rows, res.Summary)
	return res, nil
}

func printProgress(w io.Writer, done, total int, ev types.Evaluation) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	var parts []string
	for _, r := range ev.Results {
		short := types.ShortName(r.Model)
		if r.OK() {
			parts = append(parts, fmt.Sprintf("%s: %s (%.2fs)", short, ok(r.Success.Entity), r.Success.ProcessingTimeSeconds))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", short, bad(string(r.Failure.Reason))))
	}
	fmt.Fprintf(w, "[%d/%d] %s  %s\n", done, total, ev.Image, strings.Join(parts, "  "))
}

func printSummary(w io.Writer, be types.BatchEvaluation, elapsed time.Duration) {
	bold := color.New(color.Bold).SprintFunc()
	rep := be.Report
	fmt.Fprintf(w, "\n%s %d images, %d models in %s\n", bold("Summary:"), rep.Images, len(rep.Models), elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "%-32s %8s %10s %10s %9s\n", "model", "success", "avg s", "tok/s", "accuracy")
	for _, m := range rep.Models {
		p := rep.Performance[m]
		acc := "-"
		if p.Accuracy != nil {
			acc = fmt.Sprintf("%.1f%%", *p.Accuracy*100)
		}
		fmt.Fprintf(w, "%-32s %7.1f%% %10.3f %10.2f %9s\n", types.ShortName(m), p.SuccessRate*100, p.AverageLatency, p.AverageThroughput, acc)
	}
	if len(rep.Models) < 2 {
		return
	}
	fmt.Fprintln(w, bold("Agreement:"))
	models := append([]string(nil), rep.Models...)
	sort.Strings(models)
	for i, a := range models {
		for _, b := range models[i+1:] {
			fmt.Fprintf(w, "  %s / %s: %d\n", types.ShortName(a), types.ShortName(b), rep.AgreementMatrix[a][b])
		}
	}
}
