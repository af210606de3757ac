// Package report renders a self-contained HTML report for one analysis
// using go-echarts: ankle trajectories with contact events, left/right
// comparison bars, and the metric table with any quality violations.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/g4cycles"
)

// Input is everything the report renders. The report only reads: the
// metrics here were computed once by the pipeline and are never
// re-derived.
type Input struct {
	Source      string
	Metrics     *gait.GaitMetrics
	Quality     gait.QualityResult
	Cycles      *g4cycles.Segmentation
	Denoised    []gait.Skeleton3D
	Calibration string // calibration source label
}

// Render writes the full HTML report.
func Render(w io.Writer, in Input) error {
	page := components.NewPage()
	page.PageTitle = "Gait Analysis Report"

	page.AddCharts(
		ankleChart(in.Denoised, in.Cycles),
		sideComparisonChart(in.Metrics),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report charts: %w", err)
	}
	return renderSummary(w, in)
}

// RenderFile writes the report to a file.
func RenderFile(path string, in Input) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := Render(f, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ankleChart is a time series of both ankle heights with heel-strike
// markers.
func ankleChart(skels []gait.Skeleton3D, seg *g4cycles.Segmentation) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Ankle Height",
			Subtitle: "denoised trajectory, millimetres; markers are detected heel-strikes",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "height (mm)"}),
	)

	xs := make([]string, len(skels))
	for i := range skels {
		xs[i] = fmt.Sprintf("%.2f", skels[i].TimestampSec)
	}
	line.SetXAxis(xs)

	for _, foot := range [2]gait.FootSide{gait.FootLeft, gait.FootRight} {
		ankle := foot.Ankle()
		data := make([]opts.LineData, len(skels))
		for i := range skels {
			data[i] = opts.LineData{Value: skels[i].Joints[ankle].Y}
		}

		marks := make([]opts.MarkPointNameCoordItem, 0, len(seg.Strikes[foot]))
		for _, ev := range seg.Strikes[foot] {
			if ev.Frame >= len(skels) {
				continue
			}
			marks = append(marks, opts.MarkPointNameCoordItem{
				Name:       "heel-strike",
				Coordinate: []interface{}{xs[ev.Frame], skels[ev.Frame].Joints[ankle].Y},
			})
		}

		line.AddSeries(foot.String()+" ankle", data,
			charts.WithMarkPointNameCoordItemOpts(marks...),
		)
	}
	return line
}

// sideComparisonChart shows left vs right per-side temporal metrics.
func sideComparisonChart(m *gait.GaitMetrics) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Left / Right Symmetry",
			Subtitle: "1.0 is perfect symmetry",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{"step time", "step length", "stance time", "swing time"})
	bar.AddSeries("symmetry index", []opts.BarData{
		{Value: m.StepTimeSymmetry},
		{Value: m.StepLengthSymmetry},
		{Value: m.StanceTimeSymmetry},
		{Value: m.SwingTimeSymmetry},
	})
	return bar
}

// renderSummary appends the metric table and quality verdict below the
// charts.
func renderSummary(w io.Writer, in Input) error {
	verdict := "PASSED"
	if !in.Quality.Passed {
		verdict = "FAILED (metrics below are not clinically valid)"
	}

	fmt.Fprintf(w, "<div style=\"font-family:sans-serif;max-width:900px;margin:2em auto\">\n")
	fmt.Fprintf(w, "<h2>Quality gate: %s</h2>\n", verdict)
	if in.Source != "" {
		fmt.Fprintf(w, "<p>Recording: %s (calibration: %s)</p>\n", in.Source, in.Calibration)
	}

	if len(in.Quality.Violations) > 0 {
		fmt.Fprintf(w, "<table border=\"1\" cellpadding=\"4\"><tr><th>Criterion</th><th>Measured</th><th>Threshold</th></tr>\n")
		for _, v := range in.Quality.Violations {
			fmt.Fprintf(w, "<tr><td>%s</td><td>%.3f</td><td>%.3f</td></tr>\n", v.Criterion, v.Measured, v.Threshold)
		}
		fmt.Fprintf(w, "</table>\n")
	}

	fmt.Fprintf(w, "<h2>Metrics</h2>\n")
	fmt.Fprintf(w, "<table border=\"1\" cellpadding=\"4\"><tr><th>Metric</th><th>Value</th></tr>\n")
	metrics := in.Metrics.Map()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "<tr><td>%s</td><td>%.3f</td></tr>\n", name, metrics[name])
	}
	fmt.Fprintf(w, "<tr><td>cycles (L/R)</td><td>%d / %d</td></tr>\n", in.Metrics.LeftCycleCount, in.Metrics.RightCycleCount)
	fmt.Fprintf(w, "</table>\n</div>\n")
	return nil
}
