// Command analyze runs the gait pipeline over a .gaitlog recording and
// prints the resulting metrics. Exit codes: 0 when analysis passed the
// quality gate, 2 when metrics were computed but the gate failed, 1 on
// any pipeline error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/stride-data/gait.report/internal/config"
	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/monitor"
	"github.com/stride-data/gait.report/internal/gait/pipeline"
	"github.com/stride-data/gait.report/internal/gait/replay"
	"github.com/stride-data/gait.report/internal/gait/report"
	"github.com/stride-data/gait.report/internal/gait/storage/sqlite"
	"github.com/stride-data/gait.report/internal/units"
)

func main() {
	input := flag.String("input", "", "path to .gaitlog recording (required)")
	configPath := flag.String("config", "", "tuning config JSON (defaults apply when omitted)")
	dbPath := flag.String("db", "", "sqlite database to record the run in (optional)")
	chartPath := flag.String("chart", "", "write an HTML report to this path (optional)")
	plotPath := flag.String("plot", "", "write an ankle trajectory PNG to this path (optional)")
	speedUnits := flag.String("units", units.MPS, "speed units for display: "+units.ValidSpeedUnitsString())
	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "analyze: -input is required")
		flag.Usage()
		os.Exit(1)
	}
	if !units.IsValidSpeedUnit(*speedUnits) {
		fmt.Fprintf(os.Stderr, "analyze: invalid units %q (valid: %s)\n", *speedUnits, units.ValidSpeedUnitsString())
		os.Exit(1)
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
			os.Exit(1)
		}
	}

	rec, err := replay.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress pipeline.Progress
	if !*quiet {
		lastStage := ""
		progress = func(stage string, pct float64) {
			if stage != lastStage {
				log.Printf("%s...", stage)
				lastStage = stage
			}
		}
	}

	res, err := pipeline.Analyze(ctx, rec.FrameSequence(), rec.Detector(), pipeline.ConfigFromTuning(tuning), progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}

	printSummary(res, *speedUnits)

	if *dbPath != "" {
		if err := storeRun(*dbPath, *input, res); err != nil {
			fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
			os.Exit(1)
		}
	}
	if *chartPath != "" {
		err := report.RenderFile(*chartPath, report.Input{
			Source:      *input,
			Metrics:     res.Metrics,
			Quality:     res.Quality,
			Cycles:      res.Cycles,
			Denoised:    res.Denoised,
			Calibration: res.Calibration.Source,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
			os.Exit(1)
		}
		if !*quiet {
			log.Printf("report written to %s", *chartPath)
		}
	}
	if *plotPath != "" {
		if err := monitor.WriteAnklePlot(*plotPath, res.Denoised, res.Cycles); err != nil {
			fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
			os.Exit(1)
		}
		if !*quiet {
			log.Printf("plot written to %s", *plotPath)
		}
	}

	if !res.Quality.Passed {
		os.Exit(2)
	}
}

func printSummary(res *pipeline.Result, speedUnits string) {
	m := res.Metrics
	fmt.Printf("cadence:          %.1f steps/min\n", m.CadenceStepsPerMin)
	fmt.Printf("walking speed:    %.2f %s\n", units.ConvertSpeed(m.WalkingSpeedMps, speedUnits), speedUnits)
	fmt.Printf("step length:      %.0f mm\n", m.StepLengthMM)
	fmt.Printf("stride length:    %.0f mm\n", m.StrideLengthMM)
	fmt.Printf("step time:        %.3f s (CV %.1f%%)\n", m.StepTimeSec, m.StepTimeCV)
	fmt.Printf("stance / swing:   %.3f s / %.3f s\n", m.StanceTimeSec, m.SwingTimeSec)
	fmt.Printf("double support:   %.3f s\n", m.DoubleSupportTimeSec)
	fmt.Printf("symmetry (step time / length): %.3f / %.3f\n", m.StepTimeSymmetry, m.StepLengthSymmetry)
	fmt.Printf("cycles:           %d (L %d / R %d)\n", m.CycleCount, m.LeftCycleCount, m.RightCycleCount)
	fmt.Printf("calibration:      %s (scale %.4f)\n", res.Calibration.Source, res.Calibration.ScaleFactor)

	if res.Quality.Passed {
		fmt.Println("quality gate:     PASSED")
		return
	}
	fmt.Println("quality gate:     FAILED (metrics are not clinically valid)")
	violations := append([]gait.Violation(nil), res.Quality.Violations...)
	sort.Slice(violations, func(i, j int) bool { return violations[i].Criterion < violations[j].Criterion })
	for _, v := range violations {
		fmt.Printf("  violation: %s measured %.3f threshold %.3f\n", v.Criterion, v.Measured, v.Threshold)
	}
}

func storeRun(dbPath, source string, res *pipeline.Result) error {
	db, err := sqlite.NewDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run := sqlite.AnalysisRun{
		ID:                sqlite.NewRunID(),
		Source:            source,
		CalibrationSource: res.Calibration.Source,
		ScaleFactor:       res.Calibration.ScaleFactor,
		Passed:            res.Quality.Passed,
		CycleCount:        res.Metrics.CycleCount,
		LeftCycleCount:    res.Metrics.LeftCycleCount,
		RightCycleCount:   res.Metrics.RightCycleCount,
		Metrics:           res.Metrics.Map(),
		Violations:        res.Quality.Violations,
	}
	if err := db.RecordRun(run); err != nil {
		return err
	}
	log.Printf("run %s recorded in %s", run.ID, dbPath)
	return nil
}
