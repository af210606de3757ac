// Package pipeline composes the gait analysis stages into the single
// Analyze entry point.
//
// Import discipline: this package imports every stage package; stage
// packages import only the shared internal/gait domain types and never
// each other or this package. Stage wiring, progress reporting, and
// error attribution all live here, so a stage package can be exercised
// in isolation with hand-built inputs.
package pipeline

import (
	"context"
	"fmt"

	"github.com/stride-data/gait.report/internal/config"
	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/g1pose"
	"github.com/stride-data/gait.report/internal/gait/g2lift"
	"github.com/stride-data/gait.report/internal/gait/g3robust"
	"github.com/stride-data/gait.report/internal/gait/g4cycles"
	"github.com/stride-data/gait.report/internal/gait/g5metrics"
	"github.com/stride-data/gait.report/internal/gait/g6gate"
)

// Config is the flattened, immutable pipeline configuration. Construct
// it fully (normally via ConfigFromTuning) before calling Analyze;
// Analyze never reads tuning from anywhere else.
type Config struct {
	Pose   g1pose.Config
	Lift   g2lift.Config
	Filter g3robust.FilterParams

	// Contact.MinStanceFrames is derived per clip from StanceMinSec and
	// the effective sampling rate; set StanceMinSec, not the frame count.
	Contact      g3robust.ContactConfig
	StanceMinSec float64

	// Calib.LifterMMPerPx is filled in by Analyze from the lifting
	// stage; configure only the reference fields.
	Calib g3robust.CalibConfig

	Cycles g4cycles.Config
	Gate   g6gate.Config
}

// ConfigFromTuning maps a TuningConfig onto the stage configurations.
func ConfigFromTuning(t *config.TuningConfig) Config {
	return Config{
		Pose: g1pose.Config{
			ProcessingFPS:     t.GetProcessingFPS(),
			MinFrames:         t.GetMinFrames(),
			MinMeanConfidence: t.GetMinMeanConfidence(),
			Workers:           t.GetPoseWorkers(),
		},
		Lift: g2lift.Config{
			ReceptiveField:      t.GetReceptiveField(),
			TorsoLengthMM:       t.GetTorsoLengthMM(),
			MaxUnusableFraction: t.GetMaxUnusableFraction(),
		},
		Filter: g3robust.FilterParams{
			ProcessNoise:     t.GetProcessNoise(),
			MeasurementNoise: t.GetMeasurementNoise(),
		},
		Contact: g3robust.ContactConfig{
			StanceVelThresholdMMps: t.GetStanceVelThresholdMMps(),
			StanceMaxHeightMM:      t.GetStanceMaxHeightMM(),
		},
		StanceMinSec: t.GetStanceMinDuration().Seconds(),
		Calib: g3robust.CalibConfig{
			ReferenceObjectLengthMM:  t.GetReferenceObjectLengthMM(),
			ReferenceObjectPixelSpan: t.GetReferenceObjectPixelSpan(),
			SubjectHeightMM:          t.GetSubjectHeightMM(),
		},
		Cycles: g4cycles.Config{
			StrikeVelThresholdMMps: t.GetStrikeVelThresholdMMps(),
			ToeOffVelThresholdMMps: t.GetToeOffVelThresholdMMps(),
			StrikeHeightBandMM:     t.GetStrikeHeightBandMM(),
			MinStanceSec:           t.GetStanceMinDuration().Seconds(),
			MinInterEventSec:       t.GetMinInterEvent().Seconds(),
			MinCycles:              t.GetMinCyclesRequired(),
		},
		Gate: g6gate.Config{
			MinMeanConfidence: t.GetGateMinConfidence(),
			MinUsableFrames:   t.GetGateMinFrames(),
			MinCyclesPerFoot:  t.GetMinCyclesRequired(),
			SegmentMaxCV:      t.GetSegmentLengthMaxCV(),
			MaxJointSpeedMps:  t.GetMaxJointSpeedMps(),
		},
	}
}

// Result is everything one Analyze call produced. Every intermediate
// representation is retained so callers (reports, debug plots, tests)
// can inspect the pipeline without re-running it.
type Result struct {
	Metrics     *gait.GaitMetrics
	Quality     gait.QualityResult
	Cycles      *g4cycles.Segmentation
	Skeletons2D []gait.Skeleton2D
	Lifted      []gait.Skeleton3D
	Denoised    []gait.Skeleton3D
	Calibration g3robust.Calibration
}

// Progress receives coarse progress: the stage name (one of the
// gait.Stage* constants) and completion within that stage in [0,1].
type Progress func(stage string, pct float64)

// Analyze runs the full pipeline over one recording. Deterministic for
// a given input and config: same frames in, same metrics out. Errors
// are wrapped with the failing stage's name; the typed taxonomy error
// stays reachable via errors.As. A recording that fails only quality
// criteria returns a Result with Quality.Passed == false and a nil
// error.
func Analyze(ctx context.Context, seq gait.FrameSequence, det g1pose.Detector, cfg Config, progress Progress) (*Result, error) {
	report := func(stage string) func(float64) {
		if progress == nil {
			return nil
		}
		return func(pct float64) { progress(stage, pct) }
	}

	est := g1pose.New(cfg.Pose, det)
	skels2d, err := est.Run(ctx, seq, report(gait.StagePose))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gait.StagePose, err)
	}

	lifter := g2lift.New(cfg.Lift)
	lifted, err := lifter.Run(ctx, skels2d, report(gait.StageLift))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gait.StageLift, err)
	}

	calCfg := cfg.Calib
	calCfg.LifterMMPerPx = lifter.PixelScale(skels2d)
	cal, err := g3robust.Calibrate(calCfg, lifted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gait.StageRobust, err)
	}

	contact := cfg.Contact
	contact.MinStanceFrames = stanceFrames(cfg.StanceMinSec, est.EffectiveFPS(seq.SourceFPS))
	filter := g3robust.NewFilter(cfg.Filter, contact)
	denoised, err := filter.Run(ctx, lifted, cal, report(gait.StageRobust))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gait.StageRobust, err)
	}

	seg, err := g4cycles.New(cfg.Cycles).Run(denoised)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gait.StageCycles, err)
	}

	metrics, err := g5metrics.New().Run(denoised, seg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gait.StageMetrics, err)
	}

	quality := g6gate.New(cfg.Gate).Run(g6gate.Input{
		MeanConfidence2D: g1pose.MeanClipConfidence(skels2d),
		Skeletons:        denoised,
		LeftCycles:       len(seg.Left),
		RightCycles:      len(seg.Right),
	})
	if progress != nil {
		progress(gait.StageGate, 1.0)
	}

	return &Result{
		Metrics:     metrics,
		Quality:     quality,
		Cycles:      seg,
		Skeletons2D: skels2d,
		Lifted:      lifted,
		Denoised:    denoised,
		Calibration: cal,
	}, nil
}

// stanceFrames converts the minimum stance duration to a frame count
// at the effective sampling rate, never below one frame.
func stanceFrames(sec, fps float64) int {
	n := int(sec*fps + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}
