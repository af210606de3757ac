// Package g6gate is stage 6 of the gait pipeline: the quality gate.
// It checks the finished analysis against reliability criteria and
// returns a pass/fail decision with the exact violations. Gate failure
// is a result, not an error: metrics stay intact and inspectable, the
// caller just must not present them as clinically valid.
package g6gate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/stride-data/gait.report/internal/gait"
)

// Criterion names, as they appear in violation records and reports.
const (
	CriterionMeanConfidence  = "mean_joint_confidence"
	CriterionUsableFrames    = "usable_frames"
	CriterionGaitCycles      = "gait_cycles"
	CriterionSegmentLengthCV = "segment_length_cv"
	CriterionTemporalJump    = "temporal_discontinuity"
)

// Config holds the gate thresholds.
type Config struct {
	MinMeanConfidence float64 // clip-wide mean 2D joint confidence floor
	MinUsableFrames   int     // minimum frames that survived the pipeline
	MinCyclesPerFoot  int     // minimum detected cycles per foot
	SegmentMaxCV      float64 // max CV (%) of anatomical segment lengths
	MaxJointSpeedMps  float64 // max plausible per-joint displacement speed
}

// Gate evaluates analysis quality.
type Gate struct {
	cfg Config
}

// New creates a Gate with the given thresholds.
func New(cfg Config) *Gate { return &Gate{cfg: cfg} }

// Input bundles what the gate inspects. The gate only reads; it never
// recomputes or modifies metrics.
type Input struct {
	MeanConfidence2D float64 // clip-wide mean confidence from the pose stage
	Skeletons        []gait.Skeleton3D
	LeftCycles       int
	RightCycles      int
}

// segment is an anatomical bone whose length should be constant for a
// rigid skeleton; large variation means unreliable tracking.
type segment struct {
	name string
	a, b gait.JointID
}

var checkedSegments = []segment{
	{"left_femur", gait.LeftHip, gait.LeftKnee},
	{"right_femur", gait.RightHip, gait.RightKnee},
	{"left_tibia", gait.LeftKnee, gait.LeftAnkle},
	{"right_tibia", gait.RightKnee, gait.RightAnkle},
}

// Run evaluates all criteria and returns the decision. Every violated
// criterion is reported, not just the first.
func (g *Gate) Run(in Input) gait.QualityResult {
	var violations []gait.Violation

	if in.MeanConfidence2D < g.cfg.MinMeanConfidence {
		violations = append(violations, gait.Violation{
			Criterion: CriterionMeanConfidence,
			Measured:  in.MeanConfidence2D,
			Threshold: g.cfg.MinMeanConfidence,
		})
	}

	if len(in.Skeletons) < g.cfg.MinUsableFrames {
		violations = append(violations, gait.Violation{
			Criterion: CriterionUsableFrames,
			Measured:  float64(len(in.Skeletons)),
			Threshold: float64(g.cfg.MinUsableFrames),
		})
	}

	minCycles := in.LeftCycles
	if in.RightCycles < minCycles {
		minCycles = in.RightCycles
	}
	if minCycles < g.cfg.MinCyclesPerFoot {
		violations = append(violations, gait.Violation{
			Criterion: CriterionGaitCycles,
			Measured:  float64(minCycles),
			Threshold: float64(g.cfg.MinCyclesPerFoot),
		})
	}

	if worst := g.worstSegmentCV(in.Skeletons); worst > g.cfg.SegmentMaxCV {
		violations = append(violations, gait.Violation{
			Criterion: CriterionSegmentLengthCV,
			Measured:  worst,
			Threshold: g.cfg.SegmentMaxCV,
		})
	}

	if peak := peakJointSpeed(in.Skeletons); peak > g.cfg.MaxJointSpeedMps {
		violations = append(violations, gait.Violation{
			Criterion: CriterionTemporalJump,
			Measured:  peak,
			Threshold: g.cfg.MaxJointSpeedMps,
		})
	}

	return gait.QualityResult{Passed: len(violations) == 0, Violations: violations}
}

// worstSegmentCV measures each checked bone's per-frame length and
// returns the largest coefficient of variation across segments.
func (g *Gate) worstSegmentCV(skels []gait.Skeleton3D) float64 {
	worst := 0.0
	for _, seg := range checkedSegments {
		lengths := make([]float64, 0, len(skels))
		for i := range skels {
			a := skels[i].Joints[seg.a]
			b := skels[i].Joints[seg.b]
			if a.Confidence <= 0 || b.Confidence <= 0 {
				continue
			}
			lengths = append(lengths, dist3(a, b))
		}
		if len(lengths) < 2 {
			continue
		}
		mean := stat.Mean(lengths, nil)
		if mean <= 0 {
			continue
		}
		cv := stat.StdDev(lengths, nil) / mean * 100.0
		if cv > worst {
			worst = cv
		}
	}
	return worst
}

// peakJointSpeed returns the fastest frame-to-frame joint displacement
// in the clip, in metres per second. A physically implausible peak
// indicates a tracking discontinuity (identity switch, detector jump).
func peakJointSpeed(skels []gait.Skeleton3D) float64 {
	peak := 0.0
	for i := 1; i < len(skels); i++ {
		dt := skels[i].TimestampSec - skels[i-1].TimestampSec
		if dt <= 0 {
			continue
		}
		for j := 0; j < gait.NumJoints; j++ {
			a := skels[i-1].Joints[j]
			b := skels[i].Joints[j]
			if a.Confidence <= 0 || b.Confidence <= 0 {
				continue
			}
			speed := dist3(a, b) / 1000.0 / dt
			if speed > peak {
				peak = speed
			}
		}
	}
	return peak
}

func dist3(a, b gait.Keypoint3D) float64 {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
