package g6gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/g6gate"
)

func gateConfig() g6gate.Config {
	return g6gate.Config{
		MinMeanConfidence: 0.8,
		MinUsableFrames:   30,
		MinCyclesPerFoot:  2,
		SegmentMaxCV:      20,
		MaxJointSpeedMps:  12,
	}
}

// steadySkeletons produces a rigid, slowly translating skeleton whose
// bone lengths are exactly constant.
func steadySkeletons(n int) []gait.Skeleton3D {
	skels := make([]gait.Skeleton3D, n)
	for i := range skels {
		skels[i].FrameIndex = i
		skels[i].TimestampSec = float64(i) / 30
		x := 36.0 * float64(i)
		place := func(j gait.JointID, y float64) {
			skels[i].Joints[j] = gait.Keypoint3D{X: x, Y: y, Confidence: 0.9}
		}
		place(gait.LeftHip, 930)
		place(gait.RightHip, 930)
		place(gait.LeftKnee, 480)
		place(gait.RightKnee, 480)
		place(gait.LeftAnkle, 0)
		place(gait.RightAnkle, 0)
	}
	return skels
}

func violated(t *testing.T, res gait.QualityResult, criterion string) gait.Violation {
	t.Helper()
	for _, v := range res.Violations {
		if v.Criterion == criterion {
			return v
		}
	}
	t.Fatalf("no %q violation in %v", criterion, res.Violations)
	return gait.Violation{}
}

func TestRunPassesCleanClip(t *testing.T) {
	t.Parallel()
	res := g6gate.New(gateConfig()).Run(g6gate.Input{
		MeanConfidence2D: 0.92,
		Skeletons:        steadySkeletons(120),
		LeftCycles:       4,
		RightCycles:      3,
	})
	assert.True(t, res.Passed)
	assert.Empty(t, res.Violations)
}

func TestRunLowConfidence(t *testing.T) {
	t.Parallel()
	res := g6gate.New(gateConfig()).Run(g6gate.Input{
		MeanConfidence2D: 0.3,
		Skeletons:        steadySkeletons(120),
		LeftCycles:       4,
		RightCycles:      3,
	})
	require.False(t, res.Passed)
	v := violated(t, res, g6gate.CriterionMeanConfidence)
	assert.InDelta(t, 0.3, v.Measured, 1e-9)
	assert.InDelta(t, 0.8, v.Threshold, 1e-9)
}

func TestRunTooFewUsableFrames(t *testing.T) {
	t.Parallel()
	res := g6gate.New(gateConfig()).Run(g6gate.Input{
		MeanConfidence2D: 0.92,
		Skeletons:        steadySkeletons(12),
		LeftCycles:       4,
		RightCycles:      3,
	})
	require.False(t, res.Passed)
	v := violated(t, res, g6gate.CriterionUsableFrames)
	assert.Equal(t, 12.0, v.Measured)
}

func TestRunTooFewCyclesOnWeakerFoot(t *testing.T) {
	t.Parallel()
	res := g6gate.New(gateConfig()).Run(g6gate.Input{
		MeanConfidence2D: 0.92,
		Skeletons:        steadySkeletons(120),
		LeftCycles:       4,
		RightCycles:      1,
	})
	require.False(t, res.Passed)
	v := violated(t, res, g6gate.CriterionGaitCycles)
	assert.Equal(t, 1.0, v.Measured)
	assert.Equal(t, 2.0, v.Threshold)
}

func TestRunUnstableSegmentLength(t *testing.T) {
	t.Parallel()
	skels := steadySkeletons(120)
	// Femur length doubles for the second half of the clip.
	for i := 60; i < len(skels); i++ {
		skels[i].Joints[gait.LeftKnee].Y = skels[i].Joints[gait.LeftHip].Y - 900
	}
	res := g6gate.New(gateConfig()).Run(g6gate.Input{
		MeanConfidence2D: 0.92,
		Skeletons:        skels,
		LeftCycles:       4,
		RightCycles:      3,
	})
	require.False(t, res.Passed)
	v := violated(t, res, g6gate.CriterionSegmentLengthCV)
	assert.Greater(t, v.Measured, 20.0)
}

func TestRunTemporalDiscontinuity(t *testing.T) {
	t.Parallel()
	skels := steadySkeletons(120)
	// A 1m teleport between consecutive frames is a ~30 m/s jump.
	skels[60].Joints[gait.LeftAnkle].X += 1000
	res := g6gate.New(gateConfig()).Run(g6gate.Input{
		MeanConfidence2D: 0.92,
		Skeletons:        skels,
		LeftCycles:       4,
		RightCycles:      3,
	})
	require.False(t, res.Passed)
	v := violated(t, res, g6gate.CriterionTemporalJump)
	assert.Greater(t, v.Measured, 12.0)
}

func TestRunReportsAllViolations(t *testing.T) {
	t.Parallel()
	res := g6gate.New(gateConfig()).Run(g6gate.Input{
		MeanConfidence2D: 0.3,
		Skeletons:        steadySkeletons(12),
		LeftCycles:       0,
		RightCycles:      0,
	})
	require.False(t, res.Passed)
	assert.Len(t, res.Violations, 3)
}
