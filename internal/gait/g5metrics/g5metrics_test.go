package g5metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/g4cycles"
	"github.com/stride-data/gait.report/internal/gait/g5metrics"
)

// fixtureWalk builds a fully hand-computed recording at 10fps: left
// strikes at 0.0/1.0/2.0s, right at 0.5/1.5s, 650mm steps, 1300mm
// strides, 60% stance. Every expected metric below follows from these
// numbers by hand.
func fixtureWalk() ([]gait.Skeleton3D, *g4cycles.Segmentation) {
	leftX := func(i int) float64 {
		switch {
		case i <= 6:
			return 0
		case i <= 10:
			return float64(i-6) / 4 * 1300
		case i <= 16:
			return 1300
		default:
			return 1300 + float64(i-16)/4*1300
		}
	}
	rightX := func(i int) float64 {
		switch {
		case i <= 11:
			return 650
		case i <= 15:
			return 650 + float64(i-11)/4*1300
		default:
			return 1950
		}
	}

	skels := make([]gait.Skeleton3D, 21)
	for i := range skels {
		t := float64(i) * 0.1
		skels[i].FrameIndex = i
		skels[i].TimestampSec = t
		skels[i].Joints[gait.LeftHip] = gait.Keypoint3D{X: 1300 * t, Y: 900, Confidence: 0.9}
		skels[i].Joints[gait.RightHip] = gait.Keypoint3D{X: 1300 * t, Y: 900, Confidence: 0.9}
		skels[i].Joints[gait.LeftAnkle] = gait.Keypoint3D{X: leftX(i), Z: 50, Confidence: 0.9}
		skels[i].Joints[gait.RightAnkle] = gait.Keypoint3D{X: rightX(i), Z: -50, Confidence: 0.9}
	}

	left := []gait.Cycle{
		{Foot: gait.FootLeft, StartFrame: 0, EndFrame: 10, ToeOffFrame: 6, StartSec: 0, EndSec: 1.0, ToeOffSec: 0.6},
		{Foot: gait.FootLeft, StartFrame: 10, EndFrame: 20, ToeOffFrame: 16, StartSec: 1.0, EndSec: 2.0, ToeOffSec: 1.6},
	}
	right := []gait.Cycle{
		{Foot: gait.FootRight, StartFrame: 5, EndFrame: 15, ToeOffFrame: 11, StartSec: 0.5, EndSec: 1.5, ToeOffSec: 1.1},
	}
	seg := &g4cycles.Segmentation{
		Left:   left,
		Right:  right,
		Merged: []gait.Cycle{left[0], right[0], left[1]},
		Strikes: map[gait.FootSide][]g4cycles.Event{
			gait.FootLeft: {
				{Foot: gait.FootLeft, Frame: 0, TimeSec: 0, IsStrike: true},
				{Foot: gait.FootLeft, Frame: 10, TimeSec: 1.0, IsStrike: true},
				{Foot: gait.FootLeft, Frame: 20, TimeSec: 2.0, IsStrike: true},
			},
			gait.FootRight: {
				{Foot: gait.FootRight, Frame: 5, TimeSec: 0.5, IsStrike: true},
				{Foot: gait.FootRight, Frame: 15, TimeSec: 1.5, IsStrike: true},
			},
		},
		StanceIntervals: map[gait.FootSide][][2]float64{
			gait.FootLeft:  {{0, 0.6}, {1.0, 1.6}},
			gait.FootRight: {{0.5, 1.1}},
		},
	}
	return skels, seg
}

func TestRunComputesHandCheckedMetrics(t *testing.T) {
	t.Parallel()
	skels, seg := fixtureWalk()

	m, err := g5metrics.New().Run(skels, seg)
	require.NoError(t, err)

	assert.Equal(t, 3, m.CycleCount)
	assert.Equal(t, 2, m.LeftCycleCount)
	assert.Equal(t, 1, m.RightCycleCount)

	// Four alternating steps of 0.5s and 650mm each.
	assert.InDelta(t, 0.5, m.StepTimeSec, 1e-9)
	assert.InDelta(t, 120.0, m.CadenceStepsPerMin, 1e-9)
	assert.InDelta(t, 650.0, m.StepLengthMM, 1e-9)
	assert.InDelta(t, 100.0, m.StepWidthMM, 1e-9)

	// Strides: 1300mm over 1.0s; 60/40 stance-swing split.
	assert.InDelta(t, 1300.0, m.StrideLengthMM, 1e-9)
	assert.InDelta(t, 0.6, m.StanceTimeSec, 1e-9)
	assert.InDelta(t, 0.4, m.SwingTimeSec, 1e-9)

	// Double support: 0.1s for each left cycle, 0.2s for the right
	// cycle (one overlap per neighbouring left stance).
	assert.InDelta(t, 0.4/3, m.DoubleSupportTimeSec, 1e-9)

	// Pelvis travels 2600mm over the 2.0s analysis span.
	assert.InDelta(t, 1.3, m.WalkingSpeedMps, 1e-9)

	// Perfectly regular walk: no variability, full symmetry.
	assert.Zero(t, m.StepTimeCV)
	assert.Zero(t, m.StepLengthCV)
	assert.Zero(t, m.StepWidthCV)
	assert.Zero(t, m.StrideSpeedCV)
	assert.InDelta(t, 1.0, m.StepTimeSymmetry, 1e-9)
	assert.InDelta(t, 1.0, m.StepLengthSymmetry, 1e-9)
	assert.InDelta(t, 1.0, m.StanceTimeSymmetry, 1e-9)
	assert.InDelta(t, 1.0, m.SwingTimeSymmetry, 1e-9)
}

func TestRunRequiresBothFeet(t *testing.T) {
	t.Parallel()
	skels, seg := fixtureWalk()
	seg.Right = nil

	_, err := g5metrics.New().Run(skels, seg)
	var merr *gait.GaitMetricsError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "all", merr.Metric)
}

func TestRunUnobservedAnkleAtStrike(t *testing.T) {
	t.Parallel()
	skels, seg := fixtureWalk()
	skels[5].Joints[gait.LeftAnkle].Confidence = 0

	_, err := g5metrics.New().Run(skels, seg)
	var merr *gait.GaitMetricsError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "step_length", merr.Metric)
}

func TestRunZeroDurationCycle(t *testing.T) {
	t.Parallel()
	skels, seg := fixtureWalk()
	seg.Merged[1].EndSec = seg.Merged[1].StartSec

	_, err := g5metrics.New().Run(skels, seg)
	var merr *gait.GaitMetricsError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "stride_length", merr.Metric)
}
