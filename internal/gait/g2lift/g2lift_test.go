package g2lift_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/g2lift"
	"github.com/stride-data/gait.report/internal/gait/synth"
)

func liftConfig() g2lift.Config {
	return g2lift.Config{
		ReceptiveField:      27,
		TorsoLengthMM:       520,
		MaxUnusableFraction: 0.1,
	}
}

func walkSkeletons(t *testing.T, frames int) []gait.Skeleton2D {
	t.Helper()
	seq := synth.Generate(synth.Params{
		FPS:         30,
		DurationSec: float64(frames) / 30.0,
		Seed:        7,
	})
	require.Len(t, seq.Skeletons, frames)
	return seq.Skeletons
}

func TestRunTooShortSequence(t *testing.T) {
	t.Parallel()
	lifter := g2lift.New(liftConfig())

	_, err := lifter.Run(context.Background(), walkSkeletons(t, 10), nil)
	var ferr *gait.InsufficientFramesError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, gait.StageLift, ferr.Stage)
	assert.Equal(t, 10, ferr.Got)
	assert.Equal(t, 27, ferr.Need)
}

func TestRunLiftsWholeSequence(t *testing.T) {
	t.Parallel()
	lifter := g2lift.New(liftConfig())
	skels2d := walkSkeletons(t, 90)

	lifted, err := lifter.Run(context.Background(), skels2d, nil)
	require.NoError(t, err)
	require.Len(t, lifted, len(skels2d))

	for i := range lifted {
		assert.Equal(t, skels2d[i].FrameIndex, lifted[i].FrameIndex)
		assert.Equal(t, skels2d[i].TimestampSec, lifted[i].TimestampSec)
	}

	// +Y is up: hips sit well above ankles after the image-axis flip.
	mid := len(lifted) / 2
	hip := lifted[mid].MidHip()
	leftAnkle := lifted[mid].Joints[gait.LeftAnkle]
	require.Greater(t, hip.Confidence, 0.0)
	require.Greater(t, leftAnkle.Confidence, 0.0)
	assert.Greater(t, hip.Y, leftAnkle.Y+500)

	// Confidence propagates attenuated, never amplified.
	for j := 0; j < gait.NumJoints; j++ {
		assert.LessOrEqual(t, lifted[mid].Joints[j].Confidence, skels2d[mid].Joints[j].Confidence)
	}
}

func TestRunOriginIsFirstMidHip(t *testing.T) {
	t.Parallel()
	lifter := g2lift.New(liftConfig())
	skels2d := walkSkeletons(t, 60)

	lifted, err := lifter.Run(context.Background(), skels2d, nil)
	require.NoError(t, err)

	// The first frame's pelvis defines the origin. The one-sided
	// temporal window at the clip start skews the first output forward
	// a little, so the bound is loose; the walk itself covers metres.
	first := lifted[0].MidHip()
	last := lifted[len(lifted)-1].MidHip()
	assert.InDelta(t, 0, first.X, 300)
	assert.InDelta(t, 0, first.Y, 80)
	assert.Greater(t, last.X, 1500.0, "subject walks forward from the origin")
}

func TestPixelScaleFromTorsoPrior(t *testing.T) {
	t.Parallel()
	lifter := g2lift.New(liftConfig())
	skels2d := walkSkeletons(t, 60)

	// The synthetic subject's torso is 500mm rendered at 2mm/px, so
	// 250px; a 520mm prior puts the provisional scale at 2.08 mm/px.
	scale := lifter.PixelScale(skels2d)
	assert.InDelta(t, 2.08, scale, 0.02)
}

func TestRunTooManyUnusableFrames(t *testing.T) {
	t.Parallel()
	lifter := g2lift.New(liftConfig())
	skels2d := walkSkeletons(t, 60)

	// Blank the torso joints on a third of the frames.
	for i := 0; i < len(skels2d); i += 3 {
		for _, j := range []gait.JointID{gait.LeftShoulder, gait.RightShoulder, gait.LeftHip, gait.RightHip} {
			skels2d[i].Joints[j].Confidence = 0
		}
	}

	_, err := lifter.Run(context.Background(), skels2d, nil)
	var lerr *gait.LiftingError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 60, lerr.TotalFrames)
	assert.GreaterOrEqual(t, lerr.BadFrames, 20)
}

func TestRunCancellation(t *testing.T) {
	t.Parallel()
	lifter := g2lift.New(liftConfig())
	skels2d := walkSkeletons(t, 90)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lifter.Run(ctx, skels2d, nil)
	require.ErrorIs(t, err, context.Canceled)
}
