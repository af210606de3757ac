package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-data/gait.report/internal/gait"
)

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()
	a := Generate(Params{DurationSec: 2, NoisePx: 2, Seed: 9})
	b := Generate(Params{DurationSec: 2, NoisePx: 2, Seed: 9})
	require.Equal(t, len(a.Skeletons), len(b.Skeletons))
	assert.Equal(t, a.Skeletons, b.Skeletons)

	c := Generate(Params{DurationSec: 2, NoisePx: 2, Seed: 10})
	assert.NotEqual(t, a.Skeletons[0].Joints, c.Skeletons[0].Joints, "different seeds produce different noise")
}

func TestGenerateFrameCountAndTiming(t *testing.T) {
	t.Parallel()
	seq := Generate(Params{FPS: 30, DurationSec: 5})
	require.Len(t, seq.Frames, 150)
	require.Len(t, seq.Skeletons, 150)

	fs := seq.FrameSequence()
	assert.Equal(t, 30.0, fs.SourceFPS)
	assert.InDelta(t, 1.0/30, fs.Frames[1].TimestampSec-fs.Frames[0].TimestampSec, 1e-9)
}

func TestGenerateAnatomyIsUpright(t *testing.T) {
	t.Parallel()
	seq := Generate(Params{DurationSec: 1})

	// Image rows grow downward, so "above" means a smaller Y.
	s := seq.Skeletons[10]
	assert.Less(t, s.Joints[gait.Nose].Y, s.Joints[gait.LeftHip].Y)
	assert.Less(t, s.Joints[gait.LeftHip].Y, s.Joints[gait.LeftKnee].Y)
	assert.Less(t, s.Joints[gait.LeftKnee].Y, s.Joints[gait.LeftAnkle].Y)

	for j := 0; j < gait.NumJoints; j++ {
		assert.Equal(t, 0.95, s.Joints[j].Confidence)
	}
}

func TestGenerateWalksForward(t *testing.T) {
	t.Parallel()
	seq := Generate(Params{DurationSec: 3})
	first := seq.Skeletons[0].Joints[gait.LeftHip].X
	last := seq.Skeletons[len(seq.Skeletons)-1].Joints[gait.LeftHip].X

	// 1.083 m/s for 3s at 2mm/px ≈ 1625px of travel.
	assert.Greater(t, last-first, 1400.0)
}

func TestDetectorBounds(t *testing.T) {
	t.Parallel()
	seq := Generate(Params{DurationSec: 1})
	det := seq.Detector()

	joints, err := det.Detect(gait.Frame{Index: 0})
	require.NoError(t, err)
	assert.Equal(t, seq.Skeletons[0].Joints, joints)

	_, err = det.Detect(gait.Frame{Index: len(seq.Skeletons)})
	assert.Error(t, err)
}

func TestFootAlternation(t *testing.T) {
	t.Parallel()
	p := Params{}.withDefaults()

	// At any instant at least one foot is in stance (60% duty cycle
	// with a half-stride offset between feet).
	strideTime := 2 * 60.0 / p.CadenceStepsPerMin
	strideLen := 2 * p.StepLengthMM
	for i := 0; i < 120; i++ {
		tt := float64(i) / 30
		l := footPosition(p, tt, strideTime, strideLen, leftPhaseOffset, 0)
		r := footPosition(p, tt, strideTime, strideLen, rightPhaseOffset, -p.StepLengthMM)
		onGround := l[1] == 0 || r[1] == 0
		assert.True(t, onGround, "t=%.3f left=%v right=%v", tt, l, r)
	}
}
