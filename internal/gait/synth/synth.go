// Package synth generates deterministic synthetic walking recordings:
// frame sequences plus the 2D skeletons a perfect detector would see.
// It exists for tests and for the gen-gaitlog tool; given the same
// parameters and seed it always produces the same recording.
//
// The kinematic model is a planar (sagittal) walker: feet alternate
// between ground-clamped stance and a sinusoidal-lift swing, the
// pelvis advances at the speed implied by cadence and step length, and
// all joints are projected to pixels at a fixed scale.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/stride-data/gait.report/internal/gait"
)

// Params configures the synthetic walker. Zero values fall back to the
// defaults noted per field.
type Params struct {
	FPS                float64 // default 30
	DurationSec        float64 // default 5
	CadenceStepsPerMin float64 // total steps per minute, default 100
	StepLengthMM       float64 // default 650
	SwingLiftMM        float64 // peak ankle lift during swing, default 120
	NoisePx            float64 // stdev of Gaussian pixel noise, default 0
	Confidence         float64 // per-joint detector confidence, default 0.95
	Asymmetry          float64 // left/right step length imbalance in [0,1), default 0
	MMPerPx            float64 // projection scale, default 2
	Width              int     // image width, default 1920
	Height             int     // image height, default 1080
	Seed               int64   // noise source seed
}

func (p Params) withDefaults() Params {
	if p.FPS <= 0 {
		p.FPS = 30
	}
	if p.DurationSec <= 0 {
		p.DurationSec = 5
	}
	if p.CadenceStepsPerMin <= 0 {
		p.CadenceStepsPerMin = 100
	}
	if p.StepLengthMM <= 0 {
		p.StepLengthMM = 650
	}
	if p.SwingLiftMM <= 0 {
		p.SwingLiftMM = 120
	}
	if p.Confidence <= 0 {
		p.Confidence = 0.95
	}
	if p.MMPerPx <= 0 {
		p.MMPerPx = 2
	}
	if p.Width <= 0 {
		p.Width = 1920
	}
	if p.Height <= 0 {
		p.Height = 1080
	}
	return p
}

// Anatomical landmark heights in millimetres, ground = 0.
const (
	noseHeightMM     = 1640
	eyeHeightMM      = 1660
	earHeightMM      = 1650
	shoulderHeightMM = 1430
	elbowHeightMM    = 1150
	wristHeightMM    = 950
	hipHeightMM      = 930
	kneeHeightMM     = 480
	ankleHeightMM    = 0

	shoulderHalfWidthMM = 40 // sagittal view: small projected offset
	hipHalfWidthMM      = 30

	stanceFraction = 0.6 // fraction of the stride spent in stance
)

// Phase offsets, in stride fractions. The left foot's first strike
// lands shortly after the clip starts so its approach (descent) is
// visible to event detection.
const (
	leftPhaseOffset  = -0.1
	rightPhaseOffset = 0.4
)

// Sequence is one generated recording: the frames the pipeline sees
// plus the ground-truth skeletons the Detector serves.
type Sequence struct {
	Frames    []gait.Frame
	Skeletons []gait.Skeleton2D
	Params    Params
}

// Generate builds the recording for the given parameters.
func Generate(p Params) *Sequence {
	p = p.withDefaults()
	rng := rand.New(rand.NewSource(p.Seed))

	n := int(p.FPS*p.DurationSec + 0.5)
	stepTime := 60.0 / p.CadenceStepsPerMin
	strideTime := 2 * stepTime
	strideLen := 2 * p.StepLengthMM

	seq := &Sequence{
		Frames:    make([]gait.Frame, n),
		Skeletons: make([]gait.Skeleton2D, n),
		Params:    p,
	}

	for i := 0; i < n; i++ {
		t := float64(i) / p.FPS
		seq.Frames[i] = gait.Frame{
			Index:        i,
			TimestampSec: t,
			Width:        p.Width,
			Height:       p.Height,
		}

		world := jointPositions(p, t, strideTime, strideLen)
		skel := gait.Skeleton2D{FrameIndex: i, TimestampSec: t}
		for j := 0; j < gait.NumJoints; j++ {
			px, py := project(p, world[j][0], world[j][1])
			if p.NoisePx > 0 {
				px += rng.NormFloat64() * p.NoisePx
				py += rng.NormFloat64() * p.NoisePx
			}
			skel.Joints[j] = gait.Keypoint2D{X: px, Y: py, Confidence: p.Confidence}
		}
		seq.Skeletons[i] = skel
	}
	return seq
}

// FrameSequence returns the pipeline input view of the recording.
func (s *Sequence) FrameSequence() gait.FrameSequence {
	return gait.FrameSequence{Frames: s.Frames, SourceFPS: s.Params.FPS}
}

// Detector returns a detector that replays the ground-truth skeletons.
// Safe for concurrent use: the sequence is read-only after Generate.
func (s *Sequence) Detector() *Detector {
	return &Detector{seq: s}
}

// Detector serves the generated skeletons by frame index.
type Detector struct {
	seq *Sequence
}

// Detect returns the ground-truth joints for the frame.
func (d *Detector) Detect(frame gait.Frame) ([gait.NumJoints]gait.Keypoint2D, error) {
	if frame.Index < 0 || frame.Index >= len(d.seq.Skeletons) {
		return [gait.NumJoints]gait.Keypoint2D{}, fmt.Errorf("synth: no skeleton for frame %d", frame.Index)
	}
	return d.seq.Skeletons[frame.Index].Joints, nil
}

// jointPositions returns (x, y) world millimetres for every joint at
// time t, x forward and y up from the ground plane.
func jointPositions(p Params, t, strideTime, strideLen float64) [gait.NumJoints][2]float64 {
	speed := strideLen / strideTime
	bodyX := speed * t
	bob := 20 * math.Sin(4*math.Pi*t/strideTime)

	leftAnkle := footPosition(p, t, strideTime, strideLen, leftPhaseOffset, 0)
	rightAnkle := footPosition(p, t, strideTime, strideLen, rightPhaseOffset, -p.StepLengthMM*(1+p.Asymmetry))

	armSwing := 0.3 * p.StepLengthMM * math.Sin(2*math.Pi*t/strideTime)

	var out [gait.NumJoints][2]float64
	out[gait.Nose] = [2]float64{bodyX + 30, noseHeightMM + bob}
	out[gait.LeftEye] = [2]float64{bodyX + 40, eyeHeightMM + bob}
	out[gait.RightEye] = [2]float64{bodyX + 20, eyeHeightMM + bob}
	out[gait.LeftEar] = [2]float64{bodyX + 10, earHeightMM + bob}
	out[gait.RightEar] = [2]float64{bodyX - 10, earHeightMM + bob}

	out[gait.LeftShoulder] = [2]float64{bodyX + shoulderHalfWidthMM, shoulderHeightMM + bob}
	out[gait.RightShoulder] = [2]float64{bodyX - shoulderHalfWidthMM, shoulderHeightMM + bob}
	out[gait.LeftElbow] = [2]float64{bodyX + armSwing, elbowHeightMM + bob}
	out[gait.RightElbow] = [2]float64{bodyX - armSwing, elbowHeightMM + bob}
	out[gait.LeftWrist] = [2]float64{bodyX + 1.4*armSwing, wristHeightMM + bob}
	out[gait.RightWrist] = [2]float64{bodyX - 1.4*armSwing, wristHeightMM + bob}

	out[gait.LeftHip] = [2]float64{bodyX + hipHalfWidthMM, hipHeightMM + bob}
	out[gait.RightHip] = [2]float64{bodyX - hipHalfWidthMM, hipHeightMM + bob}

	out[gait.LeftAnkle] = leftAnkle
	out[gait.RightAnkle] = rightAnkle
	out[gait.LeftKnee] = knee(out[gait.LeftHip], leftAnkle)
	out[gait.RightKnee] = knee(out[gait.RightHip], rightAnkle)

	return out
}

// footPosition models one foot: ground-clamped during stance, a
// sinusoidal lift travelling one stride forward during swing.
func footPosition(p Params, t, strideTime, strideLen, phaseOffset, baseX float64) [2]float64 {
	phase := t/strideTime + phaseOffset
	k := math.Floor(phase)
	u := phase - k

	plantX := k*strideLen + baseX
	if u < stanceFraction {
		return [2]float64{plantX, ankleHeightMM}
	}

	s := (u - stanceFraction) / (1 - stanceFraction)
	lift := p.SwingLiftMM * math.Sin(math.Pi*s)
	// Smoothstep keeps foot velocity continuous at lift-off and strike.
	travel := strideLen * s * s * (3 - 2*s)
	return [2]float64{plantX + travel, ankleHeightMM + lift}
}

// knee sits between hip and ankle, bowed forward in proportion to the
// foot's lift.
func knee(hip, ankle [2]float64) [2]float64 {
	x := (hip[0] + ankle[0]) / 2
	y := kneeHeightMM + ankle[1]/3
	if y > hip[1]-100 {
		y = hip[1] - 100
	}
	return [2]float64{x + ankle[1]*0.3, y}
}

// project maps world millimetres to image pixels: x maps left to
// right, y flips because image rows grow downward. The ground plane
// sits at 90% of the image height.
func project(p Params, x, y float64) (px, py float64) {
	groundRow := 0.9 * float64(p.Height)
	px = 100 + x/p.MMPerPx
	py = groundRow - y/p.MMPerPx
	return px, py
}
