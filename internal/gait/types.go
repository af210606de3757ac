package gait

// Frame is one sampled video instant. Frames arrive already decoded
// from the external video-ingestion collaborator; the pipeline never
// touches codecs. A Frame is immutable once constructed.
type Frame struct {
	Index        int     // monotonic frame index in the source video
	TimestampSec float64 // Index / SourceFPS
	Width        int     // image width in pixels
	Height       int     // image height in pixels
	RGB          []byte  // decoded RGB pixels, row-major; may be nil for replayed recordings
}

// FrameSequence is the pipeline input: decoded frames plus the source
// frame rate they were decoded at.
type FrameSequence struct {
	Frames    []Frame
	SourceFPS float64
}

// DurationSec returns the wall-clock span covered by the sequence.
func (s FrameSequence) DurationSec() float64 {
	if len(s.Frames) < 2 || s.SourceFPS <= 0 {
		return 0
	}
	return s.Frames[len(s.Frames)-1].TimestampSec - s.Frames[0].TimestampSec
}

// Keypoint2D is a single joint observation in image space (pixels).
type Keypoint2D struct {
	X          float64 // pixel column
	Y          float64 // pixel row (grows downward)
	Confidence float64 // detector confidence in [0, 1]; 0 means not localised
}

// Skeleton2D is the complete set of 2D joint observations for one
// sampled frame. Every joint slot is always present; joints the
// detector could not localise carry Confidence 0.
type Skeleton2D struct {
	FrameIndex   int
	TimestampSec float64
	Joints       [NumJoints]Keypoint2D
}

// MeanConfidence returns the average confidence across all joints.
func (s Skeleton2D) MeanConfidence() float64 {
	var sum float64
	for i := range s.Joints {
		sum += s.Joints[i].Confidence
	}
	return sum / NumJoints
}

// Keypoint3D is a joint observation lifted to 3D space, in millimetres
// under the package coordinate convention (+Y up, +X travel, +Z
// lateral, origin at first-frame mid-hip).
type Keypoint3D struct {
	X          float64 // millimetres
	Y          float64 // millimetres
	Z          float64 // millimetres
	Confidence float64 // propagated from 2D, attenuated by lifting uncertainty
}

// Skeleton3D is the complete set of 3D joints for one frame. Stages
// never mutate a Skeleton3D they received; denoising produces a new
// slice of new values so every intermediate version stays inspectable.
type Skeleton3D struct {
	FrameIndex   int
	TimestampSec float64
	Joints       [NumJoints]Keypoint3D
}

// MidHip returns the pelvis proxy: the midpoint of the two hip joints,
// with the lesser of the two confidences.
func (s Skeleton3D) MidHip() Keypoint3D {
	l, r := s.Joints[LeftHip], s.Joints[RightHip]
	conf := l.Confidence
	if r.Confidence < conf {
		conf = r.Confidence
	}
	return Keypoint3D{
		X:          (l.X + r.X) / 2,
		Y:          (l.Y + r.Y) / 2,
		Z:          (l.Z + r.Z) / 2,
		Confidence: conf,
	}
}

// Cycle is one gait cycle (stride): the span between two consecutive
// heel-strikes of the same foot.
type Cycle struct {
	Foot        FootSide
	StartFrame  int     // frame index of the opening heel-strike
	EndFrame    int     // frame index of the next same-foot heel-strike
	StartSec    float64 // timestamp of the opening heel-strike
	EndSec      float64 // timestamp of the closing heel-strike
	ToeOffFrame int     // frame index of the toe-off within this cycle
	ToeOffSec   float64 // timestamp of the toe-off within this cycle
}

// DurationSec is the stride time.
func (c Cycle) DurationSec() float64 { return c.EndSec - c.StartSec }

// StanceSec is the stance-phase duration (heel-strike to toe-off).
func (c Cycle) StanceSec() float64 { return c.ToeOffSec - c.StartSec }

// SwingSec is the swing-phase duration (toe-off to next heel-strike).
func (c Cycle) SwingSec() float64 { return c.EndSec - c.ToeOffSec }
