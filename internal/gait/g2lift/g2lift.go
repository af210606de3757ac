// Package g2lift is stage 2 of the gait pipeline: it lifts the 2D
// skeleton sequence into 3D using a windowed temporal model rather
// than per-frame independent lifting, which keeps neighbouring frames
// consistent and suppresses detector jitter.
//
// Output convention: millimetre-scale model units (the robustness
// stage establishes the final metric scale), +Y up (image y is
// flipped), +X the direction of travel in the image plane, +Z depth
// toward the camera. Origin is the mid-hip of the first frame.
package g2lift

import (
	"context"
	"math"

	"github.com/stride-data/gait.report/internal/gait"
)

// Config holds the lifting stage parameters.
type Config struct {
	// ReceptiveField is the temporal window (frames, odd) the model
	// needs. Sequences shorter than this fail fast rather than being
	// padded with fabricated frames.
	ReceptiveField int

	// TorsoLengthMM is the anthropometric prior used by the depth
	// heuristic: the model assumes the mid-shoulder to mid-hip segment
	// has this metric length to place the subject in depth.
	TorsoLengthMM float64

	// MaxUnusableFraction is the largest tolerated fraction of frames
	// for which the model cannot produce a finite output.
	MaxUnusableFraction float64

	// ConfidenceAttenuation scales 2D confidence into 3D confidence to
	// account for lifting uncertainty. Defaults to 0.9 when zero.
	ConfidenceAttenuation float64
}

// Lifter converts an ordered Skeleton2D sequence into Skeleton3D.
type Lifter struct {
	cfg Config
}

// New creates a Lifter. The config value is captured immutably.
func New(cfg Config) *Lifter {
	if cfg.ConfidenceAttenuation <= 0 {
		cfg.ConfidenceAttenuation = 0.9
	}
	return &Lifter{cfg: cfg}
}

// Run lifts the full sequence. It returns one Skeleton3D per input
// skeleton in the same order, or *gait.InsufficientFramesError /
// *gait.LiftingError.
func (l *Lifter) Run(ctx context.Context, skels []gait.Skeleton2D, progress func(float64)) ([]gait.Skeleton3D, error) {
	if len(skels) < l.cfg.ReceptiveField {
		return nil, &gait.InsufficientFramesError{
			Stage: gait.StageLift,
			Got:   len(skels),
			Need:  l.cfg.ReceptiveField,
		}
	}

	// The pixel scale is established once from the whole clip (median
	// torso pixel length) so in-plane coordinates do not breathe with
	// per-frame detector noise. Per-frame torso length drives only the
	// depth estimate, and that through the temporal window below.
	torsoPx := make([]float64, len(skels))
	usable := make([]bool, len(skels))
	unusable := 0
	for i := range skels {
		torsoPx[i] = torsoPixelLength(&skels[i])
		usable[i] = torsoPx[i] > 1e-6
		if !usable[i] {
			unusable++
		}
	}
	if frac := float64(unusable) / float64(len(skels)); frac > l.cfg.MaxUnusableFraction {
		return nil, &gait.LiftingError{
			Reason:      "torso joints missing in too many frames",
			BadFrames:   unusable,
			TotalFrames: len(skels),
		}
	}

	refTorsoPx := medianOf(torsoPx, usable)
	if refTorsoPx <= 1e-6 {
		return nil, &gait.LiftingError{
			Reason:      "no usable torso reference in clip",
			BadFrames:   unusable,
			TotalFrames: len(skels),
		}
	}
	mmPerPx := l.cfg.TorsoLengthMM / refTorsoPx

	// Origin: first usable frame's mid-hip, in pixels.
	origin := firstMidHip(skels, usable)

	out := make([]gait.Skeleton3D, len(skels))
	half := l.cfg.ReceptiveField / 2
	nonFinite := 0
	for i := range skels {
		if i%16 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi > len(skels)-1 {
			hi = len(skels) - 1
		}

		out[i] = l.liftFrame(&skels[i], skels[lo:hi+1], torsoPx[lo:hi+1], i-lo, refTorsoPx, mmPerPx, origin)
		if !frameFinite(&out[i]) {
			nonFinite++
		}
		if progress != nil {
			progress(float64(i+1) / float64(len(skels)))
		}
	}

	if frac := float64(nonFinite) / float64(len(out)); frac > l.cfg.MaxUnusableFraction {
		return nil, &gait.LiftingError{
			Reason:      "model produced non-finite output",
			BadFrames:   nonFinite,
			TotalFrames: len(out),
		}
	}
	// Residual non-finite frames are zeroed with confidence 0 so the
	// invariant "every frame has every joint slot" holds downstream.
	for i := range out {
		sanitizeFrame(&out[i])
	}

	return out, nil
}

// PixelScale returns the provisional mm-per-pixel scale Run derives
// from the clip's median torso length, or 0 when no frame has a usable
// torso. The calibration stage needs this to convert reference-object
// pixel measurements into a correction of the lifted coordinates.
func (l *Lifter) PixelScale(skels []gait.Skeleton2D) float64 {
	torsoPx := make([]float64, len(skels))
	usable := make([]bool, len(skels))
	for i := range skels {
		torsoPx[i] = torsoPixelLength(&skels[i])
		usable[i] = torsoPx[i] > 1e-6
	}
	ref := medianOf(torsoPx, usable)
	if ref <= 1e-6 {
		return 0
	}
	return l.cfg.TorsoLengthMM / ref
}

// liftFrame lifts one frame using a triangular-weighted window of its
// neighbours. In-plane coordinates are confidence-weighted window
// averages; depth comes from the window's torso-size ratio against the
// clip reference.
func (l *Lifter) liftFrame(center *gait.Skeleton2D, window []gait.Skeleton2D, windowTorsoPx []float64, centerOff int, refTorsoPx, mmPerPx float64, origin [2]float64) gait.Skeleton3D {
	out := gait.Skeleton3D{
		FrameIndex:   center.FrameIndex,
		TimestampSec: center.TimestampSec,
	}

	// Window depth: weighted mean of per-frame torso ratios.
	var depthSum, depthW float64
	for w := range window {
		if windowTorsoPx[w] <= 1e-6 {
			continue
		}
		weight := triangular(w, centerOff, len(window))
		depthSum += weight * (refTorsoPx/windowTorsoPx[w] - 1.0)
		depthW += weight
	}
	depthMM := 0.0
	if depthW > 0 {
		depthMM = l.cfg.TorsoLengthMM * (depthSum / depthW)
	}

	for j := 0; j < gait.NumJoints; j++ {
		var sx, sy, sw float64
		for w := range window {
			kp := window[w].Joints[j]
			if kp.Confidence <= 0 {
				continue
			}
			weight := triangular(w, centerOff, len(window)) * kp.Confidence
			sx += weight * kp.X
			sy += weight * kp.Y
			sw += weight
		}
		if sw <= 0 {
			// Joint unseen across the whole window: explicit
			// zero-confidence slot, never dropped.
			out.Joints[j] = gait.Keypoint3D{}
			continue
		}
		px := sx / sw
		py := sy / sw
		out.Joints[j] = gait.Keypoint3D{
			X:          (px - origin[0]) * mmPerPx,
			Y:          (origin[1] - py) * mmPerPx, // image y grows downward
			Z:          depthMM,
			Confidence: center.Joints[j].Confidence * l.cfg.ConfidenceAttenuation,
		}
	}
	return out
}

// triangular returns the window weight for position w relative to the
// centre offset: 1 at the centre, decaying linearly to the edges.
func triangular(w, center, n int) float64 {
	d := w - center
	if d < 0 {
		d = -d
	}
	span := center
	if n-1-center > span {
		span = n - 1 - center
	}
	if span == 0 {
		return 1
	}
	return 1.0 - float64(d)/float64(span+1)
}

// torsoPixelLength is the mid-shoulder to mid-hip distance in pixels,
// or 0 when either end is unobserved.
func torsoPixelLength(s *gait.Skeleton2D) float64 {
	ls, rs := s.Joints[gait.LeftShoulder], s.Joints[gait.RightShoulder]
	lh, rh := s.Joints[gait.LeftHip], s.Joints[gait.RightHip]
	if ls.Confidence <= 0 || rs.Confidence <= 0 || lh.Confidence <= 0 || rh.Confidence <= 0 {
		return 0
	}
	mx := (ls.X+rs.X)/2 - (lh.X+rh.X)/2
	my := (ls.Y+rs.Y)/2 - (lh.Y+rh.Y)/2
	return math.Hypot(mx, my)
}

func firstMidHip(skels []gait.Skeleton2D, usable []bool) [2]float64 {
	for i := range skels {
		if !usable[i] {
			continue
		}
		lh, rh := skels[i].Joints[gait.LeftHip], skels[i].Joints[gait.RightHip]
		return [2]float64{(lh.X + rh.X) / 2, (lh.Y + rh.Y) / 2}
	}
	return [2]float64{}
}

func medianOf(vals []float64, usable []bool) float64 {
	kept := make([]float64, 0, len(vals))
	for i, v := range vals {
		if usable[i] {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return 0
	}
	// insertion sort; clips are small and this avoids pulling in sort
	// for a single median
	for i := 1; i < len(kept); i++ {
		for j := i; j > 0 && kept[j] < kept[j-1]; j-- {
			kept[j], kept[j-1] = kept[j-1], kept[j]
		}
	}
	mid := len(kept) / 2
	if len(kept)%2 == 1 {
		return kept[mid]
	}
	return (kept[mid-1] + kept[mid]) / 2
}

func frameFinite(s *gait.Skeleton3D) bool {
	for j := range s.Joints {
		kp := s.Joints[j]
		if kp.Confidence <= 0 {
			continue
		}
		for _, v := range [3]float64{kp.X, kp.Y, kp.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func sanitizeFrame(s *gait.Skeleton3D) {
	for j := range s.Joints {
		kp := &s.Joints[j]
		if math.IsNaN(kp.X) || math.IsInf(kp.X, 0) ||
			math.IsNaN(kp.Y) || math.IsInf(kp.Y, 0) ||
			math.IsNaN(kp.Z) || math.IsInf(kp.Z, 0) {
			*kp = gait.Keypoint3D{}
		}
	}
}
