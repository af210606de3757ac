// Package g3robust is stage 3 of the gait pipeline: environmental
// robustness. It converts the lifted model-unit skeleton into the
// final metric frame (scale calibration, once per clip), smooths each
// joint's trajectory with an independent constant-velocity Kalman
// filter, and clamps stance-phase foot joints to a consistent ground
// plane so filter noise cannot let them drift vertically.
//
// The stage never mutates its input: it emits a new Skeleton3D slice,
// leaving the raw lifted version inspectable for debugging.
package g3robust

import (
	"context"
	"math"
	"sort"

	"github.com/stride-data/gait.report/internal/gait"
)

// ContactConfig controls stance detection and ground clamping.
type ContactConfig struct {
	StanceVelThresholdMMps float64 // |vertical velocity| below this → candidate stance
	StanceMaxHeightMM      float64 // height above ground plane below this → candidate stance
	MinStanceFrames        int     // candidate must persist this long to clamp
	GroundPercentile       float64 // percentile of ankle heights taken as ground (e.g. 0.1)
}

// Filter denoises and ground-constrains a lifted skeleton sequence.
// Each Run call builds fresh per-joint filter state; a Filter value
// carries only configuration and is safe to reuse across recordings.
type Filter struct {
	params  FilterParams
	contact ContactConfig
}

// NewFilter constructs the stage. params must be a completed value;
// it is captured before any per-joint state exists.
func NewFilter(params FilterParams, contact ContactConfig) *Filter {
	if contact.GroundPercentile <= 0 {
		contact.GroundPercentile = 0.1
	}
	if contact.MinStanceFrames <= 0 {
		contact.MinStanceFrames = 3
	}
	return &Filter{params: params, contact: contact}
}

// Run applies calibration, per-joint denoising, and foot-ground
// clamping, in that order, and returns a new immutable sequence.
func (f *Filter) Run(ctx context.Context, skels []gait.Skeleton3D, cal Calibration, progress func(float64)) ([]gait.Skeleton3D, error) {
	if len(skels) == 0 {
		return nil, &gait.InsufficientFramesError{Stage: gait.StageRobust, Got: 0, Need: 1}
	}

	out := make([]gait.Skeleton3D, len(skels))

	// One calibration factor for the whole clip, applied uniformly.
	for i := range skels {
		out[i] = skels[i]
		for j := range out[i].Joints {
			kp := &out[i].Joints[j]
			kp.X *= cal.ScaleFactor
			kp.Y *= cal.ScaleFactor
			kp.Z *= cal.ScaleFactor
		}
	}

	// Per-joint, per-axis denoising. Filter state is constructed here,
	// fresh for this invocation, from the already-complete params.
	type jointFilters struct {
		x, y, z *axisFilter
	}
	filters := [gait.NumJoints]jointFilters{}
	for j := 0; j < gait.NumJoints; j++ {
		filters[j] = jointFilters{
			x: newAxisFilter(f.params),
			y: newAxisFilter(f.params),
			z: newAxisFilter(f.params),
		}
	}

	// ankleVel records the filtered vertical velocity of each ankle,
	// needed by stance detection below.
	ankleVel := map[gait.JointID][]float64{
		gait.LeftAnkle:  make([]float64, len(out)),
		gait.RightAnkle: make([]float64, len(out)),
	}

	prevT := out[0].TimestampSec
	for i := range out {
		if i%32 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		dt := out[i].TimestampSec - prevT
		prevT = out[i].TimestampSec

		for j := 0; j < gait.NumJoints; j++ {
			kp := &out[i].Joints[j]
			jf := filters[j]

			jf.x.predict(dt)
			jf.y.predict(dt)
			jf.z.predict(dt)
			jf.x.update(kp.X, kp.Confidence)
			jf.y.update(kp.Y, kp.Confidence)
			jf.z.update(kp.Z, kp.Confidence)

			if jf.x.initialized {
				kp.X = jf.x.pos
				kp.Y = jf.y.pos
				kp.Z = jf.z.pos
			}
			if vels, ok := ankleVel[gait.JointID(j)]; ok {
				vels[i] = jf.y.vel
			}
		}
		if progress != nil {
			progress(float64(i+1) / float64(len(out)))
		}
	}

	f.clampStanceFeet(out, ankleVel)

	return out, nil
}

// clampStanceFeet detects stance phases on each ankle and holds the
// vertical coordinate at the ground plane for their duration.
func (f *Filter) clampStanceFeet(skels []gait.Skeleton3D, ankleVel map[gait.JointID][]float64) {
	for _, ankle := range [2]gait.JointID{gait.LeftAnkle, gait.RightAnkle} {
		ground := groundLevel(skels, ankle, f.contact.GroundPercentile)
		if math.IsNaN(ground) {
			continue
		}
		vels := ankleVel[ankle]

		runStart := -1
		for i := 0; i <= len(skels); i++ {
			inStance := false
			if i < len(skels) {
				kp := skels[i].Joints[ankle]
				inStance = kp.Confidence > 0 &&
					math.Abs(vels[i]) < f.contact.StanceVelThresholdMMps &&
					kp.Y < ground+f.contact.StanceMaxHeightMM
			}
			switch {
			case inStance && runStart < 0:
				runStart = i
			case !inStance && runStart >= 0:
				if i-runStart >= f.contact.MinStanceFrames {
					for k := runStart; k < i; k++ {
						skels[k].Joints[ankle].Y = ground
					}
				}
				runStart = -1
			}
		}
	}
}

// groundLevel estimates the ground plane height for one ankle as a low
// percentile of its observed heights across the clip.
func groundLevel(skels []gait.Skeleton3D, ankle gait.JointID, pct float64) float64 {
	heights := make([]float64, 0, len(skels))
	for i := range skels {
		kp := skels[i].Joints[ankle]
		if kp.Confidence > 0 {
			heights = append(heights, kp.Y)
		}
	}
	if len(heights) == 0 {
		return math.NaN()
	}
	sort.Float64s(heights)
	idx := int(pct * float64(len(heights)-1))
	return heights[idx]
}
