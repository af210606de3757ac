// Package g4cycles is stage 4 of the gait pipeline: it detects
// heel-strike and toe-off events from the denoised vertical ankle
// trajectories and partitions the recording into discrete gait cycles
// (strides), per foot.
//
// Detection is a two-state machine per foot over the ankle's vertical
// position and velocity:
//
//	SWING → STANCE  heel-strike: downward velocity settles to ~zero
//	                while the ankle sits near its ground level
//	STANCE → SWING  toe-off: velocity turns strongly positive after a
//	                minimum stance duration
//
// Candidate heel-strikes closer together than the debounce window are
// treated as one event, which prevents filter noise from
// double-counting strikes.
package g4cycles

import (
	"math"
	"sort"

	"github.com/stride-data/gait.report/internal/gait"
)

// Config holds the segmentation parameters, all in the calibrated
// metric units of the denoised sequence (mm, mm/s, seconds).
type Config struct {
	StrikeVelThresholdMMps float64 // |v| below this counts as "settled" at strike
	ToeOffVelThresholdMMps float64 // v above this (upward) marks toe-off
	StrikeHeightBandMM     float64 // ankle must be within this band of ground level
	MinStanceSec           float64 // minimum stance duration before toe-off is accepted
	MinInterEventSec       float64 // heel-strike debounce window

	// MinCycles is the minimum total (merged) cycle count; independent
	// of it, each foot must contribute at least one complete cycle.
	// The quality gate separately flags clips with fewer than its own
	// per-foot minimum.
	MinCycles int
}

// footState is the per-foot phase of the detection state machine.
type footState int

const (
	stateSwing footState = iota
	stateStance
)

// Event is one detected contact event.
type Event struct {
	Foot     gait.FootSide
	Frame    int // index into the skeleton sequence
	TimeSec  float64
	IsStrike bool // true for heel-strike, false for toe-off
}

// Segmentation is the stage output: per-foot cycles plus a merged,
// time-ordered view for stride-level metrics.
type Segmentation struct {
	Left   []gait.Cycle
	Right  []gait.Cycle
	Merged []gait.Cycle // all cycles ordered by start time

	// Strikes holds the debounced heel-strike events per foot in
	// temporal order (one more than the cycle count when the last
	// strike has no successor).
	Strikes map[gait.FootSide][]Event

	// StanceIntervals holds [strike, toe-off] spans per foot, used for
	// double-support overlap computation.
	StanceIntervals map[gait.FootSide][][2]float64
}

// Cycles returns the cycle list for one foot.
func (s *Segmentation) Cycles(foot gait.FootSide) []gait.Cycle {
	if foot == gait.FootLeft {
		return s.Left
	}
	return s.Right
}

// Segmenter detects gait cycles from a denoised skeleton sequence.
type Segmenter struct {
	cfg Config
}

// New creates a Segmenter with the given configuration.
func New(cfg Config) *Segmenter {
	if cfg.MinCycles < 2 {
		cfg.MinCycles = 2
	}
	return &Segmenter{cfg: cfg}
}

// Run segments the sequence. Cycles are produced only from the
// denoised, calibrated sequence, never from raw 2D data. Fails with
// *gait.InsufficientGaitCyclesError when either foot yields fewer than
// the configured minimum number of complete cycles.
func (s *Segmenter) Run(skels []gait.Skeleton3D) (*Segmentation, error) {
	if len(skels) < 3 {
		return nil, &gait.InsufficientFramesError{Stage: gait.StageCycles, Got: len(skels), Need: 3}
	}

	seg := &Segmentation{
		Strikes:         make(map[gait.FootSide][]Event, 2),
		StanceIntervals: make(map[gait.FootSide][][2]float64, 2),
	}

	for _, foot := range [2]gait.FootSide{gait.FootLeft, gait.FootRight} {
		strikes, toeOffs := s.detectEvents(skels, foot)
		seg.Strikes[foot] = strikes

		cycles := buildCycles(foot, strikes, toeOffs, skels)
		if len(cycles) < 1 {
			return nil, &gait.InsufficientGaitCyclesError{Foot: foot, Got: 0, Need: 1}
		}
		if foot == gait.FootLeft {
			seg.Left = cycles
		} else {
			seg.Right = cycles
		}

		intervals := make([][2]float64, 0, len(cycles))
		for _, c := range cycles {
			intervals = append(intervals, [2]float64{c.StartSec, c.ToeOffSec})
		}
		seg.StanceIntervals[foot] = intervals
	}

	seg.Merged = append(append([]gait.Cycle{}, seg.Left...), seg.Right...)
	sort.Slice(seg.Merged, func(i, j int) bool {
		return seg.Merged[i].StartSec < seg.Merged[j].StartSec
	})

	if len(seg.Merged) < s.cfg.MinCycles {
		weaker := gait.FootLeft
		if len(seg.Right) < len(seg.Left) {
			weaker = gait.FootRight
		}
		return nil, &gait.InsufficientGaitCyclesError{
			Foot: weaker,
			Got:  len(seg.Cycles(weaker)),
			Need: (s.cfg.MinCycles + 1) / 2,
		}
	}

	return seg, nil
}

// detectEvents walks the ankle trajectory with the two-state machine
// and returns debounced heel-strikes and toe-offs in temporal order.
func (s *Segmenter) detectEvents(skels []gait.Skeleton3D, foot gait.FootSide) (strikes, toeOffs []Event) {
	ankle := foot.Ankle()
	n := len(skels)

	y := make([]float64, n)
	conf := make([]float64, n)
	for i := range skels {
		y[i] = skels[i].Joints[ankle].Y
		conf[i] = skels[i].Joints[ankle].Confidence
	}
	vel := centralVelocity(skels, y)
	ground := minObserved(y, conf)

	state := stateSwing
	lastStrikeSec := math.Inf(-1)
	stanceStartSec := 0.0
	wasDescending := false

	for i := 0; i < n; i++ {
		if conf[i] <= 0 {
			continue
		}
		t := skels[i].TimestampSec

		switch state {
		case stateSwing:
			nearGround := y[i] <= ground+s.cfg.StrikeHeightBandMM
			settled := vel[i] > -s.cfg.StrikeVelThresholdMMps
			if wasDescending && settled && nearGround {
				if t-lastStrikeSec < s.cfg.MinInterEventSec {
					// Debounce: a second candidate within the window is
					// the same physical event.
					state = stateStance
					stanceStartSec = t
					break
				}
				strikes = append(strikes, Event{Foot: foot, Frame: i, TimeSec: t, IsStrike: true})
				lastStrikeSec = t
				state = stateStance
				stanceStartSec = t
			}
		case stateStance:
			if vel[i] > s.cfg.ToeOffVelThresholdMMps && t-stanceStartSec >= s.cfg.MinStanceSec {
				toeOffs = append(toeOffs, Event{Foot: foot, Frame: i, TimeSec: t, IsStrike: false})
				state = stateSwing
			}
		}

		wasDescending = vel[i] < -s.cfg.StrikeVelThresholdMMps || (wasDescending && vel[i] < 0)
	}
	return strikes, toeOffs
}

// buildCycles pairs consecutive same-foot strikes into cycles and
// locates each cycle's toe-off. When no toe-off event fell inside a
// cycle (thresholds too strict for this clip), the frame of maximum
// upward ankle velocity within the cycle stands in, so stance/swing
// splits stay data-driven.
func buildCycles(foot gait.FootSide, strikes, toeOffs []Event, skels []gait.Skeleton3D) []gait.Cycle {
	if len(strikes) < 2 {
		return nil
	}
	ankle := foot.Ankle()
	y := make([]float64, len(skels))
	for i := range skels {
		y[i] = skels[i].Joints[ankle].Y
	}
	vel := centralVelocity(skels, y)

	cycles := make([]gait.Cycle, 0, len(strikes)-1)
	for k := 0; k+1 < len(strikes); k++ {
		a, b := strikes[k], strikes[k+1]
		c := gait.Cycle{
			Foot:       foot,
			StartFrame: a.Frame,
			EndFrame:   b.Frame,
			StartSec:   a.TimeSec,
			EndSec:     b.TimeSec,
		}

		c.ToeOffFrame = -1
		for _, to := range toeOffs {
			if to.Frame > a.Frame && to.Frame < b.Frame {
				c.ToeOffFrame = to.Frame
				c.ToeOffSec = to.TimeSec
				break
			}
		}
		if c.ToeOffFrame < 0 {
			best, bestVel := a.Frame+1, math.Inf(-1)
			for i := a.Frame + 1; i < b.Frame; i++ {
				if vel[i] > bestVel {
					best, bestVel = i, vel[i]
				}
			}
			c.ToeOffFrame = best
			c.ToeOffSec = skels[best].TimestampSec
		}

		cycles = append(cycles, c)
	}
	return cycles
}

// centralVelocity computes the vertical velocity series by central
// finite difference on the (non-uniform-safe) timestamps.
func centralVelocity(skels []gait.Skeleton3D, y []float64) []float64 {
	n := len(y)
	vel := make([]float64, n)
	for i := range y {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		dt := skels[hi].TimestampSec - skels[lo].TimestampSec
		if dt <= 0 {
			continue
		}
		vel[i] = (y[hi] - y[lo]) / dt
	}
	return vel
}

func minObserved(y, conf []float64) float64 {
	min := math.Inf(1)
	for i := range y {
		if conf[i] > 0 && y[i] < min {
			min = y[i]
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}
