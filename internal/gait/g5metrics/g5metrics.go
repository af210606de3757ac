// Package g5metrics is stage 5 of the gait pipeline: it turns the
// segmented cycles and the denoised skeleton sequence into the
// clinical gait metrics. All spatial inputs are calibrated
// millimetres; outputs follow the unit convention documented on
// gait.GaitMetrics.
//
// The stage computes per-cycle and per-step values first, then
// aggregates with gonum's stat package. Any degenerate intermediate
// (zero denominator, non-finite value, missing required joint) aborts
// the stage with *gait.GaitMetricsError rather than emitting a
// partially populated result.
package g5metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/g4cycles"
)

// Calculator derives the aggregate gait metrics for one recording.
type Calculator struct{}

// New creates a Calculator. The stage is stateless; one value serves
// any number of recordings.
func New() *Calculator { return &Calculator{} }

// step is one heel-strike to opposite-foot heel-strike interval.
type step struct {
	foot     gait.FootSide // foot striking at the END of the step
	timeSec  float64
	lengthMM float64
	widthMM  float64
}

// Run computes the full metric set. skels is the denoised calibrated
// sequence the cycles were segmented from.
func (c *Calculator) Run(skels []gait.Skeleton3D, seg *g4cycles.Segmentation) (*gait.GaitMetrics, error) {
	if len(seg.Left) == 0 || len(seg.Right) == 0 {
		return nil, &gait.GaitMetricsError{Metric: "all", Reason: "no cycles for one or both feet"}
	}

	steps, err := buildSteps(skels, seg)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, &gait.GaitMetricsError{Metric: "step_time", Reason: "no alternating steps detected"}
	}

	m := &gait.GaitMetrics{
		CycleCount:      len(seg.Merged),
		LeftCycleCount:  len(seg.Left),
		RightCycleCount: len(seg.Right),
	}

	// Per-step series.
	stepTimes := make([]float64, 0, len(steps))
	stepLengths := make([]float64, 0, len(steps))
	stepWidths := make([]float64, 0, len(steps))
	stepTimesBy := map[gait.FootSide][]float64{}
	stepLengthsBy := map[gait.FootSide][]float64{}
	for _, s := range steps {
		stepTimes = append(stepTimes, s.timeSec)
		stepLengths = append(stepLengths, s.lengthMM)
		stepWidths = append(stepWidths, s.widthMM)
		stepTimesBy[s.foot] = append(stepTimesBy[s.foot], s.timeSec)
		stepLengthsBy[s.foot] = append(stepLengthsBy[s.foot], s.lengthMM)
	}

	if m.StepTimeSec, err = meanOf("step_time", stepTimes); err != nil {
		return nil, err
	}
	if m.StepLengthMM, err = meanOf("step_length", stepLengths); err != nil {
		return nil, err
	}
	if m.StepWidthMM, err = meanOf("step_width", stepWidths); err != nil {
		return nil, err
	}
	if m.StepTimeSec <= 0 {
		return nil, &gait.GaitMetricsError{Metric: "cadence", Reason: "non-positive mean step time"}
	}
	m.CadenceStepsPerMin = 60.0 / m.StepTimeSec

	// Per-cycle (stride) series.
	strideTimes := make([]float64, 0, len(seg.Merged))
	strideLengths := make([]float64, 0, len(seg.Merged))
	strideSpeeds := make([]float64, 0, len(seg.Merged))
	stanceBy := map[gait.FootSide][]float64{}
	swingBy := map[gait.FootSide][]float64{}
	doubleSupport := make([]float64, 0, len(seg.Merged))
	for _, cy := range seg.Merged {
		dur := cy.DurationSec()
		if dur <= 0 {
			return nil, &gait.GaitMetricsError{Metric: "stride_length", Reason: "zero-duration cycle"}
		}
		length, lerr := strideDisplacement(skels, cy)
		if lerr != nil {
			return nil, lerr
		}
		strideTimes = append(strideTimes, dur)
		strideLengths = append(strideLengths, length)
		strideSpeeds = append(strideSpeeds, length/dur)
		stanceBy[cy.Foot] = append(stanceBy[cy.Foot], cy.StanceSec())
		swingBy[cy.Foot] = append(swingBy[cy.Foot], cy.SwingSec())
		doubleSupport = append(doubleSupport, overlapWithin(cy, seg.StanceIntervals[cy.Foot.Other()]))
	}

	if m.StrideLengthMM, err = meanOf("stride_length", strideLengths); err != nil {
		return nil, err
	}
	if m.DoubleSupportTimeSec, err = meanOf("double_support_time", doubleSupport); err != nil {
		return nil, err
	}

	stanceAll := append(append([]float64{}, stanceBy[gait.FootLeft]...), stanceBy[gait.FootRight]...)
	swingAll := append(append([]float64{}, swingBy[gait.FootLeft]...), swingBy[gait.FootRight]...)
	if m.StanceTimeSec, err = meanOf("stance_time", stanceAll); err != nil {
		return nil, err
	}
	if m.SwingTimeSec, err = meanOf("swing_time", swingAll); err != nil {
		return nil, err
	}

	if m.WalkingSpeedMps, err = walkingSpeed(skels, seg); err != nil {
		return nil, err
	}

	// Variability.
	if m.StepTimeCV, err = cv("step_time_cv", stepTimes); err != nil {
		return nil, err
	}
	if m.StepLengthCV, err = cv("step_length_cv", stepLengths); err != nil {
		return nil, err
	}
	if m.StepWidthCV, err = cv("step_width_cv", stepWidths); err != nil {
		return nil, err
	}
	if m.StrideSpeedCV, err = cv("stride_speed_cv", strideSpeeds); err != nil {
		return nil, err
	}

	// Symmetry.
	if m.StepTimeSymmetry, err = symmetry("step_time_symmetry", stepTimesBy); err != nil {
		return nil, err
	}
	if m.StepLengthSymmetry, err = symmetry("step_length_symmetry", stepLengthsBy); err != nil {
		return nil, err
	}
	if m.StanceTimeSymmetry, err = symmetry("stance_time_symmetry", stanceBy); err != nil {
		return nil, err
	}
	if m.SwingTimeSymmetry, err = symmetry("swing_time_symmetry", swingBy); err != nil {
		return nil, err
	}

	if err := finiteCheck(m); err != nil {
		return nil, err
	}
	return m, nil
}

// buildSteps interleaves the two feet's heel-strikes in time and forms
// a step from every consecutive pair of opposite-foot strikes.
func buildSteps(skels []gait.Skeleton3D, seg *g4cycles.Segmentation) ([]step, error) {
	events := append(append([]g4cycles.Event{},
		seg.Strikes[gait.FootLeft]...),
		seg.Strikes[gait.FootRight]...)
	sort.Slice(events, func(i, j int) bool { return events[i].TimeSec < events[j].TimeSec })

	steps := make([]step, 0, len(events))
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if prev.Foot == cur.Foot {
			// Same-foot succession means the opposite strike was not
			// detected; skip rather than fabricate a step.
			continue
		}
		if cur.Frame >= len(skels) {
			return nil, &gait.GaitMetricsError{Metric: "step_length", Reason: "strike frame beyond sequence"}
		}
		sk := skels[cur.Frame]
		lead := sk.Joints[cur.Foot.Ankle()]
		trail := sk.Joints[cur.Foot.Other().Ankle()]
		if lead.Confidence <= 0 || trail.Confidence <= 0 {
			return nil, &gait.GaitMetricsError{
				Metric: "step_length",
				Reason: fmt.Sprintf("ankle unobserved at strike frame %d", cur.Frame),
			}
		}
		steps = append(steps, step{
			foot:     cur.Foot,
			timeSec:  cur.TimeSec - prev.TimeSec,
			lengthMM: math.Abs(lead.X - trail.X),
			widthMM:  math.Abs(lead.Z - trail.Z),
		})
	}
	return steps, nil
}

// strideDisplacement is the forward travel of the cycle's ankle from
// opening to closing heel-strike.
func strideDisplacement(skels []gait.Skeleton3D, cy gait.Cycle) (float64, error) {
	if cy.StartFrame >= len(skels) || cy.EndFrame >= len(skels) {
		return 0, &gait.GaitMetricsError{Metric: "stride_length", Reason: "cycle frame beyond sequence"}
	}
	ankle := cy.Foot.Ankle()
	a := skels[cy.StartFrame].Joints[ankle]
	b := skels[cy.EndFrame].Joints[ankle]
	if a.Confidence <= 0 || b.Confidence <= 0 {
		return 0, &gait.GaitMetricsError{Metric: "stride_length", Reason: "ankle unobserved at cycle boundary"}
	}
	return math.Abs(b.X - a.X), nil
}

// walkingSpeed is the pelvis displacement over the analysed span, in
// metres per second. Only the span between the first and last detected
// heel-strike counts, so lead-in and lead-out frames where the subject
// may be standing do not dilute the estimate.
func walkingSpeed(skels []gait.Skeleton3D, seg *g4cycles.Segmentation) (float64, error) {
	first := seg.Merged[0]
	last := seg.Merged[len(seg.Merged)-1]
	dt := last.EndSec - first.StartSec
	if dt <= 0 {
		return 0, &gait.GaitMetricsError{Metric: "walking_speed", Reason: "non-positive analysis span"}
	}
	a := skels[first.StartFrame].MidHip()
	b := skels[last.EndFrame].MidHip()
	if a.Confidence <= 0 || b.Confidence <= 0 {
		return 0, &gait.GaitMetricsError{Metric: "walking_speed", Reason: "pelvis unobserved at analysis boundary"}
	}
	return math.Abs(b.X-a.X) / 1000.0 / dt, nil
}

// overlapWithin sums the opposite foot's stance time that falls inside
// this cycle's own stance phase. That sum is the cycle's double-support
// duration.
func overlapWithin(cy gait.Cycle, otherStance [][2]float64) float64 {
	var total float64
	for _, iv := range otherStance {
		lo := math.Max(cy.StartSec, iv[0])
		hi := math.Min(cy.ToeOffSec, iv[1])
		if hi > lo {
			total += hi - lo
		}
	}
	return total
}

func meanOf(metric string, vals []float64) (float64, error) {
	if len(vals) == 0 {
		return 0, &gait.GaitMetricsError{Metric: metric, Reason: "empty series"}
	}
	m := stat.Mean(vals, nil)
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, &gait.GaitMetricsError{Metric: metric, Reason: "non-finite mean"}
	}
	return m, nil
}

// cv is the coefficient of variation: stdev/mean × 100. A single-value
// series has zero variability by definition.
func cv(metric string, vals []float64) (float64, error) {
	mean, err := meanOf(metric, vals)
	if err != nil {
		return 0, err
	}
	if len(vals) < 2 {
		return 0, nil
	}
	sd := stat.StdDev(vals, nil)
	if mean == 0 {
		if sd == 0 {
			// A constant zero series (e.g. step width in a pure
			// sagittal recording) has no variability.
			return 0, nil
		}
		return 0, &gait.GaitMetricsError{Metric: metric, Reason: "zero mean in variability denominator"}
	}
	return sd / math.Abs(mean) * 100.0, nil
}

// symmetry is 1 - |L-R| / ((L+R)/2) over the per-foot means: 1.0 for
// perfect symmetry, descending toward 0 as the sides diverge.
func symmetry(metric string, byFoot map[gait.FootSide][]float64) (float64, error) {
	l, err := meanOf(metric, byFoot[gait.FootLeft])
	if err != nil {
		return 0, err
	}
	r, err := meanOf(metric, byFoot[gait.FootRight])
	if err != nil {
		return 0, err
	}
	denom := (l + r) / 2
	if denom == 0 {
		return 0, &gait.GaitMetricsError{Metric: metric, Reason: "zero mean in symmetry denominator"}
	}
	return 1.0 - math.Abs(l-r)/denom, nil
}

func finiteCheck(m *gait.GaitMetrics) error {
	for name, v := range m.Map() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &gait.GaitMetricsError{Metric: name, Reason: "non-finite result"}
		}
	}
	return nil
}
