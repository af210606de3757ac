package gait

import "fmt"

// Stage names used when wrapping taxonomy errors at the Analyze
// boundary. Every error leaving the pipeline carries one of these as
// a prefix so callers can attribute the failure without parsing text.
const (
	StagePose    = "pose_estimation"
	StageLift    = "lifting"
	StageRobust  = "robustness_filter"
	StageCycles  = "cycle_segmentation"
	StageMetrics = "metrics"
	StageGate    = "quality_gate"
)

// PoseEstimationError reports detector failure or insufficient
// whole-clip confidence in the 2D stage.
type PoseEstimationError struct {
	Reason          string
	FramesProcessed int
	MeanConfidence  float64
}

func (e *PoseEstimationError) Error() string {
	return fmt.Sprintf("pose estimation failed: %s (frames=%d, mean confidence=%.3f)",
		e.Reason, e.FramesProcessed, e.MeanConfidence)
}

// InsufficientFramesError reports an input shorter than a stage's
// minimum window. Stages fail fast with this rather than padding with
// fabricated data.
type InsufficientFramesError struct {
	Stage string
	Got   int
	Need  int
}

// Stage attribution is added once, by the Analyze wrap; the message
// itself names only the shortfall.
func (e *InsufficientFramesError) Error() string {
	return fmt.Sprintf("insufficient frames: got %d, need at least %d", e.Got, e.Need)
}

// LiftingError reports that 3D reconstruction produced non-finite or
// incomplete output for too many frames.
type LiftingError struct {
	Reason      string
	BadFrames   int
	TotalFrames int
}

func (e *LiftingError) Error() string {
	return fmt.Sprintf("3D lifting failed: %s (%d/%d frames unusable)", e.Reason, e.BadFrames, e.TotalFrames)
}

// ScaleCalibrationError reports that no pixel-to-metric reference
// could be established. The pipeline never silently defaults to a
// scale of 1.0.
type ScaleCalibrationError struct {
	Reason string
}

func (e *ScaleCalibrationError) Error() string {
	return "scale calibration failed: " + e.Reason
}

// InsufficientGaitCyclesError reports fewer detectable strides than
// the configured minimum for a foot side.
type InsufficientGaitCyclesError struct {
	Foot FootSide
	Got  int
	Need int
}

func (e *InsufficientGaitCyclesError) Error() string {
	return fmt.Sprintf("insufficient gait cycles: %s foot has %d, need at least %d", e.Foot, e.Got, e.Need)
}

// GaitMetricsError reports an arithmetic or logical failure while
// computing a metric (division by zero, non-finite intermediate,
// required joint missing). Metrics are never returned partially
// populated in place of raising this.
type GaitMetricsError struct {
	Metric string
	Reason string
}

func (e *GaitMetricsError) Error() string {
	return fmt.Sprintf("metric %q: %s", e.Metric, e.Reason)
}
