package gait

// GaitMetrics is the aggregate output of the metrics calculator.
// A GaitMetrics value is produced exactly once, fully populated, by
// the metrics stage; downstream stages (quality gate, reporting,
// persistence) only read it. No later stage may recompute or
// overwrite any field.
//
// Distances are millimetres, times seconds, cadence steps per minute
// (total steps, both feet), speed metres per second, variability
// coefficients percentages, symmetry indices dimensionless with 1.0
// meaning perfect left/right symmetry.
type GaitMetrics struct {
	// Spatiotemporal means across all detected cycles.
	CadenceStepsPerMin   float64
	WalkingSpeedMps      float64
	StepLengthMM         float64
	StrideLengthMM       float64
	StepWidthMM          float64
	StepTimeSec          float64
	StanceTimeSec        float64
	SwingTimeSec         float64
	DoubleSupportTimeSec float64

	// Variability: coefficient of variation, stdev/mean × 100.
	StepTimeCV    float64
	StepLengthCV  float64
	StepWidthCV   float64
	StrideSpeedCV float64

	// Symmetry indices: 1 - |L-R| / ((L+R)/2).
	StepTimeSymmetry   float64
	StepLengthSymmetry float64
	StanceTimeSymmetry float64
	SwingTimeSymmetry  float64

	// Cycle bookkeeping.
	CycleCount      int
	LeftCycleCount  int
	RightCycleCount int
}

// Map returns the metrics as a name → value mapping using the stable
// snake_case metric names consumed by reports and persistence.
func (m *GaitMetrics) Map() map[string]float64 {
	return map[string]float64{
		"cadence":              m.CadenceStepsPerMin,
		"walking_speed":        m.WalkingSpeedMps,
		"step_length":          m.StepLengthMM,
		"stride_length":        m.StrideLengthMM,
		"step_width":           m.StepWidthMM,
		"step_time":            m.StepTimeSec,
		"stance_time":          m.StanceTimeSec,
		"swing_time":           m.SwingTimeSec,
		"double_support_time":  m.DoubleSupportTimeSec,
		"step_time_cv":         m.StepTimeCV,
		"step_length_cv":       m.StepLengthCV,
		"step_width_cv":        m.StepWidthCV,
		"stride_speed_cv":      m.StrideSpeedCV,
		"step_time_symmetry":   m.StepTimeSymmetry,
		"step_length_symmetry": m.StepLengthSymmetry,
		"stance_time_symmetry": m.StanceTimeSymmetry,
		"swing_time_symmetry":  m.SwingTimeSymmetry,
	}
}

// Violation records one quality criterion the recording failed.
type Violation struct {
	Criterion string  `json:"criterion"`
	Measured  float64 `json:"measured"`
	Threshold float64 `json:"threshold"`
}

// QualityResult is the quality gate's decision. When Passed is false
// the metrics were still computed but must not be presented as valid;
// the violation list says why.
type QualityResult struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
}
