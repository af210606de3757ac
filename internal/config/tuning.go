package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for pipeline tuning
// parameters. All fields are pointers so a partial JSON file is safe:
// fields omitted from the file fall back to the canonical defaults via
// the Get* accessors.
type TuningConfig struct {
	// Pose estimation params
	ProcessingFPS     *float64 `json:"processing_fps,omitempty"`
	MinFrames         *int     `json:"min_frames,omitempty"`
	MinMeanConfidence *float64 `json:"min_mean_confidence,omitempty"`
	PoseWorkers       *int     `json:"pose_workers,omitempty"`

	// Lifting params
	ReceptiveField      *int     `json:"receptive_field,omitempty"`
	TorsoLengthMM       *float64 `json:"torso_length_mm,omitempty"`
	MaxUnusableFraction *float64 `json:"max_unusable_fraction,omitempty"`

	// Calibration params
	ReferenceObjectLengthMM  *float64 `json:"reference_object_length_mm,omitempty"`
	ReferenceObjectPixelSpan *float64 `json:"reference_object_pixel_span,omitempty"`
	SubjectHeightMM          *float64 `json:"subject_height_mm,omitempty"`

	// Denoising filter params
	ProcessNoise     *float64 `json:"process_noise,omitempty"`
	MeasurementNoise *float64 `json:"measurement_noise,omitempty"`

	// Foot-contact params
	StanceVelThresholdMMps *float64 `json:"stance_vel_threshold_mmps,omitempty"`
	StanceMaxHeightMM      *float64 `json:"stance_max_height_mm,omitempty"`
	StanceMinDuration      *string  `json:"stance_min_duration,omitempty"` // duration string like "120ms"

	// Cycle segmentation params
	StrikeVelThresholdMMps *float64 `json:"strike_vel_threshold_mmps,omitempty"`
	ToeOffVelThresholdMMps *float64 `json:"toe_off_vel_threshold_mmps,omitempty"`
	StrikeHeightBandMM     *float64 `json:"strike_height_band_mm,omitempty"`
	MinInterEvent          *string  `json:"min_inter_event,omitempty"` // duration string like "100ms"
	MinCyclesRequired      *int     `json:"min_cycles_required,omitempty"`

	// Quality gate params
	GateMinConfidence  *float64 `json:"gate_min_confidence,omitempty"`
	GateMinFrames      *int     `json:"gate_min_frames,omitempty"`
	SegmentLengthMaxCV *float64 `json:"segment_length_max_cv,omitempty"`
	MaxJointSpeedMps   *float64 `json:"max_joint_speed_mps,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to have a .json extension and to be under the
// max file size. Fields omitted from the JSON retain their defaults,
// so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and common parent
// directories. Panics if the file cannot be loaded; intended for test
// setup and binaries that have already validated config availability.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/gait/<stage>/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are in range.
func (c *TuningConfig) Validate() error {
	if c.ProcessingFPS != nil && *c.ProcessingFPS <= 0 {
		return fmt.Errorf("processing_fps must be positive, got %f", *c.ProcessingFPS)
	}
	if c.MinMeanConfidence != nil {
		if *c.MinMeanConfidence < 0 || *c.MinMeanConfidence > 1 {
			return fmt.Errorf("min_mean_confidence must be between 0 and 1, got %f", *c.MinMeanConfidence)
		}
	}
	if c.GateMinConfidence != nil {
		if *c.GateMinConfidence < 0 || *c.GateMinConfidence > 1 {
			return fmt.Errorf("gate_min_confidence must be between 0 and 1, got %f", *c.GateMinConfidence)
		}
	}
	if c.ReceptiveField != nil {
		if *c.ReceptiveField < 1 || *c.ReceptiveField%2 == 0 {
			return fmt.Errorf("receptive_field must be a positive odd number, got %d", *c.ReceptiveField)
		}
	}
	if c.MaxUnusableFraction != nil {
		if *c.MaxUnusableFraction < 0 || *c.MaxUnusableFraction > 1 {
			return fmt.Errorf("max_unusable_fraction must be between 0 and 1, got %f", *c.MaxUnusableFraction)
		}
	}
	if c.ProcessNoise != nil && *c.ProcessNoise <= 0 {
		return fmt.Errorf("process_noise must be positive, got %f", *c.ProcessNoise)
	}
	if c.MeasurementNoise != nil && *c.MeasurementNoise <= 0 {
		return fmt.Errorf("measurement_noise must be positive, got %f", *c.MeasurementNoise)
	}
	if c.MinCyclesRequired != nil && *c.MinCyclesRequired < 2 {
		return fmt.Errorf("min_cycles_required must be at least 2, got %d", *c.MinCyclesRequired)
	}
	if c.StanceMinDuration != nil && *c.StanceMinDuration != "" {
		if _, err := time.ParseDuration(*c.StanceMinDuration); err != nil {
			return fmt.Errorf("invalid stance_min_duration '%s': %w", *c.StanceMinDuration, err)
		}
	}
	if c.MinInterEvent != nil && *c.MinInterEvent != "" {
		if _, err := time.ParseDuration(*c.MinInterEvent); err != nil {
			return fmt.Errorf("invalid min_inter_event '%s': %w", *c.MinInterEvent, err)
		}
	}
	return nil
}

// GetProcessingFPS returns the processing_fps value or the default.
func (c *TuningConfig) GetProcessingFPS() float64 {
	if c.ProcessingFPS == nil {
		return 30.0
	}
	return *c.ProcessingFPS
}

// GetMinFrames returns the min_frames value or the default.
func (c *TuningConfig) GetMinFrames() int {
	if c.MinFrames == nil {
		return 30
	}
	return *c.MinFrames
}

// GetMinMeanConfidence returns the min_mean_confidence value or the default.
// This is the pose-estimation floor; the quality gate applies its own,
// stricter threshold via GetGateMinConfidence.
func (c *TuningConfig) GetMinMeanConfidence() float64 {
	if c.MinMeanConfidence == nil {
		return 0.25
	}
	return *c.MinMeanConfidence
}

// GetPoseWorkers returns the pose_workers value or the default.
// Zero means one worker per available CPU.
func (c *TuningConfig) GetPoseWorkers() int {
	if c.PoseWorkers == nil {
		return 0
	}
	return *c.PoseWorkers
}

// GetReceptiveField returns the receptive_field value or the default.
func (c *TuningConfig) GetReceptiveField() int {
	if c.ReceptiveField == nil {
		return 27
	}
	return *c.ReceptiveField
}

// GetTorsoLengthMM returns the torso_length_mm value or the default.
func (c *TuningConfig) GetTorsoLengthMM() float64 {
	if c.TorsoLengthMM == nil {
		return 520.0
	}
	return *c.TorsoLengthMM
}

// GetMaxUnusableFraction returns the max_unusable_fraction value or the default.
func (c *TuningConfig) GetMaxUnusableFraction() float64 {
	if c.MaxUnusableFraction == nil {
		return 0.1
	}
	return *c.MaxUnusableFraction
}

// GetReferenceObjectLengthMM returns the reference_object_length_mm
// value, or 0 when no calibration object is configured.
func (c *TuningConfig) GetReferenceObjectLengthMM() float64 {
	if c.ReferenceObjectLengthMM == nil {
		return 0
	}
	return *c.ReferenceObjectLengthMM
}

// GetReferenceObjectPixelSpan returns the reference_object_pixel_span
// value, or 0 when no calibration object is configured.
func (c *TuningConfig) GetReferenceObjectPixelSpan() float64 {
	if c.ReferenceObjectPixelSpan == nil {
		return 0
	}
	return *c.ReferenceObjectPixelSpan
}

// GetSubjectHeightMM returns the subject_height_mm anthropometric
// fallback, or 0 when none is configured.
func (c *TuningConfig) GetSubjectHeightMM() float64 {
	if c.SubjectHeightMM == nil {
		return 0
	}
	return *c.SubjectHeightMM
}

// GetProcessNoise returns the process_noise value or the default (mm²/s).
func (c *TuningConfig) GetProcessNoise() float64 {
	if c.ProcessNoise == nil {
		return 400.0
	}
	return *c.ProcessNoise
}

// GetMeasurementNoise returns the measurement_noise value or the default (mm²).
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 150.0
	}
	return *c.MeasurementNoise
}

// GetStanceVelThresholdMMps returns the stance_vel_threshold_mmps value or the default.
func (c *TuningConfig) GetStanceVelThresholdMMps() float64 {
	if c.StanceVelThresholdMMps == nil {
		return 250.0
	}
	return *c.StanceVelThresholdMMps
}

// GetStanceMaxHeightMM returns the stance_max_height_mm value or the default.
func (c *TuningConfig) GetStanceMaxHeightMM() float64 {
	if c.StanceMaxHeightMM == nil {
		return 45.0
	}
	return *c.StanceMaxHeightMM
}

// GetStanceMinDuration parses and returns stance_min_duration as a time.Duration.
func (c *TuningConfig) GetStanceMinDuration() time.Duration {
	if c.StanceMinDuration == nil || *c.StanceMinDuration == "" {
		return 120 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.StanceMinDuration)
	if err != nil {
		return 120 * time.Millisecond
	}
	return d
}

// GetStrikeVelThresholdMMps returns the strike_vel_threshold_mmps value or the default.
func (c *TuningConfig) GetStrikeVelThresholdMMps() float64 {
	if c.StrikeVelThresholdMMps == nil {
		return 180.0
	}
	return *c.StrikeVelThresholdMMps
}

// GetToeOffVelThresholdMMps returns the toe_off_vel_threshold_mmps value or the default.
func (c *TuningConfig) GetToeOffVelThresholdMMps() float64 {
	if c.ToeOffVelThresholdMMps == nil {
		return 350.0
	}
	return *c.ToeOffVelThresholdMMps
}

// GetStrikeHeightBandMM returns the strike_height_band_mm value or the default.
func (c *TuningConfig) GetStrikeHeightBandMM() float64 {
	if c.StrikeHeightBandMM == nil {
		return 40.0
	}
	return *c.StrikeHeightBandMM
}

// GetMinInterEvent parses and returns min_inter_event as a time.Duration.
// This is the heel-strike debounce window.
func (c *TuningConfig) GetMinInterEvent() time.Duration {
	if c.MinInterEvent == nil || *c.MinInterEvent == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.MinInterEvent)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetMinCyclesRequired returns the min_cycles_required value or the default.
func (c *TuningConfig) GetMinCyclesRequired() int {
	if c.MinCyclesRequired == nil {
		return 2
	}
	return *c.MinCyclesRequired
}

// GetGateMinConfidence returns the gate_min_confidence value or the default.
func (c *TuningConfig) GetGateMinConfidence() float64 {
	if c.GateMinConfidence == nil {
		return 0.8
	}
	return *c.GateMinConfidence
}

// GetGateMinFrames returns the gate_min_frames value or the default.
func (c *TuningConfig) GetGateMinFrames() int {
	if c.GateMinFrames == nil {
		return 30
	}
	return *c.GateMinFrames
}

// GetSegmentLengthMaxCV returns the segment_length_max_cv value or the default (percent).
func (c *TuningConfig) GetSegmentLengthMaxCV() float64 {
	if c.SegmentLengthMaxCV == nil {
		return 20.0
	}
	return *c.SegmentLengthMaxCV
}

// GetMaxJointSpeedMps returns the max_joint_speed_mps value or the default.
func (c *TuningConfig) GetMaxJointSpeedMps() float64 {
	if c.MaxJointSpeedMps == nil {
		return 12.0
	}
	return *c.MaxJointSpeedMps
}
