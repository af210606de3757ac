package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := EmptyTuningConfig()

	assert.Equal(t, 30.0, cfg.GetProcessingFPS())
	assert.Equal(t, 30, cfg.GetMinFrames())
	assert.Equal(t, 0.25, cfg.GetMinMeanConfidence())
	assert.Equal(t, 0, cfg.GetPoseWorkers())
	assert.Equal(t, 27, cfg.GetReceptiveField())
	assert.Equal(t, 520.0, cfg.GetTorsoLengthMM())
	assert.Equal(t, 0.1, cfg.GetMaxUnusableFraction())
	assert.Equal(t, 0.0, cfg.GetReferenceObjectLengthMM())
	assert.Equal(t, 0.0, cfg.GetSubjectHeightMM())
	assert.Equal(t, 400.0, cfg.GetProcessNoise())
	assert.Equal(t, 150.0, cfg.GetMeasurementNoise())
	assert.Equal(t, 250.0, cfg.GetStanceVelThresholdMMps())
	assert.Equal(t, 45.0, cfg.GetStanceMaxHeightMM())
	assert.Equal(t, 120*time.Millisecond, cfg.GetStanceMinDuration())
	assert.Equal(t, 180.0, cfg.GetStrikeVelThresholdMMps())
	assert.Equal(t, 350.0, cfg.GetToeOffVelThresholdMMps())
	assert.Equal(t, 40.0, cfg.GetStrikeHeightBandMM())
	assert.Equal(t, 100*time.Millisecond, cfg.GetMinInterEvent())
	assert.Equal(t, 2, cfg.GetMinCyclesRequired())
	assert.Equal(t, 0.8, cfg.GetGateMinConfidence())
	assert.Equal(t, 30, cfg.GetGateMinFrames())
	assert.Equal(t, 20.0, cfg.GetSegmentLengthMaxCV())
	assert.Equal(t, 12.0, cfg.GetMaxJointSpeedMps())
}

func TestLoadTuningConfig(t *testing.T) {
	t.Parallel()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "partial.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"processing_fps": 15, "subject_height_mm": 1800}`), 0644))

		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 15.0, cfg.GetProcessingFPS())
		assert.Equal(t, 1800.0, cfg.GetSubjectHeightMM())
		assert.Equal(t, 27, cfg.GetReceptiveField()) // untouched default
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, ".json extension")
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"processing_fps": -1}`), 0644))
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, "processing_fps")
	})

	t.Run("missing file errors", func(t *testing.T) {
		t.Parallel()
		_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	fptr := func(v float64) *float64 { return &v }
	iptr := func(v int) *int { return &v }
	sptr := func(v string) *string { return &v }

	cases := []struct {
		name    string
		cfg     TuningConfig
		wantErr string
	}{
		{"even receptive field", TuningConfig{ReceptiveField: iptr(26)}, "receptive_field"},
		{"confidence above one", TuningConfig{MinMeanConfidence: fptr(1.5)}, "min_mean_confidence"},
		{"gate confidence negative", TuningConfig{GateMinConfidence: fptr(-0.1)}, "gate_min_confidence"},
		{"min cycles below two", TuningConfig{MinCyclesRequired: iptr(1)}, "min_cycles_required"},
		{"bad stance duration", TuningConfig{StanceMinDuration: sptr("fast")}, "stance_min_duration"},
		{"bad debounce duration", TuningConfig{MinInterEvent: sptr("later")}, "min_inter_event"},
		{"negative process noise", TuningConfig{ProcessNoise: fptr(-5)}, "process_noise"},
		{"unusable fraction above one", TuningConfig{MaxUnusableFraction: fptr(2)}, "max_unusable_fraction"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}

	t.Run("empty config is valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, EmptyTuningConfig().Validate())
	})
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 30.0, cfg.GetProcessingFPS())
	assert.Equal(t, 2, cfg.GetMinCyclesRequired())
	// The shipped defaults configure the anthropometric fallback.
	assert.Equal(t, 1700.0, cfg.GetSubjectHeightMM())
}
