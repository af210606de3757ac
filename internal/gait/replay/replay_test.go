package replay_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/replay"
	"github.com/stride-data/gait.report/internal/gait/synth"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	seq := synth.Generate(synth.Params{DurationSec: 1, Seed: 5})
	rec := replay.FromSkeletons(30, 1920, 1080, seq.Skeletons)

	var buf bytes.Buffer
	require.NoError(t, replay.Write(&buf, rec))

	got, err := replay.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, replay.FormatVersion, got.Version)
	assert.Equal(t, 30.0, got.SourceFPS)
	assert.Equal(t, 1920, got.Width)
	require.Len(t, got.Frames, len(seq.Skeletons))
	assert.Equal(t, rec.Frames[10].Joints, got.Frames[10].Joints)
}

func TestReadRejectsWrongVersion(t *testing.T) {
	t.Parallel()
	_, err := replay.Read(strings.NewReader(`{"version": 99, "source_fps": 30, "frames": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 99")
}

func TestReadRejectsBadInput(t *testing.T) {
	t.Parallel()

	t.Run("missing fps", func(t *testing.T) {
		t.Parallel()
		_, err := replay.Read(strings.NewReader(`{"version": 1, "frames": []}`))
		assert.ErrorContains(t, err, "source_fps")
	})

	t.Run("wrong joint count", func(t *testing.T) {
		t.Parallel()
		_, err := replay.Read(strings.NewReader(
			`{"version": 1, "source_fps": 30, "frames": [{"index": 0, "joints": [[1,2,0.9]]}]}`))
		assert.ErrorContains(t, err, "joints")
	})

	t.Run("not json", func(t *testing.T) {
		t.Parallel()
		_, err := replay.Read(strings.NewReader("RIFF not a gaitlog"))
		assert.Error(t, err)
	})
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()
	seq := synth.Generate(synth.Params{DurationSec: 0.5, Seed: 2})
	rec := replay.FromSkeletons(30, 1920, 1080, seq.Skeletons)

	path := filepath.Join(t.TempDir(), "walk.gaitlog")
	require.NoError(t, replay.WriteFile(path, rec))

	got, err := replay.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got.Frames, len(rec.Frames))
}

func TestDetectorServesRecordedJoints(t *testing.T) {
	t.Parallel()
	seq := synth.Generate(synth.Params{DurationSec: 1, Seed: 5})
	rec := replay.FromSkeletons(30, 1920, 1080, seq.Skeletons)

	det := rec.Detector()
	joints, err := det.Detect(gait.Frame{Index: 7})
	require.NoError(t, err)
	assert.Equal(t, seq.Skeletons[7].Joints[gait.Nose], joints[gait.Nose])

	_, err = det.Detect(gait.Frame{Index: 9999})
	assert.Error(t, err)
}

func TestFrameSequencePreservesTiming(t *testing.T) {
	t.Parallel()
	seq := synth.Generate(synth.Params{DurationSec: 1, Seed: 5})
	rec := replay.FromSkeletons(30, 1920, 1080, seq.Skeletons)

	fs := rec.FrameSequence()
	assert.Equal(t, 30.0, fs.SourceFPS)
	require.Len(t, fs.Frames, 30)
	assert.Equal(t, seq.Skeletons[12].TimestampSec, fs.Frames[12].TimestampSec)
	assert.Equal(t, 1080, fs.Frames[0].Height)
}
