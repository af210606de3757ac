// Package replay reads and writes gaitlog recordings: JSON captures of
// per-frame 2D keypoints that let the pipeline run without a live
// detector or video decode. gen-gaitlog produces them synthetically;
// the analyze command consumes them.
package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/stride-data/gait.report/internal/gait"
)

// FormatVersion identifies the gaitlog schema. Readers reject files
// with a different version rather than guessing.
const FormatVersion = 1

// RecordedFrame is one frame's keypoints: per joint [x, y, confidence]
// in pixel coordinates, indexed by gait.JointID order.
type RecordedFrame struct {
	Index        int          `json:"index"`
	TimestampSec float64      `json:"timestamp_sec"`
	Joints       [][3]float64 `json:"joints"`
}

// Recording is a complete gaitlog file.
type Recording struct {
	Version   int             `json:"version"`
	SourceFPS float64         `json:"source_fps"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Frames    []RecordedFrame `json:"frames"`
}

// Read parses and validates a gaitlog stream.
func Read(r io.Reader) (*Recording, error) {
	var rec Recording
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse gaitlog: %w", err)
	}
	if rec.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported gaitlog version %d (want %d)", rec.Version, FormatVersion)
	}
	if rec.SourceFPS <= 0 {
		return nil, fmt.Errorf("gaitlog source_fps must be positive, got %f", rec.SourceFPS)
	}
	for i, f := range rec.Frames {
		if len(f.Joints) != gait.NumJoints {
			return nil, fmt.Errorf("gaitlog frame %d has %d joints, want %d", i, len(f.Joints), gait.NumJoints)
		}
	}
	return &rec, nil
}

// ReadFile reads a gaitlog from disk.
func ReadFile(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gaitlog: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Write serialises a recording. The version field is stamped here so
// callers cannot write an unversioned file.
func Write(w io.Writer, rec *Recording) error {
	rec.Version = FormatVersion
	enc := json.NewEncoder(w)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write gaitlog: %w", err)
	}
	return nil
}

// WriteFile writes a recording to disk.
func WriteFile(path string, rec *Recording) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create gaitlog: %w", err)
	}
	if err := Write(f, rec); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FromSkeletons captures a skeleton sequence as a recording.
func FromSkeletons(fps float64, width, height int, skels []gait.Skeleton2D) *Recording {
	rec := &Recording{
		Version:   FormatVersion,
		SourceFPS: fps,
		Width:     width,
		Height:    height,
		Frames:    make([]RecordedFrame, len(skels)),
	}
	for i := range skels {
		joints := make([][3]float64, gait.NumJoints)
		for j := 0; j < gait.NumJoints; j++ {
			kp := skels[i].Joints[j]
			joints[j] = [3]float64{kp.X, kp.Y, kp.Confidence}
		}
		rec.Frames[i] = RecordedFrame{
			Index:        skels[i].FrameIndex,
			TimestampSec: skels[i].TimestampSec,
			Joints:       joints,
		}
	}
	return rec
}

// FrameSequence returns the pipeline input view of the recording.
// Replayed frames carry no pixel data; only the detector needs them.
func (r *Recording) FrameSequence() gait.FrameSequence {
	frames := make([]gait.Frame, len(r.Frames))
	for i, f := range r.Frames {
		frames[i] = gait.Frame{
			Index:        f.Index,
			TimestampSec: f.TimestampSec,
			Width:        r.Width,
			Height:       r.Height,
		}
	}
	return gait.FrameSequence{Frames: frames, SourceFPS: r.SourceFPS}
}

// Detector returns a detector that serves the recorded keypoints.
// Safe for concurrent use: recordings are read-only once loaded.
func (r *Recording) Detector() *Detector {
	byIndex := make(map[int]int, len(r.Frames))
	for i, f := range r.Frames {
		byIndex[f.Index] = i
	}
	return &Detector{rec: r, byIndex: byIndex}
}

// Detector replays recorded keypoints by frame index.
type Detector struct {
	rec     *Recording
	byIndex map[int]int
}

// Detect returns the recorded joints for the frame.
func (d *Detector) Detect(frame gait.Frame) ([gait.NumJoints]gait.Keypoint2D, error) {
	var joints [gait.NumJoints]gait.Keypoint2D
	i, ok := d.byIndex[frame.Index]
	if !ok {
		return joints, fmt.Errorf("replay: no recorded frame %d", frame.Index)
	}
	for j := 0; j < gait.NumJoints; j++ {
		v := d.rec.Frames[i].Joints[j]
		joints[j] = gait.Keypoint2D{X: v[0], Y: v[1], Confidence: v[2]}
	}
	return joints, nil
}
