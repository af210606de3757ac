// Package g1pose is stage 1 of the gait pipeline: it runs a 2D
// keypoint detector over sampled video frames and emits one Skeleton2D
// per sampled frame. Detection itself lives behind the Detector
// interface: model inference (or recording replay) is supplied by the
// caller; this package owns sampling, bounded parallelism, ordering,
// and whole-clip confidence validation.
package g1pose

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/monitoring"
)

// Detector produces per-joint 2D keypoints for a single frame.
// Implementations must be safe for concurrent use: Run calls Detect
// from multiple workers. Joints the detector cannot localise must be
// returned with Confidence 0, never dropped.
type Detector interface {
	Detect(frame gait.Frame) ([gait.NumJoints]gait.Keypoint2D, error)
}

// Config holds the pose-estimation stage parameters. Construct the
// full value before calling New; the estimator never reads config from
// anywhere else after construction.
type Config struct {
	ProcessingFPS     float64 // target sampling rate; clamped to source fps
	MinFrames         int     // minimum sampled frames for a usable clip
	MinMeanConfidence float64 // whole-clip mean joint confidence floor
	Workers           int     // detection workers; 0 means GOMAXPROCS
}

// Estimator runs 2D pose detection over a frame sequence.
type Estimator struct {
	cfg Config
	det Detector
}

// New creates an Estimator with the given configuration and detector.
func New(cfg Config, det Detector) *Estimator {
	return &Estimator{cfg: cfg, det: det}
}

// Run samples the sequence at the configured rate and detects a
// skeleton for every sampled frame, in temporal order. The progress
// callback, when non-nil, is invoked with completion in [0,1].
//
// Fails with *gait.PoseEstimationError when fewer than MinFrames
// frames could be processed or when the whole-clip mean confidence is
// below the configured floor. Cancellations surface as ctx.Err().
func (e *Estimator) Run(ctx context.Context, seq gait.FrameSequence, progress func(float64)) ([]gait.Skeleton2D, error) {
	if len(seq.Frames) == 0 {
		return nil, &gait.PoseEstimationError{Reason: "empty frame sequence"}
	}
	if seq.SourceFPS <= 0 {
		return nil, &gait.PoseEstimationError{Reason: "source fps must be positive"}
	}

	sampled := e.sample(seq)
	if len(sampled) < e.cfg.MinFrames {
		return nil, &gait.PoseEstimationError{
			Reason:          "too few frames to process",
			FramesProcessed: len(sampled),
		}
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(sampled) {
		workers = len(sampled)
	}

	// Per-frame detection is embarrassingly parallel; results land in
	// an index-addressed slice so output order never depends on
	// scheduling. Cancellation is checked between frames, not within
	// a single detection.
	skels := make([]gait.Skeleton2D, len(sampled))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		done   int
		failed int
		runErr error
	)

	jobs := make(chan int)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				frame := sampled[i]
				joints, err := e.det.Detect(frame)
				skel := gait.Skeleton2D{
					FrameIndex:   frame.Index,
					TimestampSec: frame.TimestampSec,
				}
				if err == nil {
					skel.Joints = joints
				}
				mu.Lock()
				if err != nil {
					// A frame the detector rejected still occupies its
					// slot (all joints confidence 0) so output stays one
					// skeleton per sampled frame.
					failed++
				}
				skels[i] = skel
				done++
				if progress != nil {
					progress(float64(done) / float64(len(sampled)))
				}
				mu.Unlock()
			}
		}()
	}

	for i := range sampled {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	processed := len(sampled) - failed
	if processed < e.cfg.MinFrames {
		return nil, &gait.PoseEstimationError{
			Reason:          "detector failed on too many frames",
			FramesProcessed: processed,
		}
	}

	mean := meanConfidence(skels)
	if mean < e.cfg.MinMeanConfidence {
		return nil, &gait.PoseEstimationError{
			Reason:          "mean joint confidence below floor",
			FramesProcessed: processed,
			MeanConfidence:  mean,
		}
	}

	return skels, nil
}

// sample picks frames at the configured processing rate. A requested
// rate at or above the source fps processes every frame; the clamp is
// reported through the package logger.
func (e *Estimator) sample(seq gait.FrameSequence) []gait.Frame {
	fps := e.cfg.ProcessingFPS
	if fps <= 0 || fps >= seq.SourceFPS {
		if fps > seq.SourceFPS {
			monitoring.Logf("g1pose: requested %.1f fps exceeds source %.1f fps; clamping to source rate", fps, seq.SourceFPS)
		}
		out := make([]gait.Frame, len(seq.Frames))
		copy(out, seq.Frames)
		sortByIndex(out)
		return out
	}

	stride := seq.SourceFPS / fps
	out := make([]gait.Frame, 0, int(float64(len(seq.Frames))/stride)+1)
	next := 0.0
	for i, f := range seq.Frames {
		if float64(i) >= next-1e-9 {
			out = append(out, f)
			next += stride
		}
	}
	sortByIndex(out)
	return out
}

func sortByIndex(frames []gait.Frame) {
	sort.Slice(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })
}

// EffectiveFPS returns the sampling rate Run will actually use for the
// given source rate (the requested rate clamped to source).
func (e *Estimator) EffectiveFPS(sourceFPS float64) float64 {
	if e.cfg.ProcessingFPS <= 0 || e.cfg.ProcessingFPS >= sourceFPS {
		return sourceFPS
	}
	return e.cfg.ProcessingFPS
}

func meanConfidence(skels []gait.Skeleton2D) float64 {
	if len(skels) == 0 {
		return 0
	}
	var sum float64
	for i := range skels {
		sum += skels[i].MeanConfidence()
	}
	mean := sum / float64(len(skels))
	if math.IsNaN(mean) {
		return 0
	}
	return mean
}

// MeanClipConfidence exposes the whole-clip confidence computation for
// the quality gate, which re-checks the raw 2D confidences against its
// own (stricter) threshold.
func MeanClipConfidence(skels []gait.Skeleton2D) float64 {
	return meanConfidence(skels)
}
