// Command gen-gaitlog generates sample .gaitlog recordings for testing
// replay and the analyze command.
package main

import (
	"flag"
	"log"

	"github.com/stride-data/gait.report/internal/gait/replay"
	"github.com/stride-data/gait.report/internal/gait/synth"
)

func main() {
	output := flag.String("o", "sample.gaitlog.json", "output path")
	frames := flag.Int("frames", 150, "number of frames")
	fps := flag.Float64("fps", 30, "frame rate")
	cadence := flag.Float64("cadence", 100, "cadence in total steps/min")
	stepLen := flag.Float64("step-length-mm", 650, "step length in millimetres")
	noise := flag.Float64("noise", 0, "pixel noise standard deviation")
	confidence := flag.Float64("confidence", 0.95, "per-joint detector confidence")
	asymmetry := flag.Float64("asymmetry", 0, "left/right step length imbalance in [0,1)")
	seed := flag.Int64("seed", 1, "noise seed")
	flag.Parse()

	seq := synth.Generate(synth.Params{
		FPS:                *fps,
		DurationSec:        float64(*frames) / *fps,
		CadenceStepsPerMin: *cadence,
		StepLengthMM:       *stepLen,
		NoisePx:            *noise,
		Confidence:         *confidence,
		Asymmetry:          *asymmetry,
		Seed:               *seed,
	})

	rec := replay.FromSkeletons(*fps, seq.Params.Width, seq.Params.Height, seq.Skeletons)
	if err := replay.WriteFile(*output, rec); err != nil {
		log.Fatalf("failed to write gaitlog: %v", err)
	}
	log.Printf("✓ Created: %s (%d frames at %.0f fps)", *output, len(rec.Frames), *fps)
}
