package g3robust

import (
	"math"
	"sort"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/monitoring"
)

// CalibConfig names the available metric references. Either the
// reference-object pair or the subject stature must be provided; with
// neither, calibration fails; the pipeline never silently assumes a
// scale of 1.0.
type CalibConfig struct {
	// ReferenceObjectLengthMM and ReferenceObjectPixelSpan describe a
	// known object visible in the clip (e.g. a printed marker): its
	// true metric length and the pixel span it covers in the image.
	ReferenceObjectLengthMM  float64
	ReferenceObjectPixelSpan float64

	// SubjectHeightMM is the anthropometric fallback: the subject's
	// known stature.
	SubjectHeightMM float64

	// LifterMMPerPx is the provisional pixel scale the lifting stage
	// used; required to convert a reference-object pixel measurement
	// into a correction of the lifted coordinates.
	LifterMMPerPx float64
}

// Calibration is the once-per-clip pixel-to-metric result. The scale
// factor multiplies every lifted coordinate uniformly; it is computed
// exactly once per clip and never recomputed mid-clip, which would
// break comparability across strides.
type Calibration struct {
	ScaleFactor float64 // unitless multiplier applied to lifted mm
	MMPerPixel  float64 // resulting image-plane scale, for traceability
	Source      string  // "reference_object" or "stature_prior"
}

// Calibrate establishes the clip's metric scale from the configured
// reference. Returns *gait.ScaleCalibrationError when no reference is
// available.
func Calibrate(cfg CalibConfig, skels []gait.Skeleton3D) (Calibration, error) {
	if cfg.ReferenceObjectLengthMM > 0 && cfg.ReferenceObjectPixelSpan > 0 {
		if cfg.LifterMMPerPx <= 0 {
			return Calibration{}, &gait.ScaleCalibrationError{Reason: "lifter pixel scale unavailable for reference-object calibration"}
		}
		truePxScale := cfg.ReferenceObjectLengthMM / cfg.ReferenceObjectPixelSpan
		cal := Calibration{
			ScaleFactor: truePxScale / cfg.LifterMMPerPx,
			MMPerPixel:  truePxScale,
			Source:      "reference_object",
		}
		monitoring.Logf("g3robust: calibrated from reference object: %.4f mm/px (scale factor %.4f)", cal.MMPerPixel, cal.ScaleFactor)
		return cal, nil
	}

	if cfg.SubjectHeightMM > 0 {
		stature := medianStature(skels)
		if stature <= 0 || math.IsNaN(stature) || math.IsInf(stature, 0) {
			return Calibration{}, &gait.ScaleCalibrationError{Reason: "could not measure subject stature for anthropometric calibration"}
		}
		// Nose-to-ankle covers ~93% of stature; correct for the
		// missing head crown and foot height.
		const visibleStatureFraction = 0.93
		cal := Calibration{
			ScaleFactor: cfg.SubjectHeightMM * visibleStatureFraction / stature,
			MMPerPixel:  cfg.LifterMMPerPx * cfg.SubjectHeightMM * visibleStatureFraction / stature,
			Source:      "stature_prior",
		}
		monitoring.Logf("g3robust: calibrated from stature prior: measured %.0f mm vs %.0f mm (scale factor %.4f)", stature, cfg.SubjectHeightMM, cal.ScaleFactor)
		return cal, nil
	}

	return Calibration{}, &gait.ScaleCalibrationError{
		Reason: "no reference object detected and no anthropometric fallback configured",
	}
}

// medianStature measures the nose-to-ankle vertical extent per frame
// and returns the clip median, ignoring frames with unobserved joints.
func medianStature(skels []gait.Skeleton3D) float64 {
	extents := make([]float64, 0, len(skels))
	for i := range skels {
		nose := skels[i].Joints[gait.Nose]
		la := skels[i].Joints[gait.LeftAnkle]
		ra := skels[i].Joints[gait.RightAnkle]
		if nose.Confidence <= 0 || la.Confidence <= 0 || ra.Confidence <= 0 {
			continue
		}
		ankleY := math.Min(la.Y, ra.Y)
		ext := nose.Y - ankleY
		if ext > 0 {
			extents = append(extents, ext)
		}
	}
	if len(extents) == 0 {
		return 0
	}
	sort.Float64s(extents)
	mid := len(extents) / 2
	if len(extents)%2 == 1 {
		return extents[mid]
	}
	return (extents[mid-1] + extents[mid]) / 2
}
