package g3robust

import "math"

// Numerical stability guard, not user-tunable.
const minInnovationVariance = 1e-9

// FilterParams are the denoising filter's noise parameters. They are
// an immutable value constructed in full BEFORE any per-joint filter
// state: newAxisFilter receives the finished value, so no filter can
// ever observe a half-initialised parameter set.
type FilterParams struct {
	ProcessNoise     float64 // σ², position process noise per second (mm²/s)
	MeasurementNoise float64 // σ², observation noise (mm²)
}

// axisFilter is a 2-state (position, velocity) constant-velocity
// Kalman filter for a single joint axis. Each joint axis gets its own
// independent filter; state is owned by one Filter invocation and
// never shared across recordings.
type axisFilter struct {
	params FilterParams

	initialized bool
	pos         float64
	vel         float64

	// Covariance (2x2, symmetric): [p00 p01; p01 p11]
	p00, p01, p11 float64
}

// newAxisFilter constructs a filter from completed params.
func newAxisFilter(params FilterParams) *axisFilter {
	return &axisFilter{params: params}
}

// seed initialises the state from the first observation with high
// position uncertainty and moderate velocity uncertainty.
func (f *axisFilter) seed(z float64) {
	f.pos = z
	f.vel = 0
	f.p00 = 4 * f.params.MeasurementNoise
	f.p01 = 0
	f.p11 = f.params.ProcessNoise
	f.initialized = true
}

// predict advances the state by dt under the constant-velocity model:
//
//	x' = x + v·dt            P' = F·P·Fᵀ + Q·dt
func (f *axisFilter) predict(dt float64) {
	if !f.initialized || dt <= 0 {
		return
	}
	f.pos += f.vel * dt

	p00 := f.p00 + dt*(2*f.p01) + dt*dt*f.p11
	p01 := f.p01 + dt*f.p11
	f.p00 = p00 + f.params.ProcessNoise*dt
	f.p01 = p01
	f.p11 += f.params.ProcessNoise * dt
}

// update blends the predicted position with an observation. The
// effective measurement noise is inflated for low-confidence
// observations so unreliable detections pull the state less.
func (f *axisFilter) update(z, confidence float64) {
	if !f.initialized {
		// Only a real observation may seed; a confidence-0 placeholder
		// at clip start would anchor the state at a fabricated origin.
		if confidence > 0 {
			f.seed(z)
		}
		return
	}
	if confidence <= 0 {
		// Missing observation: coast on the prediction.
		return
	}

	r := f.params.MeasurementNoise / confidence
	s := f.p00 + r
	if s < minInnovationVariance {
		return
	}

	k0 := f.p00 / s
	k1 := f.p01 / s
	resid := z - f.pos

	f.pos += k0 * resid
	f.vel += k1 * resid

	// P' = (I - K·H)·P with H = [1 0]
	p00 := (1 - k0) * f.p00
	p01 := (1 - k0) * f.p01
	p11 := f.p11 - k1*f.p01
	f.p00, f.p01, f.p11 = p00, p01, p11

	if !f.finite() {
		f.seed(z)
	}
}

func (f *axisFilter) finite() bool {
	for _, v := range [5]float64{f.pos, f.vel, f.p00, f.p01, f.p11} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
