package tracker

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/strikezone/internal/geom"
	"github.com/ayusman/strikezone/internal/model"
)

// SpeedEstimator derives a ball speed in metres per second from the history,
// oldest sample first. It reports false when no estimate is possible.
type SpeedEstimator interface {
	EstimateMPS(samples []model.TrackedBallSample) (float64, bool)
}

// PairEstimator is a finite difference over the two newest samples.
type PairEstimator struct{}

// EstimateMPS implements SpeedEstimator.
func (PairEstimator) EstimateMPS(samples []model.TrackedBallSample) (float64, bool) {
	n := len(samples)
	if n < 2 {
		return 0, false
	}
	prev, latest := samples[n-2], samples[n-1]
	dt := latest.CapturedAt.Sub(prev.CapturedAt).Seconds()
	if dt <= 0 {
		return 0, false
	}
	return geom.Distance(latest.Position, prev.Position) / dt, true
}

// RegressionEstimator fits each axis linearly against time over the newest
// Window samples and returns the magnitude of the fitted velocity.
type RegressionEstimator struct {
	Window int
}

// EstimateMPS implements SpeedEstimator.
func (r RegressionEstimator) EstimateMPS(samples []model.TrackedBallSample) (float64, bool) {
	if r.Window >= 2 && len(samples) > r.Window {
		samples = samples[len(samples)-r.Window:]
	}
	n := len(samples)
	if n < 2 {
		return 0, false
	}

	t0 := samples[0].CapturedAt
	ts := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, s := range samples {
		ts[i] = s.CapturedAt.Sub(t0).Seconds()
		xs[i], ys[i], zs[i] = s.Position.X, s.Position.Y, s.Position.Z
	}
	if stat.Variance(ts, nil) == 0 {
		return 0, false
	}

	_, vx := stat.LinearRegression(ts, xs, nil, false)
	_, vy := stat.LinearRegression(ts, ys, nil, false)
	_, vz := stat.LinearRegression(ts, zs, nil, false)
	return math.Sqrt(vx*vx + vy*vy + vz*vz), true
}

// NewEstimator returns the estimator named by kind: "pair" or "regression".
// Unknown kinds fall back to the pair estimator.
func NewEstimator(kind string, window int) SpeedEstimator {
	if kind == EstimatorRegression {
		return RegressionEstimator{Window: window}
	}
	return PairEstimator{}
}
