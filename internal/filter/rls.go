package filter

import "gonum.org/v1/gonum/mat"

// rlsFilter is a recursive-least-squares adaptive filter.
//
// It maintains an inverse-correlation matrix P and updates the taps
// through a gain vector each step, discounting old information by the
// forgetting factor lambda. Converges much faster than LMS at O(k²)
// per sample.
type rlsFilter struct {
	lambda float64
	delta  float64

	weights *mat.VecDense
	p       *mat.Dense
	history *mat.VecDense
}

func newRLS(cfg Config) *rlsFilter {
	f := &rlsFilter{
		lambda:  cfg.Forgetting,
		delta:   cfg.InitialDelta,
		weights: mat.NewVecDense(cfg.Order, nil),
		p:       mat.NewDense(cfg.Order, cfg.Order, nil),
		history: mat.NewVecDense(cfg.Order, nil),
	}
	f.init()
	return f
}

func (f *rlsFilter) init() {
	k := f.weights.Len()
	f.weights.Zero()
	f.history.Zero()
	f.p.Zero()
	for i := 0; i < k; i++ {
		f.p.Set(i, i, f.delta)
	}
}

// Process filters one sample and updates weights and the P matrix.
func (f *rlsFilter) Process(sample float64) float64 {
	k := f.history.Len()

	// Shift history: newest at index 0.
	for i := k - 1; i > 0; i-- {
		f.history.SetVec(i, f.history.AtVec(i-1))
	}
	f.history.SetVec(0, sample)

	// pi = P * x
	pi := mat.NewVecDense(k, nil)
	pi.MulVec(f.p, f.history)

	// gain = pi / (lambda + x' * pi)
	denom := f.lambda + mat.Dot(f.history, pi)
	gain := mat.NewVecDense(k, nil)
	gain.ScaleVec(1/denom, pi)

	// a priori output and error
	out := mat.Dot(f.weights, f.history)
	err := sample - out

	// w += gain * err
	f.weights.AddScaledVec(f.weights, err, gain)

	// P = (P - gain * pi') / lambda
	outer := mat.NewDense(k, k, nil)
	outer.Outer(1, gain, pi)
	f.p.Sub(f.p, outer)
	f.p.Scale(1/f.lambda, f.p)

	return out
}

// Reset restores the initial P matrix and zeroes weights and history.
func (f *rlsFilter) Reset() { f.init() }

// Coefficients returns a copy of the current taps.
func (f *rlsFilter) Coefficients() []float64 {
	out := make([]float64, f.weights.Len())
	for i := range out {
		out[i] = f.weights.AtVec(i)
	}
	return out
}
