package filter

// lmsFilter is a leaky least-mean-squares adaptive filter.
//
// Each step predicts the input from the tap-weighted history, then
// nudges every coefficient along the error gradient. The leakage
// factor keeps coefficients from drifting unbounded on correlated
// input, which matters on a quasi-periodic signal like PPG.
type lmsFilter struct {
	rate    float64
	leakage float64
	coeffs  []float64
	history []float64
}

func newLMS(cfg Config) *lmsFilter {
	f := &lmsFilter{
		rate:    cfg.LearningRate,
		leakage: cfg.Leakage,
		coeffs:  make([]float64, cfg.Order),
		history: make([]float64, cfg.Order),
	}
	f.init()
	return f
}

func (f *lmsFilter) init() {
	// Start as a moving average so the first outputs are sane.
	for i := range f.coeffs {
		f.coeffs[i] = 1.0 / float64(len(f.coeffs))
	}
	for i := range f.history {
		f.history[i] = 0
	}
}

// Process filters one sample and adapts the taps.
func (f *lmsFilter) Process(sample float64) float64 {
	// Shift history: newest at index 0.
	copy(f.history[1:], f.history[:len(f.history)-1])
	f.history[0] = sample

	var out float64
	for i, c := range f.coeffs {
		out += c * f.history[i]
	}

	err := sample - out
	for i := range f.coeffs {
		f.coeffs[i] = f.coeffs[i]*f.leakage + f.rate*err*f.history[i]
	}

	return out
}

// Reset restores the moving-average taps and clears history.
func (f *lmsFilter) Reset() { f.init() }

// Coefficients returns a copy of the current taps.
func (f *lmsFilter) Coefficients() []float64 {
	out := make([]float64, len(f.coeffs))
	copy(out, f.coeffs)
	return out
}
