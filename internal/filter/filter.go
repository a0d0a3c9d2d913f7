// Package filter provides the adaptive filter bank used by the
// measurement channels. One interface, two interchangeable strategies:
// leaky LMS (O(k) per sample) and RLS (O(k²), faster convergence).
// The strategy is selected by configuration, not by call sites.
package filter

import "fmt"

// Strategy names an adaptive filtering algorithm.
type Strategy string

const (
	// StrategyLMS is least-mean-squares with coefficient leakage.
	StrategyLMS Strategy = "lms"

	// StrategyRLS is recursive least squares with a forgetting factor.
	StrategyRLS Strategy = "rls"
)

// Filter is an adaptive filter over a scalar sample stream.
type Filter interface {
	// Process consumes one sample and returns the filtered value.
	Process(sample float64) float64

	// Reset restores initial coefficients and clears history.
	Reset()

	// Coefficients returns a copy of the current filter taps.
	Coefficients() []float64
}

// Config selects and tunes a filter strategy.
type Config struct {
	Strategy Strategy `yaml:"strategy"`

	// Order is the number of filter taps.
	Order int `yaml:"order"`

	// LearningRate is the LMS step size (mu).
	LearningRate float64 `yaml:"learning_rate"`

	// Leakage decays LMS coefficients each step to bound growth.
	// Must be <1; typical 0.9999.
	Leakage float64 `yaml:"leakage"`

	// Forgetting is the RLS forgetting factor (lambda), typically
	// 0.95-0.999.
	Forgetting float64 `yaml:"forgetting"`

	// InitialDelta seeds the RLS inverse-correlation matrix diagonal.
	InitialDelta float64 `yaml:"initial_delta"`
}

// DefaultConfig returns a stable general-purpose configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:     StrategyLMS,
		Order:        8,
		LearningRate: 0.01,
		Leakage:      0.9999,
		Forgetting:   0.98,
		InitialDelta: 100,
	}
}

// New builds the filter named by cfg.Strategy.
func New(cfg Config) (Filter, error) {
	if cfg.Order <= 0 {
		return nil, fmt.Errorf("filter: order must be positive, got %d", cfg.Order)
	}
	switch cfg.Strategy {
	case StrategyLMS, "":
		return newLMS(cfg), nil
	case StrategyRLS:
		return newRLS(cfg), nil
	default:
		return nil, fmt.Errorf("filter: unknown strategy %q", cfg.Strategy)
	}
}
