// Package monitor ties the processing pipeline together into a
// Session: one sample in, per-channel outputs, cardiac events and a
// fused placement decision out. A Session owns its hub, fusion,
// calibrator and detection sources outright, so several independent
// sessions can run in one process and tests stay deterministic.
package monitor

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/channel"
	"github.com/sweeney/pulse-sensor/internal/detect"
	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// Config aggregates the tuning of every session-owned component.
type Config struct {
	Channel   channel.Config         `yaml:"channel"`
	Cardiac   channel.CardiacConfig  `yaml:"cardiac"`
	Fusion    detect.FusionConfig    `yaml:"fusion"`
	Calib     calib.Config           `yaml:"calibration"`
	Amplitude detect.AmplitudeConfig `yaml:"amplitude"`
	Rhythm    detect.RhythmConfig    `yaml:"rhythm"`
	Quality   detect.QualityConfig   `yaml:"quality"`

	// Static fusion weights per detection source.
	AmplitudeWeight float64 `yaml:"amplitude_weight"`
	RhythmWeight    float64 `yaml:"rhythm_weight"`
	QualityWeight   float64 `yaml:"quality_weight"`
}

// DefaultConfig returns the standard session tuning.
func DefaultConfig() Config {
	return Config{
		Channel:         channel.DefaultConfig(),
		Cardiac:         channel.DefaultCardiacConfig(),
		Fusion:          detect.DefaultFusionConfig(),
		Calib:           calib.DefaultConfig(),
		Amplitude:       detect.DefaultAmplitudeConfig(),
		Rhythm:          detect.DefaultRhythmConfig(),
		Quality:         detect.DefaultQualityConfig(),
		AmplitudeWeight: 1.0,
		RhythmWeight:    0.9,
		QualityWeight:   0.7,
	}
}

// Result is one tick's worth of session output.
type Result struct {
	Outputs map[channel.Type]channel.Output
	Cardiac channel.Result

	Presence      bool
	PresenceScore float64

	// Transition is non-nil only when the placement decision flipped
	// and the flip was honored at this tick.
	Transition *detect.Transition

	// Enhanced carries the optional enhancer's opinion; confidence 0
	// when no enhancer is installed.
	EnhancedValue      float64
	EnhancedConfidence float64
}

// Session runs the full pipeline once per acquisition tick. Not safe
// for concurrent Process calls; Stop may be called from any goroutine.
type Session struct {
	id  string
	cfg Config
	log *zap.Logger

	hub        *channel.Hub
	cardiac    *channel.CardiacChannel
	calibrator *calib.Calibrator
	fusion     *detect.Fusion
	sources    []detect.Source

	observer Observer
	enhancer Enhancer

	stopped atomic.Bool

	lastOutputs map[channel.Type]channel.Output
}

// Option customizes a Session at construction.
type Option func(*Session)

// WithObserver installs the event observer.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithEnhancer installs the optional enhancement capability.
func WithEnhancer(e Enhancer) Option {
	return func(s *Session) {
		if e != nil {
			s.enhancer = e
		}
	}
}

// WithLogger installs the session logger. Nil keeps the no-op default.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSession wires a complete session: all six channels registered on
// the hub, the three detection sources registered on the fusion.
func NewSession(cfg Config, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		log:        zap.NewNop(),
		calibrator: calib.New(cfg.Calib),
		fusion:     detect.NewFusion(cfg.Fusion),
		observer:   NopObserver{},
		enhancer:   NopEnhancer{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hub = channel.NewHub(s.log)
	s.cardiac = channel.NewCardiacChannel(cfg.Cardiac)
	s.hub.Register(s.cardiac)
	s.hub.Register(channel.NewSpO2Channel(cfg.Channel))
	s.hub.Register(channel.NewBloodPressureChannel(cfg.Channel))
	s.hub.Register(channel.NewGlucoseChannel(cfg.Channel))
	s.hub.Register(channel.NewLipidsChannel(cfg.Channel))
	s.hub.Register(channel.NewHydrationChannel(cfg.Channel))

	s.sources = []detect.Source{
		detect.NewAmplitudeSource(cfg.Amplitude),
		detect.NewRhythmSource(cfg.Rhythm),
		detect.NewQualitySource(cfg.Quality),
	}
	weights := map[string]float64{
		"amplitude": cfg.AmplitudeWeight,
		"rhythm":    cfg.RhythmWeight,
		"quality":   cfg.QualityWeight,
	}
	for _, src := range s.sources {
		w, ok := weights[src.ID()]
		if !ok || w <= 0 {
			w = 1.0
		}
		s.fusion.Register(src.ID(), w)
	}
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Process runs one full tick: channels, detection votes, fusion and
// the optional enhancer. A stopped session ignores the sample and
// returns the zero Result.
func (s *Session) Process(sample ppg.Sample, now time.Time) Result {
	if s.stopped.Load() {
		return Result{}
	}

	outputs := s.hub.Process(sample)
	s.lastOutputs = outputs

	cardiac := s.cardiac.Result()
	if cardiac.IsPeak {
		s.observer.OnBeat(BeatEvent{
			At:              sample.Timestamp,
			HeartRate:       cardiac.HeartRate,
			IsArrhythmia:    cardiac.IsArrhythmia,
			ArrhythmiaCount: cardiac.ArrhythmiaCount,
			Confidence:      cardiac.Confidence,
		})
	}

	params := s.calibrator.Snapshot()
	for _, src := range s.sources {
		s.fusion.Submit(src.Update(sample, params, now))
	}
	presence, transition := s.fusion.Evaluate(params, now)
	if transition != nil {
		s.log.Info("presence state changed",
			zap.String("session", s.id),
			zap.Bool("detected", transition.Detected),
			zap.Float64("confidence", transition.Confidence),
		)
		s.observer.OnPresence(*transition)
	}

	value, confidence := s.enhancer.Enhance(sample)

	return Result{
		Outputs:            outputs,
		Cardiac:            cardiac,
		Presence:           presence,
		PresenceScore:      s.fusion.Score(),
		Transition:         transition,
		EnhancedValue:      value,
		EnhancedConfidence: confidence,
	}
}

// Feedback routes a retuning message to its channel.
func (s *Session) Feedback(fb channel.Feedback) {
	s.hub.ApplyFeedback(fb)
}

// Observe forwards one environmental reading to the calibrator.
// Returns whether the observation was accepted.
func (s *Session) Observe(obs calib.Observation, now time.Time) bool {
	return s.calibrator.Observe(obs, now)
}

// Params returns the current calibration snapshot.
func (s *Session) Params() calib.Params { return s.calibrator.Snapshot() }

// Stop marks the session stopped. The sample being processed when Stop
// is called finishes normally; later samples are ignored.
func (s *Session) Stop() { s.stopped.Store(true) }

// Stopped reports whether Stop has been called.
func (s *Session) Stopped() bool { return s.stopped.Load() }

// Resume clears the stopped flag.
func (s *Session) Resume() { s.stopped.Store(false) }

// Reset clears transient buffers, votes and detector state. The
// arrhythmia counter and the calibration params survive.
func (s *Session) Reset() {
	s.hub.Reset()
	s.fusion.Reset()
	for _, src := range s.sources {
		src.Reset()
	}
	s.lastOutputs = nil
}

// FullReset additionally zeroes the arrhythmia counter and restores
// default calibration.
func (s *Session) FullReset() {
	s.hub.FullReset()
	s.fusion.Reset()
	for _, src := range s.sources {
		src.Reset()
	}
	s.calibrator.Reset()
	s.lastOutputs = nil
}

// Snapshot is a read-only view of the session for status consumers.
type Snapshot struct {
	ID              string
	HeartRate       int
	ArrhythmiaCount int
	Presence        bool
	PresenceScore   float64
	Params          calib.Params
	Outputs         map[channel.Type]channel.Output
	Stopped         bool
}

// Snapshot exports the current session state.
func (s *Session) Snapshot() Snapshot {
	outputs := make(map[channel.Type]channel.Output, len(s.lastOutputs))
	for typ, out := range s.lastOutputs {
		outputs[typ] = out
	}
	return Snapshot{
		ID:              s.id,
		HeartRate:       s.cardiac.HeartRate(),
		ArrhythmiaCount: s.cardiac.ArrhythmiaCount(),
		Presence:        s.fusion.Detected(),
		PresenceScore:   s.fusion.Score(),
		Params:          s.calibrator.Snapshot(),
		Outputs:         outputs,
		Stopped:         s.stopped.Load(),
	}
}
