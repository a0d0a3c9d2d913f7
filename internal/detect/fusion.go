package detect

import (
	"time"

	"github.com/sweeney/pulse-sensor/internal/calib"
)

// FusionConfig tunes vote combination.
type FusionConfig struct {
	// StaleAfter is the vote age beyond which a source is excluded.
	StaleAfter time.Duration `yaml:"stale_after"`

	// DecayFloor is the minimum age-decay weight multiplier a
	// non-stale vote can carry.
	DecayFloor float64 `yaml:"decay_floor"`

	// Hysteresis is the global minimum spacing between honored state
	// changes.
	Hysteresis time.Duration `yaml:"hysteresis"`
}

// DefaultFusionConfig returns the standard fusion tuning.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		StaleAfter: 10 * time.Second,
		DecayFloor: 0.1,
		Hysteresis: 1000 * time.Millisecond,
	}
}

// Transition reports an honored presence state change.
type Transition struct {
	Detected   bool
	At         time.Time
	Confidence float64 // the weighted mean that triggered the change
}

type voteSlot struct {
	weight  float64
	vote    Vote
	hasVote bool
}

// Fusion combines per-source votes into one placement decision with a
// global hysteresis window. Candidate flips arriving inside the window
// are suppressed, not lost: they are honored on a later evaluation if
// the evidence still points the same way once the window elapses.
type Fusion struct {
	cfg FusionConfig

	order []string
	slots map[string]*voteSlot

	detected   bool
	lastChange time.Time
	changed    bool
	suppressed bool // a candidate flip was seen inside the window
	lastScore  float64
}

// NewFusion creates an empty fusion with no registered sources.
func NewFusion(cfg FusionConfig) *Fusion {
	d := DefaultFusionConfig()
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = d.StaleAfter
	}
	if cfg.DecayFloor <= 0 || cfg.DecayFloor >= 1 {
		cfg.DecayFloor = d.DecayFloor
	}
	if cfg.Hysteresis <= 0 {
		cfg.Hysteresis = d.Hysteresis
	}
	return &Fusion{cfg: cfg, slots: make(map[string]*voteSlot)}
}

// Register adds a source with a static weight. Registering an existing
// ID updates its weight and keeps its vote slot.
func (f *Fusion) Register(sourceID string, weight float64) {
	if s, ok := f.slots[sourceID]; ok {
		s.weight = weight
		return
	}
	f.slots[sourceID] = &voteSlot{weight: weight}
	f.order = append(f.order, sourceID)
}

// Submit overwrites the slot for the vote's source. Votes from
// unregistered sources are ignored.
func (f *Fusion) Submit(vote Vote) {
	s, ok := f.slots[vote.SourceID]
	if !ok {
		return
	}
	s.vote = vote
	s.hasVote = true
}

// Evaluate fuses current votes and returns the stable decision plus a
// transition if a state change was honored at this evaluation.
func (f *Fusion) Evaluate(params calib.Params, now time.Time) (bool, *Transition) {
	score, haveVotes := f.weightedScore(now)
	f.lastScore = score

	threshold := 0.5 * (2 - params.SensitivityLevel)
	candidate := f.detected
	if haveVotes {
		candidate = score >= threshold
	}

	if candidate == f.detected {
		f.suppressed = false
		return f.detected, nil
	}

	// Candidate flip. Honor only outside the hysteresis window.
	if f.changed && now.Sub(f.lastChange) < f.cfg.Hysteresis {
		f.suppressed = true
		return f.detected, nil
	}

	f.detected = candidate
	f.lastChange = now
	f.changed = true
	f.suppressed = false
	return f.detected, &Transition{Detected: candidate, At: now, Confidence: score}
}

// weightedScore computes the age-decayed weighted mean of
// (detected ? confidence : 0) over non-stale votes.
func (f *Fusion) weightedScore(now time.Time) (float64, bool) {
	var sum, weightSum float64
	any := false
	for _, id := range f.order {
		s := f.slots[id]
		if !s.hasVote {
			continue
		}
		age := now.Sub(s.vote.UpdatedAt)
		if age < 0 {
			age = 0
		}
		if age > f.cfg.StaleAfter {
			continue
		}
		decay := 1 - (1-f.cfg.DecayFloor)*(float64(age)/float64(f.cfg.StaleAfter))
		w := s.weight * decay
		if w <= 0 {
			continue
		}
		contribution := 0.0
		if s.vote.Detected {
			contribution = s.vote.Confidence
		}
		sum += w * contribution
		weightSum += w
		any = true
	}
	if !any || weightSum == 0 {
		return 0, false
	}
	return sum / weightSum, true
}

// Detected returns the current stable decision.
func (f *Fusion) Detected() bool { return f.detected }

// Score returns the weighted mean from the last evaluation.
func (f *Fusion) Score() float64 { return f.lastScore }

// Suppressed reports whether the last evaluation saw a candidate flip
// inside the hysteresis window.
func (f *Fusion) Suppressed() bool { return f.suppressed }

// Reset clears votes and state. Registered sources and weights are
// kept.
func (f *Fusion) Reset() {
	for _, s := range f.slots {
		s.hasVote = false
		s.vote = Vote{}
	}
	f.detected = false
	f.changed = false
	f.suppressed = false
	f.lastChange = time.Time{}
	f.lastScore = 0
}
