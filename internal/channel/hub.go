package channel

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sweeney/pulse-sensor/internal/ppg"
)

// Hub owns the registered channels, routes samples in, collects the
// per-channel outputs, and routes feedback back to the right channel.
//
// Faults are isolated per channel: a transform that panics yields that
// channel's last-known value at quality 0 and a logged fault; the
// other channels are unaffected.
type Hub struct {
	log      *zap.Logger
	order    []Type
	channels map[Type]Channel
	lastGood map[Type]float64
	faults   map[Type]int
}

// NewHub creates an empty hub. A nil logger disables fault logging.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:      log,
		channels: make(map[Type]Channel),
		lastGood: make(map[Type]float64),
		faults:   make(map[Type]int),
	}
}

// Register adds a channel. Registering the same type again replaces
// the previous channel and forgets its last-known value.
func (h *Hub) Register(ch Channel) {
	typ := ch.Type()
	if _, exists := h.channels[typ]; !exists {
		h.order = append(h.order, typ)
	}
	h.channels[typ] = ch
	delete(h.lastGood, typ)
}

// Channel returns the registered channel for the type, or nil.
func (h *Hub) Channel(typ Type) Channel { return h.channels[typ] }

// Types returns the registered types in registration order.
func (h *Hub) Types() []Type {
	out := make([]Type, len(h.order))
	copy(out, h.order)
	return out
}

// Process feeds the sample to every channel and returns the outputs
// keyed by type.
func (h *Hub) Process(sample ppg.Sample) map[Type]Output {
	outputs := make(map[Type]Output, len(h.order))
	for _, typ := range h.order {
		out := h.processOne(h.channels[typ], sample)
		if !out.Faulted {
			h.lastGood[typ] = out.Value
		}
		outputs[typ] = out
	}
	return outputs
}

// processOne runs one channel's transform with fault isolation.
func (h *Hub) processOne(ch Channel, sample ppg.Sample) (out Output) {
	typ := ch.Type()
	defer func() {
		if r := recover(); r != nil {
			h.faults[typ]++
			h.log.Warn("channel transform fault, holding last value",
				zap.String("channel", string(typ)),
				zap.Int("faults", h.faults[typ]),
				zap.String("panic", fmt.Sprint(r)),
			)
			out = Output{
				Type:    typ,
				Value:   h.lastGood[typ],
				Quality: 0,
				Faulted: true,
			}
		}
	}()
	return ch.Process(sample)
}

// ApplyFeedback routes the feedback to its channel. Feedback for an
// unregistered channel is a logged no-op, not an error.
func (h *Hub) ApplyFeedback(fb Feedback) {
	ch, ok := h.channels[fb.Channel]
	if !ok {
		h.log.Debug("feedback for unregistered channel dropped",
			zap.String("channel", string(fb.Channel)))
		return
	}
	ch.ApplyFeedback(fb)
}

// FaultCount returns how many transform faults the channel has had.
func (h *Hub) FaultCount(typ Type) int { return h.faults[typ] }

// Reset clears every channel's transient buffers and the last-known
// values. Cross-session counters survive.
func (h *Hub) Reset() {
	for _, typ := range h.order {
		h.channels[typ].Reset()
	}
	h.lastGood = make(map[Type]float64)
}

// FullReset additionally clears cross-session counters on channels
// that carry them, and the fault counters.
func (h *Hub) FullReset() {
	for _, typ := range h.order {
		if fr, ok := h.channels[typ].(FullResetter); ok {
			fr.FullReset()
		} else {
			h.channels[typ].Reset()
		}
	}
	h.lastGood = make(map[Type]float64)
	h.faults = make(map[Type]int)
}
