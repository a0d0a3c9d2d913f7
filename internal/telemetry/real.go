package telemetry

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/pulse-sensor/internal/detect"
	"github.com/sweeney/pulse-sensor/internal/monitor"
)

// offlineBufferSize bounds how many messages queue up while the broker
// is unreachable. At one beat per second that is about four minutes.
const offlineBufferSize = 256

// RealPublisher publishes to an actual MQTT broker. While the link is
// down, messages are buffered and replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *zap.Logger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
// A nil logger disables logging.
func NewRealPublisher(broker string, log *zap.Logger) (*RealPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &RealPublisher{
		log: log,
		buf: newRingBuffer(offlineBufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("pulse-sensor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.replay() })

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	p.client = client
	return p, nil
}

// PublishBeat sends a heartbeat event to the MQTT broker.
func (p *RealPublisher) PublishBeat(ev monitor.BeatEvent) error {
	payload, err := FormatBeatPayload(ev)
	if err != nil {
		return fmt.Errorf("format beat payload: %w", err)
	}
	// QoS 0 (at-most-once): beats are frequent and individually cheap.
	return p.publish(TopicBeats, 0, false, payload)
}

// PublishPresence sends a presence transition to the MQTT broker.
func (p *RealPublisher) PublishPresence(tr detect.Transition) error {
	payload, err := FormatPresencePayload(tr)
	if err != nil {
		return fmt.Errorf("format presence payload: %w", err)
	}
	// QoS 1 (at-least-once): transitions are rare and consumers key
	// state off them.
	return p.publish(TopicPresence, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// publish sends one message, or buffers it while disconnected.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.buffer(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *RealPublisher) buffer(msg bufferedMsg) {
	p.mu.Lock()
	dropped := p.buf.push(msg)
	n := p.buf.len()
	p.mu.Unlock()

	if dropped {
		p.log.Warn("offline buffer full, dropping oldest message",
			zap.Int("capacity", offlineBufferSize))
	} else {
		p.log.Debug("broker unreachable, message buffered",
			zap.String("topic", msg.topic),
			zap.Int("buffered", n))
	}
}

// replay flushes buffered messages after a (re)connect. Runs on the
// paho connection goroutine.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.buf.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	p.log.Info("replaying buffered messages", zap.Int("count", len(msgs)))
	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			p.log.Warn("replay timeout", zap.String("topic", m.topic))
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
