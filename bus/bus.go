// Package bus is the in-process message hub between the transport link and
// the device subsystems. Downlink frames are routed to topic subscribers,
// uplink publishes are wrapped into the wire envelope and handed to the
// transport, and local publishes fan out without touching the wire at all.
package bus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	errs "github.com/c360/sduiterm/errors"
)

// MaxSubscriptions caps the subscription table. The table is sized for the
// fixed set of runtime subsystems, not for dynamic listeners.
const MaxSubscriptions = 15

// Callback receives the materialised payload for a topic
type Callback func(payload string)

// Sender is the uplink side of the transport. Send must not block; a
// disconnected link drops the frame and reports it through its own metrics.
type Sender interface {
	Send(frame []byte) error
}

// Envelope is the wire format shared by both directions
type Envelope struct {
	Topic    string          `json:"topic"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	DeviceID string          `json:"device_id,omitempty"`
}

type subscription struct {
	topic    string
	callback Callback
}

// Bus routes messages between the transport and local subscribers
type Bus struct {
	mu       sync.RWMutex
	subs     []subscription
	sender   Sender
	deviceID string

	metrics *busMetrics
	logger  *slog.Logger
}

// New creates a bus. registrar may be nil to disable metrics.
func New(registrar Registrar, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newBusMetrics(registrar)
	if err != nil {
		return nil, err
	}

	return &Bus{
		subs:    make([]subscription, 0, MaxSubscriptions),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// SetSender attaches the uplink transport. A nil sender drops all uplinks.
func (b *Bus) SetSender(sender Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = sender
}

// SetDeviceID sets the device identifier stamped onto uplink envelopes
func (b *Bus) SetDeviceID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deviceID = id
}

// Subscribe registers a callback for a topic. A full table drops the
// subscription with a log instead of failing the caller; the table is sized
// so this only fires on a wiring bug.
func (b *Bus) Subscribe(topic string, callback Callback) {
	if topic == "" || callback == nil {
		b.logger.Warn("Ignoring invalid subscription", "topic", topic)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) >= MaxSubscriptions {
		b.logger.Error("Subscription table full, dropping subscription",
			"topic", topic, "max", MaxSubscriptions)
		b.metrics.recordDrop("table_full")
		return
	}

	b.subs = append(b.subs, subscription{topic: topic, callback: callback})
}

// SubscriptionCount returns the number of registered subscriptions
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// RouteDown parses a downlink frame and delivers its payload to every
// subscriber of the envelope's topic, in registration order. A payload that
// is itself a JSON string is delivered as its literal value; any other
// payload is re-serialised to compact JSON. A frame with no subscriber is
// dropped with a debug log.
func (b *Bus) RouteDown(raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.metrics.recordDrop("parse_error")
		return errs.WrapInvalid(err, "Bus", "RouteDown", "parse downlink envelope")
	}
	if env.Topic == "" {
		b.metrics.recordDrop("parse_error")
		return errs.WrapInvalid(
			fmt.Errorf("missing topic field"),
			"Bus", "RouteDown", "parse downlink envelope")
	}

	payload, err := materialisePayload(env.Payload)
	if err != nil {
		b.metrics.recordDrop("parse_error")
		return errs.WrapInvalid(err, "Bus", "RouteDown", "materialise downlink payload")
	}

	if delivered := b.dispatch(env.Topic, payload); delivered == 0 {
		b.metrics.recordDrop("no_subscriber")
		b.logger.Debug("No subscriber for downlink topic", "topic", env.Topic)
	}
	return nil
}

// PublishUp wraps topic and payload into the wire envelope and hands it to
// the transport. A payload parseable as JSON is embedded structurally;
// anything else is embedded as a JSON string.
func (b *Bus) PublishUp(topic, payload string) error {
	b.mu.RLock()
	sender := b.sender
	deviceID := b.deviceID
	b.mu.RUnlock()

	if sender == nil {
		b.metrics.recordDrop("no_sender")
		b.logger.Debug("Uplink dropped, no transport attached", "topic", topic)
		return nil
	}

	env := Envelope{Topic: topic, DeviceID: deviceID}
	trimmed := bytes.TrimSpace([]byte(payload))
	if len(trimmed) > 0 && json.Valid(trimmed) {
		env.Payload = json.RawMessage(trimmed)
	} else {
		quoted, err := json.Marshal(payload)
		if err != nil {
			return errs.WrapInvalid(err, "Bus", "PublishUp", "encode uplink payload")
		}
		env.Payload = quoted
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return errs.WrapInvalid(err, "Bus", "PublishUp", "encode uplink envelope")
	}

	if err := sender.Send(frame); err != nil {
		b.metrics.recordDrop("send_failed")
		b.logger.Debug("Uplink send failed", "topic", topic, "error", err)
		return nil
	}

	b.metrics.recordUplink()
	return nil
}

// PublishLocal fans payload out to subscribers of topic without any
// serialisation or transport involvement
func (b *Bus) PublishLocal(topic, payload string) {
	if delivered := b.dispatch(topic, payload); delivered == 0 {
		b.metrics.recordDrop("no_subscriber")
		b.logger.Debug("No subscriber for local topic", "topic", topic)
	}
}

// dispatch delivers payload to each matching subscriber in registration
// order. A panicking subscriber is recovered and logged so the remaining
// subscribers still run.
func (b *Bus) dispatch(topic, payload string) int {
	b.mu.RLock()
	matching := make([]Callback, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.topic == topic {
			matching = append(matching, sub.callback)
		}
	}
	b.mu.RUnlock()

	for _, cb := range matching {
		b.invoke(topic, cb, payload)
	}

	if n := len(matching); n > 0 {
		b.metrics.recordDeliveries(n)
		return n
	}
	return 0
}

func (b *Bus) invoke(topic string, cb Callback, payload string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Subscriber panicked", "topic", topic, "panic", r)
		}
	}()
	cb(payload)
}

// materialisePayload converts the envelope payload sub-tree into the string
// handed to subscribers
func materialisePayload(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var literal string
	if err := json.Unmarshal(raw, &literal); err == nil {
		return literal, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return "", err
	}
	return compact.String(), nil
}
