// Package ingest feeds device telemetry from an MQTT broker into the
// device write path.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"

	"voltfox-backend/internal/device"
	"voltfox-backend/internal/model"
	"voltfox-backend/internal/store"
)

// ErrBadTopic is returned for topics that do not name a user and a device.
var ErrBadTopic = errors.New("topic does not match the telemetry pattern")

var percentSchema = z.Int().GTE(0).LTE(100)

// Recorder applies a reading to a device.
type Recorder interface {
	RecordReading(ctx context.Context, userID, deviceID string, r device.Reading) (model.HistorySnapshot, error)
}

// Subscriber is the part of the broker client used by the ingester.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Disconnect()
}

type telemetryMessage struct {
	Charge      *int     `json:"charge"`
	Health      *int     `json:"health"`
	Voltage     *float64 `json:"voltage"`
	Temperature *float64 `json:"temperature"`
}

// Ingester turns telemetry messages into device readings. The topic pattern
// carries the user id in its first single-level wildcard and the device id in
// the second.
type Ingester struct {
	recorder Recorder
	pattern  string
	qos      byte
	timeout  time.Duration
	log      *zap.Logger

	mu  sync.Mutex
	ctx context.Context
	sub Subscriber
}

// NewIngester creates an ingester for the given topic pattern.
func NewIngester(recorder Recorder, pattern string, qos byte, log *zap.Logger) *Ingester {
	return &Ingester{
		recorder: recorder,
		pattern:  pattern,
		qos:      qos,
		timeout:  10 * time.Second,
		log:      log,
		ctx:      context.Background(),
	}
}

// Start subscribes to the telemetry pattern. Messages are processed with ctx
// as their parent context.
func (i *Ingester) Start(ctx context.Context, sub Subscriber) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.sub != nil {
		return errors.New("ingester already started")
	}
	if err := sub.Subscribe(i.pattern, i.qos, i.onMessage); err != nil {
		return err
	}
	i.ctx = ctx
	i.sub = sub
	i.log.Info("telemetry ingestion started", zap.String("topic", i.pattern))
	return nil
}

// Stop disconnects the subscriber.
func (i *Ingester) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.sub == nil {
		return
	}
	i.sub.Disconnect()
	i.sub = nil
	i.log.Info("telemetry ingestion stopped")
}

func (i *Ingester) onMessage(topic string, payload []byte) {
	i.mu.Lock()
	parent := i.ctx
	i.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, i.timeout)
	defer cancel()

	if err := i.Handle(ctx, topic, payload); err != nil {
		i.log.Warn("dropping telemetry message", zap.String("topic", topic), zap.Error(err))
	}
}

// Handle processes one telemetry message.
func (i *Ingester) Handle(ctx context.Context, topic string, payload []byte) error {
	userID, deviceID, err := ParseTopic(i.pattern, topic)
	if err != nil {
		return err
	}

	reading, err := decodeReading(payload)
	if err != nil {
		return err
	}

	snap, err := i.recorder.RecordReading(ctx, userID, deviceID, reading)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("unknown device %s for user %s: %w", deviceID, userID, err)
	}
	if err != nil {
		return err
	}

	i.log.Debug("telemetry applied",
		zap.String("user_id", userID),
		zap.String("device_id", deviceID),
		zap.Int("charge", snap.CurrentCharge),
		zap.String("status", string(snap.Status)))
	return nil
}

// ParseTopic extracts the user and device ids from topic by matching it
// against pattern segment by segment.
func ParseTopic(pattern, topic string) (userID, deviceID string, err error) {
	want := strings.Split(pattern, "/")
	got := strings.Split(topic, "/")
	if len(want) != len(got) {
		return "", "", fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}

	var ids []string
	for idx, seg := range want {
		if seg == "+" {
			if got[idx] == "" {
				return "", "", fmt.Errorf("%w: %s", ErrBadTopic, topic)
			}
			ids = append(ids, got[idx])
			continue
		}
		if seg != got[idx] {
			return "", "", fmt.Errorf("%w: %s", ErrBadTopic, topic)
		}
	}
	if len(ids) != 2 {
		return "", "", fmt.Errorf("%w: pattern %s must have two wildcards", ErrBadTopic, pattern)
	}
	return ids[0], ids[1], nil
}

func decodeReading(payload []byte) (device.Reading, error) {
	var msg telemetryMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return device.Reading{}, fmt.Errorf("invalid telemetry payload: %w", err)
	}
	if msg.Charge == nil {
		return device.Reading{}, errors.New("invalid telemetry payload: charge is required")
	}
	if issues := percentSchema.Validate(msg.Charge); len(issues) > 0 {
		return device.Reading{}, fmt.Errorf("invalid telemetry charge %d: %v", *msg.Charge, issues)
	}
	if msg.Health != nil {
		if issues := percentSchema.Validate(msg.Health); len(issues) > 0 {
			return device.Reading{}, fmt.Errorf("invalid telemetry health %d: %v", *msg.Health, issues)
		}
	}

	return device.Reading{
		Charge:      *msg.Charge,
		Health:      msg.Health,
		Voltage:     msg.Voltage,
		Temperature: msg.Temperature,
	}, nil
}
