package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/beacon-station/internal/infrastructure/mqtt"
)

// defaultRetainedWait is how long a read waits for the broker to deliver a
// retained message before treating the node as absent.
const defaultRetainedWait = 2 * time.Second

// Broker is the subset of *mqtt.Client the MQTT store uses.
type Broker interface {
	Put(ctx context.Context, topic string, payload []byte) error
	Get(ctx context.Context, topic string, wait time.Duration) ([]byte, error)
	Topics() mqtt.Topics
}

// MQTT is a Store that keeps every node as a retained message on its own
// topic under the broker's prefix.
type MQTT struct {
	broker Broker
	wait   time.Duration
}

// NewMQTT creates an MQTT store over a connected broker client.
// A zero wait uses the default retained-message wait.
func NewMQTT(broker Broker, wait time.Duration) *MQTT {
	if wait <= 0 {
		wait = defaultRetainedWait
	}
	return &MQTT{broker: broker, wait: wait}
}

// GetString fetches the node at path.
func (m *MQTT) GetString(ctx context.Context, path string) (Value, error) {
	return m.get(ctx, path)
}

// GetJSON fetches the node at path.
func (m *MQTT) GetJSON(ctx context.Context, path string) (Value, error) {
	return m.get(ctx, path)
}

// SetJSON publishes payload as the retained value of path.
func (m *MQTT) SetJSON(ctx context.Context, path string, payload any) error {
	topic, err := m.topicFor(path)
	if err != nil {
		return err
	}
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	if err := m.broker.Put(ctx, topic, data); err != nil {
		return fmt.Errorf("%w: publish %s: %w", ErrRequestFailed, path, err)
	}
	return nil
}

func (m *MQTT) get(ctx context.Context, path string) (Value, error) {
	topic, err := m.topicFor(path)
	if err != nil {
		return Value{}, err
	}

	payload, err := m.broker.Get(ctx, topic, m.wait)
	switch {
	case errors.Is(err, mqtt.ErrNoRetained):
		return Value{}, fmt.Errorf("%w: %s (no retained message)", ErrNotFound, path)
	case err != nil:
		return Value{}, fmt.Errorf("%w: get %s: %w", ErrRequestFailed, path, err)
	}

	v := NewValue(payload)
	if v.IsNull() {
		return Value{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return v, nil
}

func (m *MQTT) topicFor(path string) (string, error) {
	if _, err := SplitPath(path); err != nil {
		return "", err
	}
	topic := m.broker.Topics().ForPath(path)
	if err := mqtt.ValidatePath(topic); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return topic, nil
}
