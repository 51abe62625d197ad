package mqtt

import (
	"context"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize bounds a single retained value.
const maxPayloadSize = 1 << 20

// Put stores payload as the retained value of topic and waits for the
// broker to acknowledge it.
func (c *Client) Put(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}
	if !c.Connected() {
		return ErrNotConnected
	}

	if err := await(ctx, c.paho.Publish(topic, c.qos, true, payload)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// Get returns the retained value of topic.
//
// It subscribes to the exact topic, takes the first message the broker
// delivers and unsubscribes again. If nothing arrives within wait the
// broker holds no retained value and Get returns ErrNoRetained.
func (c *Client) Get(ctx context.Context, topic string, wait time.Duration) ([]byte, error) {
	if topic == "" {
		return nil, ErrInvalidTopic
	}
	if !c.Connected() {
		return nil, ErrNotConnected
	}

	c.getMu.Lock()
	defer c.getMu.Unlock()

	received := make(chan []byte, 1)
	onMessage := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		select {
		case received <- append([]byte(nil), msg.Payload()...):
		default:
		}
	}

	if err := await(ctx, c.paho.Subscribe(topic, c.qos, onMessage)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	defer func() {
		if !c.paho.Unsubscribe(topic).WaitTimeout(ackTimeout) {
			c.log().Warn("MQTT unsubscribe not acknowledged", "topic", topic)
		}
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case payload := <-received:
		return payload, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", ErrNoRetained, topic)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// await waits for the broker to acknowledge token, up to ackTimeout or
// until ctx is done.
func await(ctx context.Context, token pahomqtt.Token) error {
	timer := time.NewTimer(ackTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("no acknowledgement within %v", ackTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
