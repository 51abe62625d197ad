package mqtt

import "errors"

var (
	// ErrNotConnected is returned while the broker connection is down.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrConnectionFailed is returned when Connect cannot reach the broker.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when the broker does not accept a write.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a read cannot subscribe to its topic.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrNoRetained is returned by Get when the broker holds no retained
	// message for the topic.
	ErrNoRetained = errors.New("mqtt: no retained message")

	// ErrInvalidTopic is returned for an empty topic or a store path that
	// cannot be mapped onto one.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrPayloadTooLarge is returned by Put for payloads over maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
