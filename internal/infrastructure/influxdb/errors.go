package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled")

	// ErrUnreachable is returned when the server does not answer a ping
	// or reports itself unhealthy.
	ErrUnreachable = errors.New("influxdb: server unreachable")

	// ErrClosed is returned by HealthCheck once the mirror has been closed.
	ErrClosed = errors.New("influxdb: closed")

	// ErrWriteRejected wraps batch failures delivered to the SetOnError
	// callback.
	ErrWriteRejected = errors.New("influxdb: write rejected")
)
