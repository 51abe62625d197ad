package provision

import "errors"

var (
	// ErrConnectFailed is returned when the network is still down after the
	// configured number of attempts.
	ErrConnectFailed = errors.New("provision: connect failed")

	// ErrCommandFailed is returned when a configured host command exits non-zero.
	ErrCommandFailed = errors.New("provision: command failed")
)
