package scanner

import "errors"

var (
	// ErrScanFailed is returned when the radio cannot start or complete a sweep.
	ErrScanFailed = errors.New("scanner: scan failed")

	// ErrInvalidAddress is returned by NormalizeAddress for unparseable addresses.
	ErrInvalidAddress = errors.New("scanner: invalid address")
)
