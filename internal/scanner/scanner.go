package scanner

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// TxPowerUnknown is reported when an advertiser does not include its
// transmit power level.
const TxPowerUnknown = 0

// Device is a single advertiser seen during a sweep.
type Device struct {
	Address string // upper-case, colon separated
	RSSI    int    // dBm
	TxPower int    // dBm, TxPowerUnknown when not advertised
}

// Scanner performs a blocking sweep for the given duration.
type Scanner interface {
	Scan(ctx context.Context, duration time.Duration) ([]Device, error)
}

// NormalizeAddress converts a MAC address to upper-case colon-separated
// form, e.g. "de-ad-be-ef-00-01" becomes "DE:AD:BE:EF:00:01".
func NormalizeAddress(addr string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(addr))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return strings.ToUpper(hw.String()), nil
}

// collector accumulates advertisements into one Device per address.
// It is not safe for concurrent use.
type collector struct {
	order   []string
	devices map[string]Device
}

func newCollector() *collector {
	return &collector{devices: make(map[string]Device)}
}

// add records an advertisement. The first advertisement of each address
// wins; repeats are accepted and ignored. Unparseable addresses are dropped.
func (c *collector) add(d Device) bool {
	addr, err := NormalizeAddress(d.Address)
	if err != nil {
		return false
	}
	if _, seen := c.devices[addr]; seen {
		return true
	}
	d.Address = addr
	c.order = append(c.order, addr)
	c.devices[addr] = d
	return true
}

func (c *collector) results() []Device {
	out := make([]Device, 0, len(c.order))
	for _, addr := range c.order {
		out = append(out, c.devices[addr])
	}
	return out
}

// iBeaconMeasuredPower returns the calibrated power byte of an Apple
// iBeacon frame: type 0x02, length 0x15, UUID, major, minor, power.
func iBeaconMeasuredPower(companyID uint16, data []byte) (int, bool) {
	const (
		companyApple  = 0x004C
		iBeaconType   = 0x02
		iBeaconLength = 0x15
	)
	if companyID != companyApple || len(data) < 2+iBeaconLength {
		return TxPowerUnknown, false
	}
	if data[0] != iBeaconType || data[1] != iBeaconLength {
		return TxPowerUnknown, false
	}
	return int(int8(data[1+iBeaconLength])), true
}

// txPowerFromAdvertisement extracts the "Tx Power Level" AD structure
// (type 0x0A) from a raw advertisement payload.
func txPowerFromAdvertisement(payload []byte) (int, bool) {
	const adTypeTxPower = 0x0A
	for i := 0; i < len(payload); {
		length := int(payload[i])
		if length == 0 || i+1+length > len(payload) {
			return TxPowerUnknown, false
		}
		if payload[i+1] == adTypeTxPower && length >= 2 {
			return int(int8(payload[i+2])), true
		}
		i += 1 + length
	}
	return TxPowerUnknown, false
}
