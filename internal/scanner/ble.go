package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// Logger defines the logging interface used by the scanner.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// txPowerReporter is implemented by radios that can report the TX power
// their host stack cached for each device, keyed by normalized address.
type txPowerReporter interface {
	TxPowers() (map[string]int, error)
}

// radio is the part of a BLE adapter a sweep drives.
// Scan blocks, delivering advertisements, until StopScan is called.
type radio interface {
	Enable() error
	Scan(onAdvertisement func(Device)) error
	StopScan() error
}

// BLE scans with a host Bluetooth adapter.
//
// Sweeps must not overlap; the station's sync loop calls Scan from a single
// goroutine.
type BLE struct {
	radio   radio
	logger  Logger
	mu      sync.Mutex
	enabled bool
}

// NewBLE creates a scanner over the default host adapter.
// The adapter is enabled lazily on the first sweep.
func NewBLE() *BLE {
	return newBLE(adapterRadio{adapter: bluetooth.DefaultAdapter})
}

func newBLE(r radio) *BLE {
	return &BLE{radio: r, logger: noopLogger{}}
}

// SetLogger sets the logger for scan diagnostics.
func (b *BLE) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

// Scan listens for advertisements for duration and returns the devices seen.
// Cancelling ctx ends the sweep early and returns ctx's error.
func (b *BLE) Scan(ctx context.Context, duration time.Duration) ([]Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.enabled {
		if err := b.radio.Enable(); err != nil {
			return nil, fmt.Errorf("%w: enabling adapter: %w", ErrScanFailed, err)
		}
		b.enabled = true
	}

	var (
		resultsMu sync.Mutex
		col       = newCollector()
	)
	onAdvertisement := func(d Device) {
		resultsMu.Lock()
		defer resultsMu.Unlock()
		if !col.add(d) {
			b.logger.Debug("dropping advertisement with invalid address", "address", d.Address)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- b.radio.Scan(onAdvertisement)
	}()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	var ctxErr error
	select {
	case err := <-done:
		// The radio stopped on its own before the sweep ended.
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanFailed, err)
		}
		return b.withTxPower(b.snapshot(&resultsMu, col)), nil
	case <-timer.C:
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}

	if err := b.radio.StopScan(); err != nil {
		b.logger.Warn("stopping scan", "error", err)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
	if ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanFailed, ctxErr)
	}

	return b.withTxPower(b.snapshot(&resultsMu, col)), nil
}

// withTxPower fills unknown TX power from the radio's host stack, if it
// reports one.
func (b *BLE) withTxPower(devices []Device) []Device {
	reporter, ok := b.radio.(txPowerReporter)
	if !ok {
		return devices
	}
	missing := false
	for _, d := range devices {
		if d.TxPower == TxPowerUnknown {
			missing = true
			break
		}
	}
	if !missing {
		return devices
	}

	powers, err := reporter.TxPowers()
	if err != nil {
		b.logger.Debug("reading host tx power", "error", err)
		return devices
	}
	for i := range devices {
		if devices[i].TxPower != TxPowerUnknown {
			continue
		}
		if power, found := powers[devices[i].Address]; found {
			devices[i].TxPower = power
		}
	}
	return devices
}

func (b *BLE) snapshot(mu *sync.Mutex, col *collector) []Device {
	mu.Lock()
	defer mu.Unlock()
	return col.results()
}

// adapterRadio adapts a tinygo bluetooth adapter to radio.
type adapterRadio struct {
	adapter *bluetooth.Adapter
}

func (a adapterRadio) Enable() error {
	return a.adapter.Enable()
}

func (a adapterRadio) Scan(onAdvertisement func(Device)) error {
	return a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		onAdvertisement(deviceFromScanResult(result))
	})
}

func (a adapterRadio) StopScan() error {
	return a.adapter.StopScan()
}

func (a adapterRadio) TxPowers() (map[string]int, error) {
	return bluezTxPowers()
}

// deviceFromScanResult maps one adapter scan result to a Device.
//
// Host stacks do not expose the raw advertisement, so TX power comes from
// an iBeacon frame's measured power when present, then from the raw
// "Tx Power Level" AD structure on stacks that do expose it.
func deviceFromScanResult(result bluetooth.ScanResult) Device {
	return Device{
		Address: result.Address.String(),
		RSSI:    int(result.RSSI),
		TxPower: txPowerFromPayload(result.AdvertisementPayload),
	}
}

func txPowerFromPayload(payload bluetooth.AdvertisementPayload) int {
	if payload == nil {
		return TxPowerUnknown
	}
	for _, md := range payload.ManufacturerData() {
		if power, ok := iBeaconMeasuredPower(md.CompanyID, md.Data); ok {
			return power
		}
	}
	if power, ok := txPowerFromAdvertisement(payload.Bytes()); ok {
		return power
	}
	return TxPowerUnknown
}
