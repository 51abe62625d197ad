package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Indicator drives the station's status LED through the sysfs LED class.
// With no LED path configured, state changes are only logged.
//
// Thread Safety: All methods are safe for concurrent use.
type Indicator struct {
	brightness string
	logger     Logger
	mu         sync.Mutex
	on         bool
}

// NewIndicator creates an indicator for a sysfs LED directory such as
// /sys/class/leds/led0. An empty path gives a log-only indicator.
func NewIndicator(ledPath string) *Indicator {
	ind := &Indicator{logger: noopLogger{}}
	if ledPath != "" {
		ind.brightness = filepath.Join(ledPath, "brightness")
	}
	return ind
}

// SetLogger sets the logger for indicator changes and write failures.
func (i *Indicator) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	i.logger = logger
}

// Set switches the LED on or off.
func (i *Indicator) Set(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.set(on)
}

// On reports the last state written.
func (i *Indicator) On() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.on
}

// Blink flashes the LED: on for period, off for period, times times.
// It blocks until the pattern completes or ctx is cancelled, and leaves the
// LED off.
func (i *Indicator) Blink(ctx context.Context, times int, period time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.logger.Info("indicator blinking", "times", times, "period", period.String())
	defer i.set(false)

	for n := 0; n < times; n++ {
		i.set(true)
		if sleepContext(ctx, period) != nil {
			return
		}
		i.set(false)
		if sleepContext(ctx, period) != nil {
			return
		}
	}
}

// set writes the LED state; callers hold mu.
func (i *Indicator) set(on bool) {
	i.on = on
	if i.brightness == "" {
		return
	}
	value := "0"
	if on {
		value = "1"
	}
	if err := os.WriteFile(i.brightness, []byte(value), 0o644); err != nil { //nolint:gosec // sysfs attribute
		i.logger.Warn("writing LED state", "path", i.brightness, "error", fmt.Errorf("indicator: %w", err))
	}
}
