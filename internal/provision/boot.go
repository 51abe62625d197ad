package provision

import (
	"context"
	"time"
)

// Boot blink pattern while the network is being brought up.
var (
	bootBlinks      = 5
	bootBlinkPeriod = 500 * time.Millisecond
)

// Boot brings the network up at start-up.
//
// If the network is already up the LED goes solid immediately. Otherwise the
// LED blinks while the provisioner connects, and goes solid on success. A
// failed connect is returned to the caller, which restarts the station.
func Boot(ctx context.Context, p *CommandProvisioner, ind *Indicator, ssid string) error {
	if p.NetworkUp(ctx) {
		ind.Set(true)
		return nil
	}

	ind.Blink(ctx, bootBlinks, bootBlinkPeriod)
	if _, err := p.Connect(ctx, ssid); err != nil {
		return err
	}
	ind.Set(true)
	return nil
}
