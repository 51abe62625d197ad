package station

import "sync/atomic"

// Trigger is the provisioning request flag.
//
// Sources only ever raise it; the loop only reads it. The zero value is
// ready to use.
type Trigger struct {
	pending atomic.Bool
}

// Raise requests a return to provisioning. Safe to call from any goroutine,
// any number of times.
func (t *Trigger) Raise() {
	t.pending.Store(true)
}

// Pending reports whether a request has been raised.
func (t *Trigger) Pending() bool {
	return t.pending.Load()
}
