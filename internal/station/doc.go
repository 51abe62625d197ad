// Package station implements the polling sync loop of a beacon presence
// station.
//
// On a fixed interval the loop resolves its routing data, sweeps for BLE
// advertisers, and publishes an observation for every advertiser whose
// address is in the room's tag directory:
//
//	rooms/{roomId}/tags/{tagId}/stations/{stationId} = {"txPower": -12, "rssi": -67}
//
// Everything is best effort. A failed read leaves the routing data empty
// until a later cycle; a failed publish is logged and dropped.
//
// # Provisioning Trigger
//
// A Trigger may be raised from any goroutine (signal handler, HTTP
// handler). The loop checks it at the start of every tick, signals the
// operator on the indicator, clears the stored network credentials and
// returns ErrRestartRequested so the process can re-exec into provisioning.
//
// # Concurrency
//
// Tick and Run must be called from one goroutine. Cycles never overlap.
// The StatusBoard is the only loop output read from other goroutines.
package station
