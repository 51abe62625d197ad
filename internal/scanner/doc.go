// Package scanner performs one-shot Bluetooth Low Energy sweeps.
//
// A sweep listens for advertisements for a fixed duration and returns one
// Device per advertiser, keyed by its normalised address. Results are
// ordered by first sighting; RSSI and TxPower reflect the latest
// advertisement seen during the sweep.
//
// The BLE scanner uses the host adapter through tinygo.org/x/bluetooth
// (BlueZ over D-Bus on Linux).
package scanner
