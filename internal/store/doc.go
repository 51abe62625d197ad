// Package store provides the hierarchical key-value store the station reads
// its routing data from and writes observations to.
//
// Paths are slash-separated ("rooms/room42/tags"). Three backends implement
// the same Store interface:
//
//   - RTDB: a Firebase-compatible realtime database over its REST API
//   - MQTT: retained topics on a broker, one topic per path
//   - SQLite: a local tree for bench commissioning and offline sites
//
// Reads return a Value carrying the node's reported type ("string",
// "json", ...). Callers decide whether the type is acceptable; the store
// never coerces.
//
// # Path Contract
//
// The station only touches three paths, built with Paths:
//
//	stations/{stationId}/room                          -> string
//	rooms/{roomId}/tags                                -> {tagId: {"macAddress": ...}}
//	rooms/{roomId}/tags/{tagId}/stations/{stationId}   <- {"txPower": int, "rssi": int}
package store
