// Package directory caches the routing data a station needs to publish:
// its room assignment and the room's tag directory.
//
// Both are resolved lazily from the store and, once populated, are never
// fetched again for the life of the process. A station that is moved to a
// different room, or a room whose tags change, picks up the change on the
// next restart.
//
// The tag directory is stored by tag id:
//
//	rooms/room42/tags = {"tag-1": {"macAddress": "de:ad:be:ef:00:01"}}
//
// and held inverted, by normalised address, for per-advertisement lookup.
package directory
