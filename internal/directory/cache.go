package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/nerrad567/beacon-station/internal/scanner"
	"github.com/nerrad567/beacon-station/internal/store"
)

// nullTag is written by some provisioning tools in place of a missing id.
const nullTag = "null"

// ErrUnexpectedType is returned when a store node has the wrong reported type.
var ErrUnexpectedType = errors.New("directory: unexpected value type")

// Reader is the read side of store.Store.
type Reader interface {
	GetString(ctx context.Context, path string) (store.Value, error)
	GetJSON(ctx context.Context, path string) (store.Value, error)
}

// Logger defines the logging interface used by the cache.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// tagEntry is one child of rooms/{roomId}/tags.
type tagEntry struct {
	MacAddress *string `json:"macAddress"`
}

// Cache holds a station's room id and tag directory.
//
// Cache is owned by the sync loop and is not safe for concurrent use.
type Cache struct {
	stationID string
	reader    Reader
	paths     store.Paths
	logger    Logger

	roomID string
	tags   map[string]string
}

// New creates an empty cache for a station.
func New(stationID string, reader Reader) *Cache {
	return &Cache{
		stationID: stationID,
		reader:    reader,
		logger:    noopLogger{},
		tags:      make(map[string]string),
	}
}

// SetLogger sets the logger for resolution events.
func (c *Cache) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// EnsureRoomID resolves the station's room assignment if it is not yet known.
//
// Only a non-empty string node is accepted. On any other outcome the room id
// stays empty and the returned error describes why; the caller retries on
// its next cycle.
func (c *Cache) EnsureRoomID(ctx context.Context) error {
	if c.roomID != "" {
		return nil
	}

	path := c.paths.StationRoom(c.stationID)
	v, err := c.reader.GetString(ctx, path)
	if err != nil {
		return fmt.Errorf("resolving room id: %w", err)
	}
	room, ok := v.AsString()
	if !ok {
		return fmt.Errorf("%w: %s is %s, want string", ErrUnexpectedType, path, v.Type)
	}
	if room == "" {
		return fmt.Errorf("%w: %s is empty", store.ErrNotFound, path)
	}

	c.roomID = room
	c.logger.Info("room id resolved", "room_id", room)
	return nil
}

// EnsureTagDirectory loads the room's tag directory if the room id is known
// and the directory is still empty.
//
// Entries without a string macAddress, or with an address that does not
// parse, are skipped and logged. A directory with no usable entries stays
// empty and is fetched again next time.
func (c *Cache) EnsureTagDirectory(ctx context.Context) error {
	if c.roomID == "" || len(c.tags) > 0 {
		return nil
	}

	path := c.paths.RoomTags(c.roomID)
	v, err := c.reader.GetJSON(ctx, path)
	if err != nil {
		return fmt.Errorf("loading tag directory: %w", err)
	}
	entries, ok := v.AsObject()
	if !ok {
		return fmt.Errorf("%w: %s is %s, want json", ErrUnexpectedType, path, v.Type)
	}

	// Sorted so that the tag kept for a duplicated address is stable.
	loaded := make(map[string]string, len(entries))
	for _, tagID := range slices.Sorted(maps.Keys(entries)) {
		addr, err := entryAddress(entries[tagID])
		if err != nil {
			c.logger.Warn("skipping tag entry", "tag_id", tagID, "error", err)
			continue
		}
		if prev, dup := loaded[addr]; dup {
			c.logger.Warn("address assigned to more than one tag, keeping the first",
				"address", addr, "tag_id", tagID, "kept_tag_id", prev)
			continue
		}
		loaded[addr] = tagID
	}

	if len(loaded) == 0 {
		c.logger.Warn("tag directory has no usable entries", "room_id", c.roomID)
		return nil
	}
	c.tags = loaded
	c.logger.Info("tag directory loaded", "room_id", c.roomID, "tags", len(loaded))
	return nil
}

func entryAddress(raw json.RawMessage) (string, error) {
	var entry tagEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", fmt.Errorf("entry is not an object: %w", err)
	}
	if entry.MacAddress == nil {
		return "", errors.New("macAddress missing or not a string")
	}
	return scanner.NormalizeAddress(*entry.MacAddress)
}

// Lookup returns the tag id registered for an address.
// Empty ids and the "null" placeholder are not matches.
func (c *Cache) Lookup(address string) (string, bool) {
	addr, err := scanner.NormalizeAddress(address)
	if err != nil {
		return "", false
	}
	tagID, ok := c.tags[addr]
	if !ok || tagID == "" || tagID == nullTag {
		return "", false
	}
	return tagID, true
}

// RoomID returns the resolved room id, or "" if unresolved.
func (c *Cache) RoomID() string {
	return c.roomID
}

// Size returns the number of addresses in the tag directory.
func (c *Cache) Size() int {
	return len(c.tags)
}
