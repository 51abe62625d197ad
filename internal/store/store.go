package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Store is the narrow contract the station needs from a remote key-value store.
//
// GetString and GetJSON both fetch the node at path and report its type;
// they differ only in intent. Backends apply their own timeouts, retries
// and authentication.
type Store interface {
	GetString(ctx context.Context, path string) (Value, error)
	GetJSON(ctx context.Context, path string) (Value, error)
	SetJSON(ctx context.Context, path string, payload any) error
}

// DataType is the type a backend reports for a stored node.
type DataType string

// Reported node types. The names follow the realtime database client
// conventions ("json" for objects).
const (
	TypeNull    DataType = "null"
	TypeString  DataType = "string"
	TypeJSON    DataType = "json"
	TypeArray   DataType = "array"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
)

// Value is a node read from the store.
type Value struct {
	Type DataType
	Raw  json.RawMessage
}

// NewValue wraps raw JSON and classifies it by its first significant byte.
// It does not validate the remainder of the document.
func NewValue(raw []byte) Value {
	raw = bytes.TrimSpace(raw)
	return Value{Type: classify(raw), Raw: json.RawMessage(raw)}
}

func classify(raw []byte) DataType {
	if len(raw) == 0 {
		return TypeNull
	}
	switch raw[0] {
	case '"':
		return TypeString
	case '{':
		return TypeJSON
	case '[':
		return TypeArray
	case 't', 'f':
		return TypeBoolean
	case 'n':
		return TypeNull
	default:
		return TypeNumber
	}
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool {
	return v.Type == TypeNull || v.Type == ""
}

// AsString decodes a string node. ok is false for any other type.
func (v Value) AsString() (s string, ok bool) {
	if v.Type != TypeString {
		return "", false
	}
	if err := json.Unmarshal(v.Raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// AsObject decodes a json node into its direct children.
// ok is false for any other type or malformed JSON.
func (v Value) AsObject() (children map[string]json.RawMessage, ok bool) {
	if v.Type != TypeJSON {
		return nil, false
	}
	if err := json.Unmarshal(v.Raw, &children); err != nil {
		return nil, false
	}
	return children, true
}

// Paths builds the store paths used by the station.
// Using these helpers keeps the namespace contract in one place.
type Paths struct{}

// StationRoom returns the path holding a station's room assignment.
//
// Example: stations/station-a1b2/room
func (Paths) StationRoom(stationID string) string {
	return fmt.Sprintf("stations/%s/room", stationID)
}

// RoomTags returns the path holding a room's tag directory.
//
// Example: rooms/room42/tags
func (Paths) RoomTags(roomID string) string {
	return fmt.Sprintf("rooms/%s/tags", roomID)
}

// Observation returns the path a station writes a tag observation to.
//
// Example: rooms/room42/tags/tag-1/stations/station-a1b2
func (Paths) Observation(roomID, tagID, stationID string) string {
	return fmt.Sprintf("rooms/%s/tags/%s/stations/%s", roomID, tagID, stationID)
}

// SplitPath validates a path and returns its segments.
// Leading and trailing slashes are ignored.
func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, ErrInvalidPath
	}
	segs := strings.Split(trimmed, "/")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

// encodePayload marshals a payload for writing. json.RawMessage and []byte
// are passed through after a validity check.
func encodePayload(payload any) ([]byte, error) {
	var data []byte
	switch p := payload.(type) {
	case json.RawMessage:
		data = p
	case []byte:
		data = p
	default:
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	return data, nil
}
