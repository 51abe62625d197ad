package mqtt

import (
	"fmt"
	"strings"
)

// Topics builds topic names under the configured prefix.
//
// The station maps store paths one-to-one onto topics, so the store path
// "rooms/room42/tags" becomes "presence/rooms/room42/tags" with the
// default prefix "presence".
type Topics struct {
	Prefix string
}

// ForPath returns the topic holding the value at a store path.
//
// Example: presence/stations/station-a1b2/room
func (t Topics) ForPath(path string) string {
	path = strings.Trim(path, "/")
	if t.Prefix == "" {
		return path
	}
	return t.Prefix + "/" + path
}

// StationStatus returns the retained online/offline topic for a station.
//
// Example: presence/status/station-a1b2
func (t Topics) StationStatus(clientID string) string {
	return t.ForPath(fmt.Sprintf("status/%s", clientID))
}

// ValidatePath reports whether a store path can be mapped onto a topic.
// Empty segments and MQTT wildcards are rejected.
func ValidatePath(path string) error {
	if path == "" {
		return ErrInvalidTopic
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidTopic, path)
		}
		if strings.ContainsAny(seg, "+#") {
			return fmt.Errorf("%w: wildcard in %q", ErrInvalidTopic, path)
		}
	}
	return nil
}
