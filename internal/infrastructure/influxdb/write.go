package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementObservation is the measurement holding beacon observations.
const MeasurementObservation = "beacon_observation"

// WriteObservation records one published observation.
//
// The point is queued for the next batch; failures reach the SetOnError
// callback. Writes after Close are dropped.
//
// Example:
//
//	client.WriteObservation("station-a1b2", "room42", "tag-1", -67, -12)
func (c *Client) WriteObservation(stationID, roomID, tagID string, rssi, txPower int) {
	if c.closed.Load() {
		return
	}
	c.points.WritePoint(observationPoint(stationID, roomID, tagID, rssi, txPower, c.now()))
}

func observationPoint(stationID, roomID, tagID string, rssi, txPower int, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementObservation,
		map[string]string{
			"station_id": stationID,
			"room_id":    roomID,
			"tag_id":     tagID,
		},
		map[string]interface{}{
			"rssi":     rssi,
			"tx_power": txPower,
		},
		ts,
	)
}
