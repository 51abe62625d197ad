// Package influxdb mirrors beacon observations to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every observation the
// station publishes to the store can also be written as a point, giving a
// signal-strength history the store itself does not keep (the store holds
// only the latest observation per tag and station).
//
// # Schema
//
//	measurement: beacon_observation
//	tags:        station_id, room_id, tag_id
//	fields:      rssi (int), tx_power (int)
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteObservation("station-a1b2", "room42", "tag-1", -67, -12)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Points are batched according to
// batch_size and flush_interval and sent in the background; Close sends
// whatever is still queued.
package influxdb
