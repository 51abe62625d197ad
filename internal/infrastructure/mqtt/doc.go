// Package mqtt provides the broker session behind the MQTT store backend.
//
// Every store path maps to a retained topic under a configurable prefix.
// Put is a retained publish awaited until the broker acknowledges it. Get
// subscribes to the exact topic, takes the retained message the broker
// replays on subscribe and unsubscribes again; when nothing arrives within
// the wait the topic holds no value and Get returns ErrNoRetained.
//
// The session also keeps a retained online/offline presence on
// <prefix>/status/<client_id>, with a Last Will so the station shows
// offline when it drops without closing.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) when the broker is off-site
//   - Credentials should come from STATION_MQTT_USERNAME / STATION_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().ForPath("stations/station-a1b2/room")
//	room, err := client.Get(ctx, topic, 2*time.Second)
//	if errors.Is(err, mqtt.ErrNoRetained) {
//	    // not assigned yet
//	}
package mqtt
