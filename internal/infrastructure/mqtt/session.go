package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	ackTimeout     = 5 * time.Second
	keepAlive      = 60 * time.Second

	// disconnectQuiesceMS lets in-flight publishes finish on Close.
	disconnectQuiesceMS = 1000
)

// Presence states published on the station's status topic.
const (
	presenceOnline  = "online"
	presenceOffline = "offline"
)

// presence is the retained payload of the status topic.
type presence struct {
	Status    string `json:"status"`
	StationID string `json:"station_id"`
	Reason    string `json:"reason,omitempty"`
	At        string `json:"at"`
}

func presencePayload(stationID, status, reason string) []byte {
	//nolint:errcheck // a struct of strings always marshals
	data, _ := json.Marshal(presence{
		Status:    status,
		StationID: stationID,
		Reason:    reason,
		At:        time.Now().UTC().Format(time.RFC3339),
	})
	return data
}

// sessionOptions builds the paho options for a station session.
//
// The session is clean: nothing is queued on the broker between
// connections, since every read re-subscribes. The will marks the station
// offline on its status topic if the connection drops without Close, which
// is what a power cut or provisioning reset looks like to the broker.
func sessionOptions(cfg config.MQTTConfig, topics Topics) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	status := topics.StationStatus(cfg.Broker.ClientID)
	will := presencePayload(cfg.Broker.ClientID, presenceOffline, "connection_lost")
	opts.SetBinaryWill(status, will, 1, true)

	return opts
}
