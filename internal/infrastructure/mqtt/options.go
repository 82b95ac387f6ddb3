package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultKeepAlive         = 60 * time.Second
	defaultDisconnectQuiesce = 1000 // ms, paho takes uint

	maxQoS = 2
)

// Endpoint status values carried on Topics.Status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// brokerURL renders the paho broker address, "ssl" when TLS is on.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// buildClientOptions maps cfg onto paho options.
//
// Sessions are clean. Subscriptions are restored by handleConnect and the
// registration is retained, so the broker keeps no session for us.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// endpointStatus is the retained body on Topics.Status.
type endpointStatus struct {
	Status    string `json:"status"`
	Endpoint  string `json:"endpoint"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func buildStatusPayload(status, endpoint, reason string) string {
	data, err := json.Marshal(endpointStatus{
		Status:    status,
		Endpoint:  endpoint,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Sprintf(`{"status":%q}`, status)
	}
	return string(data)
}

func buildOnlinePayload(endpoint string) string {
	return buildStatusPayload(StatusOnline, endpoint, "")
}

func buildOfflinePayload(endpoint string) string {
	return buildStatusPayload(StatusOffline, endpoint, "graceful_shutdown")
}

// configureLWT makes the broker publish a retained offline status at
// QoS 1 when the connection drops without a clean disconnect.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics) {
	will := buildStatusPayload(StatusOffline, topics.Endpoint, "unexpected_disconnect")
	opts.SetWill(topics.Status(), will, 1, true)
}
