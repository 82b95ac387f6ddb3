package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/broker"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
)

const testEndpoint = "pressure-test"

// testConfig starts an embedded broker on a free port and returns a client
// configuration pointing at it.
func testConfig(t *testing.T) config.MQTTConfig {
	t.Helper()
	b, err := broker.New(config.EmbeddedBrokerConfig{Host: "127.0.0.1"}, nil, nil)
	if err != nil {
		t.Fatalf("broker.New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("broker.Start() error = %v", err)
	}
	t.Cleanup(func() {
		_ = b.Stop(context.Background())
	})

	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     b.Port(),
			ClientID: "graylogic-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "lwm2m",
	}
}

func connect(t *testing.T, cfg config.MQTTConfig, clientID string) *Client {
	t.Helper()
	cfg.Broker.ClientID = clientID
	client, err := Connect(cfg, testEndpoint)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connect(t, testConfig(t), "graylogic-test-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if got := client.Topics().Status(); got != "lwm2m/pressure-test/status" {
		t.Errorf("Topics().Status() = %q", got)
	}
	if client.QoS() != 1 {
		t.Errorf("QoS() = %d, want 1", client.QoS())
	}
}

func TestConnectEmptyEndpoint(t *testing.T) {
	_, err := Connect(testConfig(t), "")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectInvalidBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the connect timeout")
	}
	cfg := testConfig(t)
	cfg.Broker.Port = 1 // nothing listens here

	_, err := Connect(cfg, testEndpoint)
	if err == nil {
		t.Fatal("Connect() expected error for unreachable broker")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("error = %v, want ErrConnectionFailed", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil paho client error = %v", err)
	}
}

func TestCloseDisconnects(t *testing.T) {
	cfg := testConfig(t)
	cfg.Broker.ClientID = "graylogic-test-close"
	client, err := Connect(cfg, testEndpoint)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := connect(t, testConfig(t), "graylogic-test-health")

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Publish / Subscribe Tests
// =============================================================================

func TestPublishValidation(t *testing.T) {
	client := connect(t, testConfig(t), "graylogic-test-pub-validate")

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"wildcard topic", "lwm2m/+/status", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "lwm2m/t", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "lwm2m/t", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"nil payload", "lwm2m/t", nil, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Publish() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := connect(t, testConfig(t), "graylogic-test-sub-validate")
	noop := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := client.Subscribe("lwm2m/#", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("invalid qos error = %v", err)
	}
	if err := client.Subscribe("lwm2m/#", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v", err)
	}
	if subs := client.Subscriptions(); len(subs) != 0 {
		t.Errorf("Subscriptions() = %v after failed subscribes", subs)
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	cfg := testConfig(t)
	pub := connect(t, cfg, "graylogic-test-pub")
	sub := connect(t, cfg, "graylogic-test-sub")

	topic := pub.Topics().Notify(3323, 1, 5700)
	received := make(chan string, 1)
	err := sub.Subscribe(sub.Topics().AllNotifications(), 1, func(topic string, payload []byte) error {
		received <- topic + " " + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if subs := sub.Subscriptions(); len(subs) != 1 || subs[0] != sub.Topics().AllNotifications() {
		t.Errorf("Subscriptions() = %v after Subscribe", subs)
	}

	if err := pub.Publish(topic, []byte(`{"value":12.5}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		want := "lwm2m/pressure-test/notify/3323/1/5700 {\"value\":12.5}"
		if got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	if err := sub.Unsubscribe(sub.Topics().AllNotifications()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if subs := sub.Subscriptions(); len(subs) != 0 {
		t.Errorf("Subscriptions() = %v after Unsubscribe", subs)
	}
}

func TestOnlineStatusRetained(t *testing.T) {
	cfg := testConfig(t)
	connect(t, cfg, "graylogic-test-status")

	// A late subscriber must see the retained online status.
	watcher := connect(t, cfg, "graylogic-test-status-watch")
	statuses := make(chan endpointStatus, 4)
	err := watcher.Subscribe(watcher.Topics().Status(), 1, func(_ string, payload []byte) error {
		var s endpointStatus
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		statuses <- s
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-statuses:
			if s.Status == StatusOnline {
				if s.Endpoint != testEndpoint {
					t.Errorf("status endpoint = %q", s.Endpoint)
				}
				return
			}
		case <-deadline:
			t.Fatal("no online status observed")
		}
	}
}

func TestHandlerErrorAndPanicAreLogged(t *testing.T) {
	cfg := testConfig(t)
	client := connect(t, cfg, "graylogic-test-handler")
	logger := &mockLogger{}
	client.SetLogger(logger)

	done := make(chan struct{}, 2)
	if err := client.Subscribe("lwm2m/test/error", 1, func(string, []byte) error {
		defer func() { done <- struct{}{} }()
		return errors.New("handler error")
	}); err != nil {
		t.Fatal(err)
	}
	if err := client.Subscribe("lwm2m/test/panic", 1, func(string, []byte) error {
		defer func() { done <- struct{}{} }()
		panic("boom")
	}); err != nil {
		t.Fatal(err)
	}

	_ = client.Publish("lwm2m/test/error", []byte("x"), 1, false)
	_ = client.Publish("lwm2m/test/panic", []byte("x"), 1, false)

	for range 2 {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not called")
		}
	}

	// The deferred send runs before the wrapper logs; poll briefly.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if logger.count() >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if logger.count() < 2 {
		t.Errorf("logged %d messages, want 2", logger.count())
	}
}

// =============================================================================
// Topic and Payload Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("/lwm2m/", "pressure-001")
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Registration", topics.Registration(), "lwm2m/pressure-001/registration"},
		{"Request", topics.Request(), "lwm2m/pressure-001/request"},
		{"Response", topics.Response("req-42"), "lwm2m/pressure-001/response/req-42"},
		{"AllResponses", topics.AllResponses(), "lwm2m/pressure-001/response/+"},
		{"Notify", topics.Notify(3323, 1, 5700), "lwm2m/pressure-001/notify/3323/1/5700"},
		{"AllNotifications", topics.AllNotifications(), "lwm2m/pressure-001/notify/#"},
		{"Status", topics.Status(), "lwm2m/pressure-001/status"},
		{"NoPrefix", NewTopics("", "dev").Status(), "dev/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
		wantReason string
	}{
		{"online", buildOnlinePayload("dev"), StatusOnline, ""},
		{"offline", buildOfflinePayload("dev"), StatusOffline, "graceful_shutdown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s endpointStatus
			if err := json.Unmarshal([]byte(tt.payload), &s); err != nil {
				t.Fatalf("invalid JSON %q: %v", tt.payload, err)
			}
			if s.Status != tt.wantStatus || s.Reason != tt.wantReason || s.Endpoint != "dev" {
				t.Errorf("payload = %+v", s)
			}
			if _, err := time.Parse(time.RFC3339, s.Timestamp); err != nil {
				t.Errorf("timestamp %q: %v", s.Timestamp, err)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, TLS: true, ClientID: "c1"},
		Auth:   config.MQTTAuthConfig{Username: "u", Password: "p"},
	}
	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.Username != "u" || opts.ClientID != "c1" {
		t.Errorf("Username = %q, ClientID = %q", opts.Username, opts.ClientID)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set for TLS broker")
	}

	configureLWT(opts, NewTopics("lwm2m", "dev"))
	if opts.WillTopic != "lwm2m/dev/status" || !opts.WillRetained {
		t.Errorf("Will = %q retained=%v", opts.WillTopic, opts.WillRetained)
	}
	if !strings.Contains(string(opts.WillPayload), "unexpected_disconnect") {
		t.Errorf("WillPayload = %s", opts.WillPayload)
	}
}

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
