package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
)

func startBroker(t *testing.T) *Broker {
	t.Helper()
	b, err := New(config.EmbeddedBrokerConfig{Enabled: true, Host: "127.0.0.1", Port: 0}, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		_ = b.Stop(context.Background())
	})
	return b
}

func TestBroker_StartAssignsPort(t *testing.T) {
	b := startBroker(t)

	if !b.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if b.Port() == 0 {
		t.Errorf("Port() = 0, Addr() = %q", b.Addr())
	}
	if err := b.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestBroker_StartCancelledContext(t *testing.T) {
	b, err := New(config.EmbeddedBrokerConfig{Host: "127.0.0.1"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
	if b.IsRunning() {
		t.Error("IsRunning() = true after failed Start")
	}
}

func TestBroker_InlinePublishSubscribe(t *testing.T) {
	b := startBroker(t)

	received := make(chan string, 1)
	unsubscribe, err := b.Subscribe("lwm2m/+/notify/#", func(topic string, payload []byte) {
		received <- topic + "=" + string(payload)
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	if err := b.Publish("lwm2m/dev-1/notify/3323/1/5700", []byte(`{"value":42.5}`), 0, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		want := `lwm2m/dev-1/notify/3323/1/5700={"value":42.5}`
		if got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for inline delivery")
	}
}

func TestBroker_NotRunning(t *testing.T) {
	b, err := New(config.EmbeddedBrokerConfig{Host: "127.0.0.1"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := b.Publish("t", nil, 0, false); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Publish() error = %v, want ErrNotRunning", err)
	}
	if _, err := b.Subscribe("t", func(string, []byte) {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Subscribe() error = %v, want ErrNotRunning", err)
	}
	if err := b.Stop(context.Background()); err != nil {
		t.Errorf("Stop() on idle broker error = %v", err)
	}
	if b.Addr() != "" || b.Port() != 0 {
		t.Errorf("Addr() = %q before Start", b.Addr())
	}
}

func TestBroker_StopThenPublish(t *testing.T) {
	b := startBroker(t)
	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := b.Publish("t", nil, 0, false); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Publish() after Stop error = %v, want ErrNotRunning", err)
	}
}
