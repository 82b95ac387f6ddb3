package broker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
)

// shutdownTimeout bounds Stop when ctx carries no deadline.
const shutdownTimeout = 5 * time.Second

// Logger is the logging surface used by the broker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler receives messages delivered to an inline subscription.
type Handler func(topic string, payload []byte)

// Stats is a snapshot of broker traffic.
type Stats struct {
	Clients   int64
	Published uint64
}

// Broker is an embedded mochi-mqtt server with one TCP listener.
//
// Thread Safety: All methods are safe for concurrent use.
type Broker struct {
	cfg    config.EmbeddedBrokerConfig
	server *mqtt.Server
	stats  *statsHook
	logger Logger

	mu      sync.RWMutex
	running bool
	addr    string
	nextSub int
}

// New creates a broker. slogger, when non-nil, receives mochi's own logs.
// Call Start to begin listening.
func New(cfg config.EmbeddedBrokerConfig, logger Logger, slogger *slog.Logger) (*Broker, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	opts := &mqtt.Options{InlineClient: true}
	if slogger != nil {
		opts.Logger = slogger
	}
	server := mqtt.New(opts)

	// mochi rejects every client unless an auth hook is present.
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("%w: adding allow hook: %w", ErrStartFailed, err)
	}
	stats := &statsHook{logger: logger}
	if err := server.AddHook(stats, nil); err != nil {
		return nil, fmt.Errorf("%w: adding stats hook: %w", ErrStartFailed, err)
	}

	return &Broker{
		cfg:    cfg,
		server: server,
		stats:  stats,
		logger: logger,
	}, nil
}

// Start opens the listener and serves clients on a background goroutine.
// Port 0 picks a free port; Addr reports the bound address.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr, err := resolveAddress(b.cfg.Host, b.cfg.Port)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	listener := listeners.NewTCP(listeners.Config{
		ID:      "graylogic-tcp",
		Address: addr,
	})
	if err := b.server.AddListener(listener); err != nil {
		return fmt.Errorf("%w: adding listener: %w", ErrStartFailed, err)
	}

	go func() {
		if err := b.server.Serve(); err != nil {
			b.logger.Error("embedded broker stopped", "error", err)
		}
	}()

	b.running = true
	b.addr = addr
	b.logger.Info("embedded broker listening", "address", addr)
	return nil
}

// resolveAddress turns port 0 into a concrete free port so the address can
// be handed to clients before the listener is up.
func resolveAddress(host string, port int) (string, error) {
	if port != 0 {
		return net.JoinHostPort(host, strconv.Itoa(port)), nil
	}
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return "", fmt.Errorf("finding free port: %w", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		return "", fmt.Errorf("releasing probe listener: %w", err)
	}
	return addr, nil
}

// Stop closes all client connections and the listener.
// Stopping a broker that is not running is a no-op.
func (b *Broker) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	b.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	// Close runs disconnect hooks; no broker lock may be held here.
	done := make(chan error, 1)
	go func() {
		done <- b.server.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("closing broker: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("closing broker: %w", ctx.Err())
	}
	b.logger.Info("embedded broker stopped")
	return nil
}

// Addr returns the listen address, or "" before Start.
func (b *Broker) Addr() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.addr
}

// Port returns the bound TCP port, or 0 before Start.
func (b *Broker) Port() int {
	_, port, err := net.SplitHostPort(b.Addr())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

// IsRunning reports whether Start has succeeded and Stop not yet been called.
func (b *Broker) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Publish injects a message as the inline client.
func (b *Broker) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if !b.IsRunning() {
		return ErrNotRunning
	}
	if err := b.server.Publish(topic, payload, retain, qos); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Subscribe delivers messages matching filter to handler on the broker's
// goroutines. It returns a function that removes the subscription.
func (b *Broker) Subscribe(filter string, handler Handler) (func(), error) {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil, ErrNotRunning
	}
	b.nextSub++
	id := b.nextSub
	b.mu.Unlock()

	fn := func(_ *mqtt.Client, _ packets.Subscription, pk packets.Packet) {
		handler(pk.TopicName, pk.Payload)
	}
	if err := b.server.Subscribe(filter, id, fn); err != nil {
		return nil, fmt.Errorf("subscribing %s: %w", filter, err)
	}
	return func() {
		_ = b.server.Unsubscribe(filter, id)
	}, nil
}

// Stats returns current connection and publish counters.
func (b *Broker) Stats() Stats {
	return Stats{
		Clients:   b.stats.clients.Load(),
		Published: b.stats.published.Load(),
	}
}
