package mqttengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-lwm2m/internal/engine"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

const (
	// requestQueueSize bounds inbound requests waiting for the Run loop.
	requestQueueSize = 256

	// minUpdateInterval is the floor for registration updates.
	minUpdateInterval = time.Second
)

// MQTTClient is the broker connection used by the engine.
// It is satisfied by *mqtt.Client.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Options holds configuration for creating an engine.
type Options struct {
	// Client is the MQTT connection. Required.
	Client MQTTClient

	// TopicPrefix is the first topic level, e.g. "lwm2m".
	TopicPrefix string

	// QoS is used for every publish and subscription.
	QoS byte

	// Lifetime is the registration lifetime. The registration is
	// republished every half lifetime. Zero disables updates.
	Lifetime time.Duration

	// Binding is the advertised binding mode, e.g. "U".
	Binding string

	// Logger is an optional structured logger.
	Logger Logger
}

// Engine implements engine.Engine over MQTT.
//
// Thread Safety: ResourceChanged is safe from any goroutine. Run may be
// active at most once at a time.
type Engine struct {
	client   MQTTClient
	prefix   string
	qos      byte
	lifetime time.Duration
	binding  string
	logger   Logger

	changes   *changeQueue
	updateNow chan struct{}
	disable   chan time.Duration

	mu      sync.Mutex
	running bool
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine. It does nothing until Run.
func New(opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, ErrClientRequired
	}
	e := &Engine{
		client:   opts.Client,
		prefix:   opts.TopicPrefix,
		qos:      opts.QoS,
		lifetime: opts.Lifetime,
		binding:  opts.Binding,
		logger:   opts.Logger,
		changes:  newChangeQueue(),

		updateNow: make(chan struct{}, 1),
		disable:   make(chan time.Duration, 1),
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	return e, nil
}

// ResourceChanged queues a change for the Run loop. It never blocks.
func (e *Engine) ResourceChanged(objectID, instanceID, resourceID uint16) {
	e.changes.push(lwm2m.Path{Object: objectID, Instance: instanceID, Resource: resourceID})
}

// RequestUpdate asks the Run loop to republish the registration now.
// Requests made while one is pending coalesce. It never blocks.
func (e *Engine) RequestUpdate() {
	select {
	case e.updateNow <- struct{}{}:
	default:
	}
}

// Disable asks the Run loop to withdraw the registration for d and then
// register again under a new registration ID. It never blocks; a pending
// request is replaced.
func (e *Engine) Disable(d time.Duration) {
	for {
		select {
		case e.disable <- d:
			return
		default:
		}
		select {
		case <-e.disable:
		default:
		}
	}
}

// Run registers endpoint, serves requests against objects and publishes
// notifications until ctx ends. On return the registration is withdrawn.
func (e *Engine) Run(ctx context.Context, endpoint string, objects []engine.ObjectTree) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	s := newSession(e, endpoint, objects)
	e.changes.reset()

	requests := make(chan []byte, requestQueueSize)
	err := e.client.Subscribe(s.topics.Request(), e.qos, func(_ string, payload []byte) error {
		select {
		case requests <- payload:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("request queue full, dropped %d bytes", len(payload))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to requests: %w", err)
	}
	defer func() {
		if err := e.client.Unsubscribe(s.topics.Request()); err != nil {
			e.logger.Warn("unsubscribing from requests failed", "endpoint", endpoint, "error", err)
		}
	}()

	if err := s.publishRegistration(false); err != nil {
		return fmt.Errorf("publishing registration: %w", err)
	}
	e.logger.Info("endpoint registered",
		"endpoint", endpoint,
		"registration_id", s.registrationID,
		"objects", len(objects),
	)
	defer func() {
		if !s.disabled {
			s.deregister()
		}
	}()

	var updates <-chan time.Time
	if e.lifetime > 0 {
		ticker := time.NewTicker(max(e.lifetime/2, minUpdateInterval))
		defer ticker.Stop()
		updates = ticker.C
	}

	enable := time.NewTimer(0)
	enable.Stop()
	defer enable.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-e.disable:
			if s.disabled {
				continue
			}
			s.disable()
			e.logger.Info("endpoint disabled", "endpoint", endpoint, "duration", d)
			enable.Reset(d)
		case <-enable.C:
			if err := s.enable(); err != nil {
				e.logger.Warn("re-registration failed", "endpoint", endpoint, "error", err)
				enable.Reset(minUpdateInterval)
				continue
			}
			e.logger.Info("endpoint re-registered", "endpoint", endpoint, "registration_id", s.registrationID)
		case <-e.updateNow:
			s.registrationChanged()
		case payload := <-requests:
			s.handleRequest(payload)
		case <-e.changes.ready:
			for _, p := range e.changes.drain() {
				s.notify(p)
			}
		case <-updates:
			s.registrationChanged()
		}
	}
}

func (e *Engine) publishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message for %s: %w", topic, err)
	}
	return e.client.Publish(topic, payload, e.qos, retained)
}

// newRegistrationID returns a fresh registration identifier.
func newRegistrationID() string {
	return uuid.NewString()
}
