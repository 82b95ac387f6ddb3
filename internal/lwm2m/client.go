package lwm2m

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// ChangeListener observes every resource change routed through the client,
// whether or not an engine is attached.
type ChangeListener func(p Path)

// attachment wraps the attached notifier so it can live in an atomic.Pointer.
type attachment struct {
	notifier Notifier
}

// Client is the registry of objects exposed to a protocol engine.
// It is the single path by which a resource change reaches the engine.
//
// A Client is constructed explicitly and passed by reference; there is no
// process-wide instance. All public methods are thread-safe.
type Client struct {
	mu      sync.RWMutex // Protects objects
	objects map[uint16]*Object

	attached atomic.Pointer[attachment]

	listenersMu sync.RWMutex
	listeners   []ChangeListener

	logger Logger
}

// NewClient creates an empty registry.
func NewClient() *Client {
	return &Client{
		objects: make(map[uint16]*Object),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the client and its registered objects.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger = logger
	for _, o := range c.objects {
		o.setLogger(logger)
	}
}

// Register adds objects and routes their change notifications through the
// client. The batch is applied atomically. An object already owned by
// another client is rejected with ErrDuplicateID.
//
// Objects registered after an engine is attached are accepted but are not
// part of the snapshot the running engine was started with.
func (c *Client) Register(objects ...*Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[uint16]struct{}, len(objects))
	for _, o := range objects {
		if o == nil {
			return fmt.Errorf("%w: nil object", ErrInvalidKind)
		}
		if _, dup := c.objects[o.id]; dup {
			return fmt.Errorf("%w: object %d already registered", ErrDuplicateID, o.id)
		}
		if _, dup := seen[o.id]; dup {
			return fmt.Errorf("%w: object %d repeated in batch", ErrDuplicateID, o.id)
		}
		seen[o.id] = struct{}{}
	}

	claimed := make([]*Object, 0, len(objects))
	for _, o := range objects {
		if !o.owned.CompareAndSwap(false, true) {
			for _, prev := range claimed {
				prev.owned.Store(false)
			}
			return fmt.Errorf("%w: object %d belongs to another client", ErrDuplicateID, o.id)
		}
		claimed = append(claimed, o)
	}

	late := c.attached.Load() != nil
	for _, o := range objects {
		c.objects[o.id] = o
		o.setLogger(c.logger)
		o.bind(c)
		if late {
			c.logger.Warn("object registered after engine start, not visible to running engine", "object", o.id)
		} else {
			c.logger.Debug("object registered", "object", o.id, "name", o.name)
		}
	}
	return nil
}

// Object returns the object with the given ID.
func (c *Client) Object(id uint16) (*Object, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o, ok := c.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: object %d", ErrNotFound, id)
	}
	return o, nil
}

// Objects returns all objects in ascending ID order.
func (c *Client) Objects() []*Object {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Object, 0, len(c.objects))
	for _, o := range c.objects {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b *Object) int { return int(a.id) - int(b.id) })
	return out
}

// Resolve returns the resource addressed by uri ("o/i/r").
// Returns ErrInvalidAddress for a malformed uri and ErrNotFound when any
// level is missing.
func (c *Client) Resolve(uri string) (*Resource, error) {
	p, err := ParsePath(uri)
	if err != nil {
		return nil, err
	}
	return c.ResolvePath(p)
}

// ResolvePath returns the resource at p.
func (c *Client) ResolvePath(p Path) (*Resource, error) {
	o, err := c.Object(p.Object)
	if err != nil {
		return nil, err
	}
	in, err := o.Instance(p.Instance)
	if err != nil {
		return nil, err
	}
	return in.Resource(p.Resource)
}

// OnChange adds a listener called for every change notification.
func (c *Client) OnChange(l ChangeListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// NotifyChanged forwards a change to the listeners and, when attached, to
// the engine. Without an engine it only reaches the listeners; it never fails.
func (c *Client) NotifyChanged(objectID, instanceID, resourceID uint16) {
	c.listenersMu.RLock()
	listeners := c.listeners
	c.listenersMu.RUnlock()

	p := Path{Object: objectID, Instance: instanceID, Resource: resourceID}
	for _, l := range listeners {
		l(p)
	}

	if a := c.attached.Load(); a != nil {
		a.notifier.NotifyChanged(objectID, instanceID, resourceID)
	}
}

// Attach connects an engine notifier. Only one engine may be attached.
func (c *Client) Attach(n Notifier) error {
	if n == nil {
		return fmt.Errorf("%w: nil notifier", ErrInvalidKind)
	}
	if !c.attached.CompareAndSwap(nil, &attachment{notifier: n}) {
		return ErrAlreadyAttached
	}
	c.log().Info("engine attached")
	return nil
}

// Detach disconnects n if it is the attached notifier.
func (c *Client) Detach(n Notifier) {
	a := c.attached.Load()
	if a == nil || a.notifier != n {
		return
	}
	if c.attached.CompareAndSwap(a, nil) {
		c.log().Info("engine detached")
	}
}

// Attached reports whether an engine is attached.
func (c *Client) Attached() bool {
	return c.attached.Load() != nil
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}
