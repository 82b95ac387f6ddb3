package lwm2m

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Factory builds the default instance for a create request.
type Factory func(instanceID uint16) (*Instance, error)

// CreateHandler replaces the default factory. It may register the instance
// on obj itself; the object tolerates that.
type CreateHandler func(obj *Object, instanceID uint16) (*Instance, error)

// DeleteHandler runs side effects before an instance is removed.
type DeleteHandler func(obj *Object, instanceID uint16)

// ObjectOption configures an Object at construction.
type ObjectOption func(*Object)

// WithObjectName sets the object's descriptive name.
func WithObjectName(name string) ObjectOption {
	return func(o *Object) { o.name = name }
}

// WithFactory sets the default-instance factory used by OnCreate.
func WithFactory(f Factory) ObjectOption {
	return func(o *Object) { o.factory = f }
}

// WithCreateHandler sets a custom create handler. It takes precedence over
// the factory.
func WithCreateHandler(h CreateHandler) ObjectOption {
	return func(o *Object) { o.create = h }
}

// WithDeleteHandler sets a custom delete handler.
func WithDeleteHandler(h DeleteHandler) ObjectOption {
	return func(o *Object) { o.delete = h }
}

// Object groups instances of one object type and owns the create and
// delete policy for them.
//
// All public methods are thread-safe.
type Object struct {
	id      uint16
	name    string
	factory Factory
	create  CreateHandler
	delete  DeleteHandler
	owned   atomic.Bool // set once registered into a client

	mu        sync.RWMutex // Protects instances, notifier and logger
	instances map[uint16]*Instance
	notifier  Notifier
	logger    Logger
}

// NewObject creates an empty object.
func NewObject(id uint16, opts ...ObjectOption) *Object {
	o := &Object{
		id:        id,
		instances: make(map[uint16]*Instance),
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ID returns the object ID.
func (o *Object) ID() uint16 { return o.id }

// Name returns the descriptive name, if any.
func (o *Object) Name() string { return o.name }

// Register adds instances and stamps the object and instance address on
// all their resources. The batch is applied atomically. An instance
// already owned by another object is rejected with ErrDuplicateID.
func (o *Object) Register(instances ...*Instance) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	seen := make(map[uint16]struct{}, len(instances))
	for _, in := range instances {
		if in == nil {
			return fmt.Errorf("%w: nil instance in object %d", ErrInvalidKind, o.id)
		}
		if _, dup := o.instances[in.id]; dup {
			return fmt.Errorf("%w: instance %d already registered in object %d", ErrDuplicateID, in.id, o.id)
		}
		if _, dup := seen[in.id]; dup {
			return fmt.Errorf("%w: instance %d repeated in batch", ErrDuplicateID, in.id)
		}
		seen[in.id] = struct{}{}
	}

	claimed := make([]*Instance, 0, len(instances))
	for _, in := range instances {
		if !in.owned.CompareAndSwap(false, true) {
			for _, prev := range claimed {
				prev.owned.Store(false)
			}
			return fmt.Errorf("%w: instance %d belongs to another object", ErrDuplicateID, in.id)
		}
		claimed = append(claimed, in)
	}

	for _, in := range instances {
		o.instances[in.id] = in
		in.bind(o.id, o.notifier)
	}
	return nil
}

// Instance returns the instance with the given ID.
func (o *Object) Instance(id uint16) (*Instance, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	in, ok := o.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: instance %d in object %d", ErrNotFound, id, o.id)
	}
	return in, nil
}

// Instances returns all instances in ascending ID order.
func (o *Object) Instances() []*Instance {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*Instance, 0, len(o.instances))
	for _, in := range o.instances {
		out = append(out, in)
	}
	slices.SortFunc(out, func(a, b *Instance) int { return int(a.id) - int(b.id) })
	return out
}

// OnCreate answers a create request for instanceID.
//
// It returns false when the instance already exists, when neither a create
// handler nor a factory is configured, when they produce nothing or an
// instance with another ID, or when registration conflicts with a different
// instance. On success the registered instance is returned.
func (o *Object) OnCreate(instanceID uint16) (*Instance, bool) {
	if _, err := o.Instance(instanceID); err == nil {
		return nil, false
	}

	var (
		in  *Instance
		err error
	)
	switch {
	case o.create != nil:
		in, err = o.create(o, instanceID)
	case o.factory != nil:
		in, err = o.factory(instanceID)
	default:
		o.log().Debug("create without factory", "object", o.id, "instance", instanceID)
		return nil, false
	}
	if err != nil {
		o.log().Warn("instance create failed", "object", o.id, "instance", instanceID, "error", err)
		return nil, false
	}
	if in == nil {
		return nil, false
	}
	if in.id != instanceID {
		o.log().Warn("create produced wrong instance id",
			"object", o.id, "requested", instanceID, "produced", in.id)
		return nil, false
	}

	if err := o.Register(in); err != nil {
		existing, lookupErr := o.Instance(instanceID)
		if !errors.Is(err, ErrDuplicateID) || lookupErr != nil || existing != in {
			o.log().Warn("instance create conflict", "object", o.id, "instance", instanceID, "error", err)
			return nil, false
		}
	}

	o.log().Info("instance created", "object", o.id, "instance", instanceID)
	return in, true
}

// OnDelete answers a delete request. The delete handler runs first, then
// the instance is removed. Returns true iff an instance was removed.
func (o *Object) OnDelete(instanceID uint16) bool {
	if o.delete != nil {
		o.delete(o, instanceID)
	}

	o.mu.Lock()
	in, ok := o.instances[instanceID]
	if ok {
		delete(o.instances, instanceID)
	}
	o.mu.Unlock()

	if !ok {
		return false
	}
	in.unbind()
	o.log().Info("instance deleted", "object", o.id, "instance", instanceID)
	return true
}

func (o *Object) log() Logger {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.logger
}

func (o *Object) setLogger(l Logger) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logger = l
}

// bind routes change notifications of every instance to n.
func (o *Object) bind(n Notifier) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.notifier = n
	for _, in := range o.instances {
		in.bind(o.id, n)
	}
}
