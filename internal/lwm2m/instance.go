package lwm2m

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Instance groups the resources of one object instance.
//
// All public methods are thread-safe.
type Instance struct {
	id    uint16
	owned atomic.Bool // set while registered into an object

	mu        sync.RWMutex // Protects resources and binding
	resources map[uint16]*Resource
	bound     bool
	objectID  uint16
	notifier  Notifier
}

// NewInstance creates an instance holding the given resources.
func NewInstance(id uint16, resources ...*Resource) (*Instance, error) {
	in := &Instance{
		id:        id,
		resources: make(map[uint16]*Resource, len(resources)),
	}
	if err := in.Register(resources...); err != nil {
		return nil, fmt.Errorf("instance %d: %w", id, err)
	}
	return in, nil
}

// ID returns the instance ID.
func (in *Instance) ID() uint16 { return in.id }

// Register adds resources. The batch is applied atomically: on any nil
// resource, unknown variant or repeated ID nothing is added.
func (in *Instance) Register(resources ...*Resource) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	seen := make(map[uint16]struct{}, len(resources))
	for _, r := range resources {
		if r == nil {
			return fmt.Errorf("%w: nil resource", ErrInvalidKind)
		}
		if !r.variant.Valid() {
			return fmt.Errorf("%w: resource %d has %s", ErrInvalidKind, r.id, r.variant)
		}
		if _, dup := in.resources[r.id]; dup {
			return fmt.Errorf("%w: resource %d already registered", ErrDuplicateID, r.id)
		}
		if _, dup := seen[r.id]; dup {
			return fmt.Errorf("%w: resource %d repeated in batch", ErrDuplicateID, r.id)
		}
		seen[r.id] = struct{}{}
	}

	claimed := make([]*Resource, 0, len(resources))
	for _, r := range resources {
		if !r.owned.CompareAndSwap(false, true) {
			for _, c := range claimed {
				c.owned.Store(false)
			}
			return fmt.Errorf("%w: resource %d belongs to another instance", ErrDuplicateID, r.id)
		}
		claimed = append(claimed, r)
	}

	for _, r := range resources {
		in.resources[r.id] = r
		if in.bound {
			r.bind(in.objectID, in.id, in.notifier)
		}
	}
	return nil
}

// Resource returns the resource with the given ID.
func (in *Instance) Resource(id uint16) (*Resource, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	r, ok := in.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: resource %d in instance %d", ErrNotFound, id, in.id)
	}
	return r, nil
}

// Resources returns all resources in ascending ID order.
func (in *Instance) Resources() []*Resource {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]*Resource, 0, len(in.resources))
	for _, r := range in.resources {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *Resource) int { return int(a.id) - int(b.id) })
	return out
}

// Len returns the number of resources.
func (in *Instance) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.resources)
}

// bind stamps the address on every resource, now and for later registrations.
func (in *Instance) bind(objectID uint16, n Notifier) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.bound = true
	in.objectID = objectID
	in.notifier = n
	for _, r := range in.resources {
		r.bind(objectID, in.id, n)
	}
}

func (in *Instance) unbind() {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.bound = false
	in.notifier = nil
	in.owned.Store(false)
	for _, r := range in.resources {
		r.unbind()
	}
}
