package lwm2m

import (
	"fmt"
	"sync/atomic"
)

// Variant is the closed set of resource shapes.
type Variant uint8

// Resource variants.
const (
	VariantExecutable Variant = iota + 1
	VariantReadable
	VariantWritable
	VariantReadWritable
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantExecutable:
		return "executable"
	case VariantReadable:
		return "readable"
	case VariantWritable:
		return "writable"
	case VariantReadWritable:
		return "read-writable"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Valid reports whether v is one of the declared variants.
func (v Variant) Valid() bool {
	return v >= VariantExecutable && v <= VariantReadWritable
}

// CanRead reports whether the variant answers reads.
func (v Variant) CanRead() bool {
	return v == VariantReadable || v == VariantReadWritable
}

// CanWrite reports whether the variant accepts writes.
func (v Variant) CanWrite() bool {
	return v == VariantWritable || v == VariantReadWritable
}

// CanExecute reports whether the variant can be executed.
func (v Variant) CanExecute() bool {
	return v == VariantExecutable
}

// Operations is the LwM2M operations string (R, W, RW or E).
func (v Variant) Operations() string {
	switch v {
	case VariantExecutable:
		return "E"
	case VariantReadable:
		return "R"
	case VariantWritable:
		return "W"
	case VariantReadWritable:
		return "RW"
	default:
		return ""
	}
}

// ReadHook produces a fresh value for a read. Returning a nil value keeps
// the current cell value.
type ReadHook func() (any, error)

// WriteHook decides whether an already coerced candidate is committed.
type WriteHook func(candidate Value) bool

// ExecuteHook performs an action and reports its outcome.
type ExecuteHook func(payload []byte) bool

// ResourceOption configures a Resource at construction.
type ResourceOption func(*Resource)

// WithName sets a descriptive resource name.
func WithName(name string) ResourceOption {
	return func(r *Resource) { r.name = name }
}

// WithReadHook sets the hook consulted on every read.
func WithReadHook(h ReadHook) ResourceOption {
	return func(r *Resource) { r.readHook = h }
}

// WithWriteHook sets the hook consulted on every write.
func WithWriteHook(h WriteHook) ResourceOption {
	return func(r *Resource) { r.writeHook = h }
}

// WithExecuteHook sets the action run on execute.
func WithExecuteHook(h ExecuteHook) ResourceOption {
	return func(r *Resource) { r.executeHook = h }
}

// Notifier receives change notifications for addressed resources.
type Notifier interface {
	NotifyChanged(objectID, instanceID, resourceID uint16)
}

// route is the address stamped on a resource at registration.
type route struct {
	objectID   uint16
	instanceID uint16
	notifier   Notifier
}

// Resource is a leaf of the object tree.
type Resource struct {
	id      uint16
	name    string
	variant Variant
	cell    *Cell // nil for executables

	readHook    ReadHook
	writeHook   WriteHook
	executeHook ExecuteHook

	route atomic.Pointer[route]
	owned atomic.Bool // set once registered into an instance
}

func newResource(id uint16, variant Variant, kind Kind, initial any, opts []ResourceOption) (*Resource, error) {
	r := &Resource{id: id, variant: variant}
	for _, opt := range opts {
		opt(r)
	}

	if r.readHook != nil && !variant.CanRead() {
		return nil, fmt.Errorf("%w: read hook on %s resource %d", ErrCapabilityMismatch, variant, id)
	}
	if r.writeHook != nil && !variant.CanWrite() {
		return nil, fmt.Errorf("%w: write hook on %s resource %d", ErrCapabilityMismatch, variant, id)
	}
	if r.executeHook != nil && !variant.CanExecute() {
		return nil, fmt.Errorf("%w: execute hook on %s resource %d", ErrCapabilityMismatch, variant, id)
	}

	if variant == VariantExecutable {
		return r, nil
	}
	cell, err := NewCell(kind, initial)
	if err != nil {
		return nil, fmt.Errorf("resource %d: %w", id, err)
	}
	cell.onChange = r.changed
	r.cell = cell
	return r, nil
}

// NewExecutable creates an executable resource.
func NewExecutable(id uint16, opts ...ResourceOption) (*Resource, error) {
	return newResource(id, VariantExecutable, KindUndefined, nil, opts)
}

// NewReadable creates a read-only data resource.
func NewReadable(id uint16, kind Kind, initial any, opts ...ResourceOption) (*Resource, error) {
	return newResource(id, VariantReadable, kind, initial, opts)
}

// NewWritable creates a write-only data resource.
func NewWritable(id uint16, kind Kind, initial any, opts ...ResourceOption) (*Resource, error) {
	return newResource(id, VariantWritable, kind, initial, opts)
}

// NewReadWritable creates a read-write data resource.
func NewReadWritable(id uint16, kind Kind, initial any, opts ...ResourceOption) (*Resource, error) {
	return newResource(id, VariantReadWritable, kind, initial, opts)
}

// MustExecutable is like NewExecutable but panics on error.
// Intended for static object definitions.
func MustExecutable(id uint16, opts ...ResourceOption) *Resource {
	return must(NewExecutable(id, opts...))
}

// MustReadable is like NewReadable but panics on error.
func MustReadable(id uint16, kind Kind, initial any, opts ...ResourceOption) *Resource {
	return must(NewReadable(id, kind, initial, opts...))
}

// MustWritable is like NewWritable but panics on error.
func MustWritable(id uint16, kind Kind, initial any, opts ...ResourceOption) *Resource {
	return must(NewWritable(id, kind, initial, opts...))
}

// MustReadWritable is like NewReadWritable but panics on error.
func MustReadWritable(id uint16, kind Kind, initial any, opts ...ResourceOption) *Resource {
	return must(NewReadWritable(id, kind, initial, opts...))
}

func must(r *Resource, err error) *Resource {
	if err != nil {
		panic(err)
	}
	return r
}

// ID returns the resource ID.
func (r *Resource) ID() uint16 { return r.id }

// Name returns the descriptive name, if any.
func (r *Resource) Name() string { return r.name }

// Variant returns the resource variant.
func (r *Resource) Variant() Variant { return r.variant }

// Kind returns the value kind. Executables report KindUndefined.
func (r *Resource) Kind() Kind {
	if r.cell == nil {
		return KindUndefined
	}
	return r.cell.Kind()
}

// Address returns the object and instance IDs stamped at registration.
func (r *Resource) Address() (objectID, instanceID uint16, ok bool) {
	rt := r.route.Load()
	if rt == nil {
		return 0, 0, false
	}
	return rt.objectID, rt.instanceID, true
}

// Value returns the current cell value without running any hook.
// Executables return an undefined value.
func (r *Resource) Value() Value {
	if r.cell == nil {
		return Value{}
	}
	return r.cell.Get()
}

// Set stores a value from the application side, bypassing hooks.
// It is the path by which sensors and timers update readable resources.
func (r *Resource) Set(candidate any) error {
	if r.cell == nil {
		return fmt.Errorf("%w: resource %d is %s", ErrCapabilityMismatch, r.id, r.variant)
	}
	return r.cell.Set(candidate)
}

// OnRead answers a read. A read hook, if present, is called first and its
// result is stored through the cell so that it notifies like any other change.
func (r *Resource) OnRead() (Value, error) {
	if !r.variant.CanRead() {
		return Value{}, fmt.Errorf("%w: read on %s resource %d", ErrCapabilityMismatch, r.variant, r.id)
	}
	if r.readHook != nil {
		v, err := r.readHook()
		if err != nil {
			return Value{}, fmt.Errorf("read hook for resource %d: %w", r.id, err)
		}
		if v != nil {
			if err := r.cell.Set(v); err != nil {
				return Value{}, fmt.Errorf("read hook for resource %d: %w", r.id, err)
			}
		}
	}
	return r.cell.Get(), nil
}

// OnWrite answers a write. The candidate is coerced first; a type mismatch
// leaves the value untouched. A write hook that declines the candidate is a
// silent policy rejection: no error, value unchanged, accepted false.
func (r *Resource) OnWrite(candidate any) (accepted bool, err error) {
	if !r.variant.CanWrite() {
		return false, fmt.Errorf("%w: write on %s resource %d", ErrCapabilityMismatch, r.variant, r.id)
	}
	v, err := Coerce(r.cell.Kind(), candidate)
	if err != nil {
		return false, fmt.Errorf("resource %d: %w", r.id, err)
	}
	if r.writeHook != nil && !r.writeHook(v) {
		return false, nil
	}
	if err := r.cell.Set(v); err != nil {
		return false, err
	}
	return true, nil
}

// OnExecute runs the action. Without an action it reports success.
func (r *Resource) OnExecute(payload []byte) (bool, error) {
	if !r.variant.CanExecute() {
		return false, fmt.Errorf("%w: execute on %s resource %d", ErrCapabilityMismatch, r.variant, r.id)
	}
	if r.executeHook == nil {
		return true, nil
	}
	return r.executeHook(payload), nil
}

func (r *Resource) changed(Value) {
	rt := r.route.Load()
	if rt == nil || rt.notifier == nil {
		return
	}
	rt.notifier.NotifyChanged(rt.objectID, rt.instanceID, r.id)
}

func (r *Resource) bind(objectID, instanceID uint16, n Notifier) {
	r.route.Store(&route{objectID: objectID, instanceID: instanceID, notifier: n})
}

func (r *Resource) unbind() {
	r.route.Store(nil)
}
