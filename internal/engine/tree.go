package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// Engine is the protocol engine driven by the bridge.
type Engine interface {
	// Run serves the given objects under endpoint until ctx ends or the
	// engine fails. Hooks in the trees may be called from any goroutine
	// the engine chooses; an engine serialises its own callbacks.
	Run(ctx context.Context, endpoint string, objects []ObjectTree) error

	// ResourceChanged reports a value change of an addressed resource.
	// It must not block on engine callbacks.
	ResourceChanged(objectID, instanceID, resourceID uint16)
}

// ResourceHooks is the engine-facing view of one resource.
//
// Read, Write and Execute are always set; calling one the Variant does not
// provide returns lwm2m.ErrCapabilityMismatch. Current returns the stored
// value without running hooks.
type ResourceHooks struct {
	ID      uint16
	Name    string
	Kind    lwm2m.Kind
	Variant lwm2m.Variant

	Read    func() (lwm2m.Value, error)
	Write   func(candidate any) (accepted bool, err error)
	Execute func(payload []byte) (bool, error)
	Current func() lwm2m.Value
}

// InstanceTree is the engine-facing view of one instance.
type InstanceTree struct {
	ID        uint16
	Resources map[uint16]ResourceHooks
}

// ObjectTree is the engine-facing view of one object.
type ObjectTree struct {
	ID        uint16
	Name      string
	Instances map[uint16]InstanceTree

	// Create asks the object for a new instance. ok is false when the
	// instance exists or the object declines.
	Create func(instanceID uint16) (tree InstanceTree, ok bool)

	// Delete removes an instance. Returns true iff one was removed.
	Delete func(instanceID uint16) bool
}

// Links returns the registration object links, e.g. "</3/0>,</3323/1>".
// Objects without instances are listed as "</id>".
func Links(objects []ObjectTree) []string {
	var links []string
	for _, o := range objects {
		if len(o.Instances) == 0 {
			links = append(links, fmt.Sprintf("</%d>", o.ID))
			continue
		}
		for _, iid := range SortedInstanceIDs(o) {
			links = append(links, fmt.Sprintf("</%d/%d>", o.ID, iid))
		}
	}
	return links
}

// SortedInstanceIDs returns the instance IDs of o in ascending order.
func SortedInstanceIDs(o ObjectTree) []uint16 {
	ids := make([]uint16, 0, len(o.Instances))
	for id := range o.Instances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SortedResourceIDs returns the resource IDs of in in ascending order.
func SortedResourceIDs(in InstanceTree) []uint16 {
	ids := make([]uint16, 0, len(in.Resources))
	for id := range in.Resources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
