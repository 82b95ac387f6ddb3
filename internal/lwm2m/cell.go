package lwm2m

import (
	"fmt"
	"sync"
)

// Cell holds the current value of a data resource.
//
// Set coerces, compares and commits under mu, then delivers the change
// callback while holding notifyMu. Notifications therefore leave in commit
// order, exactly once per change, and a callback may still call Get.
type Cell struct {
	kind Kind

	mu    sync.Mutex // Protects value
	value Value

	notifyMu sync.Mutex // Serialises change delivery
	onChange func(Value)
}

// NewCell creates a cell of the given kind holding initial.
// Returns ErrInvalidKind for a non-data kind and ErrTypeMismatch when
// initial cannot be coerced.
func NewCell(kind Kind, initial any) (*Cell, error) {
	v, err := Coerce(kind, initial)
	if err != nil {
		return nil, fmt.Errorf("initial value: %w", err)
	}
	return &Cell{kind: kind, value: v}, nil
}

// Kind returns the declared kind of the cell.
func (c *Cell) Kind() Kind {
	return c.kind
}

// Get returns the current value.
func (c *Cell) Get() Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set coerces candidate into the cell's kind and stores it.
// On failure the previous value is kept and ErrTypeMismatch is returned.
// When the stored value differs from the previous one the change callback
// runs once with the new value.
func (c *Cell) Set(candidate any) error {
	_, err := c.set(candidate)
	return err
}

func (c *Cell) set(candidate any) (bool, error) {
	v, err := Coerce(c.kind, candidate)
	if err != nil {
		return false, err
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	changed := !c.value.Equal(v)
	if changed {
		c.value = v
	}
	c.mu.Unlock()

	if changed && c.onChange != nil {
		c.onChange(v)
	}
	return changed, nil
}
