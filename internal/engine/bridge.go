package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// journalTimeout bounds a single journal write.
const journalTimeout = 2 * time.Second

// Journal records engine-driven mutations. It is satisfied by
// *journal.SQLiteRepository.
type Journal interface {
	Record(ctx context.Context, operation, path, outcome, detail string) error
}

// Journal operation and outcome names.
const (
	OpWrite   = "write"
	OpExecute = "execute"
	OpCreate  = "create"
	OpDelete  = "delete"

	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Engine is the protocol engine to drive.
	Engine Engine

	// Logger is an optional structured logger.
	Logger Logger

	// Journal is optional. If nil, mutations are not recorded.
	Journal Journal
}

// Bridge carries registry snapshots and callbacks between an
// *lwm2m.Client and an Engine.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	engine  Engine
	journal Journal
	logger  Logger

	mu      sync.Mutex // Protects running, err and done
	running bool
	err     error
	done    chan struct{}
}

// NewBridge creates a bridge. Call Start or StartAsync to run the engine.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Engine == nil {
		return nil, ErrEngineRequired
	}
	b := &Bridge{
		engine:  opts.Engine,
		journal: opts.Journal,
		logger:  opts.Logger,
		done:    make(chan struct{}),
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	return b, nil
}

// Start attaches the bridge to client, builds the object trees and runs the
// engine until it returns or ctx ends. It blocks for the engine's lifetime.
// Cancellation of ctx is a clean shutdown and returns nil.
//
// A Bridge may be started again after the engine returns.
func (b *Bridge) Start(ctx context.Context, endpoint string, client *lwm2m.Client) error {
	if !b.claim() {
		return ErrAlreadyRunning
	}
	err := b.run(ctx, endpoint, client)
	b.release(err)
	return err
}

// claim marks the bridge running. It reports false if it already was.
func (b *Bridge) claim() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return false
	}
	b.running = true
	return true
}

func (b *Bridge) release(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	b.err = err
}

// run attaches before taking the snapshot so no change made while the
// trees are built is lost to the engine.
func (b *Bridge) run(ctx context.Context, endpoint string, client *lwm2m.Client) error {
	if err := client.Attach(b); err != nil {
		return fmt.Errorf("attaching engine: %w", err)
	}
	defer client.Detach(b)

	trees := b.BuildTrees(ctx, client)

	b.logger.Info("engine starting", "endpoint", endpoint, "objects", len(trees))
	err := b.engine.Run(ctx, endpoint, trees)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		err = nil
	}
	if err != nil {
		b.logger.Error("engine stopped", "endpoint", endpoint, "error", err)
		return fmt.Errorf("engine run: %w", err)
	}
	b.logger.Info("engine stopped", "endpoint", endpoint)
	return nil
}

// StartAsync runs the engine on its own goroutine and returns immediately.
// Each successful call replaces Done and clears Err; Done is closed when
// that run returns and Err then reports its result. A call while the
// engine is running is ignored.
func (b *Bridge) StartAsync(ctx context.Context, endpoint string, client *lwm2m.Client) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		b.logger.Warn("engine already running, ignoring start", "endpoint", endpoint)
		return
	}
	b.running = true
	b.err = nil
	done := make(chan struct{})
	b.done = done
	b.mu.Unlock()

	go func() {
		defer close(done)
		b.release(b.run(ctx, endpoint, client))
	}()
}

// Done is closed when the engine of the latest StartAsync returns.
func (b *Bridge) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Err returns the result of the latest run. It is nil while the engine
// runs.
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// NotifyChanged forwards a registry change to the engine.
func (b *Bridge) NotifyChanged(objectID, instanceID, resourceID uint16) {
	b.engine.ResourceChanged(objectID, instanceID, resourceID)
}

// BuildTrees packages every registered object as an ObjectTree.
// ctx bounds journal writes made from the returned hooks.
func (b *Bridge) BuildTrees(ctx context.Context, client *lwm2m.Client) []ObjectTree {
	objects := client.Objects()
	trees := make([]ObjectTree, 0, len(objects))
	for _, o := range objects {
		trees = append(trees, b.objectTree(ctx, o))
	}
	b.logger.Debug("object trees built", "objects", len(trees))
	return trees
}

func (b *Bridge) objectTree(ctx context.Context, o *lwm2m.Object) ObjectTree {
	instances := o.Instances()
	tree := ObjectTree{
		ID:        o.ID(),
		Name:      o.Name(),
		Instances: make(map[uint16]InstanceTree, len(instances)),
	}
	for _, in := range instances {
		tree.Instances[in.ID()] = b.instanceTree(ctx, o.ID(), in)
	}

	tree.Create = func(instanceID uint16) (InstanceTree, bool) {
		path := fmt.Sprintf("%d/%d", o.ID(), instanceID)
		in, ok := o.OnCreate(instanceID)
		if !ok {
			b.logger.Warn("instance create declined", "path", path)
			b.record(ctx, OpCreate, path, OutcomeRejected, "")
			return InstanceTree{}, false
		}
		b.record(ctx, OpCreate, path, OutcomeOK, "")
		return b.instanceTree(ctx, o.ID(), in), true
	}
	tree.Delete = func(instanceID uint16) bool {
		path := fmt.Sprintf("%d/%d", o.ID(), instanceID)
		ok := o.OnDelete(instanceID)
		if ok {
			b.record(ctx, OpDelete, path, OutcomeOK, "")
		} else {
			b.record(ctx, OpDelete, path, OutcomeRejected, "no such instance")
		}
		return ok
	}
	return tree
}

func (b *Bridge) instanceTree(ctx context.Context, objectID uint16, in *lwm2m.Instance) InstanceTree {
	resources := in.Resources()
	tree := InstanceTree{
		ID:        in.ID(),
		Resources: make(map[uint16]ResourceHooks, len(resources)),
	}
	for _, r := range resources {
		path := lwm2m.Path{Object: objectID, Instance: in.ID(), Resource: r.ID()}
		tree.Resources[r.ID()] = b.resourceHooks(ctx, path, r)
	}
	return tree
}

func (b *Bridge) resourceHooks(ctx context.Context, path lwm2m.Path, r *lwm2m.Resource) ResourceHooks {
	p := path.String()
	return ResourceHooks{
		ID:      r.ID(),
		Name:    r.Name(),
		Kind:    r.Kind(),
		Variant: r.Variant(),
		Current: r.Value,
		Read: func() (lwm2m.Value, error) {
			v, err := r.OnRead()
			if err != nil {
				b.logHookError("read", p, err)
			}
			return v, err
		},
		Write: func(candidate any) (bool, error) {
			accepted, err := r.OnWrite(candidate)
			switch {
			case err != nil:
				b.logHookError("write", p, err)
				b.record(ctx, OpWrite, p, OutcomeFailed, err.Error())
			case !accepted:
				b.logger.Debug("write rejected by policy", "path", p)
				b.record(ctx, OpWrite, p, OutcomeRejected, "")
			default:
				b.record(ctx, OpWrite, p, OutcomeOK, r.Value().String())
			}
			return accepted, err
		},
		Execute: func(payload []byte) (bool, error) {
			ok, err := r.OnExecute(payload)
			switch {
			case err != nil:
				b.logHookError("execute", p, err)
				b.record(ctx, OpExecute, p, OutcomeFailed, err.Error())
			case !ok:
				b.record(ctx, OpExecute, p, OutcomeRejected, "")
			default:
				b.record(ctx, OpExecute, p, OutcomeOK, "")
			}
			return ok, err
		},
	}
}

// logHookError logs capability mismatches at error level and other hook
// failures at warn level.
func (b *Bridge) logHookError(op, path string, err error) {
	if errors.Is(err, lwm2m.ErrCapabilityMismatch) {
		b.logger.Error("unsupported operation on resource", "op", op, "path", path, "error", err)
		return
	}
	b.logger.Warn("resource operation failed", "op", op, "path", path, "error", err)
}

func (b *Bridge) record(ctx context.Context, operation, path, outcome, detail string) {
	if b.journal == nil {
		return
	}
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := b.journal.Record(jctx, operation, path, outcome, detail); err != nil {
		b.logger.Warn("journal write failed", "op", operation, "path", path, "error", err)
	}
}
