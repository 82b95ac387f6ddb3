// Package engine bridges the lwm2m registry and a protocol engine.
//
// The engine is opaque: it receives one ObjectTree per registered object,
// runs until its context ends and calls back into the tree's hooks. The
// Bridge builds those trees from an *lwm2m.Client, attaches itself as the
// client's notifier and forwards every resource change to the engine.
//
//	Engine ──read/write/execute──▶ ResourceHooks ──▶ lwm2m.Resource
//	Engine ──create/delete───────▶ ObjectTree    ──▶ lwm2m.Object
//	lwm2m.Client ──NotifyChanged──▶ Bridge ──ResourceChanged──▶ Engine
//
// Failed hook calls are logged; capability mismatches at error level.
// When a Journal is configured, engine-driven mutations are recorded.
package engine
