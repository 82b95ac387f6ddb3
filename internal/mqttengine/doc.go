// Package mqttengine serves an LwM2M registry over MQTT.
//
// The engine stands in for a CoAP stack: a management server publishes
// JSON requests to the endpoint's request topic and receives replies on
// response/{id}, coded with the CoAP response classes an LwM2M server
// expects (2.05 Content, 4.04 Not Found, ...).
//
// # Message Flow
//
//	server ──request──▶ engine ──hooks──▶ engine.Bridge ──▶ lwm2m.Client
//	server ◀─response── engine
//	server ◀─notify──── engine ◀─ResourceChanged── lwm2m.Client
//
// # Threading
//
// Run owns every piece of engine state. Inbound requests and change
// notifications are queued by the MQTT and application goroutines and
// handled one at a time on the Run goroutine, so registry hooks are never
// called concurrently by the engine. ResourceChanged never blocks: a read
// hook that sets a value from inside Run simply queues another change.
//
// # Values
//
// Values travel as JSON scalars. Opaque values are base64 strings and
// non-finite floats are the strings "NaN", "+Inf" and "-Inf".
package mqttengine
