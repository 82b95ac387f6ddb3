// Package broker runs an in-process MQTT broker.
//
// It lets a single binary serve its LwM2M registry over MQTT without an
// external Mosquitto. The broker accepts all clients (no ACL) and is meant
// for standalone deployments, development and tests; production sites
// point mqtt.broker at their shared broker instead.
//
//	b, err := broker.New(cfg.MQTT.Embedded, logger)
//	if err := b.Start(ctx); err != nil { ... }
//	defer b.Stop(ctx)
//	// cfg.MQTT.Broker.Host/Port can now point at b.Addr()
package broker
