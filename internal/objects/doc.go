// Package objects builds the LwM2M objects served by the client.
//
// The mandatory Security (0), Server (1) and Device (3) objects are built
// from configuration. The Pressure object (3323) exposes an analog
// pressure transducer: a Sensor yields millivolts, a Calibration maps
// them linearly onto the sensor range, and each instance tracks the
// minimum and maximum measured value.
//
//	reg, err := objects.Build(ctx, objects.Options{Config: cfg, Sensor: sensor})
//	bridge.StartAsync(ctx, cfg.Client.Endpoint, reg.Client)
package objects
