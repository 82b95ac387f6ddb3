package objects

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// Options configures Build.
type Options struct {
	Config *config.Config

	// Sensor overrides the sensor chosen by SensorFor.
	Sensor Sensor

	// Server carries the Server object's executable actions.
	Server ServerActions

	// FactoryReset runs on Device Factory Reset.
	FactoryReset func() bool

	Logger Logger
}

// Registry is the client-side object registry of a pressure endpoint.
type Registry struct {
	Client *lwm2m.Client

	// Pressure is nil when the pressure sensor is disabled.
	Pressure *PressureObject
}

// Build assembles Security, Server, Device and, when enabled, Pressure
// into a registry.
func Build(ctx context.Context, opts Options) (*Registry, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("objects: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	security, err := NewSecurity(cfg)
	if err != nil {
		return nil, fmt.Errorf("building security object: %w", err)
	}
	server, err := NewServer(cfg, opts.Server, logger)
	if err != nil {
		return nil, fmt.Errorf("building server object: %w", err)
	}
	device, err := NewDevice(cfg.Device, opts.FactoryReset, logger)
	if err != nil {
		return nil, fmt.Errorf("building device object: %w", err)
	}

	reg := &Registry{Client: lwm2m.NewClient()}
	objects := []*lwm2m.Object{security, server, device}

	if cfg.Pressure.Enabled {
		sensor := opts.Sensor
		if sensor == nil {
			if sensor, err = SensorFor(cfg.Pressure); err != nil {
				return nil, err
			}
		}
		reg.Pressure, err = NewPressureObject(ctx, cfg.Pressure, sensor, logger)
		if err != nil {
			return nil, fmt.Errorf("building pressure object: %w", err)
		}
		objects = append(objects, reg.Pressure.Object())
	}

	if err := reg.Client.Register(objects...); err != nil {
		return nil, fmt.Errorf("registering objects: %w", err)
	}
	logger.Info("object registry built", "objects", len(objects))
	return reg, nil
}

// SensorFor returns the sensor described by cfg: a simulated signal or a
// file-backed analog input.
func SensorFor(cfg config.PressureConfig) (Sensor, error) {
	if cfg.Simulated {
		cal, err := NewCalibration(cfg.MinVoltage, cfg.MaxVoltage, cfg.MinSensor, cfg.MaxSensor)
		if err != nil {
			return nil, err
		}
		return NewSimulatedSensor(cal), nil
	}
	if cfg.InputPath == "" {
		return nil, ErrSensorUnavailable
	}
	return FileSensor{Path: cfg.InputPath, Scale: cfg.InputScale}, nil
}
