package objects

import (
	"fmt"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// NewDevice builds the Device object (3) with instance 0. factoryReset runs
// on Factory Reset (3/0/5); its result is the execute outcome. A nil
// factoryReset acknowledges.
func NewDevice(cfg config.DeviceConfig, factoryReset func() bool, logger Logger) (*lwm2m.Object, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	reset := func([]byte) bool {
		logger.Warn("factory reset requested")
		if factoryReset == nil {
			return true
		}
		return factoryReset()
	}

	in, err := lwm2m.NewInstance(0,
		lwm2m.MustReadable(DeviceManufacturer, lwm2m.KindString, cfg.Manufacturer, lwm2m.WithName("Manufacturer")),
		lwm2m.MustReadable(DeviceModelNumber, lwm2m.KindString, cfg.ModelNumber, lwm2m.WithName("Model Number")),
		lwm2m.MustReadable(DeviceSerialNumber, lwm2m.KindString, cfg.SerialNumber, lwm2m.WithName("Serial Number")),
		lwm2m.MustReadable(DeviceFirmwareVersion, lwm2m.KindString, cfg.FirmwareVersion, lwm2m.WithName("Firmware Version")),
		lwm2m.MustExecutable(DeviceFactoryReset, lwm2m.WithName("Factory Reset"), lwm2m.WithExecuteHook(reset)),
		lwm2m.MustReadable(DeviceTimezone, lwm2m.KindString, cfg.Timezone, lwm2m.WithName("Timezone")),
	)
	if err != nil {
		return nil, err
	}
	obj := lwm2m.NewObject(DeviceObjectID, lwm2m.WithObjectName("Device"))
	if err := obj.Register(in); err != nil {
		return nil, fmt.Errorf("registering device instance: %w", err)
	}
	return obj, nil
}
