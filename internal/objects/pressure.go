package objects

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// sampleTimeout bounds a sensor read made from a resource hook, which
// carries no context of its own.
const sampleTimeout = 2 * time.Second

// PressureSettings describes the resources of a pressure instance.
type PressureSettings struct {
	Calibration     Calibration
	Units           string
	CalibrationName string
	ApplicationType string
}

// Pressure is one instance of the Pressure object (3323). The sensor value
// is sampled on read and by Sample; each sample widens the recorded
// minimum and maximum.
//
// Thread Safety: All methods are safe for concurrent use.
type Pressure struct {
	id       uint16
	sensor   Sensor
	cal      Calibration
	logger   Logger
	instance *lwm2m.Instance

	value *lwm2m.Resource
	lo    *lwm2m.Resource
	hi    *lwm2m.Resource

	mu sync.Mutex // Serialises sample and min/max update
}

// NewPressure builds instance id. The sensor is read once so the minimum
// and maximum start at the current pressure.
func NewPressure(ctx context.Context, id uint16, sensor Sensor, settings PressureSettings, logger Logger) (*Pressure, error) {
	if err := settings.Calibration.Validate(); err != nil {
		return nil, err
	}
	if sensor == nil {
		return nil, ErrSensorUnavailable
	}
	if logger == nil {
		logger = noopLogger{}
	}

	p := &Pressure{id: id, sensor: sensor, cal: settings.Calibration, logger: logger}
	initial, err := p.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial pressure reading: %w", err)
	}

	p.value = lwm2m.MustReadable(PressureSensorValue, lwm2m.KindFloat, initial,
		lwm2m.WithName("Sensor Value"),
		lwm2m.WithReadHook(p.readHook))
	p.lo = lwm2m.MustReadable(PressureMinMeasured, lwm2m.KindFloat, initial, lwm2m.WithName("Min Measured Value"))
	p.hi = lwm2m.MustReadable(PressureMaxMeasured, lwm2m.KindFloat, initial, lwm2m.WithName("Max Measured Value"))

	p.instance, err = lwm2m.NewInstance(id,
		p.lo,
		p.hi,
		lwm2m.MustReadable(PressureMinRange, lwm2m.KindFloat, p.cal.MinSensor, lwm2m.WithName("Min Range Value")),
		lwm2m.MustReadable(PressureMaxRange, lwm2m.KindFloat, p.cal.MaxSensor, lwm2m.WithName("Max Range Value")),
		lwm2m.MustExecutable(PressureResetMinMax,
			lwm2m.WithName("Reset Min and Max Measured Values"),
			lwm2m.WithExecuteHook(p.resetHook)),
		p.value,
		lwm2m.MustReadWritable(PressureSensorUnits, lwm2m.KindString, settings.Units, lwm2m.WithName("Sensor Units")),
		lwm2m.MustReadWritable(PressureCalibration, lwm2m.KindString, settings.CalibrationName, lwm2m.WithName("Current Calibration")),
		lwm2m.MustReadWritable(PressureApplicationType, lwm2m.KindString, settings.ApplicationType, lwm2m.WithName("Application Type")),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ID returns the instance ID.
func (p *Pressure) ID() uint16 { return p.id }

// Instance returns the registry instance.
func (p *Pressure) Instance() *lwm2m.Instance { return p.instance }

// MinMax returns the recorded minimum and maximum.
func (p *Pressure) MinMax() (lo, hi float64) {
	return p.lo.Value().Float(), p.hi.Value().Float()
}

func (p *Pressure) read(ctx context.Context) (float64, error) {
	mv, err := p.sensor.ReadMillivolts(ctx)
	if err != nil {
		return 0, err
	}
	return p.cal.Convert(mv), nil
}

// Sample reads the sensor, stores the sensor value and widens min/max.
func (p *Pressure) Sample(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, err := p.record(ctx)
	if err != nil {
		return 0, err
	}
	if err := p.value.Set(v); err != nil {
		return 0, err
	}
	return v, nil
}

// record reads the sensor and updates min/max. Callers hold p.mu.
func (p *Pressure) record(ctx context.Context) (float64, error) {
	v, err := p.read(ctx)
	if err != nil {
		return 0, err
	}
	lo, hi := p.MinMax()
	if err := p.lo.Set(min(lo, v)); err != nil {
		return 0, err
	}
	if err := p.hi.Set(max(hi, v)); err != nil {
		return 0, err
	}
	p.logger.Debug("pressure sampled", "instance", p.id, "value", v, "min", min(lo, v), "max", max(hi, v))
	return v, nil
}

// readHook samples on every server read. The returned value is stored by
// the resource.
func (p *Pressure) readHook() (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record(ctx)
}

// Reset sets both min and max to the current pressure.
func (p *Pressure) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, err := p.read(ctx)
	if err != nil {
		return err
	}
	if err := p.lo.Set(v); err != nil {
		return err
	}
	return p.hi.Set(v)
}

func (p *Pressure) resetHook([]byte) bool {
	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()
	if err := p.Reset(ctx); err != nil {
		p.logger.Warn("min/max reset failed", "instance", p.id, "error", err)
		return false
	}
	return true
}

// PressureObject is the Pressure object (3323) and its sensor-backed
// instances. Instances created by the server share the sensor.
//
// Thread Safety: All methods are safe for concurrent use.
type PressureObject struct {
	object   *lwm2m.Object
	sensor   Sensor
	settings PressureSettings
	logger   Logger

	mu        sync.RWMutex
	instances map[uint16]*Pressure
}

// NewPressureObject builds object 3323 with one instance per cfg.
func NewPressureObject(ctx context.Context, cfg config.PressureConfig, sensor Sensor, logger Logger) (*PressureObject, error) {
	cal, err := NewCalibration(cfg.MinVoltage, cfg.MaxVoltage, cfg.MinSensor, cfg.MaxSensor)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = noopLogger{}
	}
	po := &PressureObject{
		sensor: sensor,
		settings: PressureSettings{
			Calibration:     cal,
			Units:           cfg.Units,
			CalibrationName: cfg.Calibration,
			ApplicationType: cfg.ApplicationType,
		},
		logger:    logger,
		instances: make(map[uint16]*Pressure),
	}
	po.object = lwm2m.NewObject(PressureObjectID,
		lwm2m.WithObjectName("Pressure"),
		lwm2m.WithCreateHandler(po.create),
		lwm2m.WithDeleteHandler(po.deleted),
	)

	first, err := NewPressure(ctx, uint16(cfg.InstanceID), sensor, po.settings, logger)
	if err != nil {
		return nil, err
	}
	if err := po.object.Register(first.Instance()); err != nil {
		return nil, err
	}
	po.instances[first.ID()] = first
	return po, nil
}

// Object returns the registry object.
func (po *PressureObject) Object() *lwm2m.Object { return po.object }

// Instance returns the pressure instance id, if present.
func (po *PressureObject) Instance(id uint16) (*Pressure, bool) {
	po.mu.RLock()
	defer po.mu.RUnlock()
	p, ok := po.instances[id]
	return p, ok
}

// Sample samples every instance. Failures are logged and the first is
// returned after all instances were tried.
func (po *PressureObject) Sample(ctx context.Context) error {
	po.mu.RLock()
	instances := make([]*Pressure, 0, len(po.instances))
	for _, p := range po.instances {
		instances = append(instances, p)
	}
	po.mu.RUnlock()

	var first error
	for _, p := range instances {
		if _, err := p.Sample(ctx); err != nil {
			po.logger.Warn("pressure sample failed", "instance", p.ID(), "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// create builds and registers a new instance on server request.
func (po *PressureObject) create(o *lwm2m.Object, id uint16) (*lwm2m.Instance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()

	p, err := NewPressure(ctx, id, po.sensor, po.settings, po.logger)
	if err != nil {
		return nil, err
	}
	po.mu.Lock()
	po.instances[id] = p
	po.mu.Unlock()
	po.logger.Info("pressure instance created", "instance", id)
	return p.Instance(), nil
}

func (po *PressureObject) deleted(_ *lwm2m.Object, id uint16) {
	po.mu.Lock()
	delete(po.instances, id)
	po.mu.Unlock()
	po.logger.Info("pressure instance deleted", "instance", id)
}
