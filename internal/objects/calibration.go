package objects

import (
	"fmt"
	"math"
)

// Calibration maps an analog input voltage linearly onto the sensor's
// measuring range: y = m*x + b with m = Δsensor/Δvoltage.
// Results are clamped to [MinSensor, MaxSensor].
type Calibration struct {
	MinVoltage float64
	MaxVoltage float64
	MinSensor  float64
	MaxSensor  float64
}

// NewCalibration validates and returns a calibration.
func NewCalibration(minVoltage, maxVoltage, minSensor, maxSensor float64) (Calibration, error) {
	c := Calibration{
		MinVoltage: minVoltage,
		MaxVoltage: maxVoltage,
		MinSensor:  minSensor,
		MaxSensor:  maxSensor,
	}
	if err := c.Validate(); err != nil {
		return Calibration{}, err
	}
	return c, nil
}

// Validate rejects non-finite bounds and empty or inverted ranges.
func (c Calibration) Validate() error {
	for _, v := range []float64{c.MinVoltage, c.MaxVoltage, c.MinSensor, c.MaxSensor} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidCalibration)
		}
	}
	if c.MaxVoltage <= c.MinVoltage {
		return fmt.Errorf("%w: voltage %g..%g", ErrInvalidCalibration, c.MinVoltage, c.MaxVoltage)
	}
	if c.MaxSensor <= c.MinSensor {
		return fmt.Errorf("%w: sensor %g..%g", ErrInvalidCalibration, c.MinSensor, c.MaxSensor)
	}
	return nil
}

// Slope returns m, sensor units per volt.
func (c Calibration) Slope() float64 {
	return (c.MaxSensor - c.MinSensor) / (c.MaxVoltage - c.MinVoltage)
}

// Offset returns b, the sensor value at zero volts.
func (c Calibration) Offset() float64 {
	return c.MinSensor - c.Slope()*c.MinVoltage
}

// Convert turns a reading in millivolts into sensor units.
func (c Calibration) Convert(millivolts float64) float64 {
	x := millivolts / 1000
	y := c.Slope()*x + c.Offset()
	return min(c.MaxSensor, max(c.MinSensor, y))
}

// Millivolts is the inverse of Convert for values inside the range.
func (c Calibration) Millivolts(value float64) float64 {
	return (value - c.Offset()) / c.Slope() * 1000
}
