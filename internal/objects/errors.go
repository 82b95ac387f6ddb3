package objects

import "errors"

var (
	// ErrInvalidCalibration is returned for an empty or inverted range.
	ErrInvalidCalibration = errors.New("objects: invalid calibration range")

	// ErrSensorUnavailable is returned when no analog input is configured.
	ErrSensorUnavailable = errors.New("objects: sensor unavailable")
)
