package objects

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sensor yields the analog input voltage of a pressure transducer.
type Sensor interface {
	ReadMillivolts(ctx context.Context) (float64, error)
}

// FileSensor reads a raw analog value from a file, such as a Linux IIO
// in_voltageN_raw node, and scales it to millivolts.
type FileSensor struct {
	Path  string
	Scale float64
}

// ReadMillivolts reads and scales the current raw value.
func (s FileSensor) ReadMillivolts(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSensorUnavailable, err)
	}
	raw, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}
	return raw * scale, nil
}

// SimulatedSensor produces a slow sine wave across the calibrated voltage
// range with a little noise, for development without hardware.
type SimulatedSensor struct {
	mu     sync.Mutex
	minMV  float64
	maxMV  float64
	period time.Duration
	noise  float64
	start  time.Time
	now    func() time.Time
	rng    *rand.Rand
}

// SimulatedOption configures a SimulatedSensor.
type SimulatedOption func(*SimulatedSensor)

// WithPeriod sets the sine period. The default is five minutes.
func WithPeriod(d time.Duration) SimulatedOption {
	return func(s *SimulatedSensor) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithNoise sets the peak noise in millivolts. The default is 5.
func WithNoise(mv float64) SimulatedOption {
	return func(s *SimulatedSensor) { s.noise = max(mv, 0) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SimulatedOption {
	return func(s *SimulatedSensor) { s.now = now }
}

// WithSeed makes the noise sequence reproducible.
func WithSeed(seed uint64) SimulatedOption {
	return func(s *SimulatedSensor) { s.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// NewSimulatedSensor returns a sensor spanning cal's voltage range.
func NewSimulatedSensor(cal Calibration, opts ...SimulatedOption) *SimulatedSensor {
	s := &SimulatedSensor{
		minMV:  cal.MinVoltage * 1000,
		maxMV:  cal.MaxVoltage * 1000,
		period: 5 * time.Minute,
		noise:  5,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.now()
	return s
}

// ReadMillivolts returns the simulated input voltage.
func (s *SimulatedSensor) ReadMillivolts(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mid := (s.minMV + s.maxMV) / 2
	amp := (s.maxMV - s.minMV) / 2
	phase := 2 * math.Pi * float64(s.now().Sub(s.start)) / float64(s.period)
	mv := mid + amp*math.Sin(phase)
	if s.noise > 0 {
		mv += (s.rng.Float64()*2 - 1) * s.noise
	}
	return mv, nil
}
