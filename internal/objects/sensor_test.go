package objects

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// MockSensor returns a settable reading.
type MockSensor struct {
	mu    sync.Mutex
	mv    float64
	err   error
	calls int
}

func NewMockSensor(mv float64) *MockSensor {
	return &MockSensor{mv: mv}
}

func (m *MockSensor) ReadMillivolts(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.mv, nil
}

func (m *MockSensor) Set(mv float64) {
	m.mu.Lock()
	m.mv = mv
	m.mu.Unlock()
}

func (m *MockSensor) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockSensor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestFileSensor(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	t.Run("scaled reading", func(t *testing.T) {
		s := FileSensor{Path: write("raw", "2048\n"), Scale: 0.5}
		got, err := s.ReadMillivolts(context.Background())
		if err != nil || got != 1024 {
			t.Errorf("ReadMillivolts() = %v, %v, want 1024", got, err)
		}
	})

	t.Run("zero scale is unity", func(t *testing.T) {
		s := FileSensor{Path: write("unity", "1500")}
		if got, _ := s.ReadMillivolts(context.Background()); got != 1500 {
			t.Errorf("ReadMillivolts() = %v, want 1500", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		s := FileSensor{Path: filepath.Join(dir, "absent")}
		if _, err := s.ReadMillivolts(context.Background()); !errors.Is(err, ErrSensorUnavailable) {
			t.Errorf("error = %v, want ErrSensorUnavailable", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		s := FileSensor{Path: write("garbage", "n/a")}
		if _, err := s.ReadMillivolts(context.Background()); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := FileSensor{Path: write("ok", "1")}
		if _, err := s.ReadMillivolts(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestSimulatedSensor_FollowsSine(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	s := NewSimulatedSensor(testCalibration(t),
		WithPeriod(time.Minute),
		WithNoise(0),
		WithClock(func() time.Time { return now }),
	)

	tests := []struct {
		offset time.Duration
		want   float64
	}{
		{0, 2500},
		{15 * time.Second, 4500},
		{30 * time.Second, 2500},
		{45 * time.Second, 500},
	}
	for _, tt := range tests {
		now = start.Add(tt.offset)
		got, err := s.ReadMillivolts(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("at %v: ReadMillivolts() = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestSimulatedSensor_NoiseBounded(t *testing.T) {
	start := time.Now()
	s := NewSimulatedSensor(testCalibration(t),
		WithNoise(10),
		WithSeed(7),
		WithClock(func() time.Time { return start }),
	)
	for range 100 {
		got, _ := s.ReadMillivolts(context.Background())
		if got < 2490 || got > 2510 {
			t.Fatalf("ReadMillivolts() = %v, outside 2500±10", got)
		}
	}
}
