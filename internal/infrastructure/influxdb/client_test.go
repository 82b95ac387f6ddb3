package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/influxdb"
)

// MockInfluxServer answers the ping and write endpoints of the v2 API.
type MockInfluxServer struct {
	*httptest.Server

	mu         sync.Mutex
	lines      []string
	writeQuery string
	writeCode  int
	pingCode   int
}

func NewMockInfluxServer(t *testing.T) *MockInfluxServer {
	t.Helper()
	m := &MockInfluxServer{writeCode: http.StatusNoContent, pingCode: http.StatusNoContent}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Close)
	return m
}

func (m *MockInfluxServer) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/ping"):
		w.WriteHeader(m.pingCode)
	case strings.HasSuffix(r.URL.Path, "/write"):
		body, _ := io.ReadAll(r.Body)
		m.writeQuery = r.URL.RawQuery
		if m.writeCode == http.StatusNoContent {
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				m.lines = append(m.lines, line)
			}
		}
		w.WriteHeader(m.writeCode)
		if m.writeCode >= 300 {
			_, _ = w.Write([]byte(`{"code":"invalid","message":"rejected"}`))
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *MockInfluxServer) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

func (m *MockInfluxServer) setCodes(ping, write int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingCode, m.writeCode = ping, write
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "graylogic",
		Bucket:        "lwm2m",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func connect(t *testing.T, m *MockInfluxServer) *influxdb.Client {
	t.Helper()
	c, err := influxdb.Connect(testConfig(m.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // Test cleanup
	return c
}

func TestConnect(t *testing.T) {
	m := NewMockInfluxServer(t)
	c := connect(t, m)
	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false
	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_PingFails(t *testing.T) {
	m := NewMockInfluxServer(t)
	m.setCodes(http.StatusServiceUnavailable, http.StatusNoContent)
	if _, err := influxdb.Connect(testConfig(m.URL)); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteResource(t *testing.T) {
	m := NewMockInfluxServer(t)
	c := connect(t, m)

	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	c.WriteResource(influxdb.ResourcePoint{
		Endpoint: "pressure-001", Object: 3323, Instance: 1, Resource: 5700,
		Name: "Sensor Value", Value: 42.5, Time: at,
	})
	c.WriteResource(influxdb.ResourcePoint{
		Endpoint: "pressure-001", Object: 1, Instance: 0, Resource: 1, Value: int64(60), Time: at,
	})
	c.Flush()

	lines := m.Lines()
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want 2", lines)
	}
	want := "resource_values,endpoint=pressure-001,instance=0,object=1,resource=1 value=60i " +
		"1792227600000000000"
	if lines[1] != want {
		t.Errorf("line = %q\nwant   %q", lines[1], want)
	}
	for _, part := range []string{"object=3323", "resource=5700", `name=Sensor\ Value`, "value=42.5"} {
		if !strings.Contains(lines[0], part) {
			t.Errorf("line %q lacks %q", lines[0], part)
		}
	}
	if !strings.Contains(m.writeQuery, "bucket=lwm2m") || !strings.Contains(m.writeQuery, "org=graylogic") {
		t.Errorf("write query = %q", m.writeQuery)
	}
}

func TestWriteResource_ErrorCallback(t *testing.T) {
	m := NewMockInfluxServer(t)
	c := connect(t, m)

	errs := make(chan error, 1)
	c.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	m.setCodes(http.StatusNoContent, http.StatusBadRequest)

	c.WriteResource(influxdb.ResourcePoint{Endpoint: "e", Object: 3, Resource: 0, Value: "x"})
	c.Flush()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("nil error delivered")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error not delivered")
	}
}

func TestClose(t *testing.T) {
	m := NewMockInfluxServer(t)
	c := connect(t, m)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v", err)
	}
	// Writes and flushes after Close are dropped silently.
	c.WriteResource(influxdb.ResourcePoint{Value: 1.0})
	c.Flush()
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *influxdb.Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}

func TestNewResourcePoint_DefaultsTime(t *testing.T) {
	before := time.Now()
	p := influxdb.NewResourcePoint(influxdb.ResourcePoint{Endpoint: "e", Value: true})
	if p.Time().Before(before) {
		t.Errorf("Time() = %v, want now", p.Time())
	}
	line := write.PointToLineProtocol(p, time.Second)
	if !strings.HasPrefix(line, "resource_values,endpoint=e,instance=0,object=0,resource=0 value=true ") {
		t.Errorf("line = %q", line)
	}
}
