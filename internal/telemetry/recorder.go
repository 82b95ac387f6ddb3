// Package telemetry writes every registry value change to a time-series
// store.
package telemetry

import (
	"math"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// Writer queues points without blocking. It is satisfied by
// *influxdb.Client.
type Writer interface {
	WriteResource(p influxdb.ResourcePoint)
}

// Logger is the logging surface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Recorder turns registry changes into points.
type Recorder struct {
	client   *lwm2m.Client
	writer   Writer
	endpoint string
	logger   Logger
	now      func() time.Time
}

// NewRecorder creates a recorder. Call Listen to start recording.
func NewRecorder(client *lwm2m.Client, writer Writer, endpoint string, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{client: client, writer: writer, endpoint: endpoint, logger: logger, now: time.Now}
}

// Listen registers the recorder as a change listener on the registry.
// Listeners cannot be removed; the recorder lives as long as the client.
func (r *Recorder) Listen() {
	r.client.OnChange(r.record)
}

func (r *Recorder) record(p lwm2m.Path) {
	res, err := r.client.ResolvePath(p)
	if err != nil {
		r.logger.Debug("change for unknown resource", "path", p.String(), "error", err)
		return
	}
	field, ok := fieldValue(res.Value())
	if !ok {
		return
	}
	r.writer.WriteResource(influxdb.ResourcePoint{
		Endpoint: r.endpoint,
		Object:   p.Object,
		Instance: p.Instance,
		Resource: p.Resource,
		Name:     res.Name(),
		Value:    field,
		Time:     r.now(),
	})
}

// fieldValue maps a value onto a line protocol field. Opaque values and
// non-finite floats have no field representation and are skipped.
func fieldValue(v lwm2m.Value) (any, bool) {
	switch v.Kind() {
	case lwm2m.KindFloat:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	case lwm2m.KindInteger:
		return v.Int(), true
	case lwm2m.KindBoolean:
		return v.Bool(), true
	case lwm2m.KindString:
		return v.Str(), true
	default:
		return nil, false
	}
}
