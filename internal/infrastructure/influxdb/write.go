package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the InfluxDB measurement holding resource history.
const Measurement = "resource_values"

// ResourcePoint is one resource value at an instant.
type ResourcePoint struct {
	Endpoint string
	Object   uint16
	Instance uint16
	Resource uint16

	// Name is the resource name; optional.
	Name string

	// Value is a float64, int64, bool or string.
	Value any

	// Time defaults to now.
	Time time.Time
}

// WriteResource queues p. It never blocks and is dropped after Close.
func (c *Client) WriteResource(p ResourcePoint) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewResourcePoint(p))
}

// NewResourcePoint converts p to a line protocol point.
func NewResourcePoint(p ResourcePoint) *write.Point {
	tags := map[string]string{
		"endpoint": p.Endpoint,
		"object":   strconv.Itoa(int(p.Object)),
		"instance": strconv.Itoa(int(p.Instance)),
		"resource": strconv.Itoa(int(p.Resource)),
	}
	if p.Name != "" {
		tags["name"] = p.Name
	}
	at := p.Time
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(Measurement, tags, map[string]any{"value": p.Value}, at)
}
