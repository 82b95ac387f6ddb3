// Package influxdb stores resource value history in InfluxDB 2.x through
// the official influxdb-client-go v2 library.
//
// Every resource change becomes a point in the "resource_values"
// measurement, tagged by endpoint and LwM2M path:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteResource(influxdb.ResourcePoint{Endpoint: "pressure-001", Object: 3323, Instance: 1, Resource: 5700, Value: 42.1})
//
// Writes are non-blocking and batched per batch_size and flush_interval.
// Asynchronous write failures are delivered to the SetOnError callback.
package influxdb
