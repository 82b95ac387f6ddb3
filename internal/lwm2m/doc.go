// Package lwm2m provides the object registry of the Gray Logic LwM2M client.
//
// The registry is a three-level tree of remotely addressable values:
//
//	Client ──▶ Object (e.g. 3323 Pressure)
//	              └──▶ Instance (e.g. 1)
//	                      └──▶ Resource (e.g. 5601 Min Measured Value)
//	                              └──▶ Cell (typed current value)
//
// Resources are a closed set of variants (Executable, Readable, Writable,
// ReadWritable). Each data resource holds a Cell of a fixed Kind; values
// written to it are coerced into that kind or rejected with ErrTypeMismatch.
//
// # Change notification
//
// Registration stamps every resource with its object and instance ID. When a
// cell value changes the resource notifies the Client, which forwards the
// change to its listeners and to the attached engine, if any:
//
//	Cell.Set ──▶ Resource ──▶ Client.NotifyChanged ──▶ listeners
//	                                              └──▶ engine (when attached)
//
// # Usage
//
//	client := lwm2m.NewClient()
//	client.SetLogger(log)
//
//	inst, err := lwm2m.NewInstance(1,
//	    lwm2m.MustReadable(5601, lwm2m.KindFloat, 0.0),
//	    lwm2m.MustReadable(5602, lwm2m.KindFloat, 0.0),
//	)
//	if err != nil {
//	    return err
//	}
//	pressure := lwm2m.NewObject(3323, lwm2m.WithObjectName("Pressure"))
//	if err := pressure.Register(inst); err != nil {
//	    return err
//	}
//	if err := client.Register(pressure); err != nil {
//	    return err
//	}
//
//	res, _ := client.Resolve("3323/1/5601")
//	_ = res.Set(12.5)
//
// # Thread Safety
//
// Client, Object, Instance and Cell are safe for concurrent use. Change
// notifications for a single cell are delivered in commit order.
package lwm2m
