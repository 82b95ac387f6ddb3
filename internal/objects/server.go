package objects

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// defaultDisableTimeout applies when Disable Timeout (1/x/5) is zero.
const defaultDisableTimeout = 86400 * time.Second

// ServerActions are the effects of the Server object's executables.
// Nil actions acknowledge without doing anything.
type ServerActions struct {
	// Update republishes the registration.
	Update func()

	// Disable withdraws the registration for the given duration.
	Disable func(d time.Duration)
}

// NewServer builds the Server object (1) with instance 0.
func NewServer(cfg *config.Config, actions ServerActions, logger Logger) (*lwm2m.Object, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	factory := func(id uint16) (*lwm2m.Instance, error) {
		return serverInstance(id, cfg, actions, logger)
	}
	obj := lwm2m.NewObject(ServerObjectID,
		lwm2m.WithObjectName("Server"),
		lwm2m.WithFactory(factory),
	)
	in, err := factory(0)
	if err != nil {
		return nil, err
	}
	if err := obj.Register(in); err != nil {
		return nil, fmt.Errorf("registering server instance: %w", err)
	}
	return obj, nil
}

func serverInstance(id uint16, cfg *config.Config, actions ServerActions, logger Logger) (*lwm2m.Instance, error) {
	timeout := lwm2m.MustReadWritable(ServerDisableTimeout, lwm2m.KindInteger, int64(defaultDisableTimeout/time.Second),
		lwm2m.WithName("Disable Timeout"),
		lwm2m.WithWriteHook(func(v lwm2m.Value) bool { return v.Int() >= 0 }))

	disable := func([]byte) bool {
		d := time.Duration(timeout.Value().Int()) * time.Second
		if d == 0 {
			d = defaultDisableTimeout
		}
		logger.Info("server disable requested", "instance", id, "duration", d)
		if actions.Disable != nil {
			actions.Disable(d)
		}
		return true
	}
	update := func([]byte) bool {
		logger.Info("registration update requested", "instance", id)
		if actions.Update != nil {
			actions.Update()
		}
		return true
	}

	return lwm2m.NewInstance(id,
		lwm2m.MustReadable(ServerShortID, lwm2m.KindInteger, cfg.Client.ShortServerID, lwm2m.WithName("Short Server ID")),
		lwm2m.MustReadWritable(ServerLifetime, lwm2m.KindInteger, cfg.Client.Lifetime,
			lwm2m.WithName("Lifetime"),
			lwm2m.WithWriteHook(func(v lwm2m.Value) bool { return v.Int() > 0 })),
		lwm2m.MustReadWritable(ServerMinPeriod, lwm2m.KindInteger, 0, lwm2m.WithName("Default Minimum Period")),
		lwm2m.MustReadWritable(ServerMaxPeriod, lwm2m.KindInteger, 0, lwm2m.WithName("Default Maximum Period")),
		lwm2m.MustExecutable(ServerDisable, lwm2m.WithName("Disable"), lwm2m.WithExecuteHook(disable)),
		timeout,
		lwm2m.MustReadWritable(ServerStoring, lwm2m.KindBoolean, false, lwm2m.WithName("Notification Storing When Disabled or Offline")),
		lwm2m.MustReadWritable(ServerBinding, lwm2m.KindString, cfg.Client.Binding,
			lwm2m.WithName("Binding"),
			lwm2m.WithWriteHook(validBinding)),
		lwm2m.MustExecutable(ServerUpdateTrigger, lwm2m.WithName("Registration Update Trigger"), lwm2m.WithExecuteHook(update)),
	)
}

// validBinding accepts the LwM2M 1.0 binding modes.
func validBinding(v lwm2m.Value) bool {
	switch v.Str() {
	case "U", "UQ", "S", "SQ", "US", "UQS":
		return true
	}
	return false
}

