package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-lwm2m/internal/engine"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/broker"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lwm2m/internal/journal"
	"github.com/nerrad567/gray-logic-lwm2m/internal/mqttengine"
	"github.com/nerrad567/gray-logic-lwm2m/internal/objects"
	"github.com/nerrad567/gray-logic-lwm2m/internal/telemetry"
	"github.com/nerrad567/gray-logic-lwm2m/migrations"
)

// pruneTimeout bounds the startup journal prune.
const pruneTimeout = 30 * time.Second

// run is the client's lifetime, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic LwM2M",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "endpoint", cfg.Client.Endpoint)

	// Start the embedded broker first so the client below can reach it.
	if cfg.MQTT.Embedded.Enabled {
		b, startErr := startBroker(ctx, cfg, log)
		if startErr != nil {
			return fmt.Errorf("starting embedded broker: %w", startErr)
		}
		defer func() {
			log.Info("stopping embedded broker")
			if stopErr := b.Stop(context.WithoutCancel(ctx)); stopErr != nil {
				log.Error("error stopping embedded broker", "error", stopErr)
			}
		}()
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Client.Endpoint)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Operation journal (optional)
	var db *database.DB
	var jnl engine.Journal
	if cfg.Database.Enabled {
		db, err = openJournal(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		jnl = journal.NewSQLiteRepository(db.DB, cfg.Client.Endpoint)
	} else {
		log.Info("operation journal disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	eng, err := mqttengine.New(mqttengine.Options{
		Client:      mqttClient,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		QoS:         byte(cfg.MQTT.QoS),
		Lifetime:    time.Duration(cfg.Client.Lifetime) * time.Second,
		Binding:     cfg.Client.Binding,
		Logger:      log.Component("mqttengine"),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	reg, err := objects.Build(ctx, objects.Options{
		Config: cfg,
		Server: objects.ServerActions{
			Update:  eng.RequestUpdate,
			Disable: eng.Disable,
		},
		FactoryReset: func() bool {
			log.Warn("factory reset requested, nothing to reset")
			return true
		},
		Logger: log.Component("objects"),
	})
	if err != nil {
		return fmt.Errorf("building object registry: %w", err)
	}
	reg.Client.SetLogger(log.Component("lwm2m"))

	if influxClient != nil {
		telemetry.NewRecorder(reg.Client, influxClient, cfg.Client.Endpoint, log.Component("telemetry")).Listen()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	bridge, err := engine.NewBridge(engine.BridgeOptions{
		Engine:  eng,
		Logger:  log.Component("engine"),
		Journal: jnl,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bridge.Start(gctx, cfg.Client.Endpoint, reg.Client)
	})
	if reg.Pressure != nil {
		poller := objects.NewPoller(reg.Pressure, cfg.GetPollInterval(), log.Component("poller"))
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Gray Logic LwM2M stopped")
	return nil
}

// startBroker starts the embedded broker and points the MQTT client
// configuration at it.
func startBroker(ctx context.Context, cfg *config.Config, log *logging.Logger) (*broker.Broker, error) {
	b, err := broker.New(cfg.MQTT.Embedded, log.Component("broker"), log.Logger)
	if err != nil {
		return nil, err
	}
	if err := b.Start(ctx); err != nil {
		return nil, err
	}
	cfg.MQTT.Broker.Host = cfg.MQTT.Embedded.Host
	cfg.MQTT.Broker.Port = b.Port()
	return b, nil
}

// openJournal opens the database, applies migrations and prunes entries
// older than the retention period.
func openJournal(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	if cfg.Database.RetentionDays > 0 {
		pctx, cancel := context.WithTimeout(ctx, pruneTimeout)
		defer cancel()
		cutoff := time.Now().AddDate(0, 0, -cfg.Database.RetentionDays)
		n, err := journal.NewSQLiteRepository(db.DB, cfg.Client.Endpoint).Prune(pctx, cutoff)
		if err != nil {
			log.Warn("journal prune failed", "error", err)
		} else if n > 0 {
			log.Info("journal pruned", "removed", n, "retention_days", cfg.Database.RetentionDays)
		}
	}
	return db, nil
}

// healthCheck verifies the infrastructure connections. db and
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
