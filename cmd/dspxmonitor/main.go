// Dspx-Monitor - dilution refrigerator monitoring dashboard
//
// This is the main entry point. It serves the dashboard and JSON API over
// the instrument's per-day log files, watches those files for changes and
// sends the daily summary report to a chat webhook.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/api"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/dashboard"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/export"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/config"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/database"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/influxdb"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/logging"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/mqtt"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/tsdb"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/notify"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/scheduler"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
	"github.com/MIT-Despereaux/Dspx-Monitor/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Dspx-Monitor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // best-effort flush of the log file
	log.Info("configuration loaded",
		"path", configPath,
		"site", cfg.Site.ID,
		"data_dir", cfg.Data.Dir,
		"level", cfg.Logging.Level,
	)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("loading site timezone: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path(), "migrations_applied", applied)

	mqttClient := connectMQTT(cfg, log)
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	sinks := connectSinks(ctx, cfg, log)
	for _, s := range sinks {
		defer func() {
			if closeErr := s.Close(); closeErr != nil {
				log.Error("error closing time-series sink", "error", closeErr)
			}
		}()
	}

	// Telemetry pipeline
	source := telemetry.NewDirSource(cfg.Data.Dir, cfg.Data.Extension, loc)
	parser := telemetry.NewParser(loc, cfg.Ingest.RegressionTolerance)
	merger := telemetry.NewMerger(source, parser, telemetry.MergerConfig{
		Parallelism:  cfg.Ingest.Parallelism,
		MaxRangeDays: cfg.Ingest.MaxRangeDays,
	})

	reportChannels, err := channel.Resolve(cfg.Report.Channels)
	if err != nil {
		return fmt.Errorf("report channels: %w", err)
	}

	ctrl := dashboard.NewController(source, merger, dashboard.Config{
		MaxPoints:      cfg.Dashboard.MaxPoints,
		ValveMaxPoints: cfg.Dashboard.ValveMaxPoints,
		CacheTTL:       cfg.Dashboard.CacheTTL,
		MaxRangeDays:   cfg.Ingest.MaxRangeDays,
		Location:       loc,
		Report: dashboard.ReportConfig{
			Title:     cfg.Report.Title,
			Precision: cfg.Report.Precision,
			Window:    time.Duration(cfg.Report.WindowHours) * time.Hour,
			Channels:  reportChannels,
		},
	})
	ctrl.SetLogger(log)

	notifier, err := buildNotifier(cfg, db, log)
	if err != nil {
		return err
	}

	exporter := newExporter(cfg.Site.ID, sinks, time.Now())

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Dashboard:   ctrl,
		Notifier:    notifier,
		MQTT:        mqttClient,
		DB:          db,
		ExternalHub: hub,
		WebDir:      cfg.Dashboard.WebDir,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if cfg.Scheduler.Enabled {
		sched, schedErr := buildScheduler(cfg, loc, source, ctrl, mqttClient, hub, exporter, notifier, log)
		if schedErr != nil {
			return schedErr
		}
		sched.Start(ctx)
		defer sched.Stop()
		if cfg.Scheduler.ReportEnabled {
			log.Info("daily report scheduled", "next", sched.NextReport().Format(time.RFC3339))
		}
	} else {
		log.Info("scheduler disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	// Deferred closes run in reverse order: scheduler, API server, sinks,
	// MQTT, database, log file.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DSPX_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DSPX_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects to the broker when enabled. A broker that cannot be
// reached is logged and skipped; the dashboard works without it.
func connectMQTT(cfg *config.Config, log *logging.Logger) *mqtt.Client {
	client, err := mqtt.Connect(cfg.MQTT)
	switch {
	case errors.Is(err, mqtt.ErrDisabled):
		log.Info("MQTT disabled")
		return nil
	case err != nil:
		log.Warn("MQTT unavailable, continuing without it", "error", err)
		return nil
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic_prefix", client.Topics().Prefix,
	)
	return client
}

// sink is a connected time-series client.
type sink interface {
	export.Sink
	Close() error
}

// newExporter builds the exporter over sinks. Its mark starts at now so a
// restart does not replay readings the sinks already hold.
func newExporter(site string, sinks []sink, now time.Time) *export.Exporter {
	exportSinks := make([]export.Sink, 0, len(sinks))
	for _, s := range sinks {
		exportSinks = append(exportSinks, s)
	}
	exporter := export.New(site, exportSinks...)
	exporter.SetMark(now)
	return exporter
}

// connectSinks connects the enabled time-series databases. Unreachable
// ones are logged and skipped.
func connectSinks(ctx context.Context, cfg *config.Config, log *logging.Logger) []sink {
	var sinks []sink

	influx, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB export disabled")
	case err != nil:
		log.Warn("InfluxDB unavailable, export disabled", "error", err)
	default:
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		sinks = append(sinks, influx)
	}

	vm, err := tsdb.Connect(ctx, cfg.TSDB)
	switch {
	case errors.Is(err, tsdb.ErrDisabled):
		log.Info("VictoriaMetrics export disabled")
	case err != nil:
		log.Warn("VictoriaMetrics unavailable, export disabled", "error", err)
	default:
		vm.SetOnError(func(err error) {
			log.Error("VictoriaMetrics write error", "error", err)
		})
		log.Info("VictoriaMetrics connected", "url", cfg.TSDB.URL)
		sinks = append(sinks, vm)
	}

	return sinks
}

// buildNotifier wires the webhook sender and delivery history. Without a
// webhook URL the notifier exists but reports itself unconfigured.
func buildNotifier(cfg *config.Config, db *database.DB, log *logging.Logger) (*notify.Notifier, error) {
	repo := notify.NewSQLiteDeliveryRepository(db.DB)
	dest := notify.Destination{Channel: cfg.Notify.Channel, User: cfg.Notify.User}

	if cfg.Notify.WebhookURL == "" {
		log.Warn("no report webhook configured, reports will not be sent")
		return notify.NewNotifier(nil, repo, dest, log), nil
	}

	sender, err := notify.NewWebhookSender(cfg.Notify.WebhookURL,
		notify.WithTimeout(time.Duration(cfg.Notify.Timeout)*time.Second))
	if err != nil {
		return nil, fmt.Errorf("creating webhook sender: %w", err)
	}
	log.Info("report webhook configured", "destination", dest.Target())
	return notify.NewNotifier(sender, repo, dest, log), nil
}

// buildScheduler assembles the file watcher and report job. Optional
// collaborators stay nil interfaces when their client is absent.
func buildScheduler(
	cfg *config.Config,
	loc *time.Location,
	source *telemetry.DirSource,
	ctrl *dashboard.Controller,
	mqttClient *mqtt.Client,
	hub *api.Hub,
	exporter *export.Exporter,
	notifier *notify.Notifier,
	log *logging.Logger,
) (*scheduler.Scheduler, error) {
	hour, minute, err := cfg.ReportClock()
	if err != nil {
		return nil, fmt.Errorf("report time: %w", err)
	}

	deps := scheduler.Deps{
		Source:    source,
		Dashboard: ctrl,
		Hub:       hub,
		Exporter:  exporter,
		Notifier:  notifier,
		Logger:    log,
	}
	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
	if mqttClient != nil {
		deps.Publisher = mqttClient
		topics = mqttClient.Topics()
	}

	return scheduler.New(scheduler.Config{
		CheckInterval: cfg.Scheduler.CheckInterval,
		ReportEnabled: cfg.Scheduler.ReportEnabled,
		ReportHour:    hour,
		ReportMinute:  minute,
		Location:      loc,
		Topics:        topics,
	}, deps), nil
}
