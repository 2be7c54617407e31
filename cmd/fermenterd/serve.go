package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "controlling_fermenter/docs"
	"controlling_fermenter/internal/config"
	"controlling_fermenter/internal/control"
	"controlling_fermenter/internal/handlers"
	"controlling_fermenter/internal/logger"
	"controlling_fermenter/internal/logsink"
	"controlling_fermenter/internal/metrics"
	"controlling_fermenter/internal/relay"
	"controlling_fermenter/internal/repository"
	"controlling_fermenter/internal/repository/db"
	"controlling_fermenter/internal/retention"
	"controlling_fermenter/internal/sensor"
	"controlling_fermenter/internal/server"
	"controlling_fermenter/internal/service"
	"controlling_fermenter/internal/simulator"
	"controlling_fermenter/internal/telemetry"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control loop and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log := logger.Get(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("sqlite_close_failed", "err", cerr)
		}
	}()
	repos := repository.NewRepository(conn)

	// runs left ACTIVE by a crash cannot be resumed
	if n, err := repos.RunRepo.AbortUnfinished(ctx, "controller restarted", time.Now()); err != nil {
		return fmt.Errorf("recover unfinished runs: %w", err)
	} else if n > 0 {
		log.Warnw("unfinished_runs_aborted", "count", n)
	}

	probes, heater, err := buildHardware(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := heater.Close(); cerr != nil {
			log.Errorw("relay_close_failed", "err", cerr)
		}
	}()
	if err := heater.Set(ctx, false); err != nil {
		return fmt.Errorf("force heater off at startup: %w", err)
	}

	m := metrics.New()
	pub := buildPublisher(cfg, log)
	defer func() { _ = pub.Close() }()

	rec := service.NewRecorder(repos, m, pub, log.Named("recorder"), service.RecorderConfig{
		DiscardIdleReadings: cfg.Control.DiscardIdleReadings,
	})
	sink := logsink.New(rec, logsink.Config{
		Buffer:       cfg.LogSink.Buffer,
		MaxRetries:   cfg.LogSink.MaxRetries,
		RetryBackoff: cfg.LogSink.RetryBackoff,
	}, logsink.WithLogger(log.Named("logsink")), logsink.OnDrop(rec.ReadingDropped))

	ctl, err := control.New(control.Config{
		Sensors:           cfg.SensorIDs(),
		Band:              cfg.Control.Band,
		MaxSensorFaults:   cfg.Control.MaxSensorFaults,
		MaxActuatorFaults: cfg.Control.MaxActuatorFaults,
		IOTimeout:         cfg.Control.IOTimeout,
	}, probes, heater, sink, control.WithListener(rec), control.WithLogger(log.Named("control")))
	if err != nil {
		return err
	}

	services := service.NewService(repos, service.Deps{
		Loop:   ctl,
		Limits: limitsFromConfig(cfg),
		Auth:   service.AuthConfig{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL},
	})
	apiHandler := handlers.NewHandler(services, log, handlers.WithMetrics(m.Handler()))
	srv := server.New(cfg.Port, apiHandler.InitRoutes())

	// The writers outlive the control loop so its final transition and
	// readings are still persisted.
	pipeCtx, stopPipe := context.WithCancel(context.Background())
	var pipe sync.WaitGroup
	pipe.Add(2)
	go func() { defer pipe.Done(); sink.Run(pipeCtx) }()
	go func() { defer pipe.Done(); rec.Run(pipeCtx) }()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ctl.Run(ctx, cfg.Control.Tick)
	}()

	if cfg.Retention.Schedule != "" {
		job, err := retention.NewJob(repos.ReadingRepo, cfg.Retention.MaxAge, log.Named("retention"))
		if err != nil {
			return err
		}
		go func() {
			if err := job.Run(ctx, cfg.Retention.Schedule); err != nil {
				log.Errorw("retention_failed", "err", err)
			}
		}()
	}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Run() }()
	log.Infow("fermenterd_started", "addr", srv.Addr(), "version", version, "sensors", cfg.SensorIDs(), "relay", cfg.Relay.Driver)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
		if runErr != nil {
			log.Errorw("http_server_failed", "err", runErr)
		}
		stop()
	}
	log.Infow("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http_shutdown_failed", "err", err)
	}

	<-loopDone
	stopPipe()
	pipe.Wait()
	log.Infow("fermenterd_stopped", "readings_written", sink.Written(), "readings_dropped", sink.Dropped())
	return runErr
}

// buildHardware returns the probe reader and the heater relay for the configured driver.
func buildHardware(cfg *config.Config, log *logger.Logger) (sensor.Reader, relay.Actuator, error) {
	if cfg.Relay.Driver == config.RelaySim {
		plant := simulator.NewPlant()
		log.Warnw("simulated_kettle_in_use")
		return plant, plant, nil
	}

	w1 := sensor.NewW1Reader(afero.NewOsFs(), cfg.Sensor.BaseDir, sensor.Calibration(cfg.Calibration()))
	if found, err := w1.Discover(); err != nil {
		log.Warnw("w1_discover_failed", "base_dir", cfg.Sensor.BaseDir, "err", err)
	} else {
		missing := missingProbes(cfg.SensorIDs(), found)
		if len(missing) > 0 {
			log.Warnw("w1_probes_missing", "missing", missing, "found", found)
		}
	}

	switch cfg.Relay.Driver {
	case config.RelayFake:
		log.Warnw("fake_relay_in_use")
		return w1, relay.NewFakeActuator(), nil
	default:
		g, err := relay.NewGPIO(cfg.Relay.Chip, cfg.Relay.Line, cfg.Relay.ActiveLow)
		if err != nil {
			return nil, nil, err
		}
		return w1, g, nil
	}
}

func missingProbes(want, found []string) []string {
	have := make(map[string]bool, len(found))
	for _, id := range found {
		have[id] = true
	}
	var missing []string
	for _, id := range want {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// buildPublisher connects to the MQTT broker when one is configured. An
// unreachable broker disables telemetry rather than stopping the controller.
func buildPublisher(cfg *config.Config, log *logger.Logger) telemetry.Publisher {
	if cfg.MQTT.Broker == "" {
		return telemetry.Nop{}
	}
	p, err := telemetry.NewMQTTPublisher(telemetry.Config{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	})
	if err != nil {
		log.Warnw("mqtt_unavailable", "broker", cfg.MQTT.Broker, "err", err)
		return telemetry.Nop{}
	}
	log.Infow("mqtt_connected", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
	return p
}
