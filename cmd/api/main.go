package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/mercury2mqtt/internal/adapter/actor"
	"github.com/berfenger/mercury2mqtt/internal/config"
	"github.com/berfenger/mercury2mqtt/internal/core/actor"
	"github.com/berfenger/mercury2mqtt/internal/core/service"
	"github.com/berfenger/mercury2mqtt/internal/metrics"
	"github.com/berfenger/mercury2mqtt/internal/server"
	"github.com/berfenger/mercury2mqtt/internal/util/actorutil"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const queryTimeout = 5 * time.Second

type runOptions struct {
	once   bool
	dryRun bool
}

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, opts, err := initConfig(os.Args[1:])
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(2)
	}

	if opts.once {
		os.Exit(runOnce(cfg, opts, os.Stdout))
	}

	safePrintConfig(*cfg)
	runDaemon(cfg, opts)
}

func runDaemon(cfg *config.Config, opts runOptions) {

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	exchangeMetrics := metrics.NewExchangeMetrics()
	if err := exchangeMetrics.Register(registry); err != nil {
		panic(err)
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg,
			meterActorProvider(cfg, opts, logger, exchangeMetrics.Instrument()),
			mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		return
	}

	query := service.NewActorMeterQuery(ctx, pid, queryTimeout)
	registry.MustRegister(metrics.NewCollector(query, queryTimeout, logger))

	server := server.NewServer(*cfg, query, registry)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig(args []string) (*config.Config, runOptions, error) {

	var opts runOptions

	// alias PORT => MERCURY_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv(strings.ToUpper(config.ENV_PREFIX)+"_PORT", port)
	}

	v := viper.New()
	config.SetDefaults(v)

	fs := pflag.NewFlagSet("mercury2mqtt", pflag.ContinueOnError)
	fs.BoolVar(&opts.once, "once", false, "run a single pass, print the measurements and exit")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "use a simulated meter instead of the serial port")
	fs.String("port", "", "serial port (default /dev/ttyUSB0)")
	fs.Int("baudrate", 0, "baud rate (default 9600)")
	fs.String("parity", "", "parity: N (none), E (even), O (odd) (default N)")
	fs.Int("bytesize", 0, "data bits: 5, 6, 7 or 8 (default 8)")
	fs.Int("stopbits", 0, "stop bits: 1 or 2 (default 1)")
	timeout := fs.Float64("timeout", 0, "serial read timeout in seconds (default 1.0)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	for key, flag := range map[string]string{
		"serial.port":      "port",
		"serial.baud_rate": "baudrate",
		"serial.parity":    "parity",
		"serial.data_bits": "bytesize",
		"serial.stop_bits": "stopbits",
		"log_level":        "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, opts, err
		}
	}
	if fs.Changed("timeout") {
		millis := *timeout * 1000
		if !(millis >= 1 && millis <= math.MaxUint32) {
			return nil, opts, &mercury236.ConfigError{Field: "timeout", Value: *timeout, Reason: "must be a positive number of seconds"}
		}
		v.Set("serial.timeout_millis", uint32(millis))
	}

	v.SetEnvPrefix(config.ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			v.SetConfigFile(cfgFile)

			err = v.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}

func openTransport(cfg *config.Config, opts runOptions) adactor.TransportOpener {
	if opts.dryRun {
		return func() (mercury236.Transport, error) {
			return mercury236.CreateTestTransport(), nil
		}
	}
	return func() (mercury236.Transport, error) {
		transport, err := mercury236.OpenSerial(cfg.Serial.ToMercury())
		if err != nil {
			return nil, err
		}
		return transport, nil
	}
}

func meterActorProvider(cfg *config.Config, opts runOptions, logger *zap.Logger, instrumentation ...mercury236.Instrument) actor.MeterActorProvider {
	open := openTransport(cfg, opts)
	meterCfg := adactor.MeterActorConfig{
		Port:        cfg.Serial.Port,
		Reader:      cfg.Meter.ReaderConfig(),
		PassTimeout: cfg.Meter.PassTimeout(),
	}
	return func() *adactor.MeterActor {
		return adactor.NewMeterActor(open, nil, meterCfg, logger, instrumentation...)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MQTT.Enable {
		return nil
	}
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
