package main

import (
	"context"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/denwilliams/go-ambient-match/internal/config"
	"github.com/denwilliams/go-ambient-match/internal/logging"
	"github.com/denwilliams/go-ambient-match/internal/mqtt"
	"github.com/denwilliams/go-ambient-match/internal/store"
	"github.com/denwilliams/go-ambient-match/internal/telemetry"
	"github.com/denwilliams/go-ambient-match/internal/web"
)

const defaultPort = 5000

func init() {
	logging.Init("info", false)
	logging.Info("Loading .env file")
	if err := godotenv.Load(".env"); err != nil {
		logging.Warn("Unable to load .env")
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("Failed to load configuration: %s", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log.Level, cfg.Log.JSON)
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = defaultPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logging.Error("Failed to open database: %s", err)
		os.Exit(1)
	}
	defer st.Close()
	logging.Info("Storing history in %s", cfg.Database.Path)

	mu, err := url.Parse(cfg.MQTT.URI)
	if err != nil {
		logging.Error("Error parsing URL %s", err)
		os.Exit(1)
	}
	mc := mqtt.NewMQTTClient(mu, cfg.MQTT.TopicPrefix, "ambient-collector-", cfg.MQTT.KeepAlive.Duration())
	if err := mc.Connect(); err != nil {
		logging.Error("Failed to connect to MQTT: %s", err)
		os.Exit(1)
	}
	defer mc.Disconnect()

	for _, kind := range []telemetry.Kind{telemetry.KindLux, telemetry.KindColor, telemetry.KindActuator} {
		if err := mc.Subscribe(mc.Topic(string(kind)), storeHandler(st, kind)); err != nil {
			logging.Error("Failed to subscribe: %s", err)
			os.Exit(1)
		}
	}

	if retention := cfg.Database.Retention.Duration(); retention > 0 {
		go pruneLoop(ctx, st, retention)
	}

	srv := web.NewServer(cfg.HTTP.Addr(), web.NewCollectorHandler(st, mc, web.NewLimiter(cfg.HTTP.CommandRate, cfg.HTTP.CommandBurst)))
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Run(ctx, cfg.ShutdownTimeout.Duration()); err != nil {
			logging.Error("HTTP server failed: %s", err)
			cancel()
		}
	}()

	logging.Info("Ready")

	waitForExit(ctx)

	logging.Info("Terminating")
	cancel()
	<-served
}

// storeHandler records every valid event of kind. Payloads that do not decode
// are logged and dropped.
func storeHandler(st *store.Store, kind telemetry.Kind) mqtt.MessageHandler {
	return func(topic string, payload []byte) {
		ev, err := telemetry.Decode(kind, payload)
		if err != nil {
			logging.Warn("Invalid JSON on %s: %s", topic, err)
			return
		}
		logging.Debug("%s <- %s", topic, payload)
		if err := st.Record(ev, time.Now(), payload); err != nil {
			logging.Error("Failed to store %s event: %s", kind, err)
		}
	}
}

func pruneLoop(ctx context.Context, st *store.Store, retention time.Duration) {
	tick := time.NewTicker(time.Hour)
	defer tick.Stop()

	for {
		n, err := st.DeleteOlderThan(retention)
		if err != nil {
			logging.Warn("Failed to prune history: %s", err)
		} else if n > 0 {
			logging.Info("Pruned %d records older than %s", n, retention)
		}

		select {
		case <-tick.C:
		case <-ctx.Done():
			// Stop the loop when the collector shuts down
			logging.Info("Background pruning interrupted, exiting")
			return
		}
	}
}

func waitForExit(ctx context.Context) {
	// Set up a channel to receive OS signals so we can gracefully exit
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signalChan:
		logging.Info("Exit signal received")
	case <-ctx.Done():
	}
}
