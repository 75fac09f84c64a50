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

	"github.com/denwilliams/go-ambient-match/internal/actuator"
	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/config"
	"github.com/denwilliams/go-ambient-match/internal/control"
	"github.com/denwilliams/go-ambient-match/internal/hardware"
	"github.com/denwilliams/go-ambient-match/internal/logging"
	"github.com/denwilliams/go-ambient-match/internal/mqtt"
	"github.com/denwilliams/go-ambient-match/internal/sensor"
	"github.com/denwilliams/go-ambient-match/internal/telemetry"
	"github.com/denwilliams/go-ambient-match/internal/web"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	board, err := hardware.OpenBoard()
	if err != nil {
		logging.Error("Failed to open board: %s", err)
		os.Exit(1)
	}
	defer board.Close()

	tcs, err := hardware.NewTCS3200(board, hardware.TCS3200Pins{
		S0:  cfg.Sensor.S0,
		S1:  cfg.Sensor.S1,
		S2:  cfg.Sensor.S2,
		S3:  cfg.Sensor.S3,
		Out: cfg.Sensor.Out,
		LED: cfg.Sensor.LED,
	})
	if err != nil {
		logging.Error("Failed to set up color sensor: %s", err)
		os.Exit(1)
	}

	var light sensor.LightMeter = sensor.NoLight
	if bh, err := hardware.NewBH1750(board, cfg.Light.Bus, cfg.Light.Address, cfg.Light.LockFile); err != nil {
		logging.Warn("Light meter unavailable, brightness stays at the floor: %s", err)
	} else {
		light = bh
	}

	out, err := newActuator(ctx, cfg, board)
	if err != nil {
		logging.Error("Failed to set up actuator: %s", err)
		os.Exit(1)
	}

	sink := telemetry.MultiSink{}
	mu, err := url.Parse(cfg.MQTT.URI)
	if err != nil {
		logging.Error("Error parsing URL %s", err)
		os.Exit(1)
	}
	mc := mqtt.NewMQTTClient(mu, cfg.MQTT.TopicPrefix, "ambient-match-", cfg.MQTT.KeepAlive.Duration())
	if err := mc.Connect(); err != nil {
		// The first connect is not retried; keep driving the light offline.
		logging.Warn("MQTT unavailable, running without telemetry: %s", err)
	} else {
		defer mc.Disconnect()
		sink = append(sink, mc)
	}

	start := time.Now()
	ctrl := actuator.NewController(out, sink, cfg.ActuatorConfig(), start)
	loop := control.New(sensor.NewSampler(tcs, cfg.SamplerConfig()), light, ctrl, sink, cfg.ControlConfig(), start)

	if len(sink) > 0 {
		if err := mc.HandleCommands(loop); err != nil {
			logging.Warn("Unable to subscribe to commands: %s", err)
		}
	}

	if cfg.HTTP.Port > 0 {
		srv := web.NewServer(cfg.HTTP.Addr(), web.NewDeviceHandler(loop, web.NewLimiter(cfg.HTTP.CommandRate, cfg.HTTP.CommandBurst)))
		go func() {
			if err := srv.Run(ctx, cfg.ShutdownTimeout.Duration()); err != nil {
				logging.Error("HTTP server failed: %s", err)
			}
		}()
	}

	go waitForExit(cancel)

	logging.Info("Ready")

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		logging.Error("Control loop stopped: %s", err)
	}

	// Leave the light dark on the way out.
	if err := out.Apply(color.RGB{}); err != nil {
		logging.Warn("Unable to switch actuator off: %s", err)
	}

	logging.Info("Terminating")
}

func newActuator(ctx context.Context, cfg *config.Config, board *hardware.Board) (actuator.Actuator, error) {
	if cfg.Actuator.Driver == "lifx" {
		l := cfg.Actuator.LIFX
		return hardware.NewLIFXBulb(ctx, l.Address, l.Target, l.Kelvin, l.Transition.Duration(), l.Timeout.Duration())
	}
	return hardware.NewRGBLed(board, cfg.Actuator.Red, cfg.Actuator.Green, cfg.Actuator.Blue, cfg.Actuator.CommonAnode)
}

func waitForExit(cancel context.CancelFunc) {
	// Set up a channel to receive OS signals so we can gracefully exit
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	<-signalChan
	logging.Info("Exit signal received")
	cancel()
}
