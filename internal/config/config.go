package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/denwilliams/go-ambient-match/internal/actuator"
	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/control"
	"github.com/denwilliams/go-ambient-match/internal/sensor"
	"github.com/denwilliams/go-ambient-match/internal/telemetry"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Calibration color.Calibration `yaml:"calibration"`
	Light       LightConfig       `yaml:"light"`
	Actuator    ActuatorConfig    `yaml:"actuator"`
	Control     ControlConfig     `yaml:"control"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`

	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type MQTTConfig struct {
	URI         string   `yaml:"uri"`
	TopicPrefix string   `yaml:"topic_prefix"`
	KeepAlive   Duration `yaml:"keep_alive"`
}

// SensorConfig holds the TCS3200 wiring (raspi header pin names) and sampling
type SensorConfig struct {
	S0  string `yaml:"s0"`
	S1  string `yaml:"s1"`
	S2  string `yaml:"s2"`
	S3  string `yaml:"s3"`
	Out string `yaml:"out"`
	LED string `yaml:"led"`

	Samples      int      `yaml:"samples"`
	PulseTimeout Duration `yaml:"pulse_timeout"`
	SettleDelay  Duration `yaml:"settle_delay"`
	SampleGap    Duration `yaml:"sample_gap"`
}

// LightConfig holds the BH1750 I2C settings
type LightConfig struct {
	Bus      int    `yaml:"bus"`
	Address  int    `yaml:"address"`
	LockFile string `yaml:"lock_file"`
}

type ActuatorConfig struct {
	Driver      string     `yaml:"driver"` // gpio or lifx
	Red         string     `yaml:"red"`
	Green       string     `yaml:"green"`
	Blue        string     `yaml:"blue"`
	CommonAnode bool       `yaml:"common_anode"`
	LIFX        LIFXConfig `yaml:"lifx"`
}

type LIFXConfig struct {
	Address    string   `yaml:"address"` // host:port of the bulb
	Target     string   `yaml:"target"`  // MAC address
	Kelvin     uint16   `yaml:"kelvin"`
	Transition Duration `yaml:"transition"`
	Timeout    Duration `yaml:"timeout"`
}

type ControlConfig struct {
	Interval      Duration `yaml:"interval"`
	Hold          Duration `yaml:"hold"`
	RGBDelta      int      `yaml:"rgb_delta"`
	FullScaleLux  float64  `yaml:"full_scale_lux"`
	MinBrightness float64  `yaml:"min_brightness"`
}

type TelemetryConfig struct {
	Heartbeat   Duration `yaml:"heartbeat"`
	RGBDelta    int      `yaml:"rgb_delta"`
	LuxDeltaAbs float64  `yaml:"lux_delta_abs"`
	LuxDeltaRel float64  `yaml:"lux_delta_rel"`
}

// HTTPConfig configures the optional API server. Port 0 disables it.
type HTTPConfig struct {
	Host         string  `yaml:"host"`
	Port         int     `yaml:"port"`
	CommandRate  float64 `yaml:"command_rate"`
	CommandBurst int     `yaml:"command_burst"`
}

// DatabaseConfig is used by the collector. A zero Retention keeps everything.
type DatabaseConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file. A missing file is not an
// error; defaults and legacy environment variables are used instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	// Legacy environment variables
	if c.MQTT.URI == "" {
		c.MQTT.URI = os.Getenv("MQTT_URI")
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = os.Getenv("MQTT_TOPIC_PREFIX")
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port, _ = strconv.Atoi(os.Getenv("PORT"))
	}

	if c.MQTT.URI == "" {
		c.MQTT.URI = "tcp://test.mosquitto.org:1883"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "ambient"
	}
	if c.MQTT.KeepAlive == 0 {
		c.MQTT.KeepAlive = Duration(30 * time.Second)
	}

	// Physical header pins on a Raspberry Pi
	setString(&c.Sensor.S0, "29")
	setString(&c.Sensor.S1, "31")
	setString(&c.Sensor.S2, "16")
	setString(&c.Sensor.S3, "18")
	setString(&c.Sensor.Out, "22")
	setString(&c.Sensor.LED, "15")
	if c.Sensor.Samples == 0 {
		c.Sensor.Samples = sensor.DefaultSamplerConfig.Samples
	}
	if c.Sensor.PulseTimeout == 0 {
		c.Sensor.PulseTimeout = Duration(sensor.DefaultSamplerConfig.PulseTimeout)
	}
	if c.Sensor.SettleDelay == 0 {
		c.Sensor.SettleDelay = Duration(sensor.DefaultSamplerConfig.SettleDelay)
	}
	if c.Sensor.SampleGap == 0 {
		c.Sensor.SampleGap = Duration(sensor.DefaultSamplerConfig.SampleGap)
	}

	if c.Calibration == (color.Calibration{}) {
		c.Calibration = color.DefaultCalibration
	}

	if c.Light.Bus == 0 {
		c.Light.Bus = 1
	}
	if c.Light.Address == 0 {
		c.Light.Address = 0x23
	}
	setString(&c.Light.LockFile, "/var/lock/bh1750.lock")

	setString(&c.Actuator.Driver, "gpio")
	setString(&c.Actuator.Red, "12")
	setString(&c.Actuator.Green, "32")
	setString(&c.Actuator.Blue, "33")
	if c.Actuator.LIFX.Kelvin == 0 {
		c.Actuator.LIFX.Kelvin = 3500
	}
	if c.Actuator.LIFX.Timeout == 0 {
		c.Actuator.LIFX.Timeout = Duration(2 * time.Second)
	}

	if c.Control.Interval == 0 {
		c.Control.Interval = Duration(250 * time.Millisecond)
	}
	if c.Control.Hold == 0 {
		c.Control.Hold = Duration(actuator.DefaultConfig.Hold)
	}
	if c.Control.RGBDelta == 0 {
		c.Control.RGBDelta = actuator.DefaultConfig.Delta
	}
	if c.Control.FullScaleLux == 0 {
		c.Control.FullScaleLux = color.DefaultScaler.FullScaleLux
	}
	if c.Control.MinBrightness == 0 {
		c.Control.MinBrightness = color.DefaultScaler.Floor
	}

	if c.Telemetry.Heartbeat == 0 {
		c.Telemetry.Heartbeat = Duration(telemetry.DefaultGateConfig.Heartbeat)
	}
	if c.Telemetry.RGBDelta == 0 {
		c.Telemetry.RGBDelta = telemetry.DefaultGateConfig.RGBDelta
	}
	if c.Telemetry.LuxDeltaAbs == 0 {
		c.Telemetry.LuxDeltaAbs = telemetry.DefaultGateConfig.LuxDeltaAbs
	}
	if c.Telemetry.LuxDeltaRel == 0 {
		c.Telemetry.LuxDeltaRel = telemetry.DefaultGateConfig.LuxDeltaRel
	}

	setString(&c.HTTP.Host, "0.0.0.0")
	if c.HTTP.CommandRate == 0 {
		c.HTTP.CommandRate = 2
	}
	if c.HTTP.CommandBurst == 0 {
		c.HTTP.CommandBurst = 4
	}

	setString(&c.Database.Path, "./ambient.sqlite")
	setString(&c.Log.Level, "info")

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks the preconditions the control loop relies on.
func (c *Config) Validate() error {
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("%w: calibration: %w", ErrInvalidConfig, err)
	}
	if c.Sensor.Samples < 1 {
		return fmt.Errorf("%w: sensor.samples must be at least 1", ErrInvalidConfig)
	}
	if c.Sensor.PulseTimeout <= 0 {
		return fmt.Errorf("%w: sensor.pulse_timeout must be positive", ErrInvalidConfig)
	}
	if c.Control.Interval < 0 || c.Control.Hold < 0 || c.Telemetry.Heartbeat <= 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.Control.RGBDelta < 1 || c.Telemetry.RGBDelta < 1 {
		return fmt.Errorf("%w: rgb_delta must be at least 1", ErrInvalidConfig)
	}
	if c.Control.FullScaleLux <= 0 || c.Control.MinBrightness < 0 || c.Control.MinBrightness > 1 {
		return fmt.Errorf("%w: brightness scaling out of range", ErrInvalidConfig)
	}
	if c.Database.Retention < 0 {
		return fmt.Errorf("%w: database.retention must not be negative", ErrInvalidConfig)
	}
	switch c.Actuator.Driver {
	case "gpio":
	case "lifx":
		if c.Actuator.LIFX.Address == "" {
			return fmt.Errorf("%w: actuator.lifx.address is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown actuator driver %q", ErrInvalidConfig, c.Actuator.Driver)
	}
	return nil
}

func (c *Config) SamplerConfig() sensor.SamplerConfig {
	return sensor.SamplerConfig{
		Samples:      c.Sensor.Samples,
		PulseTimeout: c.Sensor.PulseTimeout.Duration(),
		SettleDelay:  c.Sensor.SettleDelay.Duration(),
		SampleGap:    c.Sensor.SampleGap.Duration(),
	}
}

func (c *Config) ActuatorConfig() actuator.Config {
	return actuator.Config{
		Delta: c.Control.RGBDelta,
		Hold:  c.Control.Hold.Duration(),
	}
}

func (c *Config) ControlConfig() control.Config {
	return control.Config{
		Interval:    c.Control.Interval.Duration(),
		Calibration: c.Calibration,
		Scaler: color.Scaler{
			FullScaleLux: c.Control.FullScaleLux,
			Floor:        c.Control.MinBrightness,
		},
		Gate: telemetry.GateConfig{
			Heartbeat:   c.Telemetry.Heartbeat.Duration(),
			RGBDelta:    c.Telemetry.RGBDelta,
			LuxDeltaAbs: c.Telemetry.LuxDeltaAbs,
			LuxDeltaRel: c.Telemetry.LuxDeltaRel,
		},
	}
}

// Addr returns host:port for the HTTP server.
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setString(s *string, def string) {
	if *s == "" {
		*s = def
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
