package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/denwilliams/go-ambient-match/internal/color"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("MQTT_URI", "")
	t.Setenv("MQTT_TOPIC_PREFIX", "")
	t.Setenv("PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MQTT.URI != "tcp://test.mosquitto.org:1883" || cfg.MQTT.TopicPrefix != "ambient" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.Calibration != color.DefaultCalibration {
		t.Errorf("calibration = %+v", cfg.Calibration)
	}
	if cfg.Control.Hold.Duration() != time.Second || cfg.Control.Interval.Duration() != 250*time.Millisecond {
		t.Errorf("control = %+v", cfg.Control)
	}
	if cfg.Telemetry.Heartbeat.Duration() != 10*time.Second || cfg.Telemetry.LuxDeltaRel != 0.10 {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
	if cfg.HTTP.Port != 0 {
		t.Errorf("http port = %d, want disabled", cfg.HTTP.Port)
	}
	if cfg.MQTT.TopicPrefix != "ambient" {
		t.Errorf("topic prefix = %s", cfg.MQTT.TopicPrefix)
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("MQTT_URI", "tcp://broker:1883")
	t.Setenv("MQTT_TOPIC_PREFIX", "kitchen")
	t.Setenv("PORT", "8080")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MQTT.URI != "tcp://broker:1883" || cfg.MQTT.TopicPrefix != "kitchen" || cfg.HTTP.Port != 8080 {
		t.Errorf("cfg = %+v %+v", cfg.MQTT, cfg.HTTP)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("AMBIENT_BROKER", "tcp://10.0.0.2:1883")
	path := writeConfig(t, `
mqtt:
  uri: ${AMBIENT_BROKER}
  topic_prefix: ${AMBIENT_PREFIX_UNSET:lab}
calibration:
  red: {min: 100, max: 3000}
  green: {min: 150, max: 2800}
  blue: {min: 120, max: 2600}
control:
  hold: 2s
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MQTT.URI != "tcp://10.0.0.2:1883" || cfg.MQTT.TopicPrefix != "lab" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.Calibration.Green != (color.Bounds{Min: 150, Max: 2800}) {
		t.Errorf("calibration = %+v", cfg.Calibration)
	}
	if cfg.ActuatorConfig().Hold != 2*time.Second {
		t.Errorf("hold = %v", cfg.ActuatorConfig().Hold)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %s", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "degenerate_calibration",
			body: "calibration:\n  red: {min: 200, max: 200}\n  green: {min: 200, max: 2500}\n  blue: {min: 200, max: 2500}\n",
		},
		{
			name: "partial_calibration",
			body: "calibration:\n  red: {min: 200, max: 2500}\n",
		},
		{
			name: "unknown_driver",
			body: "actuator:\n  driver: dmx\n",
		},
		{
			name: "lifx_without_address",
			body: "actuator:\n  driver: lifx\n",
		},
		{
			name: "negative_samples",
			body: "sensor:\n  samples: -1\n",
		},
		{
			name: "negative_retention",
			body: "database:\n  retention: -1h\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadDegenerateCalibrationWrapsBoundsError(t *testing.T) {
	_, err := Load(writeConfig(t, "calibration:\n  red: {min: 900, max: 100}\n  green: {min: 200, max: 2500}\n  blue: {min: 200, max: 2500}\n"))
	if !errors.Is(err, color.ErrInvalidBounds) {
		t.Errorf("Load() error = %v, want ErrInvalidBounds", err)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	if _, err := Load(writeConfig(t, "control:\n  hold: soon\n")); err == nil {
		t.Error("Load() accepted an invalid duration")
	}
}
