// Package config loads the daemon configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FERMENTER_CONTROL_BAND.
const EnvPrefix = "FERMENTER"

type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	DB        DB        `mapstructure:"db"`
	Control   Control   `mapstructure:"control"`
	Sensors   []Sensor  `mapstructure:"sensors"`
	Sensor    SensorBus `mapstructure:"sensor"`
	Relay     Relay     `mapstructure:"relay"`
	LogSink   LogSink   `mapstructure:"logsink"`
	MQTT      MQTT      `mapstructure:"mqtt"`
	Retention Retention `mapstructure:"retention"`
	Auth      Auth      `mapstructure:"auth"`
}

type DB struct {
	Path string `mapstructure:"path"`
}

type Control struct {
	Tick                    time.Duration `mapstructure:"tick"`
	Band                    float64       `mapstructure:"band"`
	MaxSensorFaults         int           `mapstructure:"max_sensor_faults"`
	MaxActuatorFaults       int           `mapstructure:"max_actuator_faults"`
	IOTimeout               time.Duration `mapstructure:"io_timeout"`
	AllowUnboundedLastLevel bool          `mapstructure:"allow_unbounded_last_level"`
	MinTargetC              float64       `mapstructure:"min_target_c"`
	MaxTargetC              float64       `mapstructure:"max_target_c"`
	DiscardIdleReadings     bool          `mapstructure:"discard_idle_readings"`
}

// Sensor is one 1-wire probe. The first configured sensor drives control.
type Sensor struct {
	ID     string  `mapstructure:"id"`
	Offset float64 `mapstructure:"offset"`
}

type SensorBus struct {
	BaseDir string `mapstructure:"base_dir"`
}

// Relay drivers.
const (
	RelayGPIO = "gpio"
	RelaySim  = "sim"
	RelayFake = "fake"
)

type Relay struct {
	Driver    string `mapstructure:"driver"`
	Chip      string `mapstructure:"chip"`
	Line      int    `mapstructure:"line"`
	ActiveLow bool   `mapstructure:"active_low"`
}

type LogSink struct {
	Buffer       int           `mapstructure:"buffer"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// MQTT telemetry is disabled while Broker is empty.
type MQTT struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// Retention pruning is disabled while Schedule is empty.
type Retention struct {
	Schedule string        `mapstructure:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

type Auth struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "fermenter.db")

	v.SetDefault("control.tick", 10*time.Second)
	v.SetDefault("control.band", 0.4)
	v.SetDefault("control.max_sensor_faults", 5)
	v.SetDefault("control.max_actuator_faults", 3)
	v.SetDefault("control.io_timeout", 3*time.Second)
	v.SetDefault("control.allow_unbounded_last_level", false)
	v.SetDefault("control.min_target_c", 0.0)
	v.SetDefault("control.max_target_c", 100.0)
	v.SetDefault("control.discard_idle_readings", false)

	v.SetDefault("sensor.base_dir", "/sys/bus/w1/devices")

	v.SetDefault("relay.driver", RelayGPIO)
	v.SetDefault("relay.chip", "gpiochip0")
	v.SetDefault("relay.line", 21)
	v.SetDefault("relay.active_low", true)

	v.SetDefault("logsink.buffer", 256)
	v.SetDefault("logsink.max_retries", 3)
	v.SetDefault("logsink.retry_backoff", 200*time.Millisecond)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "fermenter")
	v.SetDefault("mqtt.topic_prefix", "fermenter")

	v.SetDefault("retention.schedule", "")
	v.SetDefault("retention.max_age", 720*time.Hour)

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
}

// Load reads path, or configs/config.yml when path is empty, applies
// FERMENTER_* overrides and validates the result. A missing default file
// is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the control loop cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Control.Tick <= 0 {
		errs = append(errs, errors.New("control.tick must be positive"))
	}
	if c.Control.Band <= 0 {
		errs = append(errs, errors.New("control.band must be positive"))
	}
	if c.Control.MaxSensorFaults < 1 {
		errs = append(errs, errors.New("control.max_sensor_faults must be at least 1"))
	}
	if c.Control.MaxActuatorFaults < 1 {
		errs = append(errs, errors.New("control.max_actuator_faults must be at least 1"))
	}
	if c.Control.IOTimeout <= 0 {
		errs = append(errs, errors.New("control.io_timeout must be positive"))
	}
	if c.Control.MinTargetC >= c.Control.MaxTargetC {
		errs = append(errs, errors.New("control.min_target_c must be below control.max_target_c"))
	}
	if len(c.Sensors) == 0 {
		errs = append(errs, errors.New("at least one sensor is required"))
	}
	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if strings.TrimSpace(s.ID) == "" {
			errs = append(errs, fmt.Errorf("sensors[%d]: empty id", i))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("sensors[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
	}
	switch c.Relay.Driver {
	case RelayGPIO, RelaySim, RelayFake:
	default:
		errs = append(errs, fmt.Errorf("relay.driver %q: want gpio, sim or fake", c.Relay.Driver))
	}
	if c.LogSink.Buffer < 1 {
		errs = append(errs, errors.New("logsink.buffer must be at least 1"))
	}
	if c.LogSink.MaxRetries < 0 {
		errs = append(errs, errors.New("logsink.max_retries must not be negative"))
	}
	if c.Retention.Schedule != "" && c.Retention.MaxAge <= 0 {
		errs = append(errs, errors.New("retention.max_age must be positive when a schedule is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SensorIDs returns the configured probe ids in order.
func (c *Config) SensorIDs() []string {
	ids := make([]string, len(c.Sensors))
	for i, s := range c.Sensors {
		ids[i] = s.ID
	}
	return ids
}

// Calibration returns per-sensor offsets keyed by id.
func (c *Config) Calibration() map[string]float64 {
	cal := make(map[string]float64, len(c.Sensors))
	for _, s := range c.Sensors {
		if s.Offset != 0 {
			cal[s.ID] = s.Offset
		}
	}
	return cal
}
