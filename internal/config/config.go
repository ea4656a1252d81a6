// Package config loads the device configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/garden-controller/internal/gpio"
	"github.com/sweeney/garden-controller/internal/logic"
)

// DefaultPath is where the daemon looks for its config file.
const DefaultPath = "/etc/garden-controller/config.yaml"

// IIOSource names a kernel IIO channel. An empty Device means the sensor is
// not fitted.
type IIOSource struct {
	Device string  `yaml:"device"`
	File   string  `yaml:"file"`
	Scale  float64 `yaml:"scale"`
}

// Fitted reports whether the source is configured.
func (s IIOSource) Fitted() bool {
	return s.Device != "" && s.File != ""
}

// Config is the device configuration.
type Config struct {
	Device struct {
		Name string `yaml:"name"`
	} `yaml:"device"`

	MQTT struct {
		Broker           string `yaml:"broker"`
		AccessToken      string `yaml:"access_token"`
		ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
		RetryIntervalMs  int    `yaml:"retry_interval_ms"`
		StartupTimeoutMs int    `yaml:"startup_timeout_ms"`
	} `yaml:"mqtt"`

	GPIO struct {
		Chip           string `yaml:"chip"`
		LightPin       int    `yaml:"light_pin"`
		ValvePin       int    `yaml:"valve_pin"`
		ButtonPin      int    `yaml:"button_pin"`
		MotionPin      int    `yaml:"motion_pin"`
		RelayActiveLow bool   `yaml:"relay_active_low"`
		MotionEnabled  bool   `yaml:"motion_enabled"`
	} `yaml:"gpio"`

	Sensors struct {
		Temperature IIOSource `yaml:"temperature"`
		Humidity    IIOSource `yaml:"humidity"`
		Lux         IIOSource `yaml:"lux"`
		AirQuality  IIOSource `yaml:"air_quality"`
		Soil        IIOSource `yaml:"soil"`
	} `yaml:"sensors"`

	Policies struct {
		Light    string `yaml:"light"`
		Watering string `yaml:"watering"`
	} `yaml:"policies"`

	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Timing struct {
		CycleMs    int `yaml:"cycle_ms"`
		DebounceMs int `yaml:"debounce_ms"`
	} `yaml:"timing"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	var c Config
	c.Device.Name = "garden"
	c.MQTT.Broker = "tcp://localhost:1883"
	c.MQTT.ConnectTimeoutMs = 5000
	c.MQTT.RetryIntervalMs = 5000
	c.MQTT.StartupTimeoutMs = 30000
	c.GPIO.Chip = gpio.DefaultChip
	c.GPIO.LightPin = gpio.DefaultPinLightRelay
	c.GPIO.ValvePin = gpio.DefaultPinValveRelay
	c.GPIO.ButtonPin = gpio.DefaultPinButton
	c.GPIO.MotionPin = gpio.DefaultPinMotion
	c.Policies.Light = string(logic.LightPolicyRemote)
	c.Policies.Watering = string(logic.WateringPolicyRemote)
	c.Store.Path = "/var/lib/garden-controller/state.db"
	c.HTTP.Addr = ":8080"
	c.Timing.CycleMs = 50
	c.Timing.DebounceMs = int(logic.DefaultDebounce.Milliseconds())
	c.Logging.Level = "info"
	return &c
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Device.Name == "" {
		errs = append(errs, errors.New("device.name is required"))
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	switch logic.LightPolicyName(c.Policies.Light) {
	case logic.LightPolicyAuto, logic.LightPolicyRemote:
	default:
		errs = append(errs, fmt.Errorf("policies.light: unknown policy %q", c.Policies.Light))
	}
	switch logic.WateringPolicyName(c.Policies.Watering) {
	case logic.WateringPolicyRemote, logic.WateringPolicyTimer, logic.WateringPolicyMoisture:
	default:
		errs = append(errs, fmt.Errorf("policies.watering: unknown policy %q", c.Policies.Watering))
	}
	if c.Timing.CycleMs <= 0 {
		errs = append(errs, errors.New("timing.cycle_ms must be positive"))
	}
	if c.Timing.DebounceMs < 0 {
		errs = append(errs, errors.New("timing.debounce_ms must not be negative"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	return errors.Join(errs...)
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// CyclePeriod is the control loop period.
func (c *Config) CyclePeriod() time.Duration { return ms(c.Timing.CycleMs) }

// Debounce is the button settle window.
func (c *Config) Debounce() time.Duration { return ms(c.Timing.DebounceMs) }

// ConnectTimeout bounds one broker connect attempt.
func (c *Config) ConnectTimeout() time.Duration { return ms(c.MQTT.ConnectTimeoutMs) }

// RetryInterval is the minimum time between reconnect attempts.
func (c *Config) RetryInterval() time.Duration { return ms(c.MQTT.RetryIntervalMs) }

// StartupTimeout bounds the initial connect phase.
func (c *Config) StartupTimeout() time.Duration { return ms(c.MQTT.StartupTimeoutMs) }
