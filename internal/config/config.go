package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Actuator types.
const (
	ActuatorPCA9685 = "pca9685"  // PCA9685 board over I2C
	ActuatorRPiPWM  = "rpio_pwm" // Raspberry Pi hardware PWM pins
	ActuatorSSC32   = "ssc32"    // serial servo controller
	ActuatorMock    = "mock"     // logs pulses, no hardware
	ActuatorNone    = "none"     // no assembly at all, offsets are computed only
)

// Detection sources.
const (
	SourceWeb    = "web"    // detector POSTs to /detection
	SourceReplay = "replay" // JSON lines file
)

// ServoConfig describes one servo axis.
type ServoConfig struct {
	Channel           int      `yaml:"channel"`             // PCA9685/SSC-32 channel, or BCM pin for rpio_pwm
	ActuationRangeDeg float64  `yaml:"actuation_range_deg"` // full servo travel (default: 180°)
	MinPulseUs        int      `yaml:"min_pulse_us"`        // pulse at 0° (default: 500µs)
	MaxPulseUs        int      `yaml:"max_pulse_us"`        // pulse at full travel (default: 2500µs)
	StartAngleDeg     *float64 `yaml:"start_angle_deg"`     // lower bound (default: 10°)
	EndAngleDeg       *float64 `yaml:"end_angle_deg"`       // upper bound (default: 170°)
	InitialAngleDeg   *float64 `yaml:"initial_angle_deg"`   // optional, midpoint if unset
}

// PIDConfig holds the gains of one axis.
type PIDConfig struct {
	Kp   float64  `yaml:"kp"`
	Ki   float64  `yaml:"ki"`
	Kd   float64  `yaml:"kd"`
	MinI *float64 `yaml:"min_i"` // default: -10
	MaxI *float64 `yaml:"max_i"` // default: 10
}

// TrackingConfig holds the set-point and the loop pacing.
type TrackingConfig struct {
	TargetX    *float64 `yaml:"target_x"`     // normalized (default: 0.5)
	TargetY    *float64 `yaml:"target_y"`     // normalized (default: 0.3)
	LoopRateHz float64  `yaml:"loop_rate_hz"` // tracking cycles per second (default: 30)
}

// ActuatorConfig selects and configures the servo transport.
type ActuatorConfig struct {
	Type            string `yaml:"type"`              // pca9685, rpio_pwm, ssc32, mock, none
	I2CBus          string `yaml:"i2c_bus"`           // "" = first bus
	I2CAddress      uint16 `yaml:"i2c_address"`       // default: 0x40
	FrequencyHz     int    `yaml:"frequency_hz"`      // PWM frequency (default: 50Hz)
	OutputEnablePin int    `yaml:"output_enable_pin"` // PCA9685 OE (BCM). 0 = not wired. Active LOW.
	SerialPort      string `yaml:"serial_port"`       // ssc32 only
	BaudRate        int    `yaml:"baud_rate"`         // ssc32 only (default: 115200)
}

// DetectionConfig selects where detections come from.
type DetectionConfig struct {
	Source     string `yaml:"source"`      // web or replay (default: web)
	ReplayPath string `yaml:"replay_path"` // replay only
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	PanServo  ServoConfig     `yaml:"pan_servo"`
	TiltServo ServoConfig     `yaml:"tilt_servo"`
	PanPID    PIDConfig       `yaml:"pan_pid"`
	TiltPID   PIDConfig       `yaml:"tilt_pid"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Actuator  ActuatorConfig  `yaml:"actuator"`
	Detection DetectionConfig `yaml:"detection"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files inside a configs/ directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "..") {
		return fmt.Errorf("config path must not contain '..': %s", path)
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension: %s", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config file must be in a configs/ directory: %s", path)
	}
	return nil
}

// MaxConfigFileBytes bounds the size of a config file.
const MaxConfigFileBytes = 1 << 20

// Load validates the path, reads the YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Default wiring: pan on channel 0, tilt on channel 1.
	if err := applyServoDefaults("pan_servo", &cfg.PanServo); err != nil {
		return nil, err
	}
	if err := applyServoDefaults("tilt_servo", &cfg.TiltServo); err != nil {
		return nil, err
	}
	if err := applyPIDDefaults("pan_pid", &cfg.PanPID); err != nil {
		return nil, err
	}
	if err := applyPIDDefaults("tilt_pid", &cfg.TiltPID); err != nil {
		return nil, err
	}

	// Tracking
	if cfg.Tracking.TargetX == nil {
		cfg.Tracking.TargetX = ptr(0.5)
	}
	if cfg.Tracking.TargetY == nil {
		cfg.Tracking.TargetY = ptr(0.3) // faces sit in the upper third of the frame
	}
	if err := checkNormalized("target_x", *cfg.Tracking.TargetX); err != nil {
		return nil, err
	}
	if err := checkNormalized("target_y", *cfg.Tracking.TargetY); err != nil {
		return nil, err
	}
	if cfg.Tracking.LoopRateHz < 0 || cfg.Tracking.LoopRateHz > 1000 {
		return nil, fmt.Errorf("tracking.loop_rate_hz must be between 0 and 1000, got %g", cfg.Tracking.LoopRateHz)
	}
	if cfg.Tracking.LoopRateHz == 0 {
		cfg.Tracking.LoopRateHz = 30
	}

	// Actuator
	if cfg.Actuator.Type == "" {
		cfg.Actuator.Type = ActuatorPCA9685
	}
	switch cfg.Actuator.Type {
	case ActuatorPCA9685, ActuatorRPiPWM, ActuatorMock, ActuatorNone:
	case ActuatorSSC32:
		if cfg.Actuator.SerialPort == "" {
			return nil, fmt.Errorf("actuator.serial_port is required for %s", ActuatorSSC32)
		}
	default:
		return nil, fmt.Errorf("unsupported actuator type: %s", cfg.Actuator.Type)
	}
	if cfg.Actuator.OutputEnablePin != 0 && cfg.Actuator.Type != ActuatorPCA9685 {
		return nil, fmt.Errorf("actuator.output_enable_pin is only used with %s", ActuatorPCA9685)
	}
	if cfg.Actuator.I2CAddress == 0 {
		cfg.Actuator.I2CAddress = 0x40
	}
	if cfg.Actuator.FrequencyHz <= 0 {
		cfg.Actuator.FrequencyHz = 50
	}
	if cfg.Actuator.BaudRate <= 0 {
		cfg.Actuator.BaudRate = 115200
	}

	// Detection
	if cfg.Detection.Source == "" {
		cfg.Detection.Source = SourceWeb
	}
	switch cfg.Detection.Source {
	case SourceWeb:
	case SourceReplay:
		if cfg.Detection.ReplayPath == "" {
			return nil, fmt.Errorf("detection.replay_path is required for %s", SourceReplay)
		}
	default:
		return nil, fmt.Errorf("unsupported detection source: %s", cfg.Detection.Source)
	}

	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

func applyServoDefaults(name string, s *ServoConfig) error {
	if s.ActuationRangeDeg <= 0 {
		s.ActuationRangeDeg = 180
	}
	if s.MinPulseUs <= 0 {
		s.MinPulseUs = 500
	}
	if s.MaxPulseUs <= 0 {
		s.MaxPulseUs = 2500
	}
	if s.StartAngleDeg == nil {
		s.StartAngleDeg = ptr(10)
	}
	if s.EndAngleDeg == nil {
		s.EndAngleDeg = ptr(170)
	}

	if s.Channel < 0 {
		return fmt.Errorf("%s.channel must be >= 0, got %d", name, s.Channel)
	}
	if s.MinPulseUs >= s.MaxPulseUs {
		return fmt.Errorf("%s: min_pulse_us (%d) must be < max_pulse_us (%d)", name, s.MinPulseUs, s.MaxPulseUs)
	}
	if *s.StartAngleDeg > *s.EndAngleDeg {
		return fmt.Errorf("%s: start_angle_deg (%g) must be <= end_angle_deg (%g)", name, *s.StartAngleDeg, *s.EndAngleDeg)
	}
	if *s.StartAngleDeg < 0 || *s.EndAngleDeg > s.ActuationRangeDeg {
		return fmt.Errorf("%s: angle bounds must lie within [0, %g]", name, s.ActuationRangeDeg)
	}
	return nil
}

func applyPIDDefaults(name string, p *PIDConfig) error {
	if p.MinI == nil {
		p.MinI = ptr(-10)
	}
	if p.MaxI == nil {
		p.MaxI = ptr(10)
	}
	if *p.MinI > *p.MaxI {
		return fmt.Errorf("%s: min_i (%g) must be <= max_i (%g)", name, *p.MinI, *p.MaxI)
	}
	return nil
}

func checkNormalized(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("tracking.%s must be between 0 and 1, got %g", name, v)
	}
	return nil
}

func ptr(v float64) *float64 { return &v }

// LoopInterval returns the time between two tracking cycles.
func (c *Config) LoopInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Tracking.LoopRateHz)
}

// Target returns the normalized set-point.
func (c *Config) Target() (x, y float64) {
	return *c.Tracking.TargetX, *c.Tracking.TargetY
}

// StartAngle returns the lower angle bound of s.
func (s ServoConfig) StartAngle() float64 { return *s.StartAngleDeg }

// EndAngle returns the upper angle bound of s.
func (s ServoConfig) EndAngle() float64 { return *s.EndAngleDeg }
