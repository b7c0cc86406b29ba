package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	// Create a real configs/ directory so filepath.Abs resolves correctly.
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateConfigPath(path); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"configs/../../../etc/shadow",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default.txt",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_NotInConfigsDir(t *testing.T) {
	cases := []string{
		"other/default.yaml",
		"default.yaml",
		"/tmp/default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for path outside configs/ %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}

func TestValidateConfigPath_VeryLongPath(t *testing.T) {
	long := "configs/" + strings.Repeat("a", 1000) + ".yaml"
	// Should not panic; error or success is OS-dependent, but must not crash.
	_ = ValidateConfigPath(long)
}

func TestValidateConfigPath_SpecialChars(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		wantErr bool
	}{
		{"con fig.yaml", false},
		{"café.yaml", false},
	}
	for _, tc := range cases {
		path := filepath.Join(cfgDir, tc.name)
		err := ValidateConfigPath(path)
		if tc.wantErr && err == nil {
			t.Errorf("expected error for %q, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("unexpected error for %q: %v", tc.name, err)
		}
	}
}

func TestValidateConfigPath_DoubleTraversal(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Try to escape via ../../configs/ok.yaml; filepath.Clean resolves this
	// and the parent must still be "configs".
	path := filepath.Join(cfgDir, "../../configs/ok.yaml")
	err := ValidateConfigPath(path)
	// After Clean the parent may or may not be "configs" depending on resolution.
	// The important thing is it either succeeds with a valid parent or fails.
	_ = err
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
pan_servo:
  channel: 0
  actuation_range_deg: 180
  min_pulse_us: 500
  max_pulse_us: 2500
  start_angle_deg: 10
  end_angle_deg: 170
tilt_servo:
  channel: 1
  min_pulse_us: 600
  max_pulse_us: 2400
  start_angle_deg: 30
  end_angle_deg: 150
  initial_angle_deg: 60
pan_pid:
  kp: 40
  ki: 2
  kd: 1.5
  min_i: -5
  max_i: 5
tilt_pid:
  kp: -30
tracking:
  target_x: 0.5
  target_y: 0.4
  loop_rate_hz: 25
actuator:
  type: pca9685
  i2c_bus: "1"
  i2c_address: 0x41
  frequency_hz: 60
  output_enable_pin: 22
detection:
  source: web
defaults:
  debug_level: 2
  mock_gpio: true
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PanServo.Channel != 0 || cfg.TiltServo.Channel != 1 {
		t.Errorf("channels = (%d, %d), want (0, 1)", cfg.PanServo.Channel, cfg.TiltServo.Channel)
	}
	if cfg.TiltServo.MinPulseUs != 600 || cfg.TiltServo.MaxPulseUs != 2400 {
		t.Errorf("tilt pulses = %d-%d, want 600-2400", cfg.TiltServo.MinPulseUs, cfg.TiltServo.MaxPulseUs)
	}
	if cfg.TiltServo.StartAngle() != 30 || cfg.TiltServo.EndAngle() != 150 {
		t.Errorf("tilt bounds = [%v, %v], want [30, 150]", cfg.TiltServo.StartAngle(), cfg.TiltServo.EndAngle())
	}
	if cfg.TiltServo.InitialAngleDeg == nil || *cfg.TiltServo.InitialAngleDeg != 60 {
		t.Errorf("tilt initial angle = %v, want 60", cfg.TiltServo.InitialAngleDeg)
	}
	if cfg.PanPID.Kp != 40 || cfg.PanPID.Ki != 2 || cfg.PanPID.Kd != 1.5 {
		t.Errorf("pan pid = %+v", cfg.PanPID)
	}
	if *cfg.PanPID.MinI != -5 || *cfg.PanPID.MaxI != 5 {
		t.Errorf("pan integral bounds = [%v, %v], want [-5, 5]", *cfg.PanPID.MinI, *cfg.PanPID.MaxI)
	}
	if cfg.TiltPID.Kp != -30 {
		t.Errorf("tilt kp = %v, want -30", cfg.TiltPID.Kp)
	}
	if x, y := cfg.Target(); x != 0.5 || y != 0.4 {
		t.Errorf("target = (%v, %v), want (0.5, 0.4)", x, y)
	}
	if cfg.Actuator.I2CAddress != 0x41 {
		t.Errorf("i2c_address = 0x%x, want 0x41", cfg.Actuator.I2CAddress)
	}
	if cfg.Actuator.FrequencyHz != 60 || cfg.Actuator.OutputEnablePin != 22 {
		t.Errorf("actuator = %+v", cfg.Actuator)
	}
	if cfg.Defaults.DebugLevel != 2 || !cfg.Defaults.MockGPIO {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	path := writeConfig(t, "defaults:\n  mock_gpio: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name, s := range map[string]ServoConfig{"pan": cfg.PanServo, "tilt": cfg.TiltServo} {
		if s.ActuationRangeDeg != 180 || s.MinPulseUs != 500 || s.MaxPulseUs != 2500 {
			t.Errorf("%s servo defaults = %+v", name, s)
		}
		if s.StartAngle() != 10 || s.EndAngle() != 170 {
			t.Errorf("%s bounds = [%v, %v], want [10, 170]", name, s.StartAngle(), s.EndAngle())
		}
		if s.InitialAngleDeg != nil {
			t.Errorf("%s initial angle should stay unset", name)
		}
	}
	if cfg.PanServo.Channel != 0 || cfg.TiltServo.Channel != 1 {
		t.Errorf("default channels = (%d, %d), want (0, 1)", cfg.PanServo.Channel, cfg.TiltServo.Channel)
	}
	if *cfg.PanPID.MinI != -10 || *cfg.PanPID.MaxI != 10 {
		t.Errorf("integral bounds = [%v, %v], want [-10, 10]", *cfg.PanPID.MinI, *cfg.PanPID.MaxI)
	}
	if x, y := cfg.Target(); x != 0.5 || y != 0.3 {
		t.Errorf("target = (%v, %v), want (0.5, 0.3)", x, y)
	}
	if cfg.Tracking.LoopRateHz != 30 {
		t.Errorf("loop_rate_hz = %v, want 30", cfg.Tracking.LoopRateHz)
	}
	if cfg.Actuator.Type != ActuatorPCA9685 || cfg.Actuator.I2CAddress != 0x40 || cfg.Actuator.FrequencyHz != 50 {
		t.Errorf("actuator defaults = %+v", cfg.Actuator)
	}
	if cfg.Actuator.BaudRate != 115200 {
		t.Errorf("baud_rate = %d, want 115200", cfg.Actuator.BaudRate)
	}
	if cfg.Detection.Source != SourceWeb {
		t.Errorf("detection.source = %q, want %q", cfg.Detection.Source, SourceWeb)
	}
}

func TestLoad_ZeroAngleBoundKept(t *testing.T) {
	yaml := `
pan_servo:
  start_angle_deg: 0
  end_angle_deg: 180
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PanServo.StartAngle() != 0 || cfg.PanServo.EndAngle() != 180 {
		t.Errorf("pan bounds = [%v, %v], want [0, 180]", cfg.PanServo.StartAngle(), cfg.PanServo.EndAngle())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"start_after_end", "pan_servo:\n  start_angle_deg: 120\n  end_angle_deg: 60\n"},
		{"pulse_inverted", "tilt_servo:\n  min_pulse_us: 2500\n  max_pulse_us: 500\n"},
		{"bound_beyond_travel", "pan_servo:\n  actuation_range_deg: 90\n"},
		{"negative_channel", "tilt_servo:\n  channel: -1\n"},
		{"integral_inverted", "pan_pid:\n  min_i: 5\n  max_i: -5\n"},
		{"target_outside_frame", "tracking:\n  target_x: 1.5\n"},
		{"negative_rate", "tracking:\n  loop_rate_hz: -1\n"},
		{"unknown_actuator", "actuator:\n  type: stepper\n"},
		{"ssc32_without_port", "actuator:\n  type: ssc32\n"},
		{"oe_pin_without_pca", "actuator:\n  type: mock\n  output_enable_pin: 22\n"},
		{"unknown_source", "detection:\n  source: webcam\n"},
		{"replay_without_path", "detection:\n  source: replay\n"},
		{"debug_level_too_high", "defaults:\n  debug_level: 9\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad_ValidActuators(t *testing.T) {
	cases := []string{
		"actuator:\n  type: rpio_pwm\n",
		"actuator:\n  type: ssc32\n  serial_port: /dev/ttyUSB0\n",
		"actuator:\n  type: mock\n",
		"actuator:\n  type: none\n",
		"detection:\n  source: replay\n  replay_path: session.jsonl\n",
	}
	for _, yaml := range cases {
		if _, err := Load(writeConfig(t, yaml)); err != nil {
			t.Errorf("unexpected error for %q: %v", yaml, err)
		}
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "big.yaml")
	data := make([]byte, MaxConfigFileBytes+1)
	for i := range data {
		data[i] = '#'
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	yaml := `
actuator:
  type: mock
unknown_section:
  foo: bar
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "nonexistent.yaml")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

func TestLoad_RejectsPathOutsideConfigs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for config outside configs/, got nil")
	}
}

func TestConfig_LoopInterval(t *testing.T) {
	x, y := 0.5, 0.5
	cfg := &Config{Tracking: TrackingConfig{TargetX: &x, TargetY: &y, LoopRateHz: 20}}
	if got := cfg.LoopInterval(); got != 50*time.Millisecond {
		t.Errorf("LoopInterval() = %v, want 50ms", got)
	}
}

func TestParse_RoundTripsTarget(t *testing.T) {
	cfg, err := Parse([]byte(fmt.Sprintf("tracking:\n  target_x: %g\n  target_y: %g\n", 0.25, 0.75)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if x, y := cfg.Target(); x != 0.25 || y != 0.75 {
		t.Errorf("target = (%v, %v), want (0.25, 0.75)", x, y)
	}
	if strings.TrimSpace(cfg.Actuator.Type) == "" {
		t.Error("actuator type should be defaulted")
	}
}
