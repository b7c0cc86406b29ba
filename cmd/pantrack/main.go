package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/PanTrack/internal/config"
	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/cjeanneret/PanTrack/internal/detect"
	"github.com/cjeanneret/PanTrack/internal/hw/gpio"
	"github.com/cjeanneret/PanTrack/internal/hw/servo"
	"github.com/cjeanneret/PanTrack/internal/logic/geometry"
	"github.com/cjeanneret/PanTrack/internal/logic/motion"
	"github.com/cjeanneret/PanTrack/internal/logic/pid"
	"github.com/cjeanneret/PanTrack/internal/logic/session"
	"github.com/cjeanneret/PanTrack/internal/logic/tracking"
	"github.com/cjeanneret/PanTrack/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	sweep := flag.Bool("sweep", false, "sweep both axes across their range and exit")
	replayPath := flag.String("replay", "", "read detections from a JSON lines file instead of POST /detection")
	dryRun := flag.Bool("dry-run", false, "compute offsets without driving any servo")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	applyFlags(cfg, *replayPath, *dryRun)
	if *sweep && cfg.Actuator.Type == config.ActuatorNone {
		log.Fatalf("-sweep needs a servo actuator, got %q", cfg.Actuator.Type)
	}
	if cfg.Detection.Source == config.SourceWeb && webPort.port() == 0 && !*sweep {
		// The mailbox is only reachable through the web server.
		webPort.val = webPort.defaultPort
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Actuator", cfg.Actuator.Type)
	debug.Value("Detection source", cfg.Detection.Source)

	var broadcaster *web.StatusBroadcaster
	if webPort.port() > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}

	// Servo assembly
	hw, err := newHardware(cfg)
	if err != nil {
		log.Fatalf("init servos failed: %v", err)
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.Printf("closing hardware failed: %v", err)
		}
	}()

	if *sweep {
		if err := session.NewSweep(hw.motion).Run(ctx, session.DefaultSweepParams()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sweep failed: %v", err)
		}
		return
	}

	// Tracking controller
	var opts []tracking.Option
	if hw.motion != nil {
		opts = append(opts, tracking.WithMotion(hw.motion))
	}
	ctrl, err := tracking.NewController(trackingConfig(cfg), opts...)
	if err != nil {
		log.Fatalf("init tracking controller failed: %v", err)
	}
	tx, ty := cfg.Target()
	debug.Info("Target point: (%.3f, %.3f), loop at %gHz", tx, ty, cfg.Tracking.LoopRateHz)

	// Detection source
	var mailbox *detect.Mailbox
	if cfg.Detection.Source == config.SourceWeb {
		mailbox = detect.NewMailbox()
	}
	source, closeSource, err := newSource(cfg, mailbox)
	if err != nil {
		log.Fatalf("open detection source failed: %v", err)
	}
	defer closeSource()

	var sink session.TelemetrySink
	webDone := make(chan struct{})
	if port := webPort.port(); port > 0 {
		store := web.NewTelemetryStore(broadcaster)
		sink = store
		srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, mailbox, store, viewConfig(cfg, hw.motion == nil))
		go func() {
			defer close(webDone)
			if err := srv.Run(ctx); err != nil {
				log.Printf("web server: %v", err)
				cancel()
			}
		}()
	} else {
		close(webDone)
	}

	loop := session.NewLoop(ctrl, source, sink)
	if err := loop.Run(ctx, session.Params{Interval: cfg.LoopInterval()}); err != nil {
		log.Printf("tracking stopped: %v", err)
		cancel()
	}
	debug.Section("Tracking stopped")

	// After a replay ends the page keeps showing the last telemetry until interrupted.
	<-webDone
}

// applyFlags lets -replay and -dry-run override the config file.
func applyFlags(cfg *config.Config, replayPath string, dryRun bool) {
	if replayPath != "" {
		cfg.Detection.Source = config.SourceReplay
		cfg.Detection.ReplayPath = replayPath
	}
	if dryRun {
		cfg.Actuator.Type = config.ActuatorNone
		cfg.Actuator.OutputEnablePin = 0
	}
}

// hardware bundles what must be released on exit, in reverse order of creation.
type hardware struct {
	gpio   gpio.Driver        // nil unless an OE line is wired
	motion *motion.Controller // nil for ActuatorNone
}

// Close disables the outputs and closes the servo bus, then the GPIO driver.
func (h *hardware) Close() error {
	var errs []error
	if h.motion != nil {
		errs = append(errs, h.motion.Close())
	}
	if h.gpio != nil {
		errs = append(errs, h.gpio.Close())
	}
	return errors.Join(errs...)
}

// newHardware opens the GPIO driver, the servo bus and builds the motion assembly.
func newHardware(cfg *config.Config) (*hardware, error) {
	h := &hardware{}
	if cfg.Actuator.Type == config.ActuatorNone {
		debug.Info("Dry-run: no servo assembly, offsets are computed only")
		return h, nil
	}

	var mopts []motion.Option
	if cfg.Actuator.OutputEnablePin > 0 {
		g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, fmt.Errorf("init GPIO: %w", err)
		}
		h.gpio = g
		oe, err := servo.NewOutputEnable(g, cfg.Actuator.OutputEnablePin)
		if err != nil {
			_ = g.Close()
			return nil, fmt.Errorf("init output enable on pin %d: %w", cfg.Actuator.OutputEnablePin, err)
		}
		mopts = append(mopts, motion.WithEnabler(oe))
	}

	bus, err := newBus(cfg.Actuator)
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	m, err := motion.NewController(channelConfig(cfg.PanServo), channelConfig(cfg.TiltServo), bus, mopts...)
	if err != nil {
		_ = bus.Close()
		_ = h.Close()
		return nil, fmt.Errorf("build motion assembly: %w", err)
	}
	h.motion = m
	return h, nil
}

// newBus selects a servo transport based on configuration.
func newBus(a config.ActuatorConfig) (servo.Bus, error) {
	switch a.Type {
	case config.ActuatorPCA9685:
		return servo.NewPCA9685(servo.PCA9685Config{
			Bus:         a.I2CBus,
			Address:     a.I2CAddress,
			FrequencyHz: a.FrequencyHz,
		})
	case config.ActuatorRPiPWM:
		return servo.NewRPiPWM(a.FrequencyHz)
	case config.ActuatorSSC32:
		return servo.NewSSC32(a.SerialPort, a.BaudRate)
	case config.ActuatorMock:
		return servo.NewMockBus(), nil
	default:
		return nil, fmt.Errorf("unsupported actuator type: %s", a.Type)
	}
}

// newSource opens the detection feed. The returned close function is never nil.
func newSource(cfg *config.Config, mailbox *detect.Mailbox) (detect.Source, func(), error) {
	switch cfg.Detection.Source {
	case config.SourceWeb:
		if mailbox == nil {
			return nil, nil, fmt.Errorf("web detection source needs a mailbox")
		}
		return mailbox, func() {}, nil
	case config.SourceReplay:
		f, err := os.Open(cfg.Detection.ReplayPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open replay file: %w", err)
		}
		debug.Info("Replaying detections from %s", cfg.Detection.ReplayPath)
		return detect.NewReplaySource(f), func() { f.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported detection source: %s", cfg.Detection.Source)
	}
}

func channelConfig(s config.ServoConfig) motion.ChannelConfig {
	return motion.ChannelConfig{
		Index:          s.Channel,
		ActuationRange: s.ActuationRangeDeg,
		MinPulse:       s.MinPulseUs,
		MaxPulse:       s.MaxPulseUs,
		StartAngle:     s.StartAngle(),
		EndAngle:       s.EndAngle(),
		InitialAngle:   s.InitialAngleDeg,
	}
}

func pidConfig(p config.PIDConfig) pid.Config {
	return pid.Config{
		Kp:   p.Kp,
		Ki:   p.Ki,
		Kd:   p.Kd,
		MinI: *p.MinI,
		MaxI: *p.MaxI,
	}
}

func trackingConfig(cfg *config.Config) tracking.Config {
	x, y := cfg.Target()
	return tracking.Config{
		Target: geometry.Point{X: x, Y: y},
		X:      pidConfig(cfg.PanPID),
		Y:      pidConfig(cfg.TiltPID),
	}
}

func viewConfig(cfg *config.Config, dryRun bool) web.ViewConfig {
	x, y := cfg.Target()
	return web.ViewConfig{
		Target:     geometry.Point{X: x, Y: y},
		Pan:        web.AxisView{Channel: cfg.PanServo.Channel, StartAngle: cfg.PanServo.StartAngle(), EndAngle: cfg.PanServo.EndAngle()},
		Tilt:       web.AxisView{Channel: cfg.TiltServo.Channel, StartAngle: cfg.TiltServo.StartAngle(), EndAngle: cfg.TiltServo.EndAngle()},
		LoopRateHz: cfg.Tracking.LoopRateHz,
		DryRun:     dryRun,
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
