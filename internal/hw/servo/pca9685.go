package servo

import (
	"fmt"
	"math"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

const (
	pcaChannels   = 16
	pcaResolution = 4096 // 12-bit counter per PWM period
)

// PCA9685Config describes the I2C PWM board.
type PCA9685Config struct {
	Bus         string // I2C bus name, "" = first available
	Address     uint16 // 7-bit address, 0 = pca9685.I2CAddr
	FrequencyHz int    // PWM frequency, 0 = 50Hz
}

// pwmDevice is the subset of *pca9685.Dev the servos use.
type pwmDevice interface {
	SetPwm(channel int, on, off gpio.Duty) error
}

// PCA9685Bus drives up to 16 servos through a PCA9685 board.
type PCA9685Bus struct {
	dev         pwmDevice
	bus         i2c.BusCloser
	frequencyHz float64
}

// NewPCA9685 opens the I2C bus and configures the board's PWM frequency.
func NewPCA9685(cfg PCA9685Config) (*PCA9685Bus, error) {
	if cfg.Address == 0 {
		cfg.Address = pca9685.I2CAddr
	}
	if cfg.FrequencyHz <= 0 {
		cfg.FrequencyHz = 50
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.Bus, err)
	}
	dev, err := pca9685.NewI2C(bus, cfg.Address)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("init pca9685 at 0x%02x: %w", cfg.Address, err)
	}
	if err := dev.SetPwmFreq(physic.Frequency(cfg.FrequencyHz) * physic.Hertz); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("set pca9685 frequency: %w", err)
	}

	debug.Info("PCA9685 ready on bus %q at 0x%02x, %dHz", cfg.Bus, cfg.Address, cfg.FrequencyHz)
	return &PCA9685Bus{
		dev:         dev,
		bus:         bus,
		frequencyHz: float64(cfg.FrequencyHz),
	}, nil
}

func (b *PCA9685Bus) Servo(channel int) (Servo, error) {
	if channel < 0 || channel >= pcaChannels {
		return nil, fmt.Errorf("%w: pca9685 channel %d", ErrUnsupportedChannel, channel)
	}
	return &pcaServo{
		calibrated:  calibrated{cal: DefaultCalibration()},
		dev:         b.dev,
		channel:     channel,
		frequencyHz: b.frequencyHz,
	}, nil
}

func (b *PCA9685Bus) Close() error {
	if b.bus == nil {
		return nil
	}
	return b.bus.Close()
}

type pcaServo struct {
	calibrated
	dev         pwmDevice
	channel     int
	frequencyHz float64
}

// SetAngle converts the pulse width to the "off" count of a period starting at 0.
func (s *pcaServo) SetAngle(deg float64) error {
	pulse, err := s.cal.PulseWidth(deg)
	if err != nil {
		return err
	}
	counts := math.Round(pulse * s.frequencyHz * pcaResolution / 1e6)
	if counts > pcaResolution-1 {
		counts = pcaResolution - 1
	}
	debug.Servo("pca9685", s.channel, deg, pulse)
	if err := s.dev.SetPwm(s.channel, 0, gpio.Duty(counts)); err != nil {
		return fmt.Errorf("pca9685 channel %d: %w", s.channel, err)
	}
	return nil
}
