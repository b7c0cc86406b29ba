package servo

import (
	"fmt"
	"math"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// BCM pins wired to the Raspberry Pi hardware PWM block.
var hardwarePWMPins = map[int]bool{
	12: true,
	13: true,
	18: true,
	19: true,
}

// dutyPin is the subset of rpio.Pin the servos use.
type dutyPin interface {
	DutyCycle(dutyLen, cycleLen uint32)
}

// RPiPWMBus drives servos straight from the Raspberry Pi hardware PWM pins.
// Channels are BCM pin numbers.
type RPiPWMBus struct {
	frequencyHz int
	periodUs    uint32
	pins        map[int]rpio.Pin
}

// NewRPiPWM maps the GPIO registers. Requires root for PWM clock access.
func NewRPiPWM(frequencyHz int) (*RPiPWMBus, error) {
	if frequencyHz <= 0 {
		frequencyHz = 50
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}
	debug.Info("Raspberry Pi hardware PWM ready, %dHz", frequencyHz)
	return &RPiPWMBus{
		frequencyHz: frequencyHz,
		periodUs:    uint32(1e6 / frequencyHz),
		pins:        make(map[int]rpio.Pin),
	}, nil
}

func (b *RPiPWMBus) Servo(channel int) (Servo, error) {
	if !hardwarePWMPins[channel] {
		return nil, fmt.Errorf("%w: BCM pin %d has no hardware PWM", ErrUnsupportedChannel, channel)
	}
	p := rpio.Pin(channel)
	p.Mode(rpio.Pwm)
	// One PWM step per microsecond.
	p.Freq(b.frequencyHz * int(b.periodUs))
	b.pins[channel] = p
	debug.GPIO("PWM", channel, b.frequencyHz)

	return newDutyServo(p, channel, b.periodUs), nil
}

// Close returns the PWM pins to inputs and unmaps the registers.
func (b *RPiPWMBus) Close() error {
	for pin, p := range b.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		p.Input()
	}
	return rpio.Close()
}

type dutyServo struct {
	calibrated
	pin      dutyPin
	channel  int
	periodUs uint32
}

func newDutyServo(pin dutyPin, channel int, periodUs uint32) *dutyServo {
	return &dutyServo{
		calibrated: calibrated{cal: DefaultCalibration()},
		pin:        pin,
		channel:    channel,
		periodUs:   periodUs,
	}
}

func (s *dutyServo) SetAngle(deg float64) error {
	pulse, err := s.cal.PulseWidth(deg)
	if err != nil {
		return err
	}
	duty := uint32(math.Round(pulse))
	if duty > s.periodUs {
		duty = s.periodUs
	}
	debug.Servo("rpio", s.channel, deg, pulse)
	s.pin.DutyCycle(duty, s.periodUs)
	return nil
}
