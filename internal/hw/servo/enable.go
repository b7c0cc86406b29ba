package servo

import (
	"github.com/cjeanneret/PanTrack/internal/hw/gpio"
)

// OutputEnable drives the PCA9685 OE line. Active LOW: LOW = outputs on,
// HIGH = outputs off and servos go limp.
type OutputEnable struct {
	gpio gpio.Driver
	pin  int
}

// NewOutputEnable configures pin as output and enables the outputs.
// pin <= 0 means the line is not wired; the returned value is then a no-op.
func NewOutputEnable(g gpio.Driver, pin int) (*OutputEnable, error) {
	oe := &OutputEnable{gpio: g, pin: pin}
	if pin <= 0 {
		return oe, nil
	}
	if err := g.SetupPin(pin, gpio.Output); err != nil {
		return nil, err
	}
	if err := oe.Enable(); err != nil {
		return nil, err
	}
	return oe, nil
}

func (o *OutputEnable) Enable() error {
	if o.pin <= 0 {
		return nil
	}
	return o.gpio.WritePin(o.pin, gpio.Low)
}

func (o *OutputEnable) Disable() error {
	if o.pin <= 0 {
		return nil
	}
	return o.gpio.WritePin(o.pin, gpio.High)
}
