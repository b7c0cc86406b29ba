package motion

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/cjeanneret/PanTrack/internal/hw/servo"
)

// Enabler switches the servo outputs on and off (e.g. the PCA9685 OE line).
type Enabler interface {
	Enable() error
	Disable() error
}

// Controller orchestrates the pan (x) and tilt (y) servo channels.
// It's an intermediate layer between the tracking logic and the servo bus.
type Controller struct {
	pan  *Channel
	tilt *Channel

	bus     servo.Bus // nil = dry-run, channels keep logical state only
	enabler Enabler
}

// Option configures a Controller.
type Option func(*Controller)

// WithEnabler wires an output-enable line driven by EnableMotors/DisableMotors.
func WithEnabler(e Enabler) Option {
	return func(c *Controller) {
		c.enabler = e
	}
}

// NewController builds both channels and, when bus is non-nil, attaches a
// servo from the bus to each of them.
func NewController(panCfg, tiltCfg ChannelConfig, bus servo.Bus, opts ...Option) (*Controller, error) {
	pan, err := NewChannel(panCfg)
	if err != nil {
		return nil, fmt.Errorf("pan: %w", err)
	}
	tilt, err := NewChannel(tiltCfg)
	if err != nil {
		return nil, fmt.Errorf("tilt: %w", err)
	}

	c := &Controller{pan: pan, tilt: tilt, bus: bus}
	for _, opt := range opts {
		opt(c)
	}

	if bus != nil {
		if err := attach(bus, pan); err != nil {
			return nil, fmt.Errorf("pan: %w", err)
		}
		if err := attach(bus, tilt); err != nil {
			return nil, fmt.Errorf("tilt: %w", err)
		}
	}

	debug.Axis("pan", pan.Index(), panCfg.StartAngle, panCfg.EndAngle, pan.Angle())
	debug.Axis("tilt", tilt.Index(), tiltCfg.StartAngle, tiltCfg.EndAngle, tilt.Angle())
	return c, nil
}

func attach(bus servo.Bus, ch *Channel) error {
	s, err := bus.Servo(ch.Index())
	if err != nil {
		return err
	}
	return ch.Attach(s)
}

func (c *Controller) Pan() *Channel  { return c.pan }
func (c *Controller) Tilt() *Channel { return c.tilt }

// X returns the pan angle.
func (c *Controller) X() float64 { return c.pan.Angle() }

// Y returns the tilt angle.
func (c *Controller) Y() float64 { return c.tilt.Angle() }

func (c *Controller) SetX(angle float64) (float64, error) {
	return c.pan.SetAngle(angle)
}

func (c *Controller) SetY(angle float64) (float64, error) {
	return c.tilt.SetAngle(angle)
}

func (c *Controller) SetXOffset(delta float64) (float64, error) {
	return c.pan.SetOffset(delta)
}

func (c *Controller) SetYOffset(delta float64) (float64, error) {
	return c.tilt.SetOffset(delta)
}

// EnableMotors turns the servo outputs on. No-op without an enable line.
func (c *Controller) EnableMotors() error {
	if c.enabler == nil {
		return nil
	}
	return c.enabler.Enable()
}

// DisableMotors turns the servo outputs off; servos lose holding torque.
func (c *Controller) DisableMotors() error {
	if c.enabler == nil {
		return nil
	}
	return c.enabler.Disable()
}

// Close disables the outputs, detaches both channels and closes the bus.
func (c *Controller) Close() error {
	var errs []error
	if err := c.DisableMotors(); err != nil {
		errs = append(errs, fmt.Errorf("disable outputs: %w", err))
	}
	c.pan.Detach()
	c.tilt.Detach()
	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close servo bus: %w", err))
		}
		c.bus = nil
	}
	return errors.Join(errs...)
}
