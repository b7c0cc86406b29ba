package motion

import (
	"fmt"
	"math"

	"github.com/cjeanneret/PanTrack/internal/hw/servo"
)

// boundEpsilon is the tolerance used by IsMin/IsMax.
const boundEpsilon = 0.001

// ChannelConfig describes one servo axis. It is validated once by NewChannel
// and never changes afterwards.
type ChannelConfig struct {
	Index          int     // channel on the servo bus
	ActuationRange float64 // full travel of the servo in degrees, 0 = 180
	MinPulse       int     // µs at 0°
	MaxPulse       int     // µs at ActuationRange
	StartAngle     float64 // lowest angle the axis may reach
	EndAngle       float64 // highest angle the axis may reach

	InitialAngle *float64 // nil = midpoint of [StartAngle, EndAngle]
}

// Validate checks the bounds ordering and that the bounds fit the servo travel.
func (c ChannelConfig) Validate() error {
	if c.MinPulse >= c.MaxPulse {
		return fmt.Errorf("min pulse (%dµs) must be < max pulse (%dµs)", c.MinPulse, c.MaxPulse)
	}
	if math.IsNaN(c.StartAngle) || math.IsNaN(c.EndAngle) {
		return fmt.Errorf("angle bounds must be numbers")
	}
	if c.StartAngle > c.EndAngle {
		return fmt.Errorf("start angle (%g) must be <= end angle (%g)", c.StartAngle, c.EndAngle)
	}
	if c.StartAngle < 0 || c.EndAngle > c.actuationRange() {
		return fmt.Errorf("angle bounds [%g, %g] exceed actuation range [0, %g]", c.StartAngle, c.EndAngle, c.actuationRange())
	}
	return nil
}

func (c ChannelConfig) actuationRange() float64 {
	if c.ActuationRange <= 0 {
		return 180
	}
	return c.ActuationRange
}

// Channel owns the angle of one axis. The angle always stays within
// [StartAngle, EndAngle]; commands outside are clamped, not rejected.
// Without an attached servo the channel still tracks its logical angle.
type Channel struct {
	cfg   ChannelConfig
	angle float64
	servo servo.Servo
}

func NewChannel(cfg ChannelConfig) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("channel %d: %w", cfg.Index, err)
	}
	cfg.ActuationRange = cfg.actuationRange()

	c := &Channel{cfg: cfg}
	c.angle = (cfg.StartAngle + cfg.EndAngle) / 2
	if cfg.InitialAngle != nil {
		c.angle = c.clamp(*cfg.InitialAngle)
	}
	return c, nil
}

func (c *Channel) Config() ChannelConfig { return c.cfg }
func (c *Channel) Index() int            { return c.cfg.Index }
func (c *Channel) Angle() float64        { return c.angle }
func (c *Channel) Attached() bool        { return c.servo != nil }

func (c *Channel) clamp(angle float64) float64 {
	if math.IsNaN(angle) {
		return c.angle
	}
	if angle < c.cfg.StartAngle {
		angle = c.cfg.StartAngle
	}
	if angle > c.cfg.EndAngle {
		angle = c.cfg.EndAngle
	}
	return angle
}

// SetAngle clamps angle into the channel bounds, stores it and forwards it to
// the servo if one is attached. It returns the angle actually applied. The
// logical angle is updated even when the servo reports an error.
func (c *Channel) SetAngle(angle float64) (float64, error) {
	c.angle = c.clamp(angle)
	if c.servo == nil {
		return c.angle, nil
	}
	if err := c.servo.SetAngle(c.angle); err != nil {
		return c.angle, fmt.Errorf("channel %d: %w", c.cfg.Index, err)
	}
	return c.angle, nil
}

// SetOffset moves the channel relative to its current angle.
func (c *Channel) SetOffset(delta float64) (float64, error) {
	return c.SetAngle(c.angle + delta)
}

// IsMin reports whether the channel sits on its lower bound.
func (c *Channel) IsMin() bool {
	return c.angle <= c.cfg.StartAngle+boundEpsilon
}

// IsMax reports whether the channel sits on its upper bound.
func (c *Channel) IsMax() bool {
	return c.angle >= c.cfg.EndAngle-boundEpsilon
}

// Attach configures s with the channel's pulse and actuation ranges, then
// re-applies the current angle so hardware and logical state agree.
func (c *Channel) Attach(s servo.Servo) error {
	if err := s.SetPulseWidthRange(c.cfg.MinPulse, c.cfg.MaxPulse); err != nil {
		return fmt.Errorf("channel %d: %w", c.cfg.Index, err)
	}
	if err := s.SetActuationRange(c.cfg.ActuationRange); err != nil {
		return fmt.Errorf("channel %d: %w", c.cfg.Index, err)
	}
	c.servo = s
	_, err := c.SetAngle(c.angle)
	return err
}

// Detach drops the servo handle; the channel keeps running in dry-run.
func (c *Channel) Detach() {
	c.servo = nil
}
