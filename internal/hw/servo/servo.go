package servo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrAngleOutOfRange is returned when an angle falls outside [0, actuation range].
	ErrAngleOutOfRange = errors.New("angle out of actuation range")
	// ErrUnsupportedChannel is returned when a bus cannot drive the requested channel.
	ErrUnsupportedChannel = errors.New("unsupported servo channel")
)

// Servo is a physical handle that positions one hobby servo.
// Implementations translate an angle into a pulse width for their transport.
type Servo interface {
	SetPulseWidthRange(minUs, maxUs int) error
	SetActuationRange(deg float64) error
	SetAngle(deg float64) error
}

// Bus hands out servo handles for the channels of one controller board.
type Bus interface {
	Servo(channel int) (Servo, error)
	Close() error
}

// Calibration maps an angle linearly onto a pulse width:
// 0° → MinPulse, Range → MaxPulse.
type Calibration struct {
	MinPulse int     // µs
	MaxPulse int     // µs
	Range    float64 // actuation range in degrees
}

// DefaultCalibration matches a typical 180° servo driven with 500-2500µs.
func DefaultCalibration() Calibration {
	return Calibration{MinPulse: 500, MaxPulse: 2500, Range: 180}
}

// Validate checks that the pulse range is ordered and the actuation range positive.
func (c Calibration) Validate() error {
	if c.MinPulse <= 0 || c.MinPulse >= c.MaxPulse {
		return fmt.Errorf("pulse range must satisfy 0 < min < max, got %d-%dµs", c.MinPulse, c.MaxPulse)
	}
	if !(c.Range > 0) || math.IsInf(c.Range, 0) {
		return fmt.Errorf("actuation range must be positive, got %g", c.Range)
	}
	return nil
}

// PulseWidth returns the pulse width in µs for angle.
func (c Calibration) PulseWidth(angle float64) (float64, error) {
	if math.IsNaN(angle) || angle < 0 || angle > c.Range {
		return 0, fmt.Errorf("%w: %g not in [0, %g]", ErrAngleOutOfRange, angle, c.Range)
	}
	span := float64(c.MaxPulse - c.MinPulse)
	return float64(c.MinPulse) + span*angle/c.Range, nil
}

// calibrated implements the range setters shared by every transport.
type calibrated struct {
	cal Calibration
}

func (c *calibrated) SetPulseWidthRange(minUs, maxUs int) error {
	next := c.cal
	next.MinPulse, next.MaxPulse = minUs, maxUs
	if err := next.Validate(); err != nil {
		return err
	}
	c.cal = next
	return nil
}

func (c *calibrated) SetActuationRange(deg float64) error {
	next := c.cal
	next.Range = deg
	if err := next.Validate(); err != nil {
		return err
	}
	c.cal = next
	return nil
}
