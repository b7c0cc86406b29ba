package pid

import (
	"fmt"
	"math"
)

// DefaultTimeEpsilon keeps the derivative finite when dt is close to zero.
const DefaultTimeEpsilon = 0.0001

// Config holds the gains, integral bounds and set-point of one axis.
type Config struct {
	Kp   float64
	Ki   float64
	Kd   float64
	MinI float64 // lower bound of the accumulated integral
	MaxI float64 // upper bound of the accumulated integral

	Target float64 // set-point, same unit as the measured value

	TimeEpsilon float64 // 0 = DefaultTimeEpsilon
}

// Validate checks that the gains are finite and the integral bounds ordered.
func (c Config) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"kp", c.Kp}, {"ki", c.Ki}, {"kd", c.Kd},
		{"min_i", c.MinI}, {"max_i", c.MaxI}, {"target", c.Target},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("pid %s must be finite, got %g", f.name, f.v)
		}
	}
	if c.MinI > c.MaxI {
		return fmt.Errorf("pid min_i (%g) must be <= max_i (%g)", c.MinI, c.MaxI)
	}
	return nil
}

// PID is a stateful per-axis control law. It is driven by a single owner;
// the caller supplies dt so the output never depends on the wall clock.
type PID struct {
	cfg     Config
	epsilon float64

	err      float64
	prevErr  float64
	integral float64
	p        float64
	d        float64
	output   float64
}

// State is a read-only snapshot of the controller terms.
type State struct {
	Target    float64 `json:"target"`
	Error     float64 `json:"error"`
	PrevError float64 `json:"prev_error"`
	P         float64 `json:"p"`
	D         float64 `json:"d"`
	Integral  float64 `json:"integral"`
	Output    float64 `json:"output"`
}

func New(cfg Config) (*PID, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eps := cfg.TimeEpsilon
	if eps <= 0 {
		eps = DefaultTimeEpsilon
	}
	return &PID{cfg: cfg, epsilon: eps}, nil
}

// Execute runs one control step for the measured value x after dt seconds
// and returns the correction. Only the integral is clamped; the output is not.
func (c *PID) Execute(x, dt float64) float64 {
	c.err = x - c.cfg.Target
	c.p = c.cfg.Kp * c.err

	c.d = (c.err - c.prevErr) / (dt + c.epsilon)
	c.prevErr = c.err

	c.integral += c.err * dt
	if c.integral < c.cfg.MinI {
		c.integral = c.cfg.MinI
	}
	if c.integral > c.cfg.MaxI {
		c.integral = c.cfg.MaxI
	}

	pAndD := c.p + c.cfg.Kd*c.d
	// A derivative that outweighs and opposes the proportional term is dropped.
	if c.p*c.d < 0 && math.Abs(c.p) < math.Abs(c.d) {
		pAndD = 0
	}
	c.output = pAndD + c.cfg.Ki*c.integral
	return c.output
}

// Reset zeroes the integral. Error and derivative history are kept.
func (c *PID) Reset() *PID {
	c.integral = 0
	return c
}

func (c *PID) Target() float64    { return c.cfg.Target }
func (c *PID) Error() float64     { return c.err }
func (c *PID) PrevError() float64 { return c.prevErr }
func (c *PID) Integral() float64  { return c.integral }
func (c *PID) P() float64         { return c.p }
func (c *PID) D() float64         { return c.d }
func (c *PID) Output() float64    { return c.output }

// State returns a snapshot of the current terms.
func (c *PID) State() State {
	return State{
		Target:    c.cfg.Target,
		Error:     c.err,
		PrevError: c.prevErr,
		P:         c.p,
		D:         c.d,
		Integral:  c.integral,
		Output:    c.output,
	}
}
