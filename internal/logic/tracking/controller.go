package tracking

import (
	"fmt"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/cjeanneret/PanTrack/internal/logic/geometry"
	"github.com/cjeanneret/PanTrack/internal/logic/motion"
	"github.com/cjeanneret/PanTrack/internal/logic/pid"
	"github.com/cjeanneret/PanTrack/internal/logic/timer"
)

// State is the phase of the tracking cycle.
type State int

const (
	Idle     State = iota // nothing tracked yet, or target lost for more than one cycle
	Tracking              // a detection drove the last cycle
	Lost                  // the first cycle without a detection after tracking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON telemetry.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the set-point and the per-axis PID gains. The PID targets are
// taken from Target.
type Config struct {
	Target geometry.Point
	X      pid.Config
	Y      pid.Config
}

// Controller steers the pan/tilt assembly so that the center of the
// detection box converges on the target point. It owns both PIDs and the
// timer; it is not safe for concurrent use.
type Controller struct {
	target geometry.Point
	x      *pid.PID
	y      *pid.PID
	timer  *timer.Timer
	motion *motion.Controller // nil = dry-run, offsets are computed only

	state    State
	timeDiff float64
	center   geometry.Point
}

// Option configures a Controller.
type Option func(*Controller)

// WithMotion attaches the servo assembly driven by Execute.
func WithMotion(m *motion.Controller) Option {
	return func(c *Controller) {
		c.motion = m
	}
}

// WithTimer replaces the default wall-clock timer.
func WithTimer(t *timer.Timer) Option {
	return func(c *Controller) {
		c.timer = t
	}
}

func NewController(cfg Config, opts ...Option) (*Controller, error) {
	if !cfg.Target.InFrame() {
		return nil, fmt.Errorf("target point must lie in [0,1]x[0,1], got (%g, %g)", cfg.Target.X, cfg.Target.Y)
	}

	cfg.X.Target = cfg.Target.X
	cfg.Y.Target = cfg.Target.Y
	x, err := pid.New(cfg.X)
	if err != nil {
		return nil, fmt.Errorf("x axis: %w", err)
	}
	y, err := pid.New(cfg.Y)
	if err != nil {
		return nil, fmt.Errorf("y axis: %w", err)
	}

	c := &Controller{
		target: cfg.Target,
		x:      x,
		y:      y,
		timer:  timer.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Execute runs one control cycle for a normalized detection box. The very
// first call only records the time baseline and commands nothing. Errors
// come from the servo transport; the logical angles are updated regardless.
func (c *Controller) Execute(box geometry.Box) error {
	c.state = Tracking
	dt, ok := c.timer.Diff()
	if !ok {
		c.timeDiff = 0
		debug.Verbose("Tracking: first frame, timer baseline recorded")
		return nil
	}
	c.timeDiff = dt

	c.center = box.Center()
	ex := c.x.Execute(c.center.X, dt)
	ey := c.y.Execute(c.center.Y, dt)

	if c.motion == nil {
		debug.Track(c.state.String(), dt, ex, ey, 0, 0)
		return nil
	}

	_, errX := c.motion.SetXOffset(ex)
	_, errY := c.motion.SetYOffset(ey)
	debug.Track(c.state.String(), dt, ex, ey, c.motion.X(), c.motion.Y())
	if errX != nil {
		return fmt.Errorf("pan: %w", errX)
	}
	if errY != nil {
		return fmt.Errorf("tilt: %w", errY)
	}
	return nil
}

// Reset is called for a cycle without detection. It zeroes both integrals to
// stop windup while the face is out of view; error history and the timer are
// kept so tracking resumes smoothly.
func (c *Controller) Reset() *Controller {
	c.x.Reset()
	c.y.Reset()
	switch c.state {
	case Tracking:
		c.state = Lost
		debug.Live("Target lost")
	case Lost:
		c.state = Idle
	}
	return c
}

// TargetPoint returns the normalized set-point.
func (c *Controller) TargetPoint() geometry.Point { return c.target }

// TimeDiff returns the dt of the last Execute (0 on the calibration frame).
func (c *Controller) TimeDiff() float64 { return c.timeDiff }

func (c *Controller) State() State { return c.state }

// X returns the pan axis PID.
func (c *Controller) X() *pid.PID { return c.x }

// Y returns the tilt axis PID.
func (c *Controller) Y() *pid.PID { return c.y }

// Motion returns the attached assembly, nil in dry-run.
func (c *Controller) Motion() *motion.Controller { return c.motion }
