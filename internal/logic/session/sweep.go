package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/cjeanneret/PanTrack/internal/logic/motion"
)

// Sweep moves each axis across its range to check wiring and bounds
// before tracking.
type Sweep struct {
	motion *motion.Controller
}

func NewSweep(m *motion.Controller) *Sweep {
	return &Sweep{motion: m}
}

// SweepParams defines the sweep pattern.
type SweepParams struct {
	From  float64       // first angle commanded on each axis
	To    float64       // last angle (exclusive)
	Step  float64       // angle increment, must be > 0
	Dwell time.Duration // wait after each command
}

// DefaultSweepParams steps 0°..170° by 10° with half a second per step.
func DefaultSweepParams() SweepParams {
	return SweepParams{From: 0, To: 180, Step: 10, Dwell: 500 * time.Millisecond}
}

// Run sweeps pan first, then tilt. Angles outside an axis bounds are
// clamped by the channel.
func (s *Sweep) Run(ctx context.Context, p SweepParams) error {
	if !(p.Step > 0) {
		return fmt.Errorf("sweep step must be > 0, got %g", p.Step)
	}

	if err := s.motion.EnableMotors(); err != nil {
		return fmt.Errorf("enable servo outputs: %w", err)
	}

	debug.Section("Calibration sweep")
	axes := []struct {
		name string
		set  func(float64) (float64, error)
	}{
		{"pan", s.motion.SetX},
		{"tilt", s.motion.SetY},
	}
	for _, axis := range axes {
		for a := p.From; a < p.To; a += p.Step {
			applied, err := axis.set(a)
			if err != nil {
				return fmt.Errorf("sweep %s to %g: %w", axis.name, a, err)
			}
			debug.Sweep(axis.name, applied)
			if err := sleepCtx(ctx, p.Dwell); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
