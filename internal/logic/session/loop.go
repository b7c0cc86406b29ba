package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/cjeanneret/PanTrack/internal/detect"
	"github.com/cjeanneret/PanTrack/internal/logic/tracking"
)

// TelemetrySink receives a snapshot after every cycle (e.g. the web server).
type TelemetrySink interface {
	Publish(t tracking.Telemetry)
}

// Loop contains the tracking cycle: one detection, then either Execute or
// Reset on the controller. Each cycle waits on the source, so a blocking
// source paces the loop. It is the only caller of the
// controller, so the controller needs no locking.
type Loop struct {
	ctrl   *tracking.Controller
	source detect.Source
	sink   TelemetrySink
}

func NewLoop(ctrl *tracking.Controller, source detect.Source, sink TelemetrySink) *Loop {
	return &Loop{
		ctrl:   ctrl,
		source: source,
		sink:   sink,
	}
}

// Params defines the pacing of the loop.
type Params struct {
	Interval  time.Duration // time between cycles; 0 = as fast as the source delivers
	MaxCycles int           // 0 = unlimited
}

// Run polls until ctx is cancelled, the source is exhausted or MaxCycles is
// reached. Cancellation and end-of-stream are normal exits and return nil.
func (l *Loop) Run(ctx context.Context, p Params) error {
	var tick <-chan time.Time
	if p.Interval > 0 {
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debug.Section("Tracking")
	for cycle := 0; p.MaxCycles == 0 || cycle < p.MaxCycles; cycle++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		done, err := l.Cycle(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

// Cycle runs one tracking cycle. done is true when the source has no more
// detections or ctx was cancelled.
func (l *Loop) Cycle(ctx context.Context) (done bool, err error) {
	box, ok, err := l.source.Next(ctx)
	switch {
	case errors.Is(err, io.EOF):
		debug.Info("Detection stream ended")
		return true, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true, nil
	case err != nil:
		return true, fmt.Errorf("read detection: %w", err)
	}

	if ok {
		if verr := box.Validate(); verr != nil {
			debug.Error(fmt.Errorf("dropping detection: %w", verr))
			ok = false
		}
	}

	if ok {
		err = l.ctrl.Execute(box)
	} else {
		l.ctrl.Reset()
	}

	if l.sink != nil {
		l.sink.Publish(l.ctrl.Telemetry())
	}
	if err != nil {
		return true, fmt.Errorf("drive servos: %w", err)
	}
	return false, nil
}
