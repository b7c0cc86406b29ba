package tracking

import (
	"github.com/cjeanneret/PanTrack/internal/logic/geometry"
	"github.com/cjeanneret/PanTrack/internal/logic/pid"
)

// AxisTelemetry describes one servo axis for debug overlays.
type AxisTelemetry struct {
	Angle float64 `json:"angle"`
	IsMin bool    `json:"is_min"`
	IsMax bool    `json:"is_max"`
}

// Telemetry is a read-only snapshot of the controller after a cycle.
type Telemetry struct {
	State    State          `json:"state"`
	TimeDiff float64        `json:"time_diff"`
	Target   geometry.Point `json:"target"`
	Center   geometry.Point `json:"center"`
	PIDX     pid.State      `json:"pid_x"`
	PIDY     pid.State      `json:"pid_y"`
	Pan      *AxisTelemetry `json:"pan,omitempty"`  // nil in dry-run
	Tilt     *AxisTelemetry `json:"tilt,omitempty"` // nil in dry-run
}

// Telemetry returns a copy of the current state; it shares nothing with the controller.
func (c *Controller) Telemetry() Telemetry {
	t := Telemetry{
		State:    c.state,
		TimeDiff: c.timeDiff,
		Target:   c.target,
		Center:   c.center,
		PIDX:     c.x.State(),
		PIDY:     c.y.State(),
	}
	if c.motion != nil {
		pan, tilt := c.motion.Pan(), c.motion.Tilt()
		t.Pan = &AxisTelemetry{Angle: pan.Angle(), IsMin: pan.IsMin(), IsMax: pan.IsMax()}
		t.Tilt = &AxisTelemetry{Angle: tilt.Angle(), IsMin: tilt.IsMin(), IsMax: tilt.IsMax()}
	}
	return t
}
