package web

import (
	"sync"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/cjeanneret/PanTrack/internal/logic/tracking"
)

// TelemetryStore keeps the latest controller snapshot for GET /telemetry and
// forwards every snapshot to the SSE stream. It is written by the tracking
// loop and read by HTTP handlers.
type TelemetryStore struct {
	mu          sync.RWMutex
	latest      tracking.Telemetry
	has         bool
	broadcaster *StatusBroadcaster
}

// NewTelemetryStore creates a store. broadcaster may be nil.
func NewTelemetryStore(broadcaster *StatusBroadcaster) *TelemetryStore {
	return &TelemetryStore{broadcaster: broadcaster}
}

// Publish records t and broadcasts it with level "telemetry".
func (s *TelemetryStore) Publish(t tracking.Telemetry) {
	s.mu.Lock()
	s.latest, s.has = t, true
	s.mu.Unlock()

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastData("telemetry", t); err != nil {
			debug.Error(err)
		}
	}
}

// Latest returns the last published snapshot; ok is false before the first cycle.
func (s *TelemetryStore) Latest() (t tracking.Telemetry, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}
