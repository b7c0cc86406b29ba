package web

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/cjeanneret/PanTrack/internal/detect"
	"github.com/cjeanneret/PanTrack/internal/logic/geometry"
)

// MaxDetectionBytes bounds the body of POST /detection.
const MaxDetectionBytes = 4 << 10

// AxisView describes one axis for the web page.
type AxisView struct {
	Channel    int     `json:"channel"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

// ViewConfig is the static part of the page: set-point and axis bounds.
type ViewConfig struct {
	Target     geometry.Point `json:"target"`
	Pan        AxisView       `json:"pan"`
	Tilt       AxisView       `json:"tilt"`
	LoopRateHz float64        `json:"loop_rate_hz"`
	DryRun     bool           `json:"dry_run"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Mailbox     *detect.Mailbox
	Telemetry   *TelemetryStore
	View        ViewConfig
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If mailbox is nil, POST /detection returns 503 Service Unavailable
// (detections come from somewhere else, e.g. a replay file).
func NewHandlers(broadcaster *StatusBroadcaster, mailbox *detect.Mailbox, telemetry *TelemetryStore, view ViewConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Mailbox:     mailbox,
		Telemetry:   telemetry,
		View:        view,
		staticFS:    staticFS,
	}
}

// HandleConfig returns the target point and axis bounds as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.View)
}

// HandleTelemetry returns the latest controller snapshot, or 204 before the first cycle.
func (h *Handlers) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	if h.Telemetry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	t, ok := h.Telemetry.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleDetection handles POST /detection from the external face detector.
// Body: {"box":[x1,y1,x2,y2]} (optionally with "width"/"height" for pixels)
// or {"box":null} when no face is visible.
func (h *Handlers) HandleDetection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Mailbox == nil {
		http.Error(w, "detection input not enabled", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDetectionBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	box, ok, err := detect.ParseMessage(body)
	if err != nil {
		debug.Verbose("rejected detection: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Mailbox.Post(box, ok)
	debug.Trace("detection posted: face=%v box=%+v", ok, box)

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "face": ok})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Error(err)
	}
}
