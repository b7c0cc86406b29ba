// Package detect feeds face detections from an external detector into the
// tracking loop. Detection itself happens outside this program.
package detect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cjeanneret/PanTrack/internal/logic/geometry"
)

// Source yields at most one detection per tracking cycle.
// ok is false when no face was detected this cycle. io.EOF ends the stream.
type Source interface {
	Next(ctx context.Context) (box geometry.Box, ok bool, err error)
}

// Message is the wire form of one detection:
//
//	{"box": [x1, y1, x2, y2]}                      normalized
//	{"box": [x1, y1, x2, y2], "width": 640, "height": 480}  pixels
//	{"box": null}                                  no face
type Message struct {
	Box    []float64 `json:"box"`
	Width  int       `json:"width,omitempty"`
	Height int       `json:"height,omitempty"`
}

// Detection converts m to a validated normalized box.
func (m Message) Detection() (geometry.Box, bool, error) {
	if m.Box == nil {
		return geometry.Box{}, false, nil
	}
	box, err := geometry.FromSlice(m.Box)
	if err != nil {
		return geometry.Box{}, false, err
	}
	if m.Width != 0 || m.Height != 0 {
		if box, err = geometry.Normalize(box, m.Width, m.Height); err != nil {
			return geometry.Box{}, false, err
		}
	}
	if err := box.Validate(); err != nil {
		return geometry.Box{}, false, err
	}
	return box, true, nil
}

// ParseMessage decodes and validates one JSON detection.
func ParseMessage(data []byte) (geometry.Box, bool, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return geometry.Box{}, false, fmt.Errorf("decode detection: %w", err)
	}
	return m.Detection()
}
