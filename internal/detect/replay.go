package detect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/cjeanneret/PanTrack/internal/logic/geometry"
)

// ReplaySource reads one detection per line of JSON (see Message).
// Blank lines and lines starting with '#' are skipped. Malformed lines
// count as "no face" and are logged, so one bad frame does not stop tracking.
// A line longer than MaxReplayLineBytes is a read error wrapping
// bufio.ErrTooLong and ends the replay.
type ReplaySource struct {
	scanner *bufio.Scanner
	line    int
}

// MaxReplayLineBytes bounds one replay line.
const MaxReplayLineBytes = 1 << 20

func NewReplaySource(r io.Reader) *ReplaySource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxReplayLineBytes)
	return &ReplaySource{scanner: scanner}
}

func (s *ReplaySource) Next(ctx context.Context) (geometry.Box, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return geometry.Box{}, false, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return geometry.Box{}, false, fmt.Errorf("read replay line %d: %w", s.line+1, err)
			}
			return geometry.Box{}, false, io.EOF
		}
		s.line++

		data := bytes.TrimSpace(s.scanner.Bytes())
		if len(data) == 0 || data[0] == '#' {
			continue
		}
		box, ok, err := ParseMessage(data)
		if err != nil {
			debug.Error(fmt.Errorf("replay line %d: %w", s.line, err))
			return geometry.Box{}, false, nil
		}
		return box, ok, nil
	}
}
