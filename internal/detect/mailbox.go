package detect

import (
	"context"
	"sync"

	"github.com/cjeanneret/PanTrack/internal/logic/geometry"
)

// Mailbox holds the latest detection pushed by an external detector (e.g.
// over HTTP). Next blocks until a post arrives, so the detector paces the
// tracking cycle: "no face" only ever comes from an explicit no-face post.
type Mailbox struct {
	mu     sync.Mutex
	box    geometry.Box
	ok     bool
	filled bool
	ready  chan struct{} // holds one token while a post is unread
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Post replaces any unread detection. ok=false posts an explicit "no face".
func (m *Mailbox) Post(box geometry.Box, ok bool) {
	m.mu.Lock()
	m.box, m.ok, m.filled = box, ok, true
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Next waits for the next post and consumes it. It returns ctx.Err() when
// ctx ends first.
func (m *Mailbox) Next(ctx context.Context) (geometry.Box, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return geometry.Box{}, false, err
		}
		select {
		case <-ctx.Done():
			return geometry.Box{}, false, ctx.Err()
		case <-m.ready:
		}

		m.mu.Lock()
		if m.filled {
			box, ok := m.box, m.ok
			m.box, m.ok, m.filled = geometry.Box{}, false, false
			m.mu.Unlock()
			return box, ok, nil
		}
		// Token left by a post an earlier Next already consumed.
		m.mu.Unlock()
	}
}
