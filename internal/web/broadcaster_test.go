package web

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cjeanneret/PanTrack/internal/logic/tracking"
)

func receive(t *testing.T, ch <-chan string) StatusEvent {
	t.Helper()
	select {
	case msg := <-ch:
		var evt StatusEvent
		if err := json.Unmarshal([]byte(msg), &evt); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
	return StatusEvent{}
}

func TestBroadcaster_SubscribeAndReceive(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Broadcast("warn", "face lost")

	evt := receive(t, ch)
	if evt.Msg != "face lost" || evt.Level != "warn" {
		t.Errorf("event = %+v, want warn/face lost", evt)
	}
	if evt.Time == "" {
		t.Error("event should have a timestamp")
	}
	if evt.Data != nil {
		t.Errorf("text event should carry no data, got %s", evt.Data)
	}
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewStatusBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.BroadcastMsg("multi")

	for _, ch := range []<-chan string{ch1, ch2} {
		if evt := receive(t, ch); evt.Msg != "multi" || evt.Level != "info" {
			t.Errorf("event = %+v, want info/multi", evt)
		}
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	// Broadcasting with no subscribers must not panic.
	b.Broadcast("info", "after unsub")
}

func TestBroadcaster_FullChannelDropsMessage(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 64; i++ {
		b.Broadcast("info", "fill")
	}
	b.Broadcast("info", "overflow") // must not block

	count := 0
	for len(ch) > 0 {
		<-ch
		count++
	}
	if count != 64 {
		t.Errorf("expected 64 buffered messages, got %d", count)
	}
}

func TestBroadcaster_BroadcastData(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	if err := b.BroadcastData("telemetry", map[string]float64{"angle": 42}); err != nil {
		t.Fatalf("BroadcastData: %v", err)
	}

	evt := receive(t, ch)
	if evt.Level != "telemetry" || evt.Msg != "" {
		t.Errorf("event = %+v, want telemetry without msg", evt)
	}
	var data map[string]float64
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data["angle"] != 42 {
		t.Errorf("data = %v, want angle 42", data)
	}
}

func TestBroadcaster_BroadcastDataUnencodable(t *testing.T) {
	b := NewStatusBroadcaster()
	if err := b.BroadcastData("telemetry", make(chan int)); err == nil {
		t.Error("expected error for unencodable payload, got nil")
	}
}

func TestBroadcastWriter_Write(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	line := "[PanTrack] [LIVE] tracking dt=0.0333s  \n"
	n, err := w.Write([]byte(line))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(line) {
		t.Errorf("n = %d, want %d", n, len(line))
	}
	if evt := receive(t, ch); evt.Msg != "[PanTrack] [LIVE] tracking dt=0.0333s" {
		t.Errorf("msg = %q", evt.Msg)
	}
}

func TestBroadcastWriter_EmptyWriteIgnored(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	BroadcastWriter(b).Write([]byte("   \n"))

	select {
	case <-ch:
		t.Error("expected no message for whitespace-only write")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTelemetryStore_LatestAndBroadcast(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()
	s := NewTelemetryStore(b)

	if _, ok := s.Latest(); ok {
		t.Fatal("store should be empty before the first Publish")
	}

	s.Publish(tracking.Telemetry{State: tracking.Tracking, TimeDiff: 0.1})

	got, ok := s.Latest()
	if !ok || got.State != tracking.Tracking || got.TimeDiff != 0.1 {
		t.Errorf("Latest = (%+v, %v)", got, ok)
	}
	evt := receive(t, ch)
	if evt.Level != "telemetry" {
		t.Errorf("level = %q, want telemetry", evt.Level)
	}
}

func TestTelemetryStore_NilBroadcaster(t *testing.T) {
	s := NewTelemetryStore(nil)
	s.Publish(tracking.Telemetry{State: tracking.Idle})
	if _, ok := s.Latest(); !ok {
		t.Error("Publish without broadcaster should still store the snapshot")
	}
}
