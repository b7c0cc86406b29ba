package debug

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(lvl)
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init(LevelOff)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelLive)

	Info("startup %d", 1)
	Track("tracking", 0.033, 0.1, -0.2, 91, 88)
	Verbose("hidden")
	Servo("pca9685", 0, 90, 1500)

	out := buf.String()
	if !strings.Contains(out, "[INFO] startup 1") {
		t.Errorf("info line missing: %q", out)
	}
	if !strings.Contains(out, "[LIVE] tracking dt=0.0330s") {
		t.Errorf("track line missing: %q", out)
	}
	if strings.Contains(out, "hidden") || strings.Contains(out, "[SERVO]") {
		t.Errorf("lines above the level leaked: %q", out)
	}
	if !strings.Contains(out, "[PanTrack] ") {
		t.Errorf("prefix missing: %q", out)
	}
}

func TestTraceLevel(t *testing.T) {
	buf := capture(t, LevelTrace)

	Servo("ssc32", 2, 45, 1000)
	GPIO("WritePin", 22, true)
	Error(errors.New("bus fault"))

	out := buf.String()
	for _, want := range []string{"[SERVO] ssc32 ch=2", "pulse=1000.0µs", "[GPIO] WritePin pin=22", "[ERROR] bus fault"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
	if !IsEnabled(LevelVerbose) || Level() != LevelTrace {
		t.Errorf("Level() = %d, IsEnabled(verbose) = %v", Level(), IsEnabled(LevelVerbose))
	}
}

func TestOff(t *testing.T) {
	buf := capture(t, LevelOff)
	Info("nothing")
	Error(errors.New("nothing"))
	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
}
