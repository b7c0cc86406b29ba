// Package debug is PanTrack's leveled logger. Every helper is a no-op below
// its level, so call sites in the tracking loop stay cheap at level 0.
package debug

import (
	"io"
	"log"
	"os"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Startup, axis bounds, target point, errors
	LevelLive    = 2 // One line per tracking cycle, sweep steps
	LevelVerbose = 3 // Configuration details, rejected detections, sections
	LevelTrace   = 4 // Servo pulses, GPIO writes
)

var (
	level  int
	logger *log.Logger
	output io.Writer = os.Stdout
)

// Init sets the level (0-4). Level 0 silences everything.
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(output, "[PanTrack] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output (e.g. to also feed the web status stream).
func SetOutput(w io.Writer) {
	output = w
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

func logAt(minLevel int, format string, args ...interface{}) {
	if level >= minLevel && logger != nil {
		logger.Printf(format, args...)
	}
}

// --- Level 1 (Info) ---

func Info(format string, args ...interface{}) {
	logAt(LevelInfo, "[INFO] "+format, args...)
}

// Value prints a named value.
func Value(name string, value interface{}) {
	logAt(LevelInfo, "[INFO]   %s = %v", name, value)
}

// Axis prints the bounds and position of one servo axis.
func Axis(name string, channel int, start, end, angle float64) {
	logAt(LevelInfo, "[INFO] Axis %s: channel %d, range [%.1f°, %.1f°], at %.1f°", name, channel, start, end, angle)
}

// Error prints an error that was handled locally.
func Error(err error) {
	logAt(LevelInfo, "[ERROR] %v", err)
}

// --- Level 2 (Live) ---

func Live(format string, args ...interface{}) {
	logAt(LevelLive, "[LIVE] "+format, args...)
}

// Track prints one tracking cycle: state, dt, PID offsets and resulting angles.
func Track(state string, dt, ex, ey, x, y float64) {
	logAt(LevelLive, "[LIVE] %s dt=%.4fs offset=(%+.3f, %+.3f) angle=(%.1f°, %.1f°)", state, dt, ex, ey, x, y)
}

// Sweep prints one calibration sweep step.
func Sweep(axis string, angle float64) {
	logAt(LevelLive, "[LIVE] Sweep %s -> %.1f°", axis, angle)
}

// --- Level 3 (Verbose) ---

func Verbose(format string, args ...interface{}) {
	logAt(LevelVerbose, "[VERBOSE] "+format, args...)
}

// Section prints a section separator.
func Section(name string) {
	const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	logAt(LevelVerbose, rule)
	logAt(LevelVerbose, "  %s", name)
	logAt(LevelVerbose, rule)
}

// --- Level 4 (Trace) ---

func Trace(format string, args ...interface{}) {
	logAt(LevelTrace, "[TRACE] "+format, args...)
}

// GPIO prints a GPIO operation.
func GPIO(operation string, pin int, value interface{}) {
	logAt(LevelTrace, "[GPIO] %s pin=%d value=%v", operation, pin, value)
}

// Servo prints a servo command.
func Servo(bus string, channel int, angle float64, pulseUs float64) {
	logAt(LevelTrace, "[SERVO] %s ch=%d angle=%.2f° pulse=%.1fµs", bus, channel, angle, pulseUs)
}
