// Package gpio abstracts the few GPIO lines PanTrack drives directly, such as
// the PCA9685 output-enable line.
package gpio

import (
	"fmt"

	"github.com/cjeanneret/PanTrack/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("PinMode(%d)", int(m))
	}
}

// Driver is implemented by the go-rpio driver on a Raspberry Pi and by
// MockDriver on a development machine.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// NewDriver returns a MockDriver when mock is true, the go-rpio driver otherwise.
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(), nil
	}
	return NewRPiRealDriver()
}

// MockDriver logs actions and follows the same pin rules as the real driver,
// so tests can read back what was written.
type MockDriver struct {
	levels map[int]Level
	modes  map[int]PinMode
}

func NewMockDriver() *MockDriver {
	return &MockDriver{
		levels: make(map[int]Level),
		modes:  make(map[int]PinMode),
	}
}

func (m *MockDriver) init() {
	if m.levels == nil {
		m.levels = make(map[int]Level)
		m.modes = make(map[int]PinMode)
	}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	if pin < 0 {
		return fmt.Errorf("invalid BCM pin %d", pin)
	}
	m.init()
	m.modes[pin] = mode
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.init()
	mode, ok := m.modes[pin]
	if !ok {
		m.modes[pin] = Output
	} else if mode != Output {
		return fmt.Errorf("write pin %d: %w", pin, ErrInputPin)
	}
	m.levels[pin] = level
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	m.init()
	return m.levels[pin], nil
}

// Mode reports how pin was configured; ok is false for an untouched pin.
func (m *MockDriver) Mode(pin int) (mode PinMode, ok bool) {
	mode, ok = m.modes[pin]
	return mode, ok
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
