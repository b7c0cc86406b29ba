package gpio

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// ErrInputPin is returned when writing to a pin configured as input.
var ErrInputPin = errors.New("pin is configured as input")

// pinIO is the subset of rpio.Pin the driver uses.
type pinIO interface {
	Input()
	Output()
	High()
	Low()
	Read() rpio.State
}

type pinState struct {
	io   pinIO
	mode PinMode
}

// RPiDriver drives Raspberry Pi GPIOs through go-rpio (memory-mapped registers).
type RPiDriver struct {
	pins    map[int]*pinState
	openPin func(pin int) pinIO
	release func() error
}

// NewRPiRealDriver maps the GPIO registers.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}
	return newRPiDriver(func(pin int) pinIO { return rpio.Pin(pin) }, rpio.Close), nil
}

func newRPiDriver(openPin func(int) pinIO, release func() error) *RPiDriver {
	return &RPiDriver{
		pins:    make(map[int]*pinState),
		openPin: openPin,
		release: release,
	}
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	if pin < 0 {
		return fmt.Errorf("invalid BCM pin %d", pin)
	}

	st, ok := r.pins[pin]
	if !ok {
		st = &pinState{io: r.openPin(pin)}
	}
	switch mode {
	case Input:
		st.io.Input()
	case Output:
		st.io.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	st.mode = mode
	r.pins[pin] = st
	return nil
}

// WritePin sets an output level. A pin never set up becomes an output.
func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	st, ok := r.pins[pin]
	if !ok {
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
		st = r.pins[pin]
	}
	if st.mode != Output {
		return fmt.Errorf("write pin %d: %w", pin, ErrInputPin)
	}

	if level == High {
		st.io.High()
	} else {
		st.io.Low()
	}
	return nil
}

// ReadPin reads the pin level. A pin never set up becomes an input.
func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)

	st, ok := r.pins[pin]
	if !ok {
		if err := r.SetupPin(pin, Input); err != nil {
			return Low, err
		}
		st = r.pins[pin]
	}
	return Level(st.io.Read() == rpio.High), nil
}

// Close returns every pin used to input (high impedance) and unmaps the registers.
func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")
	for pin, st := range r.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		st.io.Input()
	}
	r.pins = make(map[int]*pinState)
	return r.release()
}
