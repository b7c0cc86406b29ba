package servo

import (
	"fmt"
	"io"
	"math"

	"github.com/cjeanneret/PanTrack/internal/debug"
	"go.bug.st/serial"
)

const ssc32Channels = 32

// SSC32Bus drives a serial servo controller speaking the SSC-32 text protocol
// ("#<channel>P<pulse µs>\r").
type SSC32Bus struct {
	port io.WriteCloser
}

// NewSSC32 opens the serial port at the given baud rate.
func NewSSC32(portName string, baudRate int) (*SSC32Bus, error) {
	if baudRate <= 0 {
		baudRate = 115200
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	debug.Info("SSC-32 controller on %s at %d baud", portName, baudRate)
	return &SSC32Bus{port: port}, nil
}

func (b *SSC32Bus) Servo(channel int) (Servo, error) {
	if channel < 0 || channel >= ssc32Channels {
		return nil, fmt.Errorf("%w: ssc32 channel %d", ErrUnsupportedChannel, channel)
	}
	return &ssc32Servo{
		calibrated: calibrated{cal: DefaultCalibration()},
		w:          b.port,
		channel:    channel,
	}, nil
}

func (b *SSC32Bus) Close() error {
	return b.port.Close()
}

type ssc32Servo struct {
	calibrated
	w       io.Writer
	channel int
}

func (s *ssc32Servo) SetAngle(deg float64) error {
	pulse, err := s.cal.PulseWidth(deg)
	if err != nil {
		return err
	}
	debug.Servo("ssc32", s.channel, deg, pulse)
	if _, err := fmt.Fprintf(s.w, "#%dP%d\r", s.channel, int(math.Round(pulse))); err != nil {
		return fmt.Errorf("ssc32 channel %d: %w", s.channel, err)
	}
	return nil
}
