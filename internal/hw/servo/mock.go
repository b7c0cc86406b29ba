package servo

import (
	"github.com/cjeanneret/PanTrack/internal/debug"
)

// MockBus accepts every command and remembers the last one per channel.
// Used for development on PC or testing.
type MockBus struct {
	pulses map[int]float64
	angles map[int]float64
	closed bool
}

func NewMockBus() *MockBus {
	debug.Info("Using MOCK servo bus (development mode)")
	return &MockBus{
		pulses: make(map[int]float64),
		angles: make(map[int]float64),
	}
}

func (m *MockBus) Servo(channel int) (Servo, error) {
	if channel < 0 {
		return nil, ErrUnsupportedChannel
	}
	return &mockServo{
		calibrated: calibrated{cal: DefaultCalibration()},
		bus:        m,
		channel:    channel,
	}, nil
}

func (m *MockBus) Close() error {
	debug.Trace("Servo bus Close (mock)")
	m.closed = true
	return nil
}

// Pulse returns the last pulse width sent to channel.
func (m *MockBus) Pulse(channel int) (float64, bool) {
	p, ok := m.pulses[channel]
	return p, ok
}

// Angle returns the last angle sent to channel.
func (m *MockBus) Angle(channel int) (float64, bool) {
	a, ok := m.angles[channel]
	return a, ok
}

// Closed reports whether Close was called.
func (m *MockBus) Closed() bool {
	return m.closed
}

type mockServo struct {
	calibrated
	bus     *MockBus
	channel int
}

func (s *mockServo) SetAngle(deg float64) error {
	pulse, err := s.cal.PulseWidth(deg)
	if err != nil {
		return err
	}
	debug.Servo("mock", s.channel, deg, pulse)
	s.bus.pulses[s.channel] = pulse
	s.bus.angles[s.channel] = deg
	return nil
}
