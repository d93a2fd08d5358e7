package serial

import (
	"bytes"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/buckleypaul/uplink/internal/verify"
)

// DataReceivedMsg is sent when data arrives from the serial port.
type DataReceivedMsg struct {
	Data string
}

// lineBufMax bounds the line assembly buffer for hash scanning. Hash
// lines are short; anything longer is device noise.
const lineBufMax = 512

// Monitor manages a serial port connection. Incoming data is forwarded
// raw on DataChan; complete console lines are also scanned for the
// firmware hash the on-device verification routine prints at boot.
type Monitor struct {
	// OpenPort is swappable for tests.
	OpenPort func(name string, mode *serial.Mode) (serial.Port, error)

	mu       sync.Mutex
	port     serial.Port
	portName string
	baudRate int
	running  bool
	dataCh   chan string
	done     chan struct{}
	lineBuf  []byte
	lastHash string
}

// NewMonitor creates a new serial monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		OpenPort: serial.Open,
		dataCh:   make(chan string, 64),
		done:     make(chan struct{}),
	}
}

// Connect opens a serial port with the given settings. An existing
// connection is closed first.
func (m *Monitor) Connect(portName string, baudRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.disconnectLocked()
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := m.OpenPort(portName, mode)
	if err != nil {
		return err
	}

	m.port = port
	m.portName = portName
	m.baudRate = baudRate
	m.running = true
	m.done = make(chan struct{})
	m.lineBuf = nil
	m.lastHash = ""

	go m.readLoop(port, m.done)
	return nil
}

// Disconnect closes the serial port.
func (m *Monitor) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked()
}

func (m *Monitor) disconnectLocked() {
	if !m.running {
		return
	}
	m.running = false
	if m.port != nil {
		m.port.Close()
	}
	close(m.done)
}

// Write sends data to the serial port.
func (m *Monitor) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil || !m.running {
		return io.ErrClosedPipe
	}
	_, err := m.port.Write(data)
	return err
}

// DataChan returns the channel that receives serial data.
func (m *Monitor) DataChan() <-chan string {
	return m.dataCh
}

// Connected returns whether the monitor is connected.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastFirmwareHash returns the most recent firmware hash the device
// printed on its console, or "" if none was seen since connecting.
func (m *Monitor) LastFirmwareHash() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHash
}

func (m *Monitor) readLoop(port serial.Port, done chan struct{}) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			select {
			case m.dataCh <- string(buf[:n]):
			default:
				// Drop data if channel is full
			}
			m.scanHash(buf[:n])
		}
	}
}

// scanHash assembles console lines and remembers the last firmware
// hash seen.
func (m *Monitor) scanHash(chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lineBuf = append(m.lineBuf, chunk...)
	for {
		i := bytes.IndexByte(m.lineBuf, '\n')
		if i < 0 {
			break
		}
		line := string(m.lineBuf[:i])
		m.lineBuf = m.lineBuf[i+1:]
		if h, ok := verify.ParseHashLine(line); ok {
			m.lastHash = h
		}
	}
	if len(m.lineBuf) > lineBufMax {
		m.lineBuf = nil
	}
}
