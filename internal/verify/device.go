package verify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaud is the console speed of the hash reporting protocol.
	DefaultBaud = 115200

	hashMarker = "FIRMWARE_HASH:"

	defaultBootWait   = 2 * time.Second
	defaultReadWindow = 5 * time.Second
	pollTimeout       = 100 * time.Millisecond
)

// ReadTimeoutError reports a device that never printed its hash line.
type ReadTimeoutError struct {
	Port   string
	Window time.Duration
}

func (e *ReadTimeoutError) Error() string {
	return fmt.Sprintf("no firmware hash from %s within %s", e.Port, e.Window)
}

// DeviceReader reads the FIRMWARE_HASH line a freshly booted firmware
// prints on its serial console. OpenPort is swappable for tests.
type DeviceReader struct {
	BootWait   time.Duration
	ReadWindow time.Duration
	Log        *slog.Logger
	OpenPort   func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewDeviceReader returns a reader with protocol defaults.
func NewDeviceReader(log *slog.Logger) DeviceReader {
	if log == nil {
		log = slog.Default()
	}
	return DeviceReader{
		BootWait:   defaultBootWait,
		ReadWindow: defaultReadWindow,
		Log:        log,
		OpenPort:   serial.Open,
	}
}

// ReadHash opens the port, waits out the boot banner, and scans console
// lines for the hash marker until the read window closes.
func (r DeviceReader) ReadHash(ctx context.Context, portName string, baud int) (string, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := r.OpenPort(portName, mode)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", portName, err)
	}
	defer port.Close()

	// Opening the port resets most boards; let the firmware boot.
	if r.BootWait > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.BootWait):
		}
	}

	if err := port.SetReadTimeout(pollTimeout); err != nil {
		return "", fmt.Errorf("configure %s: %w", portName, err)
	}

	deadline := time.Now().Add(r.ReadWindow)
	var pending []byte
	buf := make([]byte, 256)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", portName, err)
		}
		if n == 0 {
			continue
		}
		pending = append(pending, buf[:n]...)
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := string(pending[:i])
			pending = pending[i+1:]
			if h, ok := ParseHashLine(line); ok {
				r.Log.Debug("device hash received", "port", portName, "hash", h)
				return h, nil
			}
		}
	}
	return "", &ReadTimeoutError{Port: portName, Window: r.ReadWindow}
}

var hashSeparators = strings.NewReplacer(" ", "", ":", "", "\r", "", "\t", "")

// ParseHashLine extracts a digest from a console line carrying the hash
// marker. Separator characters inside the value are tolerated.
func ParseHashLine(line string) (string, bool) {
	idx := strings.Index(line, hashMarker)
	if idx < 0 {
		return "", false
	}
	v := hashSeparators.Replace(line[idx+len(hashMarker):])
	v = strings.ToLower(strings.TrimSpace(v))
	if !ValidHash(v) {
		return "", false
	}
	return v, true
}
