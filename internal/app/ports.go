package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/uplink/internal/serial"
)

// PortsLoadedMsg delivers a serial port scan. Pages and the port picker
// share this message; each handler must tolerate scans it did not request.
type PortsLoadedMsg struct {
	Ports []serial.PortInfo
	Err   error
}

// LoadPorts enumerates serial ports off the UI goroutine.
func LoadPorts() tea.Cmd {
	return func() tea.Msg {
		ports, err := serial.ListPorts()
		return PortsLoadedMsg{Ports: ports, Err: err}
	}
}
