package pages

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/serial"
	"github.com/buckleypaul/uplink/internal/store"
	"github.com/buckleypaul/uplink/internal/ui"
)

type monitorState int

const (
	monitorStatePortSelect monitorState = iota
	monitorStateConnected
)

// maxMonitorLines bounds the scrollback kept in memory.
const maxMonitorLines = 2000

type monitorConnectedMsg struct {
	portName string
	baudRate int
	err      error
}

type serialLineMsg struct {
	line string
}

// MonitorPage is an interactive serial console with session logging.
type MonitorPage struct {
	monitor  *serial.Monitor
	store    *store.Store
	baudRate int

	state  monitorState
	ports  []serial.PortInfo
	cursor int

	input    textinput.Model
	viewport viewport.Model
	lines    []string
	follow   bool

	logFile *os.File
	logPath string

	connectedPort string
	width, height int
	message       string
}

func NewMonitorPage(s *store.Store, baudRate int) *MonitorPage {
	ti := textinput.New()
	ti.Placeholder = "send to device..."
	ti.CharLimit = 256
	ti.Prompt = "> "

	return &MonitorPage{
		monitor:  serial.NewMonitor(),
		store:    s,
		baudRate: baudRate,
		input:    ti,
		viewport: viewport.New(0, 0),
		follow:   true,
	}
}

func (p *MonitorPage) Init() tea.Cmd {
	return app.LoadPorts()
}

func (p *MonitorPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.PortsLoadedMsg:
		if msg.Err == nil {
			p.ports = msg.Ports
			if p.cursor >= len(p.ports) {
				p.cursor = len(p.ports) - 1
			}
			if p.cursor < 0 {
				p.cursor = 0
			}
		}
		return p, nil

	case app.ConfigChangedMsg:
		return p, nil

	case monitorConnectedMsg:
		if msg.err != nil {
			p.message = fmt.Sprintf("Failed to connect: %v", msg.err)
			return p, nil
		}
		p.state = monitorStateConnected
		p.connectedPort = msg.portName
		p.lines = nil
		p.viewport.SetContent("")
		p.message = fmt.Sprintf("Connected to %s @ %d", msg.portName, msg.baudRate)
		p.openSessionLog(msg.portName, msg.baudRate)
		p.input.Focus()
		return p, tea.Batch(p.waitForData(), textinput.Blink)

	case serialLineMsg:
		p.appendLine(msg.line)
		return p, p.waitForData()

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *MonitorPage) handleKey(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	keyStr := msg.String()

	if p.state == monitorStatePortSelect {
		switch keyStr {
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down":
			if p.cursor < len(p.ports)-1 {
				p.cursor++
			}
		case "r":
			return p, app.LoadPorts()
		case "enter":
			if p.cursor < len(p.ports) {
				port := p.ports[p.cursor].Name
				p.message = fmt.Sprintf("Connecting to %s...", port)
				return p, p.connect(port)
			}
		}
		return p, nil
	}

	// Connected: the input captures keystrokes until esc blurs it.
	if p.input.Focused() {
		switch keyStr {
		case "enter":
			text := p.input.Value()
			p.input.SetValue("")
			if text != "" {
				if err := p.monitor.Write([]byte(text + "\r\n")); err != nil {
					p.message = fmt.Sprintf("Write failed: %v", err)
				} else {
					p.appendLine("> " + text)
				}
			}
			return p, nil
		case "esc":
			p.input.Blur()
			return p, nil
		}
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return p, cmd
	}

	switch keyStr {
	case "d":
		p.disconnect()
		return p, nil
	case "f":
		p.follow = !p.follow
		if p.follow {
			p.viewport.GotoBottom()
		}
		return p, nil
	case "i", "enter":
		p.input.Focus()
		return p, textinput.Blink
	case "c":
		p.lines = nil
		p.viewport.SetContent("")
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *MonitorPage) connect(port string) tea.Cmd {
	mon, baud := p.monitor, p.baudRate
	return func() tea.Msg {
		err := mon.Connect(port, baud)
		return monitorConnectedMsg{portName: port, baudRate: baud, err: err}
	}
}

func (p *MonitorPage) disconnect() {
	p.monitor.Disconnect()
	p.closeSessionLog()
	p.state = monitorStatePortSelect
	p.input.Blur()
	p.message = fmt.Sprintf("Disconnected from %s", p.connectedPort)
	p.connectedPort = ""
}

// waitForData blocks on the monitor's data channel off the UI goroutine.
func (p *MonitorPage) waitForData() tea.Cmd {
	mon := p.monitor
	return func() tea.Msg {
		line, ok := <-mon.DataChan()
		if !ok {
			return nil
		}
		return serialLineMsg{line: line}
	}
}

func (p *MonitorPage) appendLine(line string) {
	p.lines = append(p.lines, line)
	if len(p.lines) > maxMonitorLines {
		p.lines = p.lines[len(p.lines)-maxMonitorLines:]
	}
	p.viewport.SetContent(strings.Join(p.lines, "\n"))
	if p.follow {
		p.viewport.GotoBottom()
	}
	if p.logFile != nil {
		p.logFile.WriteString(line + "\n")
	}
}

// openSessionLog starts a log file for the session and records it.
func (p *MonitorPage) openSessionLog(port string, baud int) {
	p.closeSessionLog()
	if p.store == nil {
		return
	}
	dir, err := p.store.LogsDir()
	if err != nil {
		return
	}
	name := fmt.Sprintf("%s-%s.log", sanitizePort(port), time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return
	}
	p.logFile = f
	p.logPath = path
	p.store.AddSerialLog(store.SerialLog{
		Port:      port,
		BaudRate:  baud,
		Timestamp: time.Now(),
		LogFile:   path,
	})
}

func (p *MonitorPage) closeSessionLog() {
	if p.logFile != nil {
		p.logFile.Close()
		p.logFile = nil
		p.logPath = ""
	}
}

func (p *MonitorPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Monitor"))
	b.WriteString("\n")

	if p.state == monitorStatePortSelect {
		if p.message != "" {
			b.WriteString("  " + p.message + "\n\n")
		}
		if len(p.ports) == 0 {
			b.WriteString("  " + ui.DimStyle.Render("No serial ports found. Press r to rescan.") + "\n")
			return b.String()
		}
		for i, port := range p.ports {
			cursor := "  "
			if i == p.cursor {
				cursor = ui.BoldStyle.Render("> ")
			}
			line := cursor + port.Name
			if desc := port.Description(); desc != "" {
				line += "  " + ui.DimStyle.Render(desc)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
		b.WriteString(ui.DimStyle.Render("  enter: connect  r: rescan"))
		return b.String()
	}

	header := fmt.Sprintf("  %s @ %d", ui.SuccessBadge(p.connectedPort), p.baudRate)
	if !p.follow {
		header += "  " + ui.WarningBadge("paused")
	}
	if hash := p.monitor.LastFirmwareHash(); hash != "" {
		header += "  " + ui.DimStyle.Render(fmt.Sprintf("fw %.12s", hash))
	}
	b.WriteString(header + "\n")
	if p.logPath != "" {
		b.WriteString("  " + ui.DimStyle.Render("log: "+p.logPath) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(p.viewport.View())
	b.WriteString("\n")
	b.WriteString("  " + p.input.View() + "\n")

	if p.message != "" {
		b.WriteString("\n  " + ui.DimStyle.Render(p.message))
	}

	return b.String()
}

func (p *MonitorPage) Name() string { return "Monitor" }

func (p *MonitorPage) ShortHelp() []key.Binding {
	if p.state == monitorStatePortSelect {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
			key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		}
	}
	if p.input.Focused() {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "unfocus")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
		key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
		key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "input")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	}
}

func (p *MonitorPage) InputCaptured() bool {
	return p.state == monitorStateConnected && p.input.Focused()
}

func (p *MonitorPage) SetSize(w, h int) {
	p.width = w
	p.height = h
	vpHeight := h - 8
	if vpHeight < 3 {
		vpHeight = 3
	}
	p.viewport.Width = w - 4
	p.viewport.Height = vpHeight
}

// sanitizePort turns a device path into a file name fragment.
func sanitizePort(port string) string {
	s := strings.TrimPrefix(port, "/dev/")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
