package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/serial"
	"github.com/buckleypaul/uplink/internal/ui"
	"github.com/buckleypaul/uplink/internal/uploader"
)

// detectTimeout bounds one registry probe sweep over a single port.
const detectTimeout = 15 * time.Second

type deviceRow struct {
	port    serial.PortInfo
	chip    string // detected chip label, empty until probed
	probing bool
	probed  bool // a probe completed, successfully or not
}

type deviceDetectedMsg struct {
	port string
	info uploader.DeviceInfo
	ok   bool
}

// DevicesPage lists serial ports and probes them for known chips.
type DevicesPage struct {
	registry      *uploader.Registry
	rows          []deviceRow
	cursor        int
	loading       bool
	message       string
	width, height int
}

func NewDevicesPage(reg *uploader.Registry) *DevicesPage {
	return &DevicesPage{registry: reg}
}

func (p *DevicesPage) Init() tea.Cmd {
	p.loading = true
	return app.LoadPorts()
}

func (p *DevicesPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.PortsLoadedMsg:
		p.loading = false
		if msg.Err != nil {
			p.message = fmt.Sprintf("Error listing ports: %v", msg.Err)
			return p, nil
		}
		p.message = ""
		p.rows = nil
		for _, port := range msg.Ports {
			p.rows = append(p.rows, deviceRow{port: port})
		}
		if p.cursor >= len(p.rows) {
			p.cursor = len(p.rows) - 1
		}
		if p.cursor < 0 {
			p.cursor = 0
		}
		return p, nil

	case deviceDetectedMsg:
		for i := range p.rows {
			if p.rows[i].port.Name != msg.port {
				continue
			}
			p.rows[i].probing = false
			p.rows[i].probed = true
			if msg.ok {
				p.rows[i].chip = chipLabel(msg.info.ChipID, msg.info.ChipVariant)
			} else {
				p.rows[i].chip = ""
			}
		}
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down":
			if p.cursor < len(p.rows)-1 {
				p.cursor++
			}
		case "r":
			p.loading = true
			return p, app.LoadPorts()
		case "d":
			if p.cursor < len(p.rows) {
				p.rows[p.cursor].probing = true
				p.rows[p.cursor].probed = false
				return p, p.detect(p.rows[p.cursor].port.Name)
			}
		case "enter":
			if p.cursor < len(p.rows) {
				port := p.rows[p.cursor].port.Name
				return p, func() tea.Msg {
					return app.PortSelectedMsg{Port: port}
				}
			}
		}
	}

	return p, nil
}

// detect probes one port against every registered adapter family.
func (p *DevicesPage) detect(port string) tea.Cmd {
	reg := p.registry
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
		defer cancel()
		_, info, ok := reg.Detect(ctx, port)
		return deviceDetectedMsg{port: port, info: info, ok: ok}
	}
}

func (p *DevicesPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Devices"))
	b.WriteString("\n")

	if p.message != "" {
		b.WriteString("  " + p.message + "\n\n")
	}

	if p.loading {
		b.WriteString("  " + ui.DimStyle.Render("Scanning ports...") + "\n")
		return b.String()
	}

	if len(p.rows) == 0 {
		b.WriteString("  " + ui.DimStyle.Render("No serial ports found. Press r to rescan.") + "\n")
		return b.String()
	}

	b.WriteString("  " + ui.TableHeaderStyle.Render(fmt.Sprintf("%-24s %-26s %s", "PORT", "DESCRIPTION", "CHIP")) + "\n")

	for i, row := range p.rows {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("> ")
		}

		desc := row.port.Description()
		if len(desc) > 26 {
			desc = desc[:26]
		}

		chip := ""
		switch {
		case row.probing:
			chip = ui.DimStyle.Render("probing...")
		case row.probed && row.chip != "":
			chip = ui.SuccessBadge(row.chip)
		case row.probed:
			chip = ui.DimStyle.Render("no response")
		default:
			chip = ui.DimStyle.Render("-")
		}

		b.WriteString(fmt.Sprintf("%s%-24s %-26s %s\n", cursor, row.port.Name, ui.DimStyle.Render(desc), chip))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %d port(s)\n", len(p.rows)))
	b.WriteString("\n")
	b.WriteString(ui.DimStyle.Render("  r: rescan  d: detect  enter: use port"))

	return b.String()
}

func (p *DevicesPage) Name() string { return "Devices" }

func (p *DevicesPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "detect")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "use port")),
	}
}

func (p *DevicesPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}

// chipLabel joins a chip family and variant into the display key used
// across pages, e.g. "esp32:s2".
func chipLabel(chip, variant string) string {
	if variant == "" {
		return chip
	}
	return chip + ":" + variant
}
