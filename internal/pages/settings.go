package pages

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/config"
	"github.com/buckleypaul/uplink/internal/ui"
)

type settingField struct {
	label string
	key   string
}

var settingFields = []settingField{
	{"Default Chip", "default_chip"},
	{"Serial Port", "serial_port"},
	{"Serial Baud Rate", "serial_baud_rate"},
	{"Build Directory", "build_dir"},
	{"Pattern Directory", "pattern_dir"},
	{"Profile Directory", "profile_dir"},
	{"Concurrency", "concurrency"},
	{"Verify After Flash", "verify"},
}

// SettingsPage edits the workspace configuration in place. Applied
// values take effect immediately; s persists them.
type SettingsPage struct {
	cfg           *config.Config
	workspaceRoot string
	cursor        int
	editing       bool
	input         textinput.Model
	width, height int
	message       string
}

func NewSettingsPage(cfg *config.Config, workspaceRoot string) *SettingsPage {
	ti := textinput.New()
	ti.CharLimit = 128
	return &SettingsPage{
		cfg:           cfg,
		workspaceRoot: workspaceRoot,
		input:         ti,
	}
}

func (p *SettingsPage) Init() tea.Cmd { return nil }

func (p *SettingsPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if p.editing {
			switch msg.String() {
			case "enter":
				applied := p.applyValue(strings.TrimSpace(p.input.Value()))
				p.editing = false
				p.input.Blur()
				if applied {
					return p, func() tea.Msg { return app.ConfigChangedMsg{} }
				}
				return p, nil
			case "esc":
				p.editing = false
				p.input.Blur()
				return p, nil
			}
			var cmd tea.Cmd
			p.input, cmd = p.input.Update(msg)
			return p, cmd
		}

		switch msg.String() {
		case "down":
			if p.cursor < len(settingFields)-1 {
				p.cursor++
			}
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "enter", "e":
			p.editing = true
			p.input.SetValue(p.getValue(p.cursor))
			p.input.CursorEnd()
			return p, p.input.Focus()
		case "s":
			if err := config.Save(*p.cfg, p.workspaceRoot, false); err != nil {
				p.message = fmt.Sprintf("Error saving: %v", err)
			} else {
				p.message = "Settings saved to workspace"
			}
		case "S":
			if err := config.Save(*p.cfg, p.workspaceRoot, true); err != nil {
				p.message = fmt.Sprintf("Error saving: %v", err)
			} else {
				p.message = "Settings saved to global config"
			}
		}
	}
	return p, nil
}

func (p *SettingsPage) View() string {
	var inner strings.Builder

	for i, f := range settingFields {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("> ")
		}

		val := p.getValue(i)
		if val == "" {
			val = ui.DimStyle.Render("(not set)")
		}

		line := fmt.Sprintf("%s%-20s %s", cursor, f.label, val)
		inner.WriteString(line)
		inner.WriteString("\n")
	}

	if p.editing {
		inner.WriteString("\n")
		inner.WriteString(fmt.Sprintf("  Edit %s:\n", settingFields[p.cursor].label))
		inner.WriteString("  " + p.input.View())
		inner.WriteString("\n")
	}

	if p.message != "" {
		inner.WriteString("\n  " + p.message)
	}

	return ui.Panel("Settings", inner.String(), p.width, 0, false)
}

func (p *SettingsPage) Name() string { return "Settings" }

func (p *SettingsPage) ShortHelp() []key.Binding {
	if p.editing {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save to disk")),
	}
}

func (p *SettingsPage) InputCaptured() bool {
	return p.editing
}

func (p *SettingsPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}

func (p *SettingsPage) getValue(idx int) string {
	switch settingFields[idx].key {
	case "default_chip":
		return p.cfg.DefaultChip
	case "serial_port":
		return p.cfg.SerialPort
	case "serial_baud_rate":
		return strconv.Itoa(p.cfg.SerialBaudRate)
	case "build_dir":
		return p.cfg.BuildDir
	case "pattern_dir":
		return p.cfg.PatternDir
	case "profile_dir":
		return p.cfg.ProfileDir
	case "concurrency":
		return strconv.Itoa(p.cfg.Concurrency)
	case "verify":
		if p.cfg.SkipVerify {
			return "off"
		}
		return "on"
	}
	return ""
}

// applyValue writes the edited value into the config and reports
// whether it was accepted.
func (p *SettingsPage) applyValue(val string) bool {
	switch settingFields[p.cursor].key {
	case "default_chip":
		p.cfg.DefaultChip = val
	case "serial_port":
		p.cfg.SerialPort = val
	case "serial_baud_rate":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			p.message = "Baud rate must be a positive number"
			return false
		}
		p.cfg.SerialBaudRate = n
	case "build_dir":
		if val == "" {
			p.message = "Build directory cannot be empty"
			return false
		}
		p.cfg.BuildDir = val
	case "pattern_dir":
		p.cfg.PatternDir = val
	case "profile_dir":
		p.cfg.ProfileDir = val
	case "concurrency":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			p.message = "Concurrency must be a positive number"
			return false
		}
		p.cfg.Concurrency = n
	case "verify":
		switch strings.ToLower(val) {
		case "on", "true", "yes", "1":
			p.cfg.SkipVerify = false
		case "off", "false", "no", "0":
			p.cfg.SkipVerify = true
		default:
			p.message = "Verify must be on or off"
			return false
		}
	}
	p.message = fmt.Sprintf("%s updated", settingFields[p.cursor].label)
	return true
}
