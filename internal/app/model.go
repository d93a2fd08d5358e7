package app

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/uplink/internal/config"
	"github.com/buckleypaul/uplink/internal/ui"
)

type FocusArea int

const (
	FocusSidebar FocusArea = iota
	FocusContent
)

type Model struct {
	pages           map[PageID]Page
	activePage      PageID
	focus           FocusArea
	width           int
	height          int
	showHelp        bool
	selectedChip    string
	selectedPort    string
	selectedPattern string
	picker          *Picker
	cfg             *config.Config
	wsRoot          string
}

func New(pages map[PageID]Page, cfg *config.Config, wsRoot string) Model {
	return Model{
		pages:        pages,
		cfg:          cfg,
		wsRoot:       wsRoot,
		selectedChip: cfg.DefaultChip,
		selectedPort: cfg.SerialPort,
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, p := range m.pages {
		if cmd := p.Init(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentWidth := m.width - sidebarWidth
		contentHeight := m.height - 2 - 1 // status bar + target bar
		for _, p := range m.pages {
			p.SetSize(contentWidth, contentHeight)
		}
		return m, nil

	case PortsLoadedMsg:
		// Feed the picker when open; the fan-out below still delivers the
		// scan to pages that track ports themselves.
		if msg.Err == nil && m.picker != nil {
			var items []PickerItem
			for _, p := range msg.Ports {
				items = append(items, PickerItem{
					Label: p.Name,
					Value: p.Name,
					Desc:  p.Description(),
				})
			}
			m.picker.SetItems(items)
		}

	case PickerSelectedMsg:
		m.picker = nil
		// Re-enters Update as PortSelectedMsg, which persists and fans out.
		return m, func() tea.Msg { return PortSelectedMsg{Port: msg.Value} }

	case PickerClosedMsg:
		m.picker = nil
		return m, nil

	case PortSelectedMsg:
		m.selectedPort = msg.Port
		m.cfg.SerialPort = msg.Port
		config.Save(*m.cfg, m.wsRoot, false)
		// Fan-out below broadcasts to all pages.

	case ChipSelectedMsg:
		label := msg.Chip
		if msg.Variant != "" {
			label += ":" + msg.Variant
		}
		m.selectedChip = label
		m.cfg.DefaultChip = label
		config.Save(*m.cfg, m.wsRoot, false)

	case PatternSelectedMsg:
		m.selectedPattern = filepath.Base(msg.Path)

	case ConfigChangedMsg:
		m.selectedChip = m.cfg.DefaultChip
		m.selectedPort = m.cfg.SerialPort

	case tea.KeyMsg:
		// When picker is open, forward all keys to picker
		if m.picker != nil {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}

		// When a page has an active text input, forward all keys
		// directly to the page. Only ctrl+c still quits.
		if m.focus == FocusContent {
			if ic, ok := m.pages[m.activePage].(InputCapturer); ok && ic.InputCaptured() {
				if msg.String() == "ctrl+c" {
					return m, tea.Quit
				}
				page := m.pages[m.activePage]
				newPage, cmd := page.Update(msg)
				m.pages[m.activePage] = newPage
				return m, cmd
			}
		}

		// Global key handling
		switch {
		case key.Matches(msg, GlobalKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, GlobalKeys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, GlobalKeys.ToggleFocus):
			if m.focus == FocusSidebar {
				m.focus = FocusContent
				return m, nil
			}
			// When content focused, fall through to page handler
		}

		// Sidebar-only shortcuts
		if m.focus == FocusSidebar {
			if key.Matches(msg, GlobalKeys.PortPicker) {
				m.picker = NewPicker("Select Port")
				contentWidth := m.width - sidebarWidth
				contentHeight := m.height - 2 - 1
				m.picker.SetSize(contentWidth, contentHeight)
				return m, LoadPorts()
			}
		}

		// Handle arrow keys based on focus
		if m.focus == FocusSidebar {
			switch msg.String() {
			case "up":
				m.prevPage()
				return m, nil
			case "down":
				m.nextPage()
				return m, nil
			case "enter", "right":
				m.focus = FocusContent
				return m, nil
			}
		} else if m.focus == FocusContent {
			if msg.String() == "left" {
				m.focus = FocusSidebar
				return m, nil
			}
		}
	}

	// Key messages: only forward to active page when content is focused
	if _, isKey := msg.(tea.KeyMsg); isKey {
		if m.focus != FocusContent {
			return m, nil
		}
		page := m.pages[m.activePage]
		newPage, cmd := page.Update(msg)
		m.pages[m.activePage] = newPage
		return m, cmd
	}

	// Non-key messages (command results, broadcasts, etc.): forward to all
	// pages so responses reach the page that initiated the command
	var cmds []tea.Cmd
	for id, page := range m.pages {
		newPage, cmd := page.Update(msg)
		m.pages[id] = newPage
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	contentWidth := m.width - sidebarWidth
	contentHeight := m.height - 2 - 1 // status bar + target bar

	page := m.pages[m.activePage]

	targetBar := renderTargetBar(m.selectedChip, m.selectedPort, m.selectedPattern, m.width, m.focus == FocusSidebar)
	sidebar := renderSidebar(PageOrder, m.activePage, m.pages, contentHeight, m.focus == FocusSidebar)
	content := ui.ContentStyle.
		Width(contentWidth).
		Height(contentHeight).
		Render(page.View())

	// Overlay picker on content area when open
	if m.picker != nil {
		m.picker.SetSize(contentWidth, contentHeight)
		pickerView := m.picker.View()
		content = lipgloss.Place(
			contentWidth, contentHeight,
			lipgloss.Center, lipgloss.Center,
			pickerView,
		)
	}

	statusBar := renderStatusBar(page.ShortHelp(), m.width, m.focus)

	return renderLayout(targetBar, sidebar, content, statusBar)
}

func (m *Model) nextPage() {
	for i, id := range PageOrder {
		if id == m.activePage {
			m.activePage = PageOrder[(i+1)%len(PageOrder)]
			return
		}
	}
}

func (m *Model) prevPage() {
	for i, id := range PageOrder {
		if id == m.activePage {
			m.activePage = PageOrder[(i-1+len(PageOrder))%len(PageOrder)]
			return
		}
	}
}
