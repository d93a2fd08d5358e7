package pages

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/toolchain"
	"github.com/buckleypaul/uplink/internal/ui"
	"github.com/buckleypaul/uplink/internal/uploader"
)

// ProfilesPage lists the registered chip adapters and shows the full
// profile for the one under the cursor.
type ProfilesPage struct {
	registry   *uploader.Registry
	profileDir string

	adapters []uploader.Adapter
	toolOK   map[string]bool
	cursor   int

	width, height int
	message       string
}

func NewProfilesPage(reg *uploader.Registry, profileDir string) *ProfilesPage {
	p := &ProfilesPage{
		registry:   reg,
		profileDir: profileDir,
		toolOK:     make(map[string]bool),
	}
	if reg != nil {
		p.adapters = reg.Adapters()
	}
	p.refreshTools()
	return p
}

// refreshTools probes PATH for every tool any adapter requires.
func (p *ProfilesPage) refreshTools() {
	for _, ad := range p.adapters {
		for _, tool := range ad.Requirements() {
			p.toolOK[tool] = toolchain.CheckTools(tool) == nil
		}
	}
}

func (p *ProfilesPage) Init() tea.Cmd {
	return nil
}

func (p *ProfilesPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down":
			if p.cursor < len(p.adapters)-1 {
				p.cursor++
			}
		case "c":
			p.refreshTools()
			p.message = "Toolchain availability re-checked"
		case "enter":
			if p.cursor < len(p.adapters) {
				ad := p.adapters[p.cursor]
				p.message = fmt.Sprintf("Selected %s", chipLabel(ad.ChipID(), ad.ChipVariant()))
				return p, func() tea.Msg {
					return app.ChipSelectedMsg{Chip: ad.ChipID(), Variant: ad.ChipVariant()}
				}
			}
		}
	}
	return p, nil
}

func (p *ProfilesPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Profiles"))
	b.WriteString("\n")

	if len(p.adapters) == 0 {
		b.WriteString("  " + ui.DimStyle.Render("No chip adapters registered.") + "\n")
		return b.String()
	}

	listWidth := 26
	var list strings.Builder
	for i, ad := range p.adapters {
		label := chipLabel(ad.ChipID(), ad.ChipVariant())
		if i == p.cursor {
			list.WriteString(ui.BoldStyle.Render("> "+label) + "\n")
		} else {
			list.WriteString("  " + label + "\n")
		}
	}

	detail := p.viewDetail(p.adapters[p.cursor])

	cols := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Render(list.String()),
		detail,
	)
	b.WriteString(cols)
	b.WriteString("\n")

	if p.message != "" {
		b.WriteString("\n  " + ui.DimStyle.Render(p.message) + "\n")
	}
	b.WriteString("\n" + ui.DimStyle.Render("  enter: use chip  c: check tools"))
	return b.String()
}

func (p *ProfilesPage) viewDetail(ad uploader.Adapter) string {
	prof := ad.Profile()
	var b strings.Builder

	b.WriteString(ui.BoldStyle.Render(prof.ChipName) + "\n")
	b.WriteString(ui.DimStyle.Render(fmt.Sprintf("%s, %s", prof.Manufacturer, prof.Architecture)) + "\n\n")

	b.WriteString(fmt.Sprintf("Flash     %s\n", formatBytes(prof.FlashSizeBytes)))
	b.WriteString(fmt.Sprintf("RAM       %s\n", formatBytes(prof.RAMSizeBytes)))
	if prof.CPUFrequencyMHz > 0 {
		b.WriteString(fmt.Sprintf("CPU       %d MHz\n", prof.CPUFrequencyMHz))
	}
	if len(prof.SupportedFormats) > 0 {
		b.WriteString(fmt.Sprintf("Formats   %s\n", strings.Join(prof.SupportedFormats, ", ")))
	}

	fd := prof.FlashDefaults
	b.WriteString(fmt.Sprintf("Baud      %d\n", fd.BaudRate))
	if fd.FlashMode != "" || fd.FlashFreq != "" || fd.FlashSize != "" {
		b.WriteString(fmt.Sprintf("Flash opts %s %s %s\n",
			strings.TrimSpace(fd.FlashMode), strings.TrimSpace(fd.FlashFreq), strings.TrimSpace(fd.FlashSize)))
	}
	if fd.Offset != "" {
		b.WriteString(fmt.Sprintf("Offset    %s\n", fd.Offset))
	}
	if fd.Programmer != "" {
		b.WriteString(fmt.Sprintf("Programmer %s\n", fd.Programmer))
	}
	if len(prof.Capabilities) > 0 {
		b.WriteString(fmt.Sprintf("Caps      %s\n", strings.Join(prof.Capabilities, ", ")))
	}

	if reqs := ad.Requirements(); len(reqs) > 0 {
		b.WriteString("\nTools\n")
		for _, tool := range reqs {
			if p.toolOK[tool] {
				b.WriteString("  " + ui.SuccessBadge("ok") + " " + tool + "\n")
			} else {
				b.WriteString("  " + ui.ErrorBadge("missing") + " " + tool + "\n")
			}
		}
	}

	if path, ok := p.descriptorPath(ad); ok {
		b.WriteString("\n" + ui.DimStyle.Render("descriptor: "+path) + "\n")
	}

	return b.String()
}

// descriptorPath reports the JSON overlay file for the adapter's chip,
// if one exists in the profile directory.
func (p *ProfilesPage) descriptorPath(ad uploader.Adapter) (string, bool) {
	if p.profileDir == "" {
		return "", false
	}
	names := []string{strings.ToLower(ad.ChipID()) + ".json"}
	if v := ad.ChipVariant(); v != "" {
		names = append([]string{strings.ToLower(ad.ChipID()) + "-" + strings.ToLower(v) + ".json"}, names...)
	}
	for _, name := range names {
		path := filepath.Join(p.profileDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func (p *ProfilesPage) Name() string { return "Profiles" }

func (p *ProfilesPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "select")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "use chip")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "check tools")),
	}
}

func (p *ProfilesPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}

// formatBytes renders a byte count in KB or MB for flash and RAM sizes.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
