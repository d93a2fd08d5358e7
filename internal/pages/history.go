package pages

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/store"
	"github.com/buckleypaul/uplink/internal/ui"
)

type historyTab int

const (
	tabBuilds historyTab = iota
	tabFlashes
	tabBatches
	tabSerialLogs
)

var tabNames = []string{"Builds", "Flashes", "Batches", "Serial Logs"}

const historyTimeFormat = "2006-01-02 15:04"

// HistoryPage shows recorded builds, flashes, batch runs and serial
// sessions from the workspace store.
type HistoryPage struct {
	store *store.Store

	activeTab  historyTab
	builds     []store.BuildRecord
	flashes    []store.FlashRecord
	batches    []store.BatchRecord
	serialLogs []store.SerialLog

	width, height int
	message       string
}

func NewHistoryPage(st *store.Store) *HistoryPage {
	p := &HistoryPage{store: st}
	p.reload()
	return p
}

func (p *HistoryPage) reload() {
	if p.store == nil {
		return
	}
	p.message = ""
	if builds, err := p.store.Builds(); err == nil {
		p.builds = builds
	} else {
		p.message = fmt.Sprintf("Failed to load history: %v", err)
	}
	if flashes, err := p.store.Flashes(); err == nil {
		p.flashes = flashes
	}
	if batches, err := p.store.Batches(); err == nil {
		p.batches = batches
	}
	if logs, err := p.store.SerialLogs(); err == nil {
		p.serialLogs = logs
	}
}

func (p *HistoryPage) Init() tea.Cmd {
	return nil
}

func (p *HistoryPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "right", "l":
			p.activeTab = historyTab((int(p.activeTab) + 1) % len(tabNames))
			p.reload()
		case "left", "h":
			p.activeTab = historyTab((int(p.activeTab) + len(tabNames) - 1) % len(tabNames))
			p.reload()
		case "r":
			p.reload()
		}
	}
	return p, nil
}

func (p *HistoryPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("History"))
	b.WriteString("\n")

	var tabs []string
	for i, name := range tabNames {
		if historyTab(i) == p.activeTab {
			tabs = append(tabs, ui.TabActiveStyle.Render(name))
		} else {
			tabs = append(tabs, ui.TabStyle.Render(name))
		}
	}
	b.WriteString(strings.Join(tabs, "") + "\n\n")

	if p.message != "" {
		b.WriteString("  " + ui.ErrorBadge("error") + " " + p.message + "\n\n")
	}

	switch p.activeTab {
	case tabBuilds:
		b.WriteString(p.viewBuilds())
	case tabFlashes:
		b.WriteString(p.viewFlashes())
	case tabBatches:
		b.WriteString(p.viewBatches())
	case tabSerialLogs:
		b.WriteString(p.viewSerialLogs())
	}

	return b.String()
}

func (p *HistoryPage) maxRows() int {
	rows := p.height - 8
	if rows < 5 {
		rows = 5
	}
	return rows
}

func (p *HistoryPage) viewBuilds() string {
	if len(p.builds) == 0 {
		return "  " + ui.DimStyle.Render("No builds recorded yet.") + "\n"
	}
	var b strings.Builder
	b.WriteString("  " + ui.TableHeaderStyle.Render(
		fmt.Sprintf("%-17s %-18s %-20s %-10s %8s  %s", "TIME", "CHIP", "PATTERN", "STATUS", "SIZE", "DURATION")) + "\n")
	for i := len(p.builds) - 1; i >= 0 && len(p.builds)-1-i < p.maxRows(); i-- {
		r := p.builds[i]
		status := "success"
		if !r.Success {
			status = "failure"
		}
		line := fmt.Sprintf("  %-17s %-18s %-20s %s %8d  %s",
			r.Timestamp.Format(historyTimeFormat),
			clip(r.Chip, 18),
			clip(r.Pattern, 20),
			ui.StateBadge(status),
			r.SizeBytes,
			r.Duration,
		)
		b.WriteString(line + "\n")
		if r.Error != "" {
			b.WriteString("    " + ui.DimStyle.Render(clip(r.Error, p.width-6)) + "\n")
		}
	}
	return b.String()
}

func (p *HistoryPage) viewFlashes() string {
	if len(p.flashes) == 0 {
		return "  " + ui.DimStyle.Render("No flashes recorded yet.") + "\n"
	}
	var b strings.Builder
	b.WriteString("  " + ui.TableHeaderStyle.Render(
		fmt.Sprintf("%-17s %-18s %-22s %-20s %-9s %s", "TIME", "CHIP", "PORT", "STATUS", "VERIFIED", "DURATION")) + "\n")
	for i := len(p.flashes) - 1; i >= 0 && len(p.flashes)-1-i < p.maxRows(); i-- {
		r := p.flashes[i]
		verified := "-"
		if r.Verified {
			verified = "yes"
		}
		line := fmt.Sprintf("  %-17s %-18s %-22s %-20s %-9s %s",
			r.Timestamp.Format(historyTimeFormat),
			clip(r.Chip, 18),
			clip(r.Port, 22),
			ui.StateBadge(r.Status),
			verified,
			r.Duration,
		)
		b.WriteString(line + "\n")
		if r.Error != "" {
			b.WriteString("    " + ui.DimStyle.Render(clip(r.Error, p.width-6)) + "\n")
		}
	}
	return b.String()
}

func (p *HistoryPage) viewBatches() string {
	if len(p.batches) == 0 {
		return "  " + ui.DimStyle.Render("No batch runs recorded yet.") + "\n"
	}
	var b strings.Builder
	b.WriteString("  " + ui.TableHeaderStyle.Render(
		fmt.Sprintf("%-17s %-20s %6s %6s %6s %10s  %s", "TIME", "PATTERN", "TOTAL", "OK", "FAIL", "BYTES", "DURATION")) + "\n")
	for i := len(p.batches) - 1; i >= 0 && len(p.batches)-1-i < p.maxRows(); i-- {
		r := p.batches[i]
		line := fmt.Sprintf("  %-17s %-20s %6d %6d %6d %10d  %s",
			r.Timestamp.Format(historyTimeFormat),
			clip(r.Pattern, 20),
			r.Total,
			r.Succeeded,
			r.Failed,
			r.TotalBytes,
			r.Duration,
		)
		b.WriteString(line + "\n")
		for _, e := range r.Errors {
			b.WriteString("    " + ui.DimStyle.Render(clip(e, p.width-6)) + "\n")
		}
	}
	return b.String()
}

func (p *HistoryPage) viewSerialLogs() string {
	if len(p.serialLogs) == 0 {
		return "  " + ui.DimStyle.Render("No serial sessions recorded yet.") + "\n"
	}
	var b strings.Builder
	b.WriteString("  " + ui.TableHeaderStyle.Render(
		fmt.Sprintf("%-17s %-22s %-8s %s", "TIME", "PORT", "BAUD", "LOG FILE")) + "\n")
	for i := len(p.serialLogs) - 1; i >= 0 && len(p.serialLogs)-1-i < p.maxRows(); i-- {
		r := p.serialLogs[i]
		line := fmt.Sprintf("  %-17s %-22s %-8d %s",
			r.Timestamp.Format(historyTimeFormat),
			clip(r.Port, 22),
			r.BaudRate,
			ui.DimStyle.Render(clip(r.LogFile, p.width-54)),
		)
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (p *HistoryPage) Name() string { return "History" }

func (p *HistoryPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "switch tab")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

func (p *HistoryPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if n < 1 {
		n = 1
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
