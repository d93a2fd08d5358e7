package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/batch"
	"github.com/buckleypaul/uplink/internal/config"
	"github.com/buckleypaul/uplink/internal/store"
	"github.com/buckleypaul/uplink/internal/ui"
	"github.com/buckleypaul/uplink/internal/uploader"
)

type batchRow struct {
	port     string
	desc     string
	selected bool
	state    batch.State
	note     string
	active   bool // part of the current or last run
}

type batchEventMsg struct {
	ev batch.Event
}

type batchDoneMsg struct {
	report batch.Report
}

// BatchPage flashes the selected pattern to several ports concurrently.
type BatchPage struct {
	registry *uploader.Registry
	store    *store.Store
	cfg      *config.Config
	ws       config.Workspace

	chip        string
	patternPath string

	rows   []batchRow
	cursor int

	running   bool
	events    chan batch.Event
	completed int
	total     int
	report    *batch.Report
	started   time.Time

	width, height int
	message       string
}

func NewBatchPage(reg *uploader.Registry, s *store.Store, cfg *config.Config, ws config.Workspace) *BatchPage {
	return &BatchPage{
		registry: reg,
		store:    s,
		cfg:      cfg,
		ws:       ws,
		chip:     cfg.DefaultChip,
	}
}

func (p *BatchPage) Init() tea.Cmd {
	return app.LoadPorts()
}

func (p *BatchPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.PortsLoadedMsg:
		if p.running || msg.Err != nil {
			return p, nil
		}
		// Rebuild the list, keeping selection for ports still present.
		selected := map[string]bool{}
		for _, row := range p.rows {
			if row.selected {
				selected[row.port] = true
			}
		}
		p.rows = nil
		for _, port := range msg.Ports {
			p.rows = append(p.rows, batchRow{
				port:     port.Name,
				desc:     port.Description(),
				selected: selected[port.Name],
			})
		}
		if p.cursor >= len(p.rows) {
			p.cursor = len(p.rows) - 1
		}
		if p.cursor < 0 {
			p.cursor = 0
		}
		return p, nil

	case app.ChipSelectedMsg:
		if !p.running {
			p.chip = chipLabel(msg.Chip, msg.Variant)
		}
		return p, nil

	case app.PatternSelectedMsg:
		if !p.running {
			p.patternPath = msg.Path
		}
		return p, nil

	case batchEventMsg:
		p.completed = msg.ev.Completed
		p.total = msg.ev.Total
		for i := range p.rows {
			if p.rows[i].port == msg.ev.Port {
				p.rows[i].state = msg.ev.State
				p.rows[i].note = msg.ev.Message
			}
		}
		return p, p.waitForEvent()

	case batchDoneMsg:
		if !p.running {
			return p, nil
		}
		p.running = false
		p.report = &msg.report
		// Events can race the report; the report has the final states.
		for _, res := range msg.report.Results {
			for i := range p.rows {
				if p.rows[i].port == res.Job.Port {
					p.rows[i].state = res.State
					if res.Err != "" {
						p.rows[i].note = res.Err
					}
				}
			}
		}
		p.message = fmt.Sprintf("Batch finished: %d/%d succeeded in %s",
			msg.report.Succeeded, msg.report.Total, msg.report.Duration.Round(time.Millisecond))
		p.recordBatch(msg.report)
		return p, nil

	case tea.KeyMsg:
		if p.running {
			return p, nil
		}
		switch msg.String() {
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down":
			if p.cursor < len(p.rows)-1 {
				p.cursor++
			}
		case " ":
			if p.cursor < len(p.rows) {
				p.rows[p.cursor].selected = !p.rows[p.cursor].selected
			}
		case "a":
			for i := range p.rows {
				p.rows[i].selected = true
			}
		case "n":
			for i := range p.rows {
				p.rows[i].selected = false
			}
		case "r":
			return p, app.LoadPorts()
		case "s", "enter":
			return p, p.startBatch()
		case "c":
			p.report = nil
			p.message = ""
			for i := range p.rows {
				p.rows[i].state = batch.StatePending
				p.rows[i].note = ""
				p.rows[i].active = false
			}
		}
	}

	return p, nil
}

func (p *BatchPage) startBatch() tea.Cmd {
	if p.chip == "" {
		p.message = "Select a chip on the Flash page first"
		return nil
	}
	if p.patternPath == "" {
		p.message = "Select a pattern on the Flash page first"
		return nil
	}

	var jobs []batch.Job
	family, variant := splitChip(p.chip)
	for i := range p.rows {
		if !p.rows[i].selected {
			p.rows[i].active = false
			continue
		}
		p.rows[i].state = batch.StatePending
		p.rows[i].note = ""
		p.rows[i].active = true
		jobs = append(jobs, batch.Job{
			ID:          fmt.Sprintf("job-%d", len(jobs)),
			Port:        p.rows[i].port,
			ChipID:      family,
			ChipVariant: variant,
			Options:     &uploader.FlashOptions{Verify: !p.cfg.SkipVerify},
		})
	}
	if len(jobs) == 0 {
		p.message = "No ports selected (space toggles, a selects all)"
		return nil
	}

	data, err := os.ReadFile(p.patternPath)
	if err != nil {
		p.message = fmt.Sprintf("Error reading pattern: %v", err)
		return nil
	}

	p.running = true
	p.report = nil
	p.completed = 0
	p.total = len(jobs)
	p.started = time.Now()
	p.message = ""

	ch := make(chan batch.Event, 256)
	p.events = ch

	orch := batch.New(p.registry,
		batch.WithConcurrency(p.cfg.Concurrency),
		batch.WithBuildDir(p.ws.BuildDir(*p.cfg)),
		batch.WithProgress(func(ev batch.Event) {
			// Drop rather than block; the final report carries the
			// authoritative states.
			select {
			case ch <- ev:
			default:
			}
		}),
	)

	run := func() tea.Msg {
		report := orch.Run(context.Background(), data, jobs)
		close(ch)
		return batchDoneMsg{report: report}
	}
	return tea.Batch(run, p.waitForEvent())
}

func (p *BatchPage) waitForEvent() tea.Cmd {
	ch := p.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return batchEventMsg{ev: ev}
	}
}

func (p *BatchPage) recordBatch(report batch.Report) {
	if p.store == nil {
		return
	}
	p.store.AddBatch(store.BatchRecord{
		Timestamp:  p.started,
		Pattern:    filepath.Base(p.patternPath),
		Total:      report.Total,
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		TotalBytes: report.TotalBytes,
		Duration:   report.Duration.String(),
		Errors:     report.Errors(),
	})
}

func (p *BatchPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Batch"))
	b.WriteString("\n")

	chip := p.chip
	if chip == "" {
		chip = "(none)"
	}
	pattern := "(none)"
	if p.patternPath != "" {
		pattern = filepath.Base(p.patternPath)
	}
	b.WriteString(fmt.Sprintf("  Chip: %s  Pattern: %s  Workers: %d\n\n",
		ui.BoldStyle.Render(chip), ui.BoldStyle.Render(pattern), p.cfg.Concurrency))

	if p.message != "" {
		b.WriteString("  " + p.message + "\n\n")
	}

	if len(p.rows) == 0 {
		b.WriteString("  " + ui.DimStyle.Render("No serial ports found. Press r to rescan.") + "\n")
		return b.String()
	}

	for i, row := range p.rows {
		cursor := "  "
		if i == p.cursor && !p.running {
			cursor = ui.BoldStyle.Render("> ")
		}

		check := "[ ]"
		if row.selected {
			check = "[x]"
		}

		line := fmt.Sprintf("%s%s %-24s", cursor, check, row.port)
		if row.active {
			line += " " + ui.StateBadge(row.state.String())
			if row.note != "" {
				note := row.note
				if len(note) > 40 {
					note = note[:40]
				}
				line += " " + ui.DimStyle.Render(note)
			}
		} else if row.desc != "" {
			desc := row.desc
			if len(desc) > 40 {
				desc = desc[:40]
			}
			line += " " + ui.DimStyle.Render(desc)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	if p.running {
		b.WriteString(fmt.Sprintf("  Flashing... %d/%d done\n", p.completed, p.total))
	} else if p.report != nil {
		r := p.report
		b.WriteString(fmt.Sprintf("  %s  %s  %d bytes written\n",
			ui.SuccessBadge(fmt.Sprintf("%d ok", r.Succeeded)),
			ui.ErrorBadge(fmt.Sprintf("%d failed", r.Failed)),
			r.TotalBytes))
		for _, e := range r.Errors() {
			b.WriteString("  " + ui.DimStyle.Render(e) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(ui.DimStyle.Render("  space: toggle  a: all  n: none  s: start  r: rescan  c: clear"))

	return b.String()
}

func (p *BatchPage) Name() string { return "Batch" }

func (p *BatchPage) ShortHelp() []key.Binding {
	if p.running {
		return []key.Binding{
			key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "toggle")),
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	}
}

func (p *BatchPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
