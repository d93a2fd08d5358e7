package pages

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/config"
	"github.com/buckleypaul/uplink/internal/firmware"
	"github.com/buckleypaul/uplink/internal/store"
	"github.com/buckleypaul/uplink/internal/ui"
	"github.com/buckleypaul/uplink/internal/uploader"
)

type flashField int

const (
	flashFieldChip flashField = iota
	flashFieldPattern
	flashFieldPort
	flashFieldBaud
	flashFieldErase
	flashFieldVerify
	flashFieldCount
)

type flashState int

const (
	flashStateIdle flashState = iota
	flashStateRunning
	flashStateDone
)

const (
	labelWidth       = 11
	maxDropdownItems = 10
)

// patternsLoadedMsg carries the pattern directory scan.
type patternsLoadedMsg struct {
	files []firmware.PatternFile
	err   error
}

// flashDoneMsg bundles the build, flash, and optional verify results of
// one run.
type flashDoneMsg struct {
	chip    string
	port    string
	pattern string

	build    uploader.BuildResult
	flash    uploader.FlashResult
	verify   uploader.VerifyResult
	verified bool // verify phase ran
	err      string
}

// FlashPage builds a pattern into chip firmware and writes it to one
// device.
type FlashPage struct {
	// Form inputs
	chipInput    textinput.Model
	patternInput textinput.Model
	portInput    textinput.Model
	baudInput    textinput.Model
	erase        bool
	verify       bool

	// Chip type-ahead
	chips         []string
	filteredChips []string
	chipCursor    int
	chipListOpen  bool

	// Pattern type-ahead
	patterns         []firmware.PatternFile
	filteredPatterns []firmware.PatternFile
	patternCursor    int
	patternListOpen  bool

	// State
	focusedField flashField
	state        flashState
	output       strings.Builder
	viewport     viewport.Model

	// Dependencies
	registry *uploader.Registry
	store    *store.Store
	cfg      *config.Config
	ws       config.Workspace

	patternDir string
	buildDir   string

	// Metadata
	flashStart    time.Time
	width, height int
	message       string
}

func NewFlashPage(reg *uploader.Registry, s *store.Store, cfg *config.Config, ws config.Workspace) *FlashPage {
	chip := textinput.New()
	chip.Placeholder = "type to search..."
	chip.CharLimit = 64
	chip.Prompt = ""
	if cfg.DefaultChip != "" {
		chip.SetValue(cfg.DefaultChip)
	}

	pattern := textinput.New()
	pattern.Placeholder = "pattern file..."
	pattern.CharLimit = 256
	pattern.Prompt = ""

	port := textinput.New()
	port.Placeholder = "/dev/ttyUSB0"
	port.CharLimit = 128
	port.Prompt = ""
	if cfg.SerialPort != "" {
		port.SetValue(cfg.SerialPort)
	}

	baud := textinput.New()
	baud.Placeholder = "chip default"
	baud.CharLimit = 8
	baud.Prompt = ""

	vp := viewport.New(0, 0)

	chip.Focus()

	p := &FlashPage{
		chipInput:    chip,
		patternInput: pattern,
		portInput:    port,
		baudInput:    baud,
		viewport:     vp,
		registry:     reg,
		store:        s,
		cfg:          cfg,
		ws:           ws,
		patternDir:   ws.PatternDir(*cfg),
		buildDir:     ws.BuildDir(*cfg),
		verify:       !cfg.SkipVerify,
		focusedField: flashFieldChip,
	}
	if reg != nil {
		p.chips = reg.Chips()
	}
	p.filterChips()
	return p
}

func (p *FlashPage) Init() tea.Cmd {
	return p.loadPatterns
}

func (p *FlashPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.PortSelectedMsg:
		p.portInput.SetValue(msg.Port)
		return p, nil

	case app.ChipSelectedMsg:
		p.chipInput.SetValue(chipLabel(msg.Chip, msg.Variant))
		p.filterChips()
		return p, nil

	case app.PatternSelectedMsg:
		p.patternInput.SetValue(msg.Path)
		p.filterPatterns()
		return p, nil

	case app.ConfigChangedMsg:
		p.patternDir = p.ws.PatternDir(*p.cfg)
		p.buildDir = p.ws.BuildDir(*p.cfg)
		return p, p.loadPatterns

	case patternsLoadedMsg:
		if msg.err != nil {
			p.message = fmt.Sprintf("Error listing patterns: %v", msg.err)
			return p, nil
		}
		p.patterns = msg.files
		p.filterPatterns()
		return p, nil

	case flashDoneMsg:
		if p.state != flashStateRunning {
			return p, nil
		}
		p.state = flashStateDone
		p.appendRunReport(msg)
		p.updateViewportContent()
		p.viewport.GotoBottom()
		p.recordRun(msg)
		return p, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *FlashPage) handleKey(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	// When running, only viewport scrolling
	if p.state == flashStateRunning {
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return p, cmd
	}

	keyStr := msg.String()

	// Chip dropdown navigation when active
	if p.chipListOpen {
		switch keyStr {
		case "up":
			if p.chipCursor > 0 {
				p.chipCursor--
			} else {
				p.chipListOpen = false
			}
			return p, nil
		case "down":
			if p.chipCursor < len(p.filteredChips)-1 {
				p.chipCursor++
			}
			return p, nil
		case "enter":
			if len(p.filteredChips) > 0 {
				return p, p.selectChip(p.filteredChips[p.chipCursor])
			}
			return p, nil
		case "esc":
			p.chipListOpen = false
			return p, nil
		}
	}

	// Pattern dropdown navigation when active
	if p.patternListOpen {
		switch keyStr {
		case "up":
			if p.patternCursor > 0 {
				p.patternCursor--
			} else {
				p.patternListOpen = false
			}
			return p, nil
		case "down":
			if p.patternCursor < len(p.filteredPatterns)-1 {
				p.patternCursor++
			}
			return p, nil
		case "enter":
			if len(p.filteredPatterns) > 0 {
				return p, p.selectPattern(p.filteredPatterns[p.patternCursor].Path)
			}
			return p, nil
		case "esc":
			p.patternListOpen = false
			return p, nil
		}
	}

	// Global form keys
	switch keyStr {
	case "tab":
		p.advanceField(1)
		return p, nil
	case "shift+tab":
		p.advanceField(-1)
		return p, nil
	case "ctrl+f":
		return p, p.startFlash()
	case "y":
		if !p.InputCaptured() && p.output.Len() > 0 {
			p.copyToClipboard()
			return p, nil
		}
	case "esc":
		if p.state == flashStateDone {
			p.state = flashStateIdle
			p.output.Reset()
			p.updateViewportContent()
			return p, nil
		}
		p.blurAll()
		return p, nil
	}

	// Field-specific handling
	switch p.focusedField {
	case flashFieldChip:
		switch keyStr {
		case "down":
			if len(p.filteredChips) > 0 && !p.chipListOpen {
				p.chipListOpen = true
				p.chipCursor = 0
				return p, nil
			} else if !p.chipListOpen {
				p.advanceField(1)
				return p, nil
			}
		case "up":
			if !p.chipListOpen {
				p.advanceField(-1)
				return p, nil
			}
		case "enter":
			if len(p.filteredChips) > 0 {
				return p, p.selectChip(p.filteredChips[0])
			}
			return p, nil
		}
		var cmd tea.Cmd
		p.chipInput, cmd = p.chipInput.Update(msg)
		p.filterChips()
		return p, cmd

	case flashFieldPattern:
		switch keyStr {
		case "down":
			if len(p.filteredPatterns) > 0 && !p.patternListOpen {
				p.patternListOpen = true
				p.patternCursor = 0
				return p, nil
			} else if !p.patternListOpen {
				p.advanceField(1)
				return p, nil
			}
		case "up":
			if !p.patternListOpen {
				p.advanceField(-1)
				return p, nil
			}
		case "enter":
			if len(p.filteredPatterns) > 0 {
				return p, p.selectPattern(p.filteredPatterns[0].Path)
			}
			return p, nil
		}
		var cmd tea.Cmd
		p.patternInput, cmd = p.patternInput.Update(msg)
		p.filterPatterns()
		return p, cmd

	case flashFieldPort:
		switch keyStr {
		case "enter":
			return p, p.startFlash()
		case "up":
			p.advanceField(-1)
			return p, nil
		case "down":
			p.advanceField(1)
			return p, nil
		}
		var cmd tea.Cmd
		p.portInput, cmd = p.portInput.Update(msg)
		return p, cmd

	case flashFieldBaud:
		switch keyStr {
		case "enter":
			return p, p.startFlash()
		case "up":
			p.advanceField(-1)
			return p, nil
		case "down":
			p.advanceField(1)
			return p, nil
		}
		var cmd tea.Cmd
		p.baudInput, cmd = p.baudInput.Update(msg)
		return p, cmd

	case flashFieldErase:
		switch keyStr {
		case "enter", " ":
			p.erase = !p.erase
			return p, nil
		case "up":
			p.advanceField(-1)
			return p, nil
		case "down":
			p.advanceField(1)
			return p, nil
		}
		return p, nil

	case flashFieldVerify:
		switch keyStr {
		case "enter", " ":
			p.verify = !p.verify
			return p, nil
		case "up":
			p.advanceField(-1)
			return p, nil
		case "down":
			p.advanceField(1)
			return p, nil
		}
		return p, nil
	}

	return p, nil
}

// selectChip confirms a chip selection and broadcasts it.
func (p *FlashPage) selectChip(chip string) tea.Cmd {
	p.chipInput.SetValue(chip)
	p.chipListOpen = false
	p.filterChips()
	family, variant := splitChip(chip)
	return func() tea.Msg {
		return app.ChipSelectedMsg{Chip: family, Variant: variant}
	}
}

// selectPattern confirms a pattern selection and broadcasts it.
func (p *FlashPage) selectPattern(path string) tea.Cmd {
	p.patternInput.SetValue(path)
	p.patternListOpen = false
	p.filterPatterns()
	return func() tea.Msg {
		return app.PatternSelectedMsg{Path: path}
	}
}

func (p *FlashPage) advanceField(dir int) {
	p.blurCurrent()
	p.focusedField = flashField((int(p.focusedField) + int(flashFieldCount) + dir) % int(flashFieldCount))
	if p.focusedField != flashFieldChip {
		p.chipListOpen = false
	}
	if p.focusedField != flashFieldPattern {
		p.patternListOpen = false
	}
	p.focusCurrent()
}

func (p *FlashPage) blurAll() {
	p.chipInput.Blur()
	p.patternInput.Blur()
	p.portInput.Blur()
	p.baudInput.Blur()
	p.chipListOpen = false
	p.patternListOpen = false
}

func (p *FlashPage) blurCurrent() {
	switch p.focusedField {
	case flashFieldChip:
		p.chipInput.Blur()
	case flashFieldPattern:
		p.patternInput.Blur()
	case flashFieldPort:
		p.portInput.Blur()
	case flashFieldBaud:
		p.baudInput.Blur()
	}
}

func (p *FlashPage) focusCurrent() {
	switch p.focusedField {
	case flashFieldChip:
		p.chipInput.Focus()
	case flashFieldPattern:
		p.patternInput.Focus()
	case flashFieldPort:
		p.portInput.Focus()
	case flashFieldBaud:
		p.baudInput.Focus()
	}
}

func (p *FlashPage) View() string {
	formHeight := 13
	if p.focusedField == flashFieldChip && len(p.filteredChips) > 0 {
		formHeight += maxDropdownItems + 2
	}
	if p.focusedField == flashFieldPattern && len(p.filteredPatterns) > 0 {
		formHeight += maxDropdownItems + 2
	}
	outputHeight := p.height - formHeight - 1

	if outputHeight < 5 {
		outputHeight = 5
		formHeight = p.height - outputHeight - 1
	}

	form := p.viewForm(p.width)
	output := p.viewOutput(p.width, outputHeight)

	return lipgloss.JoinVertical(lipgloss.Left, form, output)
}

func (p *FlashPage) viewForm(width int) string {
	var b strings.Builder
	b.WriteString(ui.Title("Flash"))
	b.WriteString("\n")

	if p.message != "" {
		b.WriteString(p.message + "\n\n")
	}

	inputWidth := width - labelWidth - 4
	if inputWidth < 10 {
		inputWidth = 10
	}

	p.chipInput.Width = inputWidth
	p.patternInput.Width = inputWidth
	p.portInput.Width = inputWidth
	p.baudInput.Width = inputWidth

	focusedLabel := lipgloss.NewStyle().Foreground(ui.Primary).Bold(true)
	normalLabel := lipgloss.NewStyle().Foreground(ui.Text)

	renderLabel := func(name string, field flashField) string {
		padded := fmt.Sprintf("%-9s", name)
		if p.focusedField == field {
			return focusedLabel.Render(padded)
		}
		return normalLabel.Render(padded)
	}

	b.WriteString(renderLabel("Chip", flashFieldChip) + " " + p.chipInput.View() + "\n")
	if p.focusedField == flashFieldChip && len(p.filteredChips) > 0 {
		b.WriteString(p.renderChipDropdown(inputWidth))
	}

	b.WriteString(renderLabel("Pattern", flashFieldPattern) + " " + p.patternInput.View() + "\n")
	if p.focusedField == flashFieldPattern && len(p.filteredPatterns) > 0 {
		b.WriteString(p.renderPatternDropdown(inputWidth))
	}

	b.WriteString(renderLabel("Port", flashFieldPort) + " " + p.portInput.View() + "\n")
	b.WriteString(renderLabel("Baud", flashFieldBaud) + " " + p.baudInput.View() + "\n")

	renderCheck := func(on bool, field flashField) string {
		check := "[ ]"
		if on {
			check = "[x]"
		}
		if p.focusedField == field {
			return focusedLabel.Render(check)
		}
		return check
	}

	b.WriteString(renderLabel("Erase", flashFieldErase) + " " + renderCheck(p.erase, flashFieldErase) + "\n")
	b.WriteString(renderLabel("Verify", flashFieldVerify) + " " + renderCheck(p.verify, flashFieldVerify) + "\n")

	b.WriteString("\n")
	helpText := "ctrl+f: flash  tab: next field  esc: unfocus"
	if p.output.Len() > 0 {
		helpText += "  y: copy output"
	}
	b.WriteString(ui.DimStyle.Render(helpText))

	return b.String()
}

func (p *FlashPage) renderChipDropdown(width int) string {
	var b strings.Builder
	padding := strings.Repeat(" ", labelWidth+1)

	count := len(p.filteredChips)
	visible := count
	if visible > maxDropdownItems {
		visible = maxDropdownItems
	}

	start := 0
	if p.chipListOpen && p.chipCursor >= visible {
		start = p.chipCursor - visible + 1
	}
	end := start + visible
	if end > count {
		end = count
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	selectedStyle := lipgloss.NewStyle().Foreground(ui.Primary).Bold(true)

	for i := start; i < end; i++ {
		name := p.filteredChips[i]
		if len(name) > width {
			name = name[:width]
		}
		prefix := "  "
		if p.chipListOpen && i == p.chipCursor {
			prefix = selectedStyle.Render("> ")
			name = selectedStyle.Render(name)
		} else {
			name = ui.DimStyle.Render(name)
		}
		b.WriteString(padding + prefix + name + "\n")
	}

	countStr := fmt.Sprintf("(%d/%d chips)", visible, count)
	b.WriteString(padding + "  " + ui.DimStyle.Render(countStr) + "\n")

	return b.String()
}

func (p *FlashPage) renderPatternDropdown(width int) string {
	var b strings.Builder
	padding := strings.Repeat(" ", labelWidth+1)

	count := len(p.filteredPatterns)
	visible := count
	if visible > maxDropdownItems {
		visible = maxDropdownItems
	}

	start := 0
	if p.patternListOpen && p.patternCursor >= visible {
		start = p.patternCursor - visible + 1
	}
	end := start + visible
	if end > count {
		end = count
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	selectedStyle := lipgloss.NewStyle().Foreground(ui.Primary).Bold(true)

	for i := start; i < end; i++ {
		label := fmt.Sprintf("%s (%d bytes)", p.filteredPatterns[i].Name, p.filteredPatterns[i].Size)
		if len(label) > width {
			label = label[:width]
		}
		prefix := "  "
		if p.patternListOpen && i == p.patternCursor {
			prefix = selectedStyle.Render("> ")
			label = selectedStyle.Render(label)
		} else {
			label = ui.DimStyle.Render(label)
		}
		b.WriteString(padding + prefix + label + "\n")
	}

	countStr := fmt.Sprintf("(%d/%d patterns)", visible, count)
	b.WriteString(padding + "  " + ui.DimStyle.Render(countStr) + "\n")

	return b.String()
}

func (p *FlashPage) viewOutput(width int, height int) string {
	contentWidth := width - 3
	contentHeight := height - 2

	if contentWidth < 10 {
		contentWidth = 10
	}
	if contentHeight < 3 {
		contentHeight = 3
	}

	oldWidth := p.viewport.Width
	p.viewport.Width = contentWidth
	p.viewport.Height = contentHeight

	// Re-wrap content if width changed
	if oldWidth != contentWidth && p.output.Len() > 0 {
		p.updateViewportContent()
	}

	style := lipgloss.NewStyle().
		Width(width).
		Height(height).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderTop(true).
		BorderForeground(ui.Surface).
		PaddingLeft(1).
		PaddingTop(0)

	if p.output.Len() == 0 {
		content := ui.DimStyle.Render("Flash output will appear here...")
		return style.Render(content)
	}

	return style.Render(p.viewport.View())
}

func (p *FlashPage) Name() string { return "Flash" }

func (p *FlashPage) ShortHelp() []key.Binding {
	if p.state == flashStateRunning {
		return []key.Binding{
			key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		}
	}
	bindings := []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "flash")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "unfocus")),
	}
	if p.output.Len() > 0 {
		bindings = append(bindings, key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy output")))
	}
	return bindings
}

func (p *FlashPage) InputCaptured() bool {
	return p.state == flashStateIdle &&
		p.focusedField != flashFieldErase && p.focusedField != flashFieldVerify &&
		(p.chipInput.Focused() || p.patternInput.Focused() ||
			p.portInput.Focused() || p.baudInput.Focused())
}

func (p *FlashPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}

func (p *FlashPage) filterChips() {
	query := strings.ToLower(p.chipInput.Value())
	if query == "" {
		p.filteredChips = p.chips
	} else {
		p.filteredChips = nil
		for _, c := range p.chips {
			if strings.Contains(c, query) {
				p.filteredChips = append(p.filteredChips, c)
			}
		}
	}
	if p.chipCursor >= len(p.filteredChips) {
		p.chipCursor = len(p.filteredChips) - 1
	}
	if p.chipCursor < 0 {
		p.chipCursor = 0
	}
}

func (p *FlashPage) filterPatterns() {
	query := strings.ToLower(p.patternInput.Value())
	if query == "" {
		p.filteredPatterns = p.patterns
	} else {
		p.filteredPatterns = nil
		for _, f := range p.patterns {
			if strings.Contains(strings.ToLower(f.Name), query) ||
				strings.Contains(strings.ToLower(f.Path), query) {
				p.filteredPatterns = append(p.filteredPatterns, f)
			}
		}
	}
	if p.patternCursor >= len(p.filteredPatterns) {
		p.patternCursor = len(p.filteredPatterns) - 1
	}
	if p.patternCursor < 0 {
		p.patternCursor = 0
	}
}

// loadPatterns scans the pattern directory.
func (p *FlashPage) loadPatterns() tea.Msg {
	files, err := firmware.ListPatterns(p.patternDir)
	return patternsLoadedMsg{files: files, err: err}
}

func (p *FlashPage) updateViewportContent() {
	if p.viewport.Width > 0 {
		// Use hard wrap to handle long paths/commands that don't have spaces
		content := p.output.String()
		wrapped := wrap.String(content, p.viewport.Width)

		// Additional safety: truncate any lines that are still too long (ANSI-aware)
		lines := strings.Split(wrapped, "\n")
		for i, line := range lines {
			if ansi.PrintableRuneWidth(line) > p.viewport.Width {
				lines[i] = truncate.String(line, uint(p.viewport.Width))
			}
		}
		p.viewport.SetContent(strings.Join(lines, "\n"))
	} else {
		p.viewport.SetContent(p.output.String())
	}
}

func (p *FlashPage) startFlash() tea.Cmd {
	chip := strings.TrimSpace(p.chipInput.Value())
	if chip == "" {
		p.message = "Chip is required"
		return nil
	}
	port := strings.TrimSpace(p.portInput.Value())
	if port == "" {
		p.message = "Port is required"
		return nil
	}
	patternPath := strings.TrimSpace(p.patternInput.Value())
	if patternPath == "" {
		p.message = "Pattern is required"
		return nil
	}
	if !filepath.IsAbs(patternPath) {
		if _, err := os.Stat(patternPath); err != nil {
			patternPath = filepath.Join(p.patternDir, patternPath)
		}
	}

	family, variant := splitChip(chip)
	ad, ok := p.registry.Get(family, variant)
	if !ok {
		p.message = fmt.Sprintf("No adapter for chip %q", chip)
		return nil
	}

	baud := 0
	if v := strings.TrimSpace(p.baudInput.Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			p.message = "Baud rate must be a positive number"
			return nil
		}
		baud = n
	}

	p.state = flashStateRunning
	p.output.Reset()
	p.flashStart = time.Now()
	p.message = ""

	p.output.WriteString(fmt.Sprintf("Flashing %s to %s on %s...\n\n", filepath.Base(patternPath), chip, port))
	p.updateViewportContent()

	erase, wantVerify := p.erase, p.verify
	buildDir := p.buildDir

	return func() tea.Msg {
		done := flashDoneMsg{chip: chip, port: port, pattern: patternPath}

		data, err := os.ReadFile(patternPath)
		if err != nil {
			done.err = fmt.Sprintf("read pattern: %v", err)
			return done
		}

		ctx := context.Background()
		outPath := filepath.Join(buildDir, flashArtifactName(ad, chip))
		done.build = ad.BuildFirmware(ctx, data, outPath, nil)
		if !done.build.Success {
			return done
		}

		dev := uploader.DeviceInfo{Port: port, ChipID: ad.ChipID(), ChipVariant: ad.ChipVariant()}
		opts := &uploader.FlashOptions{BaudRate: baud, Erase: erase}
		done.flash = ad.FlashFirmware(ctx, done.build.FirmwarePath, dev, opts)

		if done.flash.Status == uploader.FlashSuccess && wantVerify {
			done.verified = true
			done.verify = ad.VerifyFirmware(ctx, done.build.FirmwarePath, dev, done.build.ArtifactHash)
		}
		return done
	}
}

// appendRunReport formats one run's results into the output buffer.
func (p *FlashPage) appendRunReport(msg flashDoneMsg) {
	elapsed := time.Since(p.flashStart).Round(time.Millisecond)

	if msg.err != "" {
		p.output.WriteString(fmt.Sprintf("Error: %s\n", msg.err))
		return
	}

	if !msg.build.Success {
		p.output.WriteString(fmt.Sprintf("Build failed: %s\n", msg.build.Err))
		return
	}
	p.output.WriteString(fmt.Sprintf("Built %s (%d bytes, sha256 %.12s) in %s\n\n",
		filepath.Base(msg.build.FirmwarePath), msg.build.Size, msg.build.ArtifactHash, msg.build.Duration.Round(time.Millisecond)))

	if msg.flash.Output != "" {
		p.output.WriteString(msg.flash.Output)
		if !strings.HasSuffix(msg.flash.Output, "\n") {
			p.output.WriteString("\n")
		}
	}

	switch msg.flash.Status {
	case uploader.FlashSuccess:
		p.output.WriteString(fmt.Sprintf("\nFlash succeeded, wrote %d bytes\n", msg.flash.BytesWritten))
	case uploader.FlashTimeout:
		p.output.WriteString(fmt.Sprintf("\nFlash timed out: %s\n", msg.flash.Err))
	default:
		p.output.WriteString(fmt.Sprintf("\nFlash failed: %s\n", msg.flash.Err))
	}

	if msg.verified {
		switch msg.verify.Status {
		case uploader.VerifySuccess:
			p.output.WriteString(fmt.Sprintf("Verify OK (device hash %.12s)\n", msg.verify.DeviceHash))
		case uploader.VerifyHashMismatch:
			p.output.WriteString(fmt.Sprintf("Verify MISMATCH: local %.12s device %.12s\n",
				msg.verify.LocalHash, msg.verify.DeviceHash))
		default:
			p.output.WriteString(fmt.Sprintf("Verify failed: %s\n", msg.verify.Detail))
		}
	}

	p.output.WriteString(fmt.Sprintf("\nDone in %s\n", elapsed))
}

// recordRun persists the build and flash records.
func (p *FlashPage) recordRun(msg flashDoneMsg) {
	if p.store == nil || msg.err != "" {
		return
	}

	p.store.AddBuild(store.BuildRecord{
		Chip:         msg.chip,
		Pattern:      filepath.Base(msg.pattern),
		Timestamp:    p.flashStart,
		Success:      msg.build.Success,
		Duration:     msg.build.Duration.String(),
		FirmwarePath: msg.build.FirmwarePath,
		ArtifactHash: msg.build.ArtifactHash,
		SizeBytes:    msg.build.Size,
		Error:        msg.build.Err,
	})

	if !msg.build.Success {
		return
	}

	flashErr := msg.flash.Err
	verifiedOK := msg.verified && msg.verify.Status == uploader.VerifySuccess
	if msg.verified && !verifiedOK {
		flashErr = msg.verify.Detail
	}
	p.store.AddFlash(store.FlashRecord{
		Chip:         msg.chip,
		Port:         msg.port,
		Timestamp:    p.flashStart,
		Status:       msg.flash.Status.String(),
		Duration:     msg.flash.Duration.String(),
		BytesWritten: msg.flash.BytesWritten,
		Verified:     verifiedOK,
		Error:        flashErr,
	})
}

func (p *FlashPage) copyToClipboard() {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		// Try wl-copy (Wayland) first, fall back to xclip (X11)
		if _, err := exec.LookPath("wl-copy"); err == nil {
			cmd = exec.Command("wl-copy")
		} else {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		}
	default:
		p.message = "Clipboard copy not supported on this platform"
		return
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		p.message = fmt.Sprintf("Failed to copy: %v", err)
		return
	}

	if err := cmd.Start(); err != nil {
		p.message = fmt.Sprintf("Failed to copy: %v", err)
		return
	}

	if _, err := stdin.Write([]byte(p.output.String())); err != nil {
		p.message = fmt.Sprintf("Failed to copy: %v", err)
		stdin.Close()
		cmd.Wait()
		return
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		p.message = fmt.Sprintf("Failed to copy: %v", err)
		return
	}

	p.message = "Flash output copied to clipboard"
}

// splitChip splits a display key like "esp32:s2" into family and variant.
func splitChip(chip string) (string, string) {
	parts := strings.SplitN(chip, ":", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(chip), ""
}

// flashArtifactName derives the firmware file name for a single flash,
// e.g. "esp32-s2.bin".
func flashArtifactName(ad uploader.Adapter, chip string) string {
	ext := "bin"
	if formats := ad.Profile().SupportedFormats; len(formats) > 0 {
		ext = formats[0]
	}
	return strings.ReplaceAll(chip, ":", "-") + "." + ext
}
