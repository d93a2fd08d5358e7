package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// PageID identifies each page in the application.
type PageID int

const (
	DevicesPage PageID = iota
	FlashPage
	BatchPage
	MonitorPage
	HistoryPage
	ProfilesPage
	SettingsPage
)

var PageOrder = []PageID{
	DevicesPage,
	FlashPage,
	BatchPage,
	MonitorPage,
	HistoryPage,
	ProfilesPage,
	SettingsPage,
}

// Page is the interface every page in the application implements.
type Page interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Page, tea.Cmd)
	View() string
	Name() string
	ShortHelp() []key.Binding
	SetSize(width, height int)
}

// InputCapturer is an optional interface for pages with text inputs.
// When InputCaptured returns true, the app forwards all keys directly
// to the page instead of processing shortcuts like q, ?, left, etc.
type InputCapturer interface {
	InputCaptured() bool
}

// PortSelectedMsg is broadcast to all pages when a serial port is selected.
type PortSelectedMsg struct {
	Port string
}

// ChipSelectedMsg is broadcast to all pages when a chip target is selected.
// Variant is empty for base family targets.
type ChipSelectedMsg struct {
	Chip    string
	Variant string
}

// PatternSelectedMsg is broadcast to all pages when a pattern file is selected.
type PatternSelectedMsg struct {
	Path string
}

// ConfigChangedMsg is broadcast after settings are edited so pages can
// re-read defaults like baud rate and directories.
type ConfigChangedMsg struct{}
