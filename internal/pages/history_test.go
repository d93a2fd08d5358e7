package pages

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/uplink/internal/store"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestHistoryPageTabNavigationWraps(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), ".uplink"))
	p := NewHistoryPage(st)

	if p.activeTab != tabBuilds {
		t.Fatalf("expected builds tab first, got %v", p.activeTab)
	}
	for i := 0; i < len(tabNames); i++ {
		p.Update(tea.KeyMsg{Type: tea.KeyRight})
	}
	if p.activeTab != tabBuilds {
		t.Fatalf("expected right to wrap back to builds, got %v", p.activeTab)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if p.activeTab != tabSerialLogs {
		t.Fatalf("expected left to wrap to serial logs, got %v", p.activeTab)
	}
}

func TestHistoryPageRendersRecordedRuns(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), ".uplink"))
	now := time.Now()

	if err := st.AddBuild(store.BuildRecord{
		Chip:      "esp32",
		Pattern:   "rainbow.bin",
		Timestamp: now,
		Success:   true,
		Duration:  "2.1s",
		SizeBytes: 4096,
	}); err != nil {
		t.Fatalf("AddBuild: %v", err)
	}
	if err := st.AddFlash(store.FlashRecord{
		Chip:      "atmega328p",
		Port:      "/dev/ttyACM0",
		Timestamp: now,
		Status:    "success",
		Duration:  "8.4s",
		Verified:  true,
	}); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}
	if err := st.AddBatch(store.BatchRecord{
		Timestamp: now,
		Pattern:   "chase.bin",
		Total:     4,
		Succeeded: 3,
		Failed:    1,
		Duration:  "31s",
		Errors:    []string{"job-2: flash: port busy"},
	}); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if err := st.AddSerialLog(store.SerialLog{
		Port:      "/dev/ttyUSB0",
		BaudRate:  115200,
		Timestamp: now,
		LogFile:   "/tmp/ttyUSB0.log",
	}); err != nil {
		t.Fatalf("AddSerialLog: %v", err)
	}

	p := NewHistoryPage(st)
	p.SetSize(120, 40)

	view := p.View()
	if !strings.Contains(view, "esp32") || !strings.Contains(view, "rainbow.bin") {
		t.Fatalf("builds view missing record:\n%s", view)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyRight})
	view = p.View()
	if !strings.Contains(view, "/dev/ttyACM0") || !strings.Contains(view, "yes") {
		t.Fatalf("flashes view missing record:\n%s", view)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyRight})
	view = p.View()
	if !strings.Contains(view, "chase.bin") || !strings.Contains(view, "job-2: flash: port busy") {
		t.Fatalf("batches view missing record:\n%s", view)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyRight})
	view = p.View()
	if !strings.Contains(view, "/dev/ttyUSB0") || !strings.Contains(view, "ttyUSB0.log") {
		t.Fatalf("serial log view missing record:\n%s", view)
	}
}

func TestHistoryPageEmptyStoreRendersEveryTab(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), ".uplink"))
	p := NewHistoryPage(st)
	p.SetSize(100, 30)

	for i := 0; i < len(tabNames); i++ {
		p.activeTab = historyTab(i)
		view := p.View()
		if !strings.Contains(view, "recorded yet") {
			t.Fatalf("tab %s should show an empty notice:\n%s", tabNames[i], view)
		}
	}
}

func TestHistoryPageRefreshPicksUpNewRecords(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), ".uplink"))
	p := NewHistoryPage(st)

	if len(p.flashes) != 0 {
		t.Fatalf("expected no flashes yet, got %d", len(p.flashes))
	}
	if err := st.AddFlash(store.FlashRecord{
		Chip: "esp8266", Port: "/dev/ttyUSB1", Timestamp: time.Now(), Status: "success",
	}); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}

	p.Update(keyRunes("r"))
	if len(p.flashes) != 1 {
		t.Fatalf("expected reload to pick up the flash, got %d", len(p.flashes))
	}
}
