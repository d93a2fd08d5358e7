package pages

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/profile"
)

func TestProfilesPageListsRegisteredAdapters(t *testing.T) {
	reg := fakeRegistry(newFakeAdapter("esp32"), newFakeAdapter("atmega328p"))
	p := NewProfilesPage(reg, "")
	p.SetSize(100, 30)

	if len(p.adapters) != 2 {
		t.Fatalf("expected 2 adapters, got %d", len(p.adapters))
	}
	view := p.View()
	if !strings.Contains(view, "esp32") || !strings.Contains(view, "atmega328p") {
		t.Fatalf("view missing adapters:\n%s", view)
	}
}

func TestProfilesPageCursorClamps(t *testing.T) {
	reg := fakeRegistry(newFakeAdapter("esp32"), newFakeAdapter("esp8266"))
	p := NewProfilesPage(reg, "")

	p.Update(tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != 0 {
		t.Fatalf("expected cursor to clamp at 0, got %d", p.cursor)
	}
	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	if p.cursor != 1 {
		t.Fatalf("expected cursor to clamp at 1, got %d", p.cursor)
	}
}

func TestProfilesPageEnterBroadcastsChip(t *testing.T) {
	second := newFakeAdapter("esp32")
	second.variant = "c3"
	reg := fakeRegistry(newFakeAdapter("esp8266"), second)
	p := NewProfilesPage(reg, "")

	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a broadcast command")
	}
	msg, ok := cmd().(app.ChipSelectedMsg)
	if !ok {
		t.Fatalf("expected ChipSelectedMsg, got %T", cmd())
	}
	if msg.Chip != "esp32" || msg.Variant != "c3" {
		t.Fatalf("unexpected selection: %+v", msg)
	}
	if !strings.Contains(p.message, "Selected esp32:c3") {
		t.Fatalf("message = %q", p.message)
	}
}

func TestProfilesPageDetailRendersProfile(t *testing.T) {
	fake := newFakeAdapter("m031")
	fake.prof = profile.Profile{
		ChipID:           "m031",
		ChipName:         "NuMicro M031",
		Manufacturer:     "Nuvoton",
		Architecture:     "ARM Cortex-M0",
		FlashSizeBytes:   2 << 20,
		RAMSizeBytes:     320 << 10,
		CPUFrequencyMHz:  48,
		SupportedFormats: []string{"bin", "hex"},
		FlashDefaults: profile.FlashDefaults{
			BaudRate: 460800,
			Offset:   "0x1000",
		},
		Capabilities: []string{"uart-isp"},
	}
	reg := fakeRegistry(fake)
	p := NewProfilesPage(reg, "")
	p.SetSize(100, 30)

	view := p.View()
	for _, want := range []string{
		"NuMicro M031",
		"Nuvoton, ARM Cortex-M0",
		"2.0 MB",
		"320.0 KB",
		"48 MHz",
		"bin, hex",
		"460800",
		"0x1000",
		"uart-isp",
	} {
		if !strings.Contains(view, want) {
			t.Fatalf("detail view missing %q:\n%s", want, view)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{32 << 10, "32.0 KB"},
		{4 << 20, "4.0 MB"},
	}
	for _, c := range cases {
		if got := formatBytes(c.n); got != c.want {
			t.Errorf("formatBytes(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}
