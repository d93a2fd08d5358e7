package uploader

import (
	"context"
	"reflect"
	"testing"

	"github.com/buckleypaul/uplink/internal/profile"
)

// regStub satisfies Adapter with canned answers so registry behavior can
// be exercised without any real chip code.
type regStub struct {
	chip    string
	variant string
	detect  bool
	probed  int
}

func newRegStub(chip, variant string, detect bool) *regStub {
	return &regStub{chip: chip, variant: variant, detect: detect}
}

func (s *regStub) ChipID() string           { return s.chip }
func (s *regStub) ChipVariant() string      { return s.variant }
func (s *regStub) Profile() profile.Profile { return profile.Default(s.chip, s.variant) }
func (s *regStub) Requirements() []string   { return nil }

func (s *regStub) DetectDevice(ctx context.Context, port string) (DeviceInfo, bool) {
	s.probed++
	if !s.detect {
		return DeviceInfo{}, false
	}
	return DeviceInfo{Port: port, ChipID: s.chip, ChipVariant: s.variant}, true
}

func (s *regStub) BuildFirmware(ctx context.Context, pattern []byte, outputPath string, opts *BuildOptions) BuildResult {
	return BuildResult{}
}

func (s *regStub) FlashFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, opts *FlashOptions) FlashResult {
	return FlashResult{}
}

func (s *regStub) VerifyFirmware(ctx context.Context, firmwarePath string, dev DeviceInfo, expectedHash string) VerifyResult {
	return VerifyResult{}
}

func TestKeyNormalization(t *testing.T) {
	cases := []struct {
		chip, variant, want string
	}{
		{"esp32", "", "esp32"},
		{"ESP32", "S2", "esp32:s2"},
		{" esp32 ", " c3 ", "esp32:c3"},
		{"ATmega328P", "", "atmega328p"},
	}
	for _, tc := range cases {
		if got := Key(tc.chip, tc.variant); got != tc.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tc.chip, tc.variant, got, tc.want)
		}
	}
}

func TestRegistryGetExactAndFallback(t *testing.T) {
	r := NewRegistry()
	family := newRegStub("esp32", "", false)
	s2 := newRegStub("esp32", "s2", false)
	r.Register(family)
	r.Register(s2)

	if a, ok := r.Get("esp32", "s2"); !ok || a != Adapter(s2) {
		t.Error("exact (chip, variant) lookup missed")
	}
	if a, ok := r.Get("ESP32", "S2"); !ok || a != Adapter(s2) {
		t.Error("lookup must be case-insensitive")
	}
	if a, ok := r.Get("esp32", "c6"); !ok || a != Adapter(family) {
		t.Error("unknown variant must fall back to the chip family adapter")
	}
	if _, ok := r.Get("esp8266", ""); ok {
		t.Error("unregistered chip must miss")
	}
}

func TestRegistryReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(newRegStub("esp32", "", false))
	r.Register(newRegStub("atmega328p", "", false))

	replacement := newRegStub("esp32", "", false)
	r.Register(replacement)

	if want := []string{"esp32", "atmega328p"}; !reflect.DeepEqual(r.Chips(), want) {
		t.Fatalf("Chips() = %v, want original order %v", r.Chips(), want)
	}
	if a, _ := r.Get("esp32", ""); a != Adapter(replacement) {
		t.Error("re-registering a key must replace the adapter")
	}
}

func TestRegistryDetectStopsAtFirstMatch(t *testing.T) {
	r := NewRegistry()
	first := newRegStub("esp32", "s2", false)
	second := newRegStub("esp32", "", true)
	third := newRegStub("atmega328p", "", true)
	r.Register(first)
	r.Register(second)
	r.Register(third)

	a, info, ok := r.Detect(context.Background(), "/dev/ttyUSB0")
	if !ok {
		t.Fatal("expected a match")
	}
	if a != Adapter(second) {
		t.Errorf("matched %s, want the first adapter that answers", a.ChipID())
	}
	if info.Port != "/dev/ttyUSB0" || info.ChipID != "esp32" {
		t.Errorf("info = %+v", info)
	}
	if first.probed != 1 {
		t.Errorf("first adapter probed %d times, want 1", first.probed)
	}
	if third.probed != 0 {
		t.Error("detection must stop at the first match")
	}
}

func TestRegistryDetectHonorsCancel(t *testing.T) {
	r := NewRegistry()
	s := newRegStub("esp32", "", true)
	r.Register(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, ok := r.Detect(ctx, "/dev/ttyUSB0"); ok {
		t.Fatal("cancelled context must not probe")
	}
	if s.probed != 0 {
		t.Error("adapter was probed after cancellation")
	}
}

func TestDefaultRegistryRoster(t *testing.T) {
	r := DefaultRegistry(WithRunner(&fakeRunner{}))

	want := []string{
		"esp32:s2", "esp32:c3", "esp32", "esp8266",
		"atmega328p", "atmega2560", "stm32f1", "pic16f877a", "numicro:m031",
	}
	if !reflect.DeepEqual(r.Chips(), want) {
		t.Fatalf("Chips() = %v, want %v", r.Chips(), want)
	}

	a, ok := r.Get("esp32", "c3")
	if !ok {
		t.Fatal("esp32:c3 not registered")
	}
	if a.ChipVariant() != "c3" {
		t.Errorf("variant = %q, want c3", a.ChipVariant())
	}
	if _, ok := r.Get("esp32", "unknown"); !ok {
		t.Error("unknown esp32 variant must fall back to the family adapter")
	}
}
