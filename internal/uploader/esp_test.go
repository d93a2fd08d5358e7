package uploader

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/buckleypaul/uplink/internal/toolchain"
)

func writeImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestESP32FlashArgv(t *testing.T) {
	fake := &fakeRunner{}
	a := NewESP32(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1, 2, 3})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyUSB0"}, nil)
	if res.Status != FlashSuccess {
		t.Fatalf("status = %v (%s)", res.Status, res.Err)
	}

	call := fake.lastCall()
	if call.name != "esptool.py" {
		t.Errorf("tool = %q, want esptool.py", call.name)
	}
	want := []string{
		"--chip", "esp32",
		"--port", "/dev/ttyUSB0",
		"--baud", "921600",
		"write_flash",
		"--flash_mode", "dio",
		"--flash_freq", "40m",
		"--flash_size", "4MB",
		"0x1000", fw,
	}
	if !reflect.DeepEqual(call.args, want) {
		t.Errorf("args = %v\nwant %v", call.args, want)
	}
	if call.timeout != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", call.timeout)
	}
	if res.BytesWritten != 3 {
		t.Errorf("BytesWritten = %d, want artifact size 3", res.BytesWritten)
	}
}

func TestESP32C3FlashUsesVariantSettings(t *testing.T) {
	fake := &fakeRunner{}
	a := NewESP32C3(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1})

	a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyACM0"}, nil)

	argv := fake.lastCall().argv()
	for _, frag := range []string{"--chip esp32c3", "--flash_freq 80m", "0x0 " + fw} {
		if !strings.Contains(argv, frag) {
			t.Errorf("argv %q missing %q", argv, frag)
		}
	}
}

func TestESP8266FlashUsesChipSettings(t *testing.T) {
	fake := &fakeRunner{}
	a := NewESP8266(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1})

	a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyUSB1"}, nil)

	argv := fake.lastCall().argv()
	for _, frag := range []string{"--chip esp8266", "--baud 115200", "--flash_size 1MB", "0x00000 " + fw} {
		if !strings.Contains(argv, frag) {
			t.Errorf("argv %q missing %q", argv, frag)
		}
	}
}

func TestESPFlashEraseRunsFirst(t *testing.T) {
	fake := &fakeRunner{}
	a := NewESP32(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyUSB0"}, &FlashOptions{Erase: true})
	if res.Status != FlashSuccess {
		t.Fatalf("status = %v (%s)", res.Status, res.Err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("got %d calls, want erase then write", len(fake.calls))
	}
	erase := fake.calls[0]
	if !strings.HasSuffix(erase.argv(), "erase_flash") {
		t.Errorf("first call = %q, want erase_flash", erase.argv())
	}
	if erase.timeout != 30*time.Second {
		t.Errorf("erase timeout = %v, want 30s", erase.timeout)
	}
}

func TestESPFlashEraseFailureStopsWrite(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("erase_flash", toolchain.Result{ExitCode: 2, Output: "A fatal error occurred"})
	a := NewESP32(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyUSB0"}, &FlashOptions{Erase: true})
	if res.Status != FlashFailure {
		t.Fatalf("status = %v, want failure", res.Status)
	}
	if !strings.HasPrefix(res.Err, "erase:") {
		t.Errorf("Err = %q, want erase prefix", res.Err)
	}
	if len(fake.calls) != 1 {
		t.Errorf("write_flash must not run after a failed erase, got %d calls", len(fake.calls))
	}
}

func TestESPFlashTimeout(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("write_flash", toolchain.Result{TimedOut: true, ExitCode: -1})
	a := NewESP32(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyUSB0"}, nil)
	if res.Status != FlashTimeout {
		t.Fatalf("status = %v, want timeout", res.Status)
	}
}

func TestESPFlashToolFailure(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("write_flash", toolchain.Result{ExitCode: 2, Output: "serial.serialutil.SerialException: could not open port"})
	a := NewESP32(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/nope"}, nil)
	if res.Status != FlashFailure {
		t.Fatalf("status = %v, want failure", res.Status)
	}
	if !strings.Contains(res.Err, "exit code 2") {
		t.Errorf("Err = %q", res.Err)
	}
}

func TestESPFlashWithoutPort(t *testing.T) {
	a := NewESP32(WithRunner(&fakeRunner{}))
	res := a.FlashFirmware(context.Background(), "fw.bin", DeviceInfo{}, nil)
	if res.Status != FlashFailure || res.Err == "" {
		t.Fatalf("expected failure with reason, got %+v", res)
	}
}

func TestESPFlashParsesWrittenBytes(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("write_flash", toolchain.Result{Output: "Wrote 1024 bytes at 0x00001000 in 0.2 seconds"})
	a := NewESP32(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyUSB0"}, nil)
	if res.BytesWritten != 1024 {
		t.Errorf("BytesWritten = %d, want 1024 from tool output", res.BytesWritten)
	}
}

func TestESPDetectParsesChipLine(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("chip_id", toolchain.Result{Output: "Connecting....\nDetecting chip type... ESP32\nChip is ESP32-D0WDQ6 (revision 1)\n"})
	a := NewESP32(WithRunner(fake))

	info, ok := a.DetectDevice(context.Background(), "/dev/ttyUSB0")
	if !ok {
		t.Fatal("expected detection")
	}
	if info.ChipID != "esp32" || info.Port != "/dev/ttyUSB0" {
		t.Errorf("info = %+v", info)
	}
	if info.Description != "Chip is ESP32-D0WDQ6 (revision 1)" {
		t.Errorf("Description = %q", info.Description)
	}

	call := fake.lastCall()
	want := []string{"chip_id", "--port", "/dev/ttyUSB0"}
	if !reflect.DeepEqual(call.args, want) {
		t.Errorf("args = %v, want %v", call.args, want)
	}
	if call.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", call.timeout)
	}
}

func TestESPDetectRejectsOtherChip(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("chip_id", toolchain.Result{Output: "Chip is ESP32-D0WDQ6\n"})
	a := NewESP8266(WithRunner(fake))

	if _, ok := a.DetectDevice(context.Background(), "/dev/ttyUSB0"); ok {
		t.Fatal("esp8266 adapter must not claim an esp32")
	}
}

func TestESPDetectSilentPort(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("chip_id", toolchain.Result{ExitCode: 2, Output: "Failed to connect"})
	a := NewESP32(WithRunner(fake))

	if _, ok := a.DetectDevice(context.Background(), "/dev/ttyUSB0"); ok {
		t.Fatal("silent port must not detect")
	}
}

func TestESPDetectScanProbesPortsInOrder(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("/dev/ttyUSB0", toolchain.Result{ExitCode: 1, Output: "no chip"})
	fake.stub("/dev/ttyUSB1", toolchain.Result{Output: "Chip is ESP32-D0WDQ6\n"})
	a := NewESP32(WithRunner(fake), WithPortLister(listerOf("/dev/ttyUSB0", "/dev/ttyUSB1")))

	info, ok := a.DetectDevice(context.Background(), "")
	if !ok {
		t.Fatal("expected detection on second port")
	}
	if info.Port != "/dev/ttyUSB1" {
		t.Errorf("Port = %q, want /dev/ttyUSB1", info.Port)
	}
	if len(fake.calls) != 2 {
		t.Errorf("got %d probes, want 2 sequential probes", len(fake.calls))
	}
}
