package uploader

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/buckleypaul/uplink/internal/toolchain"
)

func TestSTM32FlashSerialArgv(t *testing.T) {
	fake := &fakeRunner{}
	a := NewSTM32F1(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1, 2})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyUSB0"}, nil)
	if res.Status != FlashSuccess {
		t.Fatalf("status = %v (%s)", res.Status, res.Err)
	}

	call := fake.lastCall()
	if call.name != "stm32flash" {
		t.Errorf("tool = %q, want stm32flash", call.name)
	}
	want := []string{"-b", "115200", "-w", fw, "-v", "-g", "0x08000000", "/dev/ttyUSB0"}
	if !reflect.DeepEqual(call.args, want) {
		t.Errorf("args = %v\nwant %v", call.args, want)
	}
}

func TestSTM32FlashFallsBackToSTLink(t *testing.T) {
	fake := &fakeRunner{}
	a := NewSTM32F1(WithRunner(fake))
	a.toolAvailable = func(tool string) bool { return tool == stflashBin }
	fw := writeImage(t, "fw.bin", []byte{1, 2})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{}, nil)
	if res.Status != FlashSuccess {
		t.Fatalf("status = %v (%s)", res.Status, res.Err)
	}

	call := fake.lastCall()
	if call.name != "st-flash" {
		t.Errorf("tool = %q, want st-flash", call.name)
	}
	want := []string{"write", fw, "0x08000000"}
	if !reflect.DeepEqual(call.args, want) {
		t.Errorf("args = %v, want %v", call.args, want)
	}
}

func TestSTM32FlashNoMethod(t *testing.T) {
	a := NewSTM32F1(WithRunner(&fakeRunner{}))
	a.toolAvailable = func(string) bool { return false }

	res := a.FlashFirmware(context.Background(), "fw.bin", DeviceInfo{}, nil)
	if res.Status != FlashFailure {
		t.Fatalf("status = %v, want failure", res.Status)
	}
	if !strings.Contains(res.Err, "no flashing method") {
		t.Errorf("Err = %q", res.Err)
	}
}

func TestSTM32FlashParsesWrittenBytes(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("-w ", toolchain.Result{Output: "Wrote 4096 bytes to address 0x08000000"})
	a := NewSTM32F1(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{1, 2})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{Port: "/dev/ttyUSB0"}, nil)
	if res.BytesWritten != 4096 {
		t.Errorf("BytesWritten = %d, want 4096", res.BytesWritten)
	}
}

func TestSTM32DetectSerialBootloader(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("/dev/ttyUSB0", toolchain.Result{Output: "stm32flash 0.7\nVersion      : 0x22\nDevice ID    : 0x0410 (STM32F10xxx Medium-density)\n"})
	a := NewSTM32F1(WithRunner(fake))

	info, ok := a.DetectDevice(context.Background(), "/dev/ttyUSB0")
	if !ok {
		t.Fatal("expected detection")
	}
	if !strings.Contains(info.Description, "Device ID") {
		t.Errorf("Description = %q", info.Description)
	}
}

func TestSTM32DetectNotInBootloader(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("/dev/ttyUSB0", toolchain.Result{ExitCode: 1, Output: "Failed to init device"})
	a := NewSTM32F1(WithRunner(fake))

	if _, ok := a.DetectDevice(context.Background(), "/dev/ttyUSB0"); ok {
		t.Fatal("device outside the bootloader must not detect")
	}
}

func TestSTM32DetectSTLinkProbe(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("--probe", toolchain.Result{Output: "Found 1 stlink programmers\n  version: V2J37S7\n"})
	a := NewSTM32F1(WithRunner(fake))
	a.toolAvailable = func(tool string) bool { return tool == stinfoBin }

	info, ok := a.DetectDevice(context.Background(), "")
	if !ok {
		t.Fatal("expected ST-LINK detection")
	}
	if info.Description != "ST-LINK probe" {
		t.Errorf("Description = %q", info.Description)
	}
}
