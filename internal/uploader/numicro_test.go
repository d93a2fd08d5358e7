package uploader

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/buckleypaul/uplink/internal/toolchain"
)

func TestNuMicroFlashArgv(t *testing.T) {
	fake := &fakeRunner{}
	a := NewNuMicroM031(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{0x00, 0x01, 0x02})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{}, nil)
	if res.Status != FlashSuccess {
		t.Fatalf("status = %v (%s)", res.Status, res.Err)
	}
	if res.BytesWritten != 3 {
		t.Errorf("BytesWritten = %d, want image size 3", res.BytesWritten)
	}

	call := fake.lastCall()
	if call.name != "nu-link" {
		t.Errorf("tool = %q, want nu-link", call.name)
	}
	if want := []string{"program", fw}; !reflect.DeepEqual(call.args, want) {
		t.Errorf("args = %v, want %v", call.args, want)
	}
	if call.timeout != 120*time.Second {
		t.Errorf("timeout = %s, want 120s", call.timeout)
	}
}

func TestNuMicroFlashFailure(t *testing.T) {
	fake := &fakeRunner{}
	fake.stub("program", toolchain.Result{ExitCode: 1, Output: "No Nu-Link connected"})
	a := NewNuMicroM031(WithRunner(fake))
	fw := writeImage(t, "fw.bin", []byte{0xFF})

	res := a.FlashFirmware(context.Background(), fw, DeviceInfo{}, nil)
	if res.Status != FlashFailure {
		t.Fatalf("status = %v, want failure", res.Status)
	}
}

func TestNuMicroDetectAlwaysEmpty(t *testing.T) {
	a := NewNuMicroM031(WithRunner(&fakeRunner{}))
	if _, ok := a.DetectDevice(context.Background(), "/dev/ttyACM0"); ok {
		t.Fatal("Nu-Link probe must not claim serial ports")
	}
}
