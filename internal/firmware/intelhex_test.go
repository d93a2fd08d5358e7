package firmware

import (
	"strconv"
	"strings"
	"testing"
)

func TestIntelHexGoldenRecord(t *testing.T) {
	got := IntelHex([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	want := ":04000000DEADBEEFC4\n:00000001FF\n"
	if got != want {
		t.Errorf("IntelHex = %q, want %q", got, want)
	}
}

func TestIntelHexEmptyPayloadIsJustEOF(t *testing.T) {
	if got := IntelHex(nil); got != ":00000001FF\n" {
		t.Errorf("IntelHex(nil) = %q", got)
	}
}

func TestIntelHexSplitsRecordsAtSixteenBytes(t *testing.T) {
	payload := make([]byte, 17)
	for i := range payload {
		payload[i] = byte(i)
	}
	out := IntelHex(payload)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d records, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], ":10000000") {
		t.Errorf("first record = %q, want 16 bytes at 0x0000", lines[0])
	}
	if !strings.HasPrefix(lines[1], ":01001000") {
		t.Errorf("second record = %q, want 1 byte at 0x0010", lines[1])
	}
	if lines[2] != ":00000001FF" {
		t.Errorf("last record = %q, want EOF record", lines[2])
	}
}

func TestIntelHexChecksumsSumToZero(t *testing.T) {
	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	for _, line := range strings.Split(strings.TrimRight(IntelHex(payload), "\n"), "\n") {
		var sum byte
		for i := 1; i < len(line); i += 2 {
			v, err := strconv.ParseUint(line[i:i+2], 16, 8)
			if err != nil {
				t.Fatalf("bad hex pair in %q: %v", line, err)
			}
			sum += byte(v)
		}
		if sum != 0 {
			t.Errorf("record %q sums to %#x, want 0", line, sum)
		}
	}
}
