package firmware

import (
	"fmt"
	"strings"
)

const hexRecordLen = 16

// IntelHex renders a payload as Intel HEX text: 16-byte type-00 data
// records from address zero, then the end-of-file record. One record per
// line, trailing newline included.
func IntelHex(payload []byte) string {
	var b strings.Builder
	for off := 0; off < len(payload); off += hexRecordLen {
		end := off + hexRecordLen
		if end > len(payload) {
			end = len(payload)
		}
		writeHexRecord(&b, off&0xFFFF, 0x00, payload[off:end])
	}
	b.WriteString(":00000001FF\n")
	return b.String()
}

func writeHexRecord(b *strings.Builder, address, recType int, data []byte) {
	sum := len(data) + (address>>8)&0xFF + address&0xFF + recType
	fmt.Fprintf(b, ":%02X%04X%02X", len(data), address, recType)
	for _, d := range data {
		fmt.Fprintf(b, "%02X", d)
		sum += int(d)
	}
	// checksum is the two's complement of the summed record bytes
	fmt.Fprintf(b, "%02X\n", byte(-sum))
}
