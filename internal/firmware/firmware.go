// Package firmware decodes LED pattern artifacts and renders them as the
// byte images the chip flashers consume.
package firmware

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	headerSize    = 4
	frameHeadSize = 2
	bytesPerPixel = 3

	// MinDelayMS and MaxDelayMS bound a frame's hold delay on the wire.
	MinDelayMS = 1
	MaxDelayMS = 65535
)

// Pattern is a decoded pattern artifact: a fixed LED count and an ordered
// list of frames with per-frame hold delays.
type Pattern struct {
	LEDCount int
	Frames   []Frame
}

// Frame holds one frame's delay and pixel colors.
type Frame struct {
	DelayMS int
	Pixels  []Color
}

// Color is a single RGB pixel.
type Color struct {
	R, G, B byte
}

// TruncatedError reports a payload whose length does not match the counts
// declared in its header.
type TruncatedError struct {
	Expected int
	Actual   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("pattern payload is %d bytes, header describes %d", e.Actual, e.Expected)
}

// Parse decodes a binary pattern payload. The layout is little-endian:
// u16 led_count, u16 frame_count, then frame_count records of u16 delay_ms
// followed by led_count RGB triples. The payload length must match the
// declared counts exactly.
func Parse(data []byte) (*Pattern, error) {
	if len(data) < headerSize {
		return nil, &TruncatedError{Expected: headerSize, Actual: len(data)}
	}
	ledCount := int(binary.LittleEndian.Uint16(data[0:2]))
	frameCount := int(binary.LittleEndian.Uint16(data[2:4]))
	if ledCount == 0 {
		return nil, fmt.Errorf("pattern declares zero LEDs")
	}
	if frameCount == 0 {
		return nil, fmt.Errorf("pattern declares zero frames")
	}
	expected := headerSize + frameCount*(frameHeadSize+ledCount*bytesPerPixel)
	if len(data) != expected {
		return nil, &TruncatedError{Expected: expected, Actual: len(data)}
	}

	p := &Pattern{LEDCount: ledCount, Frames: make([]Frame, 0, frameCount)}
	off := headerSize
	for i := 0; i < frameCount; i++ {
		f := Frame{
			DelayMS: int(binary.LittleEndian.Uint16(data[off : off+2])),
			Pixels:  make([]Color, ledCount),
		}
		off += frameHeadSize
		for j := 0; j < ledCount; j++ {
			f.Pixels[j] = Color{R: data[off], G: data[off+1], B: data[off+2]}
			off += bytesPerPixel
		}
		p.Frames = append(p.Frames, f)
	}
	return p, nil
}

// Payload re-encodes the pattern into its canonical binary layout. Delays
// are clamped to [MinDelayMS, MaxDelayMS] and each frame's pixel list is
// padded with black or trimmed to the pattern's LED count.
func (p *Pattern) Payload() []byte {
	frameSize := frameHeadSize + p.LEDCount*bytesPerPixel
	buf := make([]byte, 0, headerSize+len(p.Frames)*frameSize)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(p.LEDCount))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p.Frames)))
	for _, f := range p.Frames {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(clampDelay(f.DelayMS)))
		for i := 0; i < p.LEDCount; i++ {
			var c Color
			if i < len(f.Pixels) {
				c = f.Pixels[i]
			}
			buf = append(buf, c.R, c.G, c.B)
		}
	}
	return buf
}

// Duration is the total play time across all frames.
func (p *Pattern) Duration() time.Duration {
	var ms int
	for _, f := range p.Frames {
		ms += clampDelay(f.DelayMS)
	}
	return time.Duration(ms) * time.Millisecond
}

func clampDelay(d int) int {
	if d < MinDelayMS {
		return MinDelayMS
	}
	if d > MaxDelayMS {
		return MaxDelayMS
	}
	return d
}
