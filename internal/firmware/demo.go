package firmware

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DemoDelayMS is the per-frame hold used by the generated demo pattern.
const DemoDelayMS = 50

// DemoPattern generates a moving rainbow sweep for smoke-testing a strip
// without a pattern file. Each LED's hue is offset along the strip and
// advances one full cycle over the frame sequence.
func DemoPattern(ledCount, frameCount int) *Pattern {
	if ledCount < 1 {
		ledCount = 1
	}
	if frameCount < 1 {
		frameCount = 1
	}
	p := &Pattern{LEDCount: ledCount, Frames: make([]Frame, 0, frameCount)}
	for f := 0; f < frameCount; f++ {
		frame := Frame{DelayMS: DemoDelayMS, Pixels: make([]Color, ledCount)}
		for i := 0; i < ledCount; i++ {
			hue := math.Mod(float64(i)/float64(ledCount)+float64(f)/float64(frameCount), 1.0)
			frame.Pixels[i] = Color{
				R: rainbowChannel(hue, 0),
				G: rainbowChannel(hue, 1.0/3.0),
				B: rainbowChannel(hue, 2.0/3.0),
			}
		}
		p.Frames = append(p.Frames, frame)
	}
	return p
}

// rainbowChannel maps a hue to one RGB channel via a phase-shifted sine.
func rainbowChannel(hue, phase float64) byte {
	v := 0.5 + 0.5*math.Sin(2*math.Pi*(hue+phase))
	return byte(math.Round(255 * v))
}

// PatternFile describes one flashable pattern artifact on disk.
type PatternFile struct {
	Name string
	Path string
	Size int64
}

var patternExtensions = map[string]bool{
	".bin":  true,
	".dat":  true,
	".pat":  true,
	".leds": true,
}

// ListPatterns returns the pattern files directly under dir, sorted by
// name. A missing directory yields an empty list, not an error.
func ListPatterns(dir string) ([]PatternFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []PatternFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !patternExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, PatternFile{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
