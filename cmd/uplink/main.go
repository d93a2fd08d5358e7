package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/buckleypaul/uplink/internal/app"
	"github.com/buckleypaul/uplink/internal/batch"
	"github.com/buckleypaul/uplink/internal/config"
	"github.com/buckleypaul/uplink/internal/firmware"
	"github.com/buckleypaul/uplink/internal/pages"
	"github.com/buckleypaul/uplink/internal/serial"
	"github.com/buckleypaul/uplink/internal/store"
	"github.com/buckleypaul/uplink/internal/uploader"
)

// Demo pattern dimensions when no artifact file is given.
const (
	demoLEDs   = 76
	demoFrames = 400
)

const detectProbeTimeout = 15 * time.Second

func main() {
	listChips := flag.Bool("list-chips", false, "list supported chips and exit")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	detect := flag.Bool("detect", false, "probe serial ports for a device and exit")
	doFlash := flag.Bool("flash", false, "flash a pattern without the TUI")
	patternPath := flag.String("pattern", "", "pattern artifact file (built-in demo pattern if omitted)")
	chip := flag.String("chip", "", "chip target, e.g. esp32 or esp32:s2")
	port := flag.String("port", "", "serial port")
	ports := flag.String("ports", "", "comma-separated serial ports (batch mode when more than one)")
	concurrency := flag.Int("concurrency", 0, "concurrent flashes in batch mode")
	noVerify := flag.Bool("no-verify", false, "skip post-flash verification")
	erase := flag.Bool("erase", false, "erase flash before writing")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	// .env values feed the UPLINK_* overlay applied by config.Load.
	godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ws := config.DetectWorkspace(cwd)
	cfg := config.Load(ws.Root)

	// Flags beat config and environment.
	if *chip != "" {
		cfg.DefaultChip = *chip
	}
	if *port != "" {
		cfg.SerialPort = *port
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
	if *noVerify {
		cfg.SkipVerify = true
	}

	headless := *listChips || *listPorts || *detect || *doFlash
	setupLogging(headless, *debug)

	reg := uploader.DefaultRegistry(uploader.WithProfileDir(cfg.ProfileDir))

	switch {
	case *listChips:
		os.Exit(runListChips(reg))
	case *listPorts:
		os.Exit(runListPorts())
	case *detect:
		os.Exit(runDetect(reg, targetPorts(cfg, *ports)))
	case *doFlash:
		os.Exit(runFlash(reg, cfg, ws, *patternPath, targetPorts(cfg, *ports), *erase))
	}

	st := store.New(filepath.Join(ws.Root, ".uplink"))

	pageMap := map[app.PageID]app.Page{
		app.DevicesPage:  pages.NewDevicesPage(reg),
		app.FlashPage:    pages.NewFlashPage(reg, st, &cfg, ws),
		app.BatchPage:    pages.NewBatchPage(reg, st, &cfg, ws),
		app.MonitorPage:  pages.NewMonitorPage(st, cfg.SerialBaudRate),
		app.HistoryPage:  pages.NewHistoryPage(st),
		app.ProfilesPage: pages.NewProfilesPage(reg, cfg.ProfileDir),
		app.SettingsPage: pages.NewSettingsPage(&cfg, ws.Root),
	}

	model := app.New(pageMap, &cfg, ws.Root)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging sends headless logs to stderr and TUI logs to a file so
// the alternate screen stays clean.
func setupLogging(headless, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if !headless {
		w = io.Discard
		if home, err := os.UserHomeDir(); err == nil {
			dir := filepath.Join(home, ".config", "uplink", "logs")
			if err := os.MkdirAll(dir, 0o755); err == nil {
				path := filepath.Join(dir, "uplink.log")
				if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
					w = f
				}
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// targetPorts resolves -ports, then -port/config, to a port list.
func targetPorts(cfg config.Config, portsFlag string) []string {
	if portsFlag != "" {
		var out []string
		for _, p := range strings.Split(portsFlag, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	if cfg.SerialPort != "" {
		return []string{cfg.SerialPort}
	}
	return nil
}

func runListChips(reg *uploader.Registry) int {
	fmt.Println("Supported chips:")
	for _, ad := range reg.Adapters() {
		prof := ad.Profile()
		key := uploader.Key(ad.ChipID(), ad.ChipVariant())
		fmt.Printf("  %-16s %-28s %5d KB flash\n", key, prof.ChipName, prof.FlashSizeBytes/1024)
	}
	return 0
}

func runListPorts() int {
	ports, err := serial.ListPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
		return 1
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return 0
	}
	fmt.Println("Available ports:")
	for _, p := range ports {
		line := "  " + p.Name
		if desc := p.Description(); desc != "" {
			line += "  (" + desc + ")"
		}
		fmt.Println(line)
	}
	return 0
}

func runDetect(reg *uploader.Registry, ports []string) int {
	if len(ports) == 0 {
		names, err := serial.Names()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			return 1
		}
		ports = names
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports to probe.")
		return 1
	}

	found := 0
	for _, port := range ports {
		ctx, cancel := context.WithTimeout(context.Background(), detectProbeTimeout)
		ad, info, ok := reg.Detect(ctx, port)
		cancel()
		if !ok {
			fmt.Printf("  %-24s no device detected\n", port)
			continue
		}
		found++
		label := uploader.Key(ad.ChipID(), ad.ChipVariant())
		if info.Description != "" {
			fmt.Printf("  %-24s %-16s %s\n", port, label, info.Description)
		} else {
			fmt.Printf("  %-24s %s\n", port, label)
		}
	}
	if found == 0 {
		return 1
	}
	return 0
}

func runFlash(reg *uploader.Registry, cfg config.Config, ws config.Workspace, patternPath string, ports []string, erase bool) int {
	if cfg.DefaultChip == "" {
		fmt.Fprintln(os.Stderr, "Error: no chip selected (use -chip, or set default_chip in config)")
		return 1
	}
	if len(ports) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no port selected (use -port or -ports)")
		return 1
	}

	chipID, variant := splitChipArg(cfg.DefaultChip)
	ad, ok := reg.Get(chipID, variant)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no adapter for chip %q\n", cfg.DefaultChip)
		return 1
	}

	data, label, code := loadPattern(patternPath, ws.PatternDir(cfg))
	if code != 0 {
		return code
	}

	if len(ports) == 1 {
		return flashOne(ad, ws, cfg, data, label, ports[0], erase)
	}
	return flashBatch(reg, ws, cfg, data, label, ports, erase)
}

// loadPattern reads and validates the artifact, falling back to the
// built-in demo pattern when no path is given.
func loadPattern(path, patternDir string) (data []byte, label string, exitCode int) {
	if path == "" {
		pattern := firmware.DemoPattern(demoLEDs, demoFrames)
		fmt.Printf("Using demo pattern: %d LEDs, %d frames\n", demoLEDs, demoFrames)
		return pattern.Payload(), "demo", 0
	}

	resolved := path
	if _, err := os.Stat(resolved); err != nil && !filepath.IsAbs(path) && patternDir != "" {
		if _, err := os.Stat(filepath.Join(patternDir, path)); err == nil {
			resolved = filepath.Join(patternDir, path)
		}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading pattern: %v\n", err)
		return nil, "", 1
	}

	pattern, err := firmware.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid pattern %s: %v\n", resolved, err)
		return nil, "", 1
	}

	fmt.Printf("Pattern: %s\n", resolved)
	fmt.Printf("  LEDs: %d  Frames: %d  Duration: %.1fs  Size: %d bytes\n",
		pattern.LEDCount, len(pattern.Frames), pattern.Duration().Seconds(), len(data))
	return data, filepath.Base(resolved), 0
}

func flashOne(ad uploader.Adapter, ws config.Workspace, cfg config.Config, data []byte, label, port string, erase bool) int {
	ctx := context.Background()
	chipKey := uploader.Key(ad.ChipID(), ad.ChipVariant())
	fmt.Printf("\nFlashing %s to %s on %s\n\n", label, chipKey, port)

	buildDir := ws.BuildDir(cfg)
	outPath := filepath.Join(buildDir, chipKey+"."+artifactExt(ad))

	fmt.Println("[1/3] Building firmware...")
	build := ad.BuildFirmware(ctx, data, outPath, nil)
	if !build.Success {
		fmt.Fprintf(os.Stderr, "Build failed: %s\n", build.Err)
		return 1
	}
	fmt.Printf("  %s (%d bytes, sha256 %.12s) in %s\n", build.FirmwarePath, build.Size, build.ArtifactHash, build.Duration.Round(time.Millisecond))

	dev := uploader.DeviceInfo{Port: port, ChipID: ad.ChipID(), ChipVariant: ad.ChipVariant()}
	opts := &uploader.FlashOptions{Erase: erase}

	fmt.Println("[2/3] Flashing device...")
	flash := ad.FlashFirmware(ctx, build.FirmwarePath, dev, opts)
	if flash.Status != uploader.FlashSuccess {
		fmt.Fprintf(os.Stderr, "Flash %s: %s\n", flash.Status, flash.Err)
		if flash.Output != "" {
			fmt.Fprintln(os.Stderr, flash.Output)
		}
		return 1
	}
	fmt.Printf("  %d bytes written in %s\n", flash.BytesWritten, flash.Duration.Round(time.Millisecond))

	if cfg.SkipVerify {
		fmt.Println("\nFlash successful (verification skipped).")
		return 0
	}

	fmt.Println("[3/3] Verifying...")
	verify := ad.VerifyFirmware(ctx, build.FirmwarePath, dev, build.ArtifactHash)
	switch verify.Status {
	case uploader.VerifySuccess:
		fmt.Printf("  sha256 match: %s\n", verify.DeviceHash)
		fmt.Println("\nFlash successful.")
		return 0
	case uploader.VerifyHashMismatch:
		fmt.Fprintf(os.Stderr, "Verification mismatch:\n  local  %s\n  device %s\n", verify.LocalHash, verify.DeviceHash)
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Verification failed: %s\n", verify.Detail)
		return 1
	}
}

func flashBatch(reg *uploader.Registry, ws config.Workspace, cfg config.Config, data []byte, label string, ports []string, erase bool) int {
	chipID, variant := splitChipArg(cfg.DefaultChip)

	jobs := make([]batch.Job, 0, len(ports))
	for i, port := range ports {
		jobs = append(jobs, batch.Job{
			ID:          fmt.Sprintf("job-%d", i+1),
			Port:        port,
			ChipID:      chipID,
			ChipVariant: variant,
			Options:     &uploader.FlashOptions{Erase: erase, Verify: !cfg.SkipVerify},
		})
	}

	fmt.Printf("\nBatch flashing %s to %d devices (%s, %d workers)\n\n",
		label, len(jobs), cfg.DefaultChip, cfg.Concurrency)

	orch := batch.New(reg,
		batch.WithConcurrency(cfg.Concurrency),
		batch.WithBuildDir(ws.BuildDir(cfg)),
		batch.WithProgress(func(ev batch.Event) {
			if ev.Message != "" {
				fmt.Printf("  [%d/%d] %-24s %-10s %s\n", ev.Completed, ev.Total, ev.Port, ev.State, ev.Message)
			} else {
				fmt.Printf("  [%d/%d] %-24s %s\n", ev.Completed, ev.Total, ev.Port, ev.State)
			}
		}),
	)

	report := orch.Run(context.Background(), data, jobs)

	fmt.Printf("\nDone: %d/%d succeeded, %d failed, %d bytes written in %s\n",
		report.Succeeded, report.Total, report.Failed, report.TotalBytes, report.Duration.Round(time.Millisecond))
	for _, e := range report.Errors() {
		fmt.Printf("  %s\n", e)
	}

	if report.Failed > 0 {
		return 1
	}
	return 0
}

func splitChipArg(s string) (string, string) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(s), ""
}

// artifactExt picks the output extension from the chip's first
// supported format.
func artifactExt(ad uploader.Adapter) string {
	if formats := ad.Profile().SupportedFormats; len(formats) > 0 {
		return formats[0]
	}
	return "bin"
}
