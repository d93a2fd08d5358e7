// +build ignore

// Quick test to verify workspace detection
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buckleypaul/uplink/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run test-workspace.go <path>")
		os.Exit(1)
	}

	path := os.Args[1]
	fmt.Printf("Testing workspace detection from: %s\n\n", path)

	ws := config.DetectWorkspace(path)

	fmt.Println("✅ Workspace detected!")
	fmt.Printf("   Root:        %s\n", ws.Root)
	fmt.Printf("   Initialized: %v\n", ws.Initialized)

	cfg := config.Load(ws.Root)
	fmt.Printf("   Pattern dir: %s\n", ws.PatternDir(cfg))
	fmt.Printf("   Build dir:   %s\n", ws.BuildDir(cfg))

	// Check the workspace config file
	configPath := filepath.Join(ws.Root, ".uplink", "config.json")
	if _, err := os.Stat(configPath); err != nil {
		fmt.Printf("\n⚠️  No workspace config: %v\n", err)
	} else {
		fmt.Println("\n✅ Workspace config exists")
	}
}
