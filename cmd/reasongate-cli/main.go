// Package main provides the reasongate-cli command-line tool for managing
// the reasongate server.
package main

import (
	"fmt"
	"os"

	reasongate "github.com/cortexflow-ai/reasongate"
	"github.com/cortexflow-ai/reasongate/internal/approach"
	"github.com/cortexflow-ai/reasongate/internal/extension"
	"github.com/cortexflow-ai/reasongate/internal/version"

	// Register shipped extension factories so they appear in listings.
	_ "github.com/cortexflow-ai/reasongate/internal/extension/majority"
)

const usage = `reasongate-cli: reasongate command line tool

Usage:
  reasongate-cli <command> [arguments]

Commands:
  validate <config-file>    Validate a server configuration file (JSON/YAML)
  approaches                List built-in approaches and extension factories
  version                   Print version info
  help                      Show this help
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "validate":
		cmdValidate()
	case "approaches":
		cmdApproaches()
	case "version":
		cmdVersion()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}
}

func cmdValidate() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: reasongate-cli validate <config-file>")
		os.Exit(1)
	}
	path := os.Args[2]

	cfg, err := reasongate.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Config is valid\n")
	fmt.Printf("  Port:     %d\n", cfg.Server.Port)
	fmt.Printf("  Approach: %s\n", cfg.Approach)
	if cfg.Extensions.BundledDir != "" || cfg.Extensions.LocalDir != "" {
		fmt.Printf("  Extensions: bundled=%q local=%q\n", cfg.Extensions.BundledDir, cfg.Extensions.LocalDir)
	}
	if cfg.RequestLog.Driver != "" {
		fmt.Printf("  Request log: %s\n", cfg.RequestLog.Driver)
	}
}

func cmdApproaches() {
	reg := approach.NewRegistry()
	fmt.Println("Built-in approaches:")
	for _, slug := range reg.Slugs() {
		fmt.Printf("  %s\n", slug)
	}

	factories := extension.RegisteredFactories()
	if len(factories) == 0 {
		return
	}
	fmt.Println("Extension factories:")
	for _, name := range factories {
		fmt.Printf("  %s\n", name)
	}
}

func cmdVersion() {
	fmt.Printf("reasongate-cli %s\n", version.String())
}
