// Package main is the entry point for the stablearp API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/stablearp/pkg/api"
	"github.com/james-see/stablearp/pkg/config"
	"github.com/james-see/stablearp/pkg/debug"
)

func main() {
	cfgPath := flag.String("config", "", "Config file (default ~/.config/stablearp/config.yaml)")
	port := flag.Int("port", 0, "Server port (default from config, 8080)")
	debugLog := flag.String("debug-log", "", "Write a debug log to this file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}

	if *debugLog != "" {
		cfg.Debug, cfg.DebugLog = true, *debugLog
	}
	if cfg.Debug {
		path := cfg.DebugLog
		if path == "" {
			path = debug.DefaultPath()
		}
		if err := debug.Enable(path); err != nil {
			fmt.Fprintf(os.Stderr, "Debug log error: %v\n", err)
		}
		defer debug.Disable()
	}

	fmt.Printf("Starting stablearp API server on port %d...\n", cfg.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Port)

	if err := api.StartServer(cfg.Port); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
