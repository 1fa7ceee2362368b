// Command tonearmd runs the tonearm daemon in the foreground, for service
// managers that supervise the process themselves. The tonearm CLI launches
// the same runtime through its hidden daemon subcommand.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"tonearm/internal/config"
	"tonearm/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	development := flag.Bool("dev", false, "Enable development logging output")
	flag.Parse()

	cfg, _, _, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	level := strings.TrimSpace(*logLevel)
	if level == "" {
		level = cfg.Logging.Level
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    level,
		Development: *development,
	}); err != nil {
		log.Fatalf("tonearmd: %v", err)
	}
}
