package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/stratisd/internal/infrastructure/config"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/server"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "3.0.0"

func main() {
	cfgFile := flag.String("config", "", "YAML config file (defaults to environment)")
	busType := flag.String("bus", "", "Message bus: system, session or none")
	port := flag.String("port", "", "Status endpoint port")
	seed := flag.String("seed", "", "Glob of demo seed files")
	dev := flag.Bool("dev", false, "Development mode (console logs, debug level)")
	flag.Parse()

	cfg, err := loadConfig(*cfgFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override file and environment
	if *busType != "" {
		cfg.Bus.Type = *busType
	}
	if *port != "" {
		cfg.Status.Port = *port
	}
	if *seed != "" {
		cfg.Seed.Pattern = *seed
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	srv, err := server.NewServer(cfg, version)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	if err := srv.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Server error: %v", runErr)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
