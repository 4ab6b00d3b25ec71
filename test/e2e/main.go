package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/kubev2v/engine-scheduler/test/e2e/infra"
)

type configuration struct {
	EngineBin   string
	Port        int
	Workers     int
	KeepDataDir bool
}

var (
	cfg    configuration
	engine *infra.EngineProcess
)

func (c configuration) Validate() error {
	if c.EngineBin == "" {
		return errors.New("engine binary path is empty")
	}
	if _, err := os.Stat(c.EngineBin); err != nil {
		return fmt.Errorf("engine binary not found: %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid worker count %d", c.Workers)
	}
	return nil
}

func main() {
	flag.StringVar(&cfg.EngineBin, "engine-bin", "bin/engine", "Path to the engine binary")
	flag.IntVar(&cfg.Port, "port", 18000, "Port the engine listens on")
	flag.IntVar(&cfg.Workers, "workers", 4, "Number of scheduler workers")
	flag.BoolVar(&cfg.KeepDataDir, "keep-data-dir", false, "Keep the history database after the run (useful for debugging)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}

	engine = infra.NewEngineProcess(cfg.EngineBin)

	RegisterFailHandler(Fail)
	if !RunSpecs(&testing.T{}, "E2E Suite") {
		os.Exit(1)
	}
}
