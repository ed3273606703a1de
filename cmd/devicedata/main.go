// cmd/devicedata/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tamzrod/devicedata/internal/config"
	"github.com/tamzrod/devicedata/internal/journal"
	"github.com/tamzrod/devicedata/internal/modbus"
	"github.com/tamzrod/devicedata/internal/unit"
)

func main() {
	configPath := flag.String("config", "devicedata.yaml", "path to configuration file")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (default $DEVICEDATA_LOG_LEVEL or info)")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath, log); err != nil {
		log.Error("devicedata stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. A missing file is not
// an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newLogger(level string) (*slog.Logger, error) {
	if level == "" {
		level = os.Getenv("DEVICEDATA_LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func run(cfgPath string, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	// ---- optional change journal ----
	var j *journal.Journal
	if path := cfg.DeviceData.Journal.Path; path != "" {
		j, err = journal.Open(path, log)
		if err != nil {
			return fmt.Errorf("journal open failed: %w", err)
		}
		defer j.Close()
		log.Info("journal enabled", slog.String("path", path))
	}

	// --------------------
	// Build per-unit pipelines
	// --------------------

	var wg sync.WaitGroup

	for _, uc := range cfg.DeviceData.Units {
		client, err := modbus.NewEndpointClient(modbus.Config{
			Endpoint: uc.Source.Endpoint,
			Timeout:  time.Duration(uc.Source.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("modbus connect failed (unit=%s): %w", uc.ID, err)
		}
		defer client.Close()

		u, err := unit.Build(uc, client, log)
		if err != nil {
			return fmt.Errorf("unit build failed (unit=%s): %w", uc.ID, err)
		}

		// Every subscriber retries a failed activation. An element still
		// failing stays unobserved for this run; the unit keeps going.
		if err := u.Observe(ctx, j); err != nil {
			log.Warn("observe failed", slog.String("unit", uc.ID), slog.Any("error", err))
		}
		if err := u.Refresh(ctx); err != nil {
			log.Warn("initial read failed", slog.String("unit", uc.ID), slog.Any("error", err))
		}

		log.Info("unit started",
			slog.String("unit", uc.ID),
			slog.String("endpoint", uc.Source.Endpoint),
			slog.Int("elements", len(uc.Elements)),
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			u.Run(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	log.Info("shutdown complete")
	return nil
}
