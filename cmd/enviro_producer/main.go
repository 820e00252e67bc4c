// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/enviro_logger/internal/app"
	"github.com/relabs-tech/enviro_logger/internal/config"
)

func main() {
	configPath := flag.String("config", "./enviro_config.txt", "path to configuration file")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("starting enviro-logger producer (Enviro+ → InfluxDB)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunEnviroProducer(ctx, cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	log.Println("producer stopped")
}
