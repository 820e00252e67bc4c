// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/enviro_logger/internal/app"
	"github.com/relabs-tech/enviro_logger/internal/config"
)

func main() {
	configPath := flag.String("config", "./enviro_config.txt", "path to configuration file")
	timeout := flag.Duration("timeout", 30*time.Second, "overall time limit")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("starting enviro-logger sensor check")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// one-shot: the reader honours the timeout between sensors
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := app.RunSensorCheck(ctx, cfg); err != nil {
		log.Fatalf("sensor check failed: %v", err)
	}
	log.Println("all sensors OK")
}
