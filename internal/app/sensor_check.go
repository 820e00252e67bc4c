// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/enviro_logger/internal/config"
	"github.com/relabs-tech/enviro_logger/internal/env"
	"github.com/relabs-tech/enviro_logger/internal/sensors"
)

// RunSensorCheck reads every enabled sensor once and prints the result.
// No warm-up or compensation is applied. It fails if any sensor failed.
func RunSensorCheck(ctx context.Context, cfg *config.Config) error {
	station, err := sensors.OpenStation(cfg)
	if err != nil {
		return fmt.Errorf("open sensors: %w", err)
	}
	defer station.Close()

	reader := sensors.NewReader(station.Sources())
	batch, err := reader.Read(ctx, 0, time.Now())
	fmt.Print(formatBatch(batch))

	var serrs env.SensorErrors
	if errors.As(err, &serrs) {
		for _, se := range serrs {
			log.Printf("sensor_check: %s: %v", se.Source, se.Err)
		}
		return fmt.Errorf("%d sensor(s) failed: %v", len(serrs), serrs.Sources())
	}
	return err
}
