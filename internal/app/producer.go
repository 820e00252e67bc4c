// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/relabs-tech/enviro_logger/internal/config"
	"github.com/relabs-tech/enviro_logger/internal/cycle"
	"github.com/relabs-tech/enviro_logger/internal/metrics"
	"github.com/relabs-tech/enviro_logger/internal/sensors"
	"github.com/relabs-tech/enviro_logger/internal/sink"
)

// RunEnviroProducer opens the station, checks InfluxDB and samples until
// ctx is cancelled. Config, InfluxDB and sensor failures at startup are
// returned before the first cycle; the display and MQTT mirror are optional.
func RunEnviroProducer(ctx context.Context, cfg *config.Config) error {
	influx := sink.NewInflux(influxOptions(cfg))
	defer influx.Close()

	if err := pingInflux(ctx, influx, cfg.InfluxWriteTimeout); err != nil {
		return fmt.Errorf("influxdb at %s: %w", cfg.InfluxURL, err)
	}
	log.Printf("producer: influxdb reachable at %s (bucket %s)", cfg.InfluxURL, cfg.InfluxBucket)

	station, err := sensors.OpenStation(cfg)
	if err != nil {
		return fmt.Errorf("open sensors: %w", err)
	}
	defer func() {
		if err := station.Close(); err != nil {
			log.Printf("producer: sensor shutdown: %v", err)
		}
	}()

	if cfg.DisplayEnabled {
		lcd, err := showSplash(cfg)
		if err != nil {
			log.Printf("producer: display unavailable: %v", err)
		} else {
			defer lcd.Halt()
		}
	}

	mirrors, closeMirrors := dialMirrors(cfg)
	defer closeMirrors()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewProm(reg)
	if cfg.MetricsAddr != "" {
		go metrics.Serve(ctx, cfg.MetricsAddr, reg)
	}

	reader := sensors.NewReader(station.Sources(),
		sensors.WithTemperatureOffset(cfg.TemperatureOffset),
		sensors.WithTemperatureWarmup(cfg.TemperatureWarmupCycles),
	)
	log.Printf("producer: sampling %v", reader.Sources())

	driver := cycle.NewDriver(reader, influx, cycle.Options{
		Interval:                cfg.Interval,
		StartDelay:              cfg.StartupDelay,
		WarmupSkipCycles:        cfg.WarmupSkipCycles,
		TemperatureWarmupCycles: cfg.TemperatureWarmupCycles,
		Mirrors:                 mirrors,
		Recorder:                rec,
	})
	return driver.Run(ctx)
}

func influxOptions(cfg *config.Config) sink.InfluxOptions {
	return sink.InfluxOptions{
		URL:         cfg.InfluxURL,
		AuthToken:   cfg.InfluxAuthToken(),
		Org:         cfg.InfluxOrg,
		Bucket:      cfg.InfluxBucket,
		Measurement: cfg.InfluxMeasurement,
		HostTag:     cfg.InfluxHostTag,
		Timeout:     cfg.InfluxWriteTimeout,
	}
}

// pingInflux checks the server once. A timeout of 0 means no deadline,
// matching how InfluxSink treats it for writes.
func pingInflux(ctx context.Context, influx *sink.InfluxSink, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return influx.Ping(ctx)
}

// dialMirrors connects the optional MQTT mirror. An unreachable broker is
// logged and sampling continues with InfluxDB only.
func dialMirrors(cfg *config.Config) ([]cycle.Sink, func()) {
	if cfg.MQTTBroker == "" {
		return nil, func() {}
	}
	m, err := sink.DialMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer, cfg.TopicSample)
	if err != nil {
		log.Printf("producer: mqtt mirror disabled: %v", err)
		return nil, func() {}
	}
	log.Printf("producer: mirroring batches to %s on %s", cfg.MQTTBroker, cfg.TopicSample)
	return []cycle.Sink{m}, func() { _ = m.Close() }
}
