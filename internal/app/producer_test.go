// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relabs-tech/enviro_logger/internal/config"
)

// influxStub answers /ping like a healthy server and counts the calls.
func influxStub(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var pings atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			pings.Add(1)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &pings
}

// producerConfig returns a config with no hardware attached.
func producerConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.BME280Enabled = false
	cfg.LTR559Enabled = false
	cfg.MICS6814Enabled = false
	cfg.PMS5003Enabled = false
	cfg.InfluxURL = url
	cfg.InfluxBucket = "enviroplus"
	cfg.Interval = time.Hour
	cfg.WarmupSkipCycles = 0
	return cfg
}

func runProducerBriefly(t *testing.T, cfg *config.Config) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	return RunEnviroProducer(ctx, cfg)
}

func TestProducerRunsWithoutMQTTBroker(t *testing.T) {
	srv, pings := influxStub(t)
	cfg := producerConfig(srv.URL)
	cfg.MQTTBroker = "tcp://127.0.0.1:1"

	if err := runProducerBriefly(t, cfg); err != nil {
		t.Fatalf("unreachable mirror must not stop the producer: %v", err)
	}
	if pings.Load() != 1 {
		t.Fatalf("expected one startup ping, got %d", pings.Load())
	}
}

func TestProducerZeroWriteTimeoutMeansNoDeadline(t *testing.T) {
	srv, _ := influxStub(t)
	cfg := producerConfig(srv.URL)
	cfg.InfluxWriteTimeout = 0

	if err := runProducerBriefly(t, cfg); err != nil {
		t.Fatalf("zero write timeout must not fail the startup ping: %v", err)
	}
}

func TestDialMirrorsSkipsUnreachableBroker(t *testing.T) {
	cfg := config.Default()
	cfg.MQTTBroker = "tcp://127.0.0.1:1"

	mirrors, closeMirrors := dialMirrors(cfg)
	defer closeMirrors()
	if len(mirrors) != 0 {
		t.Fatalf("expected no mirrors, got %d", len(mirrors))
	}

	cfg.MQTTBroker = ""
	if mirrors, _ := dialMirrors(cfg); len(mirrors) != 0 {
		t.Fatalf("expected no mirrors without a broker, got %d", len(mirrors))
	}
}
