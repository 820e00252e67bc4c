// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromRecordsCycleOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm(reg)

	p.CycleDone("ok")
	p.CycleDone("ok")
	p.CycleDone("warmup")
	if got := testutil.ToFloat64(p.cycles.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected ok cycles 2, got %f", got)
	}
	if got := testutil.ToFloat64(p.cycles.WithLabelValues("warmup")); got != 1 {
		t.Fatalf("expected warmup cycles 1, got %f", got)
	}

	p.SensorError("pms5003")
	if got := testutil.ToFloat64(p.sensorErrors.WithLabelValues("pms5003")); got != 1 {
		t.Fatalf("expected pms5003 errors 1, got %f", got)
	}

	p.SinkError("influxdb")
	if got := testutil.ToFloat64(p.sinkErrors.WithLabelValues("influxdb")); got != 1 {
		t.Fatalf("expected influxdb errors 1, got %f", got)
	}

	p.SinkWrite("influxdb", 20*time.Millisecond)
	if n := testutil.CollectAndCount(p.sinkWrite); n != 1 {
		t.Fatalf("expected one write histogram series, got %d", n)
	}

	at := time.Unix(1760774400, 0)
	p.LastSample(at)
	if got := testutil.ToFloat64(p.lastSample); got != 1760774400 {
		t.Fatalf("unexpected last sample gauge %f", got)
	}
}

func TestPromRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewProm(reg)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	// Vecs without observations are not gathered; only the gauge is.
	if len(mfs) != 1 || mfs[0].GetName() != "enviro_last_sample_timestamp_seconds" {
		t.Fatalf("unexpected families %d", len(mfs))
	}
}
