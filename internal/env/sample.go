// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import (
	"fmt"
	"sort"
	"time"
)

// Reading is a single scalar measurement captured during one cycle.
type Reading struct {
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"ts"`
}

// Batch holds every reading captured in the same cycle.
// All readings share the batch timestamp.
type Batch struct {
	Cycle     uint64    `json:"cycle"`
	Timestamp time.Time `json:"ts"`
	Readings  []Reading `json:"readings"`
}

// NewBatch starts an empty batch for the given cycle.
func NewBatch(cycle uint64, at time.Time) Batch {
	return Batch{Cycle: cycle, Timestamp: at}
}

// Add appends a reading stamped with the batch timestamp.
// A metric can appear at most once per batch.
func (b *Batch) Add(metric string, value float64) error {
	if metric == "" {
		return fmt.Errorf("empty metric name")
	}
	if b.Has(metric) {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, metric)
	}
	b.Readings = append(b.Readings, Reading{
		Metric:    metric,
		Value:     value,
		Timestamp: b.Timestamp,
	})
	return nil
}

// Has reports whether metric is already present.
func (b *Batch) Has(metric string) bool {
	for _, r := range b.Readings {
		if r.Metric == metric {
			return true
		}
	}
	return false
}

// Value returns the reading for metric, if any.
func (b *Batch) Value(metric string) (float64, bool) {
	for _, r := range b.Readings {
		if r.Metric == metric {
			return r.Value, true
		}
	}
	return 0, false
}

// Len returns the number of readings.
func (b *Batch) Len() int { return len(b.Readings) }

// Fields returns the readings as a metric -> value map.
func (b *Batch) Fields() map[string]float64 {
	out := make(map[string]float64, len(b.Readings))
	for _, r := range b.Readings {
		out[r.Metric] = r.Value
	}
	return out
}

// Metrics returns the metric names in sorted order.
func (b *Batch) Metrics() []string {
	names := make([]string, 0, len(b.Readings))
	for _, r := range b.Readings {
		names = append(names, r.Metric)
	}
	sort.Strings(names)
	return names
}
