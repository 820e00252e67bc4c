// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/relabs-tech/enviro_logger/internal/env"
)

// Source is one physical sensor that can be sampled once per cycle.
type Source interface {
	Name() string
	// Sense returns metric -> value for every quantity the device measures.
	Sense() (map[string]float64, error)
	Halt() error
}

// Reader samples every configured source into a single batch.
type Reader struct {
	sources    []Source
	tempOffset float64
	tempWarmup uint64
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithTemperatureOffset adds offset (°C) to every temperature reading.
// The BME280 sits close to the Pi CPU and reads high.
func WithTemperatureOffset(offset float64) ReaderOption {
	return func(r *Reader) { r.tempOffset = offset }
}

// WithTemperatureWarmup withholds temperature for the first n cycles
// while the board settles.
func WithTemperatureWarmup(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.tempWarmup = uint64(n)
		}
	}
}

func NewReader(sources []Source, opts ...ReaderOption) *Reader {
	r := &Reader{sources: sources}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Sources returns the names of the configured sources.
func (r *Reader) Sources() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}

// Read queries each source once and returns the batch for this cycle.
// A failing source is left out of the batch; its failure is reported in
// the returned env.SensorErrors while the remaining readings are kept.
func (r *Reader) Read(ctx context.Context, cycle uint64, at time.Time) (env.Batch, error) {
	batch := env.NewBatch(cycle, at)
	var failures env.SensorErrors

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		values, err := src.Sense()
		if err != nil {
			failures = append(failures, &env.SensorError{Source: src.Name(), Err: err})
			continue
		}

		metrics := make([]string, 0, len(values))
		for m := range values {
			metrics = append(metrics, m)
		}
		sort.Strings(metrics)

		for _, metric := range metrics {
			value := values[metric]
			if metric == env.MetricTemperature {
				if cycle < r.tempWarmup {
					continue
				}
				value += r.tempOffset
			}
			if err := batch.Add(metric, value); err != nil {
				failures = append(failures, &env.SensorError{
					Source: src.Name(),
					Err:    fmt.Errorf("metric %s: %w", metric, err),
				})
			}
		}
	}

	if len(failures) > 0 {
		return batch, failures
	}
	return batch, nil
}
