// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import (
	"errors"
	"strings"
)

var (
	// ErrSensorUnavailable is returned when a configured sensor did not return a value.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrSinkUnreachable is returned when a write to the time-series database failed.
	ErrSinkUnreachable = errors.New("sink unreachable")
	// ErrDuplicateMetric is returned when a batch already holds a reading for a metric.
	ErrDuplicateMetric = errors.New("duplicate metric in batch")
)

// SensorError ties a read failure to the source that produced it.
type SensorError struct {
	Source string
	Err    error
}

func (e *SensorError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

// Unwrap exposes both ErrSensorUnavailable and the underlying cause.
func (e *SensorError) Unwrap() []error {
	return []error{ErrSensorUnavailable, e.Err}
}

// SensorErrors collects the per-source failures of one cycle.
type SensorErrors []*SensorError

func (es SensorErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func (es SensorErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Sources returns the names of the failed sources.
func (es SensorErrors) Sources() []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Source
	}
	return out
}
