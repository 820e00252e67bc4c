// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/enviro_logger/internal/env"
)

// Reader produces the batch for one cycle.
type Reader interface {
	Read(ctx context.Context, cycle uint64, at time.Time) (env.Batch, error)
}

// Sink persists a batch.
type Sink interface {
	Name() string
	Write(ctx context.Context, b env.Batch) error
}

// Recorder receives cycle outcomes.
type Recorder interface {
	CycleDone(outcome string)
	SensorError(source string)
	SinkError(sink string)
	SinkWrite(sink string, took time.Duration)
	LastSample(at time.Time)
}

// Cycle outcomes reported to the Recorder.
const (
	OutcomeOK        = "ok"
	OutcomePartial   = "partial"
	OutcomeWarmup    = "warmup"
	OutcomeSinkError = "sink_error"
	OutcomeAborted   = "aborted"
)

type State int32

const (
	Idle State = iota
	Sampling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a Driver. Zero values pick sensible defaults.
type Options struct {
	Interval                time.Duration
	StartDelay              time.Duration
	WarmupSkipCycles        int
	TemperatureWarmupCycles int
	Mirrors                 []Sink
	Clock                   Clock
	Recorder                Recorder
}

// Driver runs the sample-format-write loop.
type Driver struct {
	reader  Reader
	sink    Sink
	mirrors []Sink
	clock   Clock
	rec     Recorder

	interval   time.Duration
	startDelay time.Duration
	skip       uint64
	tempWarmup uint64

	cycle uint64
	last  time.Time
	state atomic.Int32
}

func NewDriver(reader Reader, sink Sink, opts Options) *Driver {
	d := &Driver{
		reader:     reader,
		sink:       sink,
		mirrors:    opts.Mirrors,
		clock:      opts.Clock,
		rec:        opts.Recorder,
		interval:   opts.Interval,
		startDelay: opts.StartDelay,
	}
	if d.clock == nil {
		d.clock = SystemClock{}
	}
	if d.rec == nil {
		d.rec = noopRecorder{}
	}
	if d.interval <= 0 {
		d.interval = 10 * time.Second
	}
	if opts.WarmupSkipCycles > 0 {
		d.skip = uint64(opts.WarmupSkipCycles)
	}
	if opts.TemperatureWarmupCycles > 0 {
		d.tempWarmup = uint64(opts.TemperatureWarmupCycles)
	}
	return d
}

// State reports whether a cycle is in progress.
func (d *Driver) State() State { return State(d.state.Load()) }

// Run waits the start delay, runs one cycle immediately and then one per
// tick until ctx is cancelled. Cancellation is a clean stop and returns nil.
func (d *Driver) Run(ctx context.Context) error {
	if d.startDelay > 0 {
		log.Printf("cycle: waiting %s before first sample", d.startDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-d.clock.After(d.startDelay):
		}
	}

	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	log.Printf("cycle: sampling every %s", d.interval)
	for {
		if _, err := d.RunCycle(ctx); err != nil && ctx.Err() == nil {
			log.Printf("cycle: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Printf("cycle: stopping after %d cycles", d.cycle)
			return nil
		case <-ticker.C():
		}
	}
}

// RunCycle performs a single cycle and returns its batch. The error is the
// primary sink failure, if any. Sensor failures are logged and counted
// only; the partial batch is still written.
func (d *Driver) RunCycle(ctx context.Context) (env.Batch, error) {
	d.state.Store(int32(Sampling))
	defer d.state.Store(int32(Idle))

	n := d.cycle
	d.cycle++
	at := d.stamp()

	batch, err := d.reader.Read(ctx, n, at)
	if ctxErr := ctx.Err(); ctxErr != nil {
		d.rec.CycleDone(OutcomeAborted)
		return batch, ctxErr
	}
	partial := d.reportSensorErrors(n, err)

	if d.tempWarmup > 0 && n == d.tempWarmup {
		log.Printf("cycle %d: warm-up period over", n)
	}

	if n < d.skip {
		log.Printf("cycle %d: skip iteration (%d readings)", n, batch.Len())
		d.rec.CycleDone(OutcomeWarmup)
		return batch, nil
	}

	werr := d.write(ctx, d.sink, batch)
	for _, m := range d.mirrors {
		if merr := d.write(ctx, m, batch); merr != nil {
			log.Printf("cycle %d: mirror %v", n, merr)
		}
	}

	switch {
	case werr != nil:
		d.rec.CycleDone(OutcomeSinkError)
		return batch, fmt.Errorf("cycle %d: %w", n, werr)
	case partial:
		d.rec.CycleDone(OutcomePartial)
	default:
		d.rec.CycleDone(OutcomeOK)
	}
	d.rec.LastSample(batch.Timestamp)
	log.Printf("cycle %d: wrote %d readings", n, batch.Len())
	return batch, nil
}

// stamp returns the cycle timestamp, nudged forward if the wall clock did
// not advance since the previous cycle.
func (d *Driver) stamp() time.Time {
	now := d.clock.Now()
	if !d.last.IsZero() && !now.After(d.last) {
		now = d.last.Add(time.Nanosecond)
	}
	d.last = now
	return now
}

func (d *Driver) reportSensorErrors(n uint64, err error) bool {
	if err == nil {
		return false
	}
	var serrs env.SensorErrors
	if !errors.As(err, &serrs) {
		log.Printf("cycle %d: read: %v", n, err)
		d.rec.SensorError("unknown")
		return true
	}
	for _, se := range serrs {
		log.Printf("cycle %d: %s unavailable: %v", n, se.Source, se.Err)
		d.rec.SensorError(se.Source)
	}
	return true
}

func (d *Driver) write(ctx context.Context, s Sink, b env.Batch) error {
	start := d.clock.Now()
	err := s.Write(ctx, b)
	d.rec.SinkWrite(s.Name(), d.clock.Now().Sub(start))
	if err != nil {
		d.rec.SinkError(s.Name())
		return fmt.Errorf("%s write: %w", s.Name(), err)
	}
	return nil
}

type noopRecorder struct{}

func (noopRecorder) CycleDone(string)                {}
func (noopRecorder) SensorError(string)              {}
func (noopRecorder) SinkError(string)                {}
func (noopRecorder) SinkWrite(string, time.Duration) {}
func (noopRecorder) LastSample(time.Time)            {}
