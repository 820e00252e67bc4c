// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/relabs-tech/enviro_logger/internal/env"
)

// pointWriter is the subset of api.WriteAPIBlocking used by InfluxSink.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxOptions configures NewInflux.
type InfluxOptions struct {
	URL         string
	AuthToken   string // v2 token, or "user:pass" against a 1.8 server
	Org         string
	Bucket      string // "database" or "database/retention" on 1.8
	Measurement string
	HostTag     string
	Timeout     time.Duration
}

// InfluxSink writes one point per batch with the blocking write API.
type InfluxSink struct {
	client      influxdb2.Client
	writer      pointWriter
	measurement string
	tags        map[string]string
	timeout     time.Duration
}

func NewInflux(opts InfluxOptions) *InfluxSink {
	clientOpts := influxdb2.DefaultOptions()
	if secs := httpTimeoutSeconds(opts.Timeout); secs > 0 {
		clientOpts.SetHTTPRequestTimeout(secs)
	}
	client := influxdb2.NewClientWithOptions(opts.URL, opts.AuthToken, clientOpts)

	tags := map[string]string{}
	if opts.HostTag != "" {
		tags["host"] = opts.HostTag
	}

	return &InfluxSink{
		client:      client,
		writer:      client.WriteAPIBlocking(opts.Org, opts.Bucket),
		measurement: opts.Measurement,
		tags:        tags,
		timeout:     opts.Timeout,
	}
}

// httpTimeoutSeconds rounds d up to whole seconds; 0 leaves the client default.
func httpTimeoutSeconds(d time.Duration) uint {
	if d <= 0 {
		return 0
	}
	return uint((d + time.Second - 1) / time.Second)
}

func (s *InfluxSink) Name() string { return "influxdb" }

// Ping checks the server is reachable. Startup treats a failure as fatal.
func (s *InfluxSink) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", env.ErrSinkUnreachable, err)
	}
	if !ok {
		return fmt.Errorf("%w: ping failed", env.ErrSinkUnreachable)
	}
	return nil
}

// Write sends the batch as a single point. Empty batches are skipped.
func (s *InfluxSink) Write(ctx context.Context, b env.Batch) error {
	if b.Len() == 0 {
		log.Printf("influx: cycle %d has no readings, nothing written", b.Cycle)
		return nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	p := ToPoint(s.measurement, s.tags, b)
	if err := s.writer.WritePoint(ctx, p); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", env.ErrSinkUnreachable, err)
	}
	return nil
}

func (s *InfluxSink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
