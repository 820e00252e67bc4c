// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prom records cycle outcomes as Prometheus series.
type Prom struct {
	cycles       *prometheus.CounterVec
	sensorErrors *prometheus.CounterVec
	sinkErrors   *prometheus.CounterVec
	sinkWrite    *prometheus.HistogramVec
	lastSample   prometheus.Gauge
}

// NewProm registers the enviro_* series on reg.
func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enviro_cycles_total",
			Help: "Sampling cycles by outcome.",
		}, []string{"outcome"}),
		sensorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enviro_sensor_errors_total",
			Help: "Sensor reads that failed and were left out of the batch.",
		}, []string{"source"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enviro_sink_errors_total",
			Help: "Batch writes that failed.",
		}, []string{"sink"}),
		sinkWrite: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enviro_sink_write_seconds",
			Help:    "Time spent writing one batch.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"sink"}),
		lastSample: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "enviro_last_sample_timestamp_seconds",
			Help: "Unix time of the last batch written.",
		}),
	}
	reg.MustRegister(p.cycles, p.sensorErrors, p.sinkErrors, p.sinkWrite, p.lastSample)
	return p
}

func (p *Prom) CycleDone(outcome string)  { p.cycles.WithLabelValues(outcome).Inc() }
func (p *Prom) SensorError(source string) { p.sensorErrors.WithLabelValues(source).Inc() }
func (p *Prom) SinkError(sink string)     { p.sinkErrors.WithLabelValues(sink).Inc() }
func (p *Prom) LastSample(at time.Time)   { p.lastSample.Set(float64(at.UnixNano()) / 1e9) }

func (p *Prom) SinkWrite(sink string, took time.Duration) {
	p.sinkWrite.WithLabelValues(sink).Observe(took.Seconds())
}

// Serve exposes g on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("metrics: serving /metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("metrics: server error: %v", err)
	}
}
