// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/relabs-tech/enviro_logger/internal/env"
)

func testBatch(t *testing.T) env.Batch {
	t.Helper()
	b := env.NewBatch(7, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	if err := b.Add(env.MetricTemperature, 21.3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.Add(env.MetricPM25, 5.0); err != nil {
		t.Fatalf("add: %v", err)
	}
	return b
}

func TestToPointCarriesFieldsAndTimestamp(t *testing.T) {
	b := testBatch(t)
	p := ToPoint("enviroplus", map[string]string{"host": "enviroplus"}, b)

	if p.Name() != "enviroplus" {
		t.Fatalf("unexpected measurement %q", p.Name())
	}
	if !p.Time().Equal(b.Timestamp) {
		t.Fatalf("point time %s, want %s", p.Time(), b.Timestamp)
	}

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if len(fields) != 2 || fields[env.MetricTemperature] != 21.3 || fields[env.MetricPM25] != 5.0 {
		t.Fatalf("unexpected fields %v", fields)
	}

	tags := p.TagList()
	if len(tags) != 1 || tags[0].Key != "host" || tags[0].Value != "enviroplus" {
		t.Fatalf("unexpected tags %v", tags)
	}
}

type fakeWriter struct {
	points []*write.Point
	err    error
}

func (f *fakeWriter) WritePoint(_ context.Context, point ...*write.Point) error {
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, point...)
	return nil
}

func TestInfluxSinkWritesOnePointPerBatch(t *testing.T) {
	w := &fakeWriter{}
	s := &InfluxSink{writer: w, measurement: "enviroplus", tags: map[string]string{"host": "enviroplus"}}

	if err := s.Write(context.Background(), testBatch(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(w.points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(w.points))
	}
}

func TestInfluxSinkSkipsEmptyBatch(t *testing.T) {
	w := &fakeWriter{}
	s := &InfluxSink{writer: w, measurement: "enviroplus"}

	if err := s.Write(context.Background(), env.NewBatch(1, time.Now())); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(w.points) != 0 {
		t.Fatalf("empty batch must not be written")
	}
}

func TestInfluxSinkWrapsUnreachable(t *testing.T) {
	s := &InfluxSink{writer: &fakeWriter{err: errors.New("connection refused")}, measurement: "enviroplus"}

	err := s.Write(context.Background(), testBatch(t))
	if !errors.Is(err, env.ErrSinkUnreachable) {
		t.Fatalf("expected ErrSinkUnreachable, got %v", err)
	}
}

type fakeToken struct {
	mqtt.Token
	err error
}

func (t *fakeToken) Wait() bool   { return true }
func (t *fakeToken) Error() error { return t.err }

type fakeMQTT struct {
	mqtt.Client
	topic    string
	retained bool
	payload  []byte
	err      error
}

func (f *fakeMQTT) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.topic = topic
	f.retained = retained
	f.payload = payload.([]byte)
	return &fakeToken{err: f.err}
}

func (f *fakeMQTT) Disconnect(uint) {}

func TestMQTTSinkPublishesRetainedJSON(t *testing.T) {
	c := &fakeMQTT{}
	s := NewMQTT(c, "enviro/sample")

	if err := s.Write(context.Background(), testBatch(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if c.topic != "enviro/sample" || !c.retained {
		t.Fatalf("unexpected publish topic=%q retained=%v", c.topic, c.retained)
	}

	var got env.Batch
	if err := json.Unmarshal(c.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Cycle != 7 || got.Len() != 2 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestMQTTSinkPublishError(t *testing.T) {
	s := NewMQTT(&fakeMQTT{err: errors.New("not connected")}, "enviro/sample")
	if err := s.Write(context.Background(), testBatch(t)); !errors.Is(err, env.ErrSinkUnreachable) {
		t.Fatalf("expected ErrSinkUnreachable, got %v", err)
	}
}

func TestHTTPTimeoutSecondsRoundsUp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want uint
	}{
		{0, 0},
		{-time.Second, 0},
		{500 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{10 * time.Second, 10},
	}
	for _, tc := range cases {
		if got := httpTimeoutSeconds(tc.in); got != tc.want {
			t.Fatalf("httpTimeoutSeconds(%s)=%d want %d", tc.in, got, tc.want)
		}
	}
}
