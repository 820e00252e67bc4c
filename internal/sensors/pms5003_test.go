// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/relabs-tech/enviro_logger/internal/env"
)

// buildPMSFrame encodes data words into a valid 32-byte frame.
func buildPMSFrame(words [pmsDataWords]uint16) []byte {
	raw := make([]byte, pmsFrameLen)
	raw[0], raw[1] = pmsStart1, pmsStart2
	binary.BigEndian.PutUint16(raw[2:], pmsBodyLen)
	for i, w := range words {
		binary.BigEndian.PutUint16(raw[4+2*i:], w)
	}
	var sum uint16
	for _, b := range raw[:pmsFrameLen-2] {
		sum += uint16(b)
	}
	binary.BigEndian.PutUint16(raw[pmsFrameLen-2:], sum)
	return raw
}

var sampleWords = [pmsDataWords]uint16{3, 5, 7, 3, 5, 7, 600, 180, 30, 4, 1, 0, 0}

func TestReadPMSFrameDecodesWords(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader(buildPMSFrame(sampleWords)))

	f, err := ReadPMSFrame(r)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.PM1() != 3 || f.PM25() != 5 || f.PM10() != 7 {
		t.Fatalf("unexpected PM values: %d %d %d", f.PM1(), f.PM25(), f.PM10())
	}

	m := f.Metrics()
	if m[env.MetricPM25] != 5 || m[env.MetricParticles03] != 600 || m[env.MetricParticles100] != 0 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if len(m) != 9 {
		t.Fatalf("expected 9 metrics, got %d", len(m))
	}
}

func TestReadPMSFrameSkipsLeadingGarbage(t *testing.T) {
	stream := append([]byte{0x00, 0x42, 0x11, 0x42}, buildPMSFrame(sampleWords)...)
	f, err := ReadPMSFrame(bufio.NewReader(bytes.NewReader(stream)))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.PM10() != 7 {
		t.Fatalf("expected pm10 7, got %d", f.PM10())
	}
}

func TestReadPMSFrameChecksumMismatch(t *testing.T) {
	frame := buildPMSFrame(sampleWords)
	frame[10] ^= 0xFF

	_, err := ReadPMSFrame(bufio.NewReader(bytes.NewReader(frame)))
	if !errors.Is(err, errPMSChecksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}
}

func TestReadPMSFrameBadLength(t *testing.T) {
	frame := buildPMSFrame(sampleWords)
	binary.BigEndian.PutUint16(frame[2:], 20)

	_, err := ReadPMSFrame(bufio.NewReader(bytes.NewReader(frame)))
	if !errors.Is(err, errPMSLength) {
		t.Fatalf("expected length error, got %v", err)
	}
}

func TestReadPMSFrameTruncated(t *testing.T) {
	frame := buildPMSFrame(sampleWords)[:20]
	_, err := ReadPMSFrame(bufio.NewReader(bytes.NewReader(frame)))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF on truncated frame, got %v", err)
	}
}

type nopPort struct {
	io.Reader
	closed bool
}

func (p *nopPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *nopPort) Close() error                { p.closed = true; return nil }

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestPMS5003RecoversAfterCorruptFrame(t *testing.T) {
	bad := buildPMSFrame(sampleWords)
	bad[8] ^= 0x01
	stream := append(bad, buildPMSFrame(sampleWords)...)

	port := &nopPort{Reader: bytes.NewReader(stream)}
	p := newPMS5003(port, time.Second, nil)
	p.now = steppingClock(time.Millisecond)

	values, err := p.Sense()
	if err != nil {
		t.Fatalf("sense: %v", err)
	}
	if values[env.MetricPM1] != 3 {
		t.Fatalf("unexpected pm1 %f", values[env.MetricPM1])
	}
}

func TestPMS5003TimesOutWithoutData(t *testing.T) {
	port := &nopPort{Reader: bytes.NewReader(nil)}
	p := newPMS5003(port, 50*time.Millisecond, nil)
	p.now = steppingClock(10 * time.Millisecond)

	_, err := p.Sense()
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected wrapped EOF, got %v", err)
	}

	if err := p.Halt(); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if !port.closed {
		t.Fatalf("expected serial port closed on halt")
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestPMS5003ReturnsHardReadErrors(t *testing.T) {
	hard := errors.New("device gone")
	p := newPMS5003(&nopPort{Reader: failingReader{err: hard}}, time.Second, nil)
	p.now = steppingClock(time.Millisecond)

	if _, err := p.ReadFrame(); !errors.Is(err, hard) {
		t.Fatalf("expected hard error, got %v", err)
	}
}
