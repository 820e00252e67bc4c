// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"sort"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/relabs-tech/enviro_logger/internal/env"
)

// ToPoint turns a batch into one point: every reading becomes a field and
// the batch timestamp becomes the point time.
func ToPoint(measurement string, tags map[string]string, b env.Batch) *write.Point {
	p := influxdb2.NewPointWithMeasurement(measurement).SetTime(b.Timestamp)

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.AddTag(k, tags[k])
	}

	for _, r := range b.Readings {
		p.AddField(r.Metric, r.Value)
	}
	return p
}
