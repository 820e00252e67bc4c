// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

// Metric names written as InfluxDB field keys.
const (
	// BME280
	MetricTemperature = "temperature"
	MetricPressure    = "pressure"
	MetricHumidity    = "humidity"

	// LTR559
	MetricLux       = "lux"
	MetricProximity = "proximity"

	// MICS6814 (resistance)
	MetricOxidising = "oxidising"
	MetricReducing  = "reducing"
	MetricNH3       = "nh3"

	// PMS5003 mass concentration
	MetricPM1  = "pm1"
	MetricPM25 = "pm2_5"
	MetricPM10 = "pm10"

	// PMS5003 particle counts (>= size, per 0.1 L of air)
	MetricParticles03  = "particles_0_3um"
	MetricParticles05  = "particles_0_5um"
	MetricParticles10  = "particles_1_0um"
	MetricParticles25  = "particles_2_5um"
	MetricParticles50  = "particles_5_0um"
	MetricParticles100 = "particles_10um"
)

var units = map[string]string{
	MetricTemperature:  "°C",
	MetricPressure:     "hPa",
	MetricHumidity:     "%RH",
	MetricLux:          "lx",
	MetricProximity:    "",
	MetricOxidising:    "kΩ",
	MetricReducing:     "kΩ",
	MetricNH3:          "kΩ",
	MetricPM1:          "µg/m³",
	MetricPM25:         "µg/m³",
	MetricPM10:         "µg/m³",
	MetricParticles03:  "/0.1L",
	MetricParticles05:  "/0.1L",
	MetricParticles10:  "/0.1L",
	MetricParticles25:  "/0.1L",
	MetricParticles50:  "/0.1L",
	MetricParticles100: "/0.1L",
}

// Unit returns the unit for a known metric, or "" if unknown or unitless.
func Unit(metric string) string {
	return units[metric]
}
