// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values.
type Config struct {
	// Timing
	Interval                time.Duration
	StartupDelay            time.Duration
	WarmupSkipCycles        int // cycles read but not written at startup
	TemperatureWarmupCycles int // cycles before temperature is reported

	// Compensation
	TemperatureOffset     float64 // °C added to the BME280 reading
	ProximityLuxThreshold float64 // above this, lux is reported as 1.0

	// I2C bus shared by BME280, LTR559 and ADS1015
	I2CBus string

	// BME280
	BME280Enabled bool
	BME280I2CAddr uint16

	// LTR559
	LTR559Enabled bool
	LTR559I2CAddr uint16

	// MICS6814 through ADS1015
	MICS6814Enabled bool
	ADS1015I2CAddr  uint16
	GasHeaterPin    string

	// PMS5003
	PMS5003Enabled     bool
	PMS5003SerialPort  string
	PMS5003BaudRate    int
	PMS5003ReadTimeout time.Duration
	PMS5003EnablePin   string
	PMS5003ResetPin    string

	// InfluxDB
	InfluxURL          string
	InfluxToken        string
	InfluxUsername     string
	InfluxPassword     string
	InfluxOrg          string
	InfluxBucket       string
	InfluxMeasurement  string
	InfluxHostTag      string
	InfluxWriteTimeout time.Duration

	// MQTT (optional live mirror)
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	TopicSample          string

	// Metrics / web
	MetricsAddr   string
	WebServerPort int

	// Display (ST7735 on the Enviro+)
	DisplayEnabled   bool
	DisplaySPIDevice string
	DisplayDCPin     string
	DisplayBacklight string
	DisplayRotation  int
	DisplaySPISpeed  int64 // Hz
}

// envOverrides are keys that may also come from the process environment,
// so credentials do not need to live in the config file.
var envOverrides = []string{
	"INFLUX_URL",
	"INFLUX_TOKEN",
	"INFLUX_USERNAME",
	"INFLUX_PASSWORD",
}

// Default returns a Config wired for a stock Enviro+ with a PMS5003.
func Default() *Config {
	return &Config{
		Interval:                10 * time.Second,
		WarmupSkipCycles:        3,
		TemperatureWarmupCycles: 6,
		TemperatureOffset:       -2.3,
		ProximityLuxThreshold:   10,

		I2CBus: "1",

		BME280Enabled: true,
		BME280I2CAddr: 0x76,

		LTR559Enabled: true,
		LTR559I2CAddr: 0x23,

		MICS6814Enabled: true,
		ADS1015I2CAddr:  0x49,
		GasHeaterPin:    "GPIO24",

		PMS5003Enabled:     true,
		PMS5003SerialPort:  "/dev/ttyAMA0",
		PMS5003BaudRate:    9600,
		PMS5003ReadTimeout: 5 * time.Second,
		PMS5003EnablePin:   "GPIO22",
		PMS5003ResetPin:    "GPIO27",

		InfluxURL:          "http://localhost:8086",
		InfluxMeasurement:  "enviroplus",
		InfluxHostTag:      "enviroplus",
		InfluxWriteTimeout: 10 * time.Second,

		MQTTClientIDProducer: "enviro-producer",
		MQTTClientIDConsole:  "enviro-console",
		MQTTClientIDWeb:      "enviro-web",
		TopicSample:          "enviro/sample",

		WebServerPort: 8080,

		DisplaySPIDevice: "SPI0.1",
		DisplayDCPin:     "GPIO9",
		DisplayBacklight: "GPIO12",
		DisplayRotation:  270,
		DisplaySPISpeed:  10_000_000,
	}
}

// Load reads the KEY=VALUE configuration file and returns a Config struct.
// Unset keys keep the values from Default.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	for _, key := range envOverrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			values[key] = v
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfg := Default()
	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("config %s: %w", configPath, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// Timing
	case "INTERVAL_SECONDS":
		c.Interval, err = parseSeconds(key, value)
	case "STARTUP_DELAY_SECONDS":
		c.StartupDelay, err = parseSeconds(key, value)
	case "WARMUP_SKIP_CYCLES":
		c.WarmupSkipCycles, err = parseCount(key, value)
	case "TEMPERATURE_WARMUP_CYCLES":
		c.TemperatureWarmupCycles, err = parseCount(key, value)

	// Compensation
	case "TEMPERATURE_OFFSET":
		c.TemperatureOffset, err = parseFloat(key, value)
	case "PROXIMITY_LUX_THRESHOLD":
		c.ProximityLuxThreshold, err = parseFloat(key, value)

	case "I2C_BUS":
		c.I2CBus = value

	// BME280
	case "BME280_ENABLED":
		c.BME280Enabled, err = parseBool(key, value)
	case "BME280_I2C_ADDR":
		c.BME280I2CAddr, err = parseI2CAddr(key, value)

	// LTR559
	case "LTR559_ENABLED":
		c.LTR559Enabled, err = parseBool(key, value)
	case "LTR559_I2C_ADDR":
		c.LTR559I2CAddr, err = parseI2CAddr(key, value)

	// MICS6814
	case "MICS6814_ENABLED":
		c.MICS6814Enabled, err = parseBool(key, value)
	case "ADS1015_I2C_ADDR":
		c.ADS1015I2CAddr, err = parseI2CAddr(key, value)
	case "GAS_HEATER_PIN":
		c.GasHeaterPin = value

	// PMS5003
	case "PMS5003_ENABLED":
		c.PMS5003Enabled, err = parseBool(key, value)
	case "PMS5003_SERIAL_PORT":
		c.PMS5003SerialPort = value
	case "PMS5003_BAUD_RATE":
		rate, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, perr)
		}
		if rate <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, rate)
		}
		c.PMS5003BaudRate = rate
	case "PMS5003_READ_TIMEOUT_MS":
		ms, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, perr)
		}
		if ms < 100 {
			return fmt.Errorf("%s must be at least 100, got %d", key, ms)
		}
		c.PMS5003ReadTimeout = time.Duration(ms) * time.Millisecond
	case "PMS5003_ENABLE_PIN":
		c.PMS5003EnablePin = value
	case "PMS5003_RESET_PIN":
		c.PMS5003ResetPin = value

	// InfluxDB
	case "INFLUX_URL":
		c.InfluxURL = value
	case "INFLUX_TOKEN":
		c.InfluxToken = value
	case "INFLUX_USERNAME":
		c.InfluxUsername = value
	case "INFLUX_PASSWORD":
		c.InfluxPassword = value
	case "INFLUX_ORG":
		c.InfluxOrg = value
	case "INFLUX_BUCKET", "INFLUX_DATABASE":
		c.InfluxBucket = value
	case "INFLUX_MEASUREMENT":
		c.InfluxMeasurement = value
	case "INFLUX_HOST_TAG":
		c.InfluxHostTag = value
	case "INFLUX_WRITE_TIMEOUT_SECONDS":
		c.InfluxWriteTimeout, err = parseSeconds(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "TOPIC_SAMPLE":
		c.TopicSample = value

	// Metrics / web
	case "METRICS_ADDR":
		c.MetricsAddr = value
	case "WEB_SERVER_PORT":
		port, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, perr)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be 1-65535, got %d", key, port)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_SPI_DEVICE":
		c.DisplaySPIDevice = value
	case "DISPLAY_DC_PIN":
		c.DisplayDCPin = value
	case "DISPLAY_BACKLIGHT_PIN":
		c.DisplayBacklight = value
	case "DISPLAY_ROTATION":
		rot, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, perr)
		}
		if rot != 0 && rot != 90 && rot != 180 && rot != 270 {
			return fmt.Errorf("%s must be 0, 90, 180 or 270, got %d", key, rot)
		}
		c.DisplayRotation = rot
	case "DISPLAY_SPI_SPEED_HZ":
		hz, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, perr)
		}
		if hz <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, hz)
		}
		c.DisplaySPISpeed = hz

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseSeconds(key, value string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if secs < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func parseCount(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, n)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func parseI2CAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("INTERVAL_SECONDS must be positive")
	}
	if c.InfluxURL == "" {
		return fmt.Errorf("INFLUX_URL is required")
	}
	if c.InfluxBucket == "" {
		return fmt.Errorf("INFLUX_BUCKET (or INFLUX_DATABASE) is required")
	}
	if c.InfluxMeasurement == "" {
		return fmt.Errorf("INFLUX_MEASUREMENT is required")
	}
	if c.InfluxToken != "" && c.InfluxUsername != "" {
		return fmt.Errorf("set either INFLUX_TOKEN or INFLUX_USERNAME/INFLUX_PASSWORD, not both")
	}
	if c.PMS5003Enabled && c.PMS5003SerialPort == "" {
		return fmt.Errorf("PMS5003_SERIAL_PORT is required when PMS5003_ENABLED")
	}
	if c.MQTTBroker != "" && c.TopicSample == "" {
		return fmt.Errorf("TOPIC_SAMPLE is required when MQTT_BROKER is set")
	}
	if !c.BME280Enabled && !c.LTR559Enabled && !c.MICS6814Enabled && !c.PMS5003Enabled {
		return fmt.Errorf("at least one sensor must be enabled")
	}
	return nil
}

// InfluxAuthToken returns the token sent to InfluxDB. For 1.8 servers
// the username/password pair is sent as "user:pass".
func (c *Config) InfluxAuthToken() string {
	if c.InfluxToken != "" {
		return c.InfluxToken
	}
	if c.InfluxUsername != "" {
		return c.InfluxUsername + ":" + c.InfluxPassword
	}
	return ""
}
