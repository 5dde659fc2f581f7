// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker              string
	MQTTClientIDCalibration string
	MQTTClientIDProducer    string
	MQTTClientIDConsole     string

	// Topics
	TopicMag    string
	TopicGyro   string
	TopicStatus string

	// Sensor source: "local", "mqtt", "serial" or "sim"
	SensorSource   string
	SerialPort     string
	SerialBaudRate int
	SimOffsetX     float64 // Gauss, hard-iron offset of the simulated sensor
	SimOffsetY     float64
	SimOffsetZ     float64

	// Magnetometer hardware: "hmc5983" or "memory"
	MagDevice     string
	HMCI2CBus     string
	HMCI2CAddr    uint16
	HMCGainCode   int
	HMCODRHz      int
	HMCAvgSamples int

	// Gyro hardware
	GyroSPIDevice string
	GyroCSPin     string
	GyroLSBPerDPS float64 // LSB per °/s for the configured gyro range

	// Calibration run
	CalWindowSeconds   int
	CalMaxSamples      int
	CalPollTimeoutMS   int
	CalMaxPollFailures int
	SphereFitMaxIter   int
	SphereFitTolerance float64

	// Parameter store: "file" or "sqlite"
	ParamBackend string
	ParamPath    string

	// Feedback
	WebServerPort  int  // 0 disables the web server
	WebLinger      bool // keep serving the result until interrupted
	DisplayEnabled bool
	DisplayI2CBus  string
	FeedbackMQTT   bool

	LogLevel string
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		MQTTBroker:              "tcp://localhost:1883",
		MQTTClientIDCalibration: "magcal-calibration",
		MQTTClientIDProducer:    "magcal-producer",
		MQTTClientIDConsole:     "magcal-console",

		TopicMag:    "magcal/sensor/mag",
		TopicGyro:   "magcal/sensor/gyro",
		TopicStatus: "magcal/status",

		SensorSource:   "local",
		SerialPort:     "/dev/ttyUSB0",
		SerialBaudRate: 115200,

		MagDevice:     "hmc5983",
		HMCI2CBus:     "1",
		HMCI2CAddr:    0x1E,
		HMCGainCode:   1,
		HMCODRHz:      75,
		HMCAvgSamples: 1,

		GyroSPIDevice: "/dev/spidev0.0",
		GyroCSPin:     "8",
		GyroLSBPerDPS: 131,

		CalWindowSeconds:   20,
		CalMaxSamples:      1000,
		CalPollTimeoutMS:   1000,
		CalMaxPollFailures: 1000,
		SphereFitMaxIter:   100,
		SphereFitTolerance: 0,

		ParamBackend: "file",
		ParamPath:    "magcal_params.json",

		WebServerPort: 8080,
		WebLinger:     true,
		DisplayI2CBus: "1",

		LogLevel: "info",
	}
}

// Load reads the configuration file and returns a Config struct.
// Keys not present in the file keep their Default() value.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
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
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_CALIBRATION":
		c.MQTTClientIDCalibration = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_GYRO":
		c.TopicGyro = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Sensor source
	case "SENSOR_SOURCE":
		switch value {
		case "local", "mqtt", "serial", "sim":
			c.SensorSource = value
		default:
			return fmt.Errorf("SENSOR_SOURCE must be local, mqtt, serial or sim, got %q", value)
		}
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value, 1, 4000000)
	case "SIM_OFFSET_X":
		c.SimOffsetX, err = parseFloat(key, value)
	case "SIM_OFFSET_Y":
		c.SimOffsetY, err = parseFloat(key, value)
	case "SIM_OFFSET_Z":
		c.SimOffsetZ, err = parseFloat(key, value)

	// Magnetometer
	case "MAG_DEVICE":
		switch value {
		case "hmc5983", "memory":
			c.MagDevice = value
		default:
			return fmt.Errorf("MAG_DEVICE must be hmc5983 or memory, got %q", value)
		}
	case "HMC_I2C_BUS":
		c.HMCI2CBus = value
	case "HMC_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid HMC_I2C_ADDR %q: %w", value, perr)
		}
		c.HMCI2CAddr = uint16(addr)
	case "HMC_GAIN_CODE":
		c.HMCGainCode, err = parseInt(key, value, 0, 7)
	case "HMC_ODR_HZ":
		c.HMCODRHz, err = parseInt(key, value, 1, 220)
	case "HMC_AVG_SAMPLES":
		c.HMCAvgSamples, err = parseInt(key, value, 1, 8)

	// Gyro
	case "GYRO_SPI_DEVICE":
		c.GyroSPIDevice = value
	case "GYRO_CS_PIN":
		c.GyroCSPin = value
	case "GYRO_LSB_PER_DPS":
		c.GyroLSBPerDPS, err = parseFloat(key, value)
		if err == nil && c.GyroLSBPerDPS <= 0 {
			return fmt.Errorf("GYRO_LSB_PER_DPS must be positive, got %v", c.GyroLSBPerDPS)
		}

	// Calibration run
	case "CAL_WINDOW_SECONDS":
		c.CalWindowSeconds, err = parseInt(key, value, 3, 3600)
	case "CAL_MAX_SAMPLES":
		c.CalMaxSamples, err = parseInt(key, value, 20, 100000)
	case "CAL_POLL_TIMEOUT_MS":
		c.CalPollTimeoutMS, err = parseInt(key, value, 1, 60000)
	case "CAL_MAX_POLL_FAILURES":
		c.CalMaxPollFailures, err = parseInt(key, value, 0, 1000000)
	case "SPHERE_FIT_MAX_ITER":
		c.SphereFitMaxIter, err = parseInt(key, value, 1, 10000)
	case "SPHERE_FIT_TOLERANCE":
		c.SphereFitTolerance, err = parseFloat(key, value)

	// Parameter store
	case "PARAM_BACKEND":
		switch value {
		case "file", "sqlite":
			c.ParamBackend = value
		default:
			return fmt.Errorf("PARAM_BACKEND must be file or sqlite, got %q", value)
		}
	case "PARAM_PATH":
		c.ParamPath = value

	// Feedback
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 0, 65535)
	case "WEB_LINGER":
		c.WebLinger, err = parseBool(key, value)
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "FEEDBACK_MQTT":
		c.FeedbackMQTT, err = parseBool(key, value)

	case "LOG_LEVEL":
		c.LogLevel = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if (c.SensorSource == "mqtt" || c.FeedbackMQTT) && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.SensorSource == "serial" && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required for SENSOR_SOURCE=serial")
	}
	if c.ParamPath == "" {
		return fmt.Errorf("PARAM_PATH is required")
	}
	return nil
}

// CalibrationWindow is the total guided sampling window.
func (c *Config) CalibrationWindow() time.Duration {
	return time.Duration(c.CalWindowSeconds) * time.Second
}

// PollTimeout is the per-sample wait on the sensor bus.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.CalPollTimeoutMS) * time.Millisecond
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
