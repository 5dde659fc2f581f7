// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/calibration"
	"github.com/relabs-tech/magcal/internal/config"
	"github.com/relabs-tech/magcal/internal/feedback"
	"github.com/relabs-tech/magcal/internal/magdev"
	"github.com/relabs-tech/magcal/internal/params"
	"github.com/relabs-tech/magcal/internal/telemetry"
)

// RunCalibration performs one calibration run with the components selected
// by the global configuration.
func RunCalibration() (*calibration.Result, error) {
	cfg := config.Get()
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	SetupLogging(cfg.LogLevel)

	var client mqtt.Client
	if cfg.SensorSource == "mqtt" || cfg.FeedbackMQTT {
		c, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCalibration)
		if err != nil {
			return nil, err
		}
		defer c.Disconnect(250)
		client = c
	}

	bus, dev, closeSensors, err := openSensors(cfg, client)
	if err != nil {
		return nil, err
	}
	defer closeSensors()

	store, closeStore, err := openParams(cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	channels := feedback.Multi{feedback.LogSink{}}
	if client != nil && cfg.FeedbackMQTT {
		channels = append(channels, feedback.NewMQTTSink(client, cfg.TopicStatus))
	}
	if cfg.DisplayEnabled {
		disp, err := feedback.OpenDisplay(cfg.DisplayI2CBus)
		if err != nil {
			log.Warnf("calibration: display disabled: %v", err)
		} else {
			defer disp.Close()
			channels = append(channels, disp)
		}
	}
	hub := feedback.NewHub()
	channels = append(channels, hub)

	orch := calibration.New(CalibrationConfig(cfg), bus, dev, store, channels)

	state := &runState{orch: orch}
	var srv *http.Server
	if cfg.WebServerPort > 0 {
		srv = startWebServer(cfg.WebServerPort, hub, state)
	}

	res, err := orch.Run()
	state.finish(res, err)
	if srv != nil {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(stop)
		holdWebServer(srv, cfg.WebLinger, stop)
	}
	return res, err
}

// CalibrationConfig maps file configuration onto a run configuration.
func CalibrationConfig(cfg *config.Config) calibration.Config {
	return calibration.Config{
		Window:          cfg.CalibrationWindow(),
		Capacity:        cfg.CalMaxSamples,
		PollTimeout:     cfg.PollTimeout(),
		MaxPollFailures: cfg.CalMaxPollFailures,
		FitMaxIter:      cfg.SphereFitMaxIter,
		FitTolerance:    cfg.SphereFitTolerance,
	}
}

// SetupLogging applies LOG_LEVEL, keeping info on unknown values.
func SetupLogging(level string) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s", broker)
	return client, nil
}

// openSensors builds the telemetry bus and the scale device. Remote sources
// keep the scale record in memory.
func openSensors(cfg *config.Config, client mqtt.Client) (telemetry.Bus, magdev.ScaleDevice, func(), error) {
	switch cfg.SensorSource {
	case "mqtt":
		logRemoteDevice(cfg)
		return telemetry.NewMQTTBus(client, cfg.TopicMag, cfg.TopicGyro), magdev.NewMemoryDevice(), func() {}, nil
	case "serial":
		logRemoteDevice(cfg)
		return telemetry.NewSerialBus(cfg.SerialPort, cfg.SerialBaudRate), magdev.NewMemoryDevice(), func() {}, nil
	case "sim":
		sim := telemetry.NewSimSensor(r3.Vector{X: cfg.SimOffsetX, Y: cfg.SimOffsetY, Z: cfg.SimOffsetZ})
		log.Printf("calibration: simulated sensor with offset %.3f %.3f %.3f Ga", cfg.SimOffsetX, cfg.SimOffsetY, cfg.SimOffsetZ)
		return telemetry.NewLocalBus(sim, sim), magdev.NewMemoryDevice(), func() {}, nil
	}

	local, err := OpenLocalSensors(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	var dev magdev.ScaleDevice = local.Mag
	if cfg.MagDevice == "memory" {
		dev = magdev.NewMemoryDevice()
	}
	return local.Bus, dev, local.Close, nil
}

func logRemoteDevice(cfg *config.Config) {
	if cfg.MagDevice == "hmc5983" {
		log.Warnf("calibration: SENSOR_SOURCE=%s, scale record kept in memory", cfg.SensorSource)
	}
}

func openParams(cfg *config.Config) (*params.Store, func(), error) {
	var (
		backend params.Backend
		closer  = func() {}
	)
	switch cfg.ParamBackend {
	case "sqlite":
		db, err := params.OpenSQLite(cfg.ParamPath)
		if err != nil {
			return nil, nil, err
		}
		backend = db
		closer = func() { db.Close() }
	default:
		backend = params.NewFileBackend(cfg.ParamPath)
	}

	store, err := params.NewMagStore(backend)
	if err != nil {
		closer()
		return nil, nil, err
	}
	log.Printf("calibration: parameters in %s (%s)", cfg.ParamPath, cfg.ParamBackend)
	return store, closer, nil
}
