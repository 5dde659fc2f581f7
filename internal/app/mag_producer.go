// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/config"
	"github.com/relabs-tech/magcal/internal/imu"
	"github.com/relabs-tech/magcal/internal/telemetry"
)

// RunMagProducer publishes local magnetometer and gyro samples on the mag
// and gyro topics until interrupted.
func RunMagProducer() error {
	cfg := config.Get()
	SetupLogging(cfg.LogLevel)

	local, err := OpenLocalSensors(cfg)
	if err != nil {
		return err
	}
	defer local.Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	interval := cfg.CalibrationWindow() / time.Duration(cfg.CalMaxSamples)
	sub, err := local.Bus.Subscribe(interval)
	if err != nil {
		return err
	}
	defer sub.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.Printf("producer: publishing every %v on %s and %s", interval, cfg.TopicMag, cfg.TopicGyro)
	for {
		select {
		case <-stop:
			log.Println("producer: shutting down")
			return nil
		default:
		}

		s, status, err := sub.Wait(cfg.PollTimeout())
		switch status {
		case telemetry.WaitTimeout:
			continue
		case telemetry.WaitError:
			log.Printf("producer: read error: %v", err)
			time.Sleep(interval)
			continue
		}
		if err := publishSample(client, cfg.TopicMag, cfg.TopicGyro, s); err != nil {
			log.Printf("producer: %v", err)
		}
	}
}

// publishSample sends gyro first so a consumer pairs the field with the
// rate of the same instant.
func publishSample(client mqtt.Client, topicMag, topicGyro string, s imu.Sample) error {
	mag, gyro := s.Payloads()

	gb, err := json.Marshal(gyro)
	if err != nil {
		return fmt.Errorf("marshal gyro: %w", err)
	}
	mb, err := json.Marshal(mag)
	if err != nil {
		return fmt.Errorf("marshal mag: %w", err)
	}

	if t := client.Publish(topicGyro, 0, false, gb); t.Wait() && t.Error() != nil {
		return fmt.Errorf("publish %s: %w", topicGyro, t.Error())
	}
	if t := client.Publish(topicMag, 0, false, mb); t.Wait() && t.Error() != nil {
		return fmt.Errorf("publish %s: %w", topicMag, t.Error())
	}
	return nil
}
