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

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/config"
	"github.com/relabs-tech/magcal/internal/feedback"
)

// RunConsoleMQTT prints calibration status events from the status topic.
func RunConsoleMQTT() error {
	cfg := config.Get()
	SetupLogging(cfg.LogLevel)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var e feedback.Event
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Println(formatEvent(e))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("console: shutting down")
	return nil
}

func formatEvent(e feedback.Event) string {
	ts := e.Time.Format("15:04:05")
	switch e.Type {
	case feedback.TypeProgress:
		return fmt.Sprintf("%s [PROG] %3d%%", ts, e.Progress)
	case feedback.TypeEmergency:
		return fmt.Sprintf("%s [EMRG] %s", ts, e.Message)
	case feedback.TypeTune:
		return fmt.Sprintf("%s [TUNE]", ts)
	}
	return fmt.Sprintf("%s [INFO] %s", ts, e.Message)
}
