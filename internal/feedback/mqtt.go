// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// MQTTSink publishes every event as JSON on a status topic.
type MQTTSink struct {
	eventSink
}

func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	return &MQTTSink{eventSink: func(e Event) {
		b, err := json.Marshal(e)
		if err != nil {
			log.Printf("feedback: marshal error: %v", err)
			return
		}
		// token not awaited
		client.Publish(topic, 0, false, b)
	}}
}
