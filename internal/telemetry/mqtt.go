// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/imu"
)

// MQTTBus receives samples published by a producer. A message on the mag
// topic yields a sample paired with the latest gyro message.
type MQTTBus struct {
	Client    mqtt.Client
	TopicMag  string
	TopicGyro string
}

// NewMQTTBus uses an already connected client.
func NewMQTTBus(client mqtt.Client, topicMag, topicGyro string) *MQTTBus {
	return &MQTTBus{Client: client, TopicMag: topicMag, TopicGyro: topicGyro}
}

// Subscribe subscribes to both topics. The producer's rate applies; the
// requested interval is only logged.
func (b *MQTTBus) Subscribe(interval time.Duration) (Subscription, error) {
	var (
		mu   sync.Mutex
		rate r3.Vector
	)

	f := newFeed(func() error {
		token := b.Client.Unsubscribe(b.TopicMag, b.TopicGyro)
		token.Wait()
		return token.Error()
	})

	gyroToken := b.Client.Subscribe(b.TopicGyro, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p imu.GyroPayload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("telemetry: gyro unmarshal error: %v", err)
			return
		}
		mu.Lock()
		rate = p.Vector()
		mu.Unlock()
	})
	gyroToken.Wait()
	if gyroToken.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", b.TopicGyro, gyroToken.Error())
	}

	magToken := b.Client.Subscribe(b.TopicMag, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p imu.MagPayload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			f.fail(fmt.Errorf("mag unmarshal: %w", err))
			return
		}
		mu.Lock()
		r := rate
		mu.Unlock()
		f.push(imu.Sample{Field: p.Vector(), Rate: r, Time: p.Timestamp()})
	})
	magToken.Wait()
	if magToken.Error() != nil {
		b.Client.Unsubscribe(b.TopicGyro).Wait()
		return nil, fmt.Errorf("subscribe %s: %w", b.TopicMag, magToken.Error())
	}

	log.Printf("telemetry: subscribed to %s and %s (requested interval %v)", b.TopicMag, b.TopicGyro, interval)
	return f, nil
}
