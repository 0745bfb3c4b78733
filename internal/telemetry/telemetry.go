// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry moves motion samples over MQTT: a Publisher observer
// for the producer side and Subscribe for consoles, web and display.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/motionkit/internal/config"
	"github.com/relabs-tech/motionkit/internal/motion"
)

const (
	qos            = 0
	publishTimeout = time.Second
)

// Message is the JSON payload published for every sample.
type Message struct {
	Kind      string    `json:"kind"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Magnitude float64   `json:"magnitude"`
	Time      time.Time `json:"time"`
}

// Topics maps each sensor kind to its MQTT topic.
type Topics map[motion.Kind]string

// TopicsFromConfig reads the per-kind topics from cfg.
func TopicsFromConfig(cfg *config.Config) Topics {
	t := make(Topics, len(motion.Kinds()))
	for _, k := range motion.Kinds() {
		t[k] = cfg.Topic(k)
	}
	return t
}

// Kind returns the sensor kind published on topic.
func (t Topics) Kind(topic string) (motion.Kind, bool) {
	for k, v := range t {
		if v == topic {
			return k, true
		}
	}
	return 0, false
}

// Connect opens an MQTT connection, the way every program in this repo does.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher is a motion observer for all four kinds. Each sample is
// published retained so late subscribers get the latest value at once.
type Publisher struct {
	client publishClient
	topics Topics
	now    func() time.Time
}

// NewPublisher returns a Publisher sending on client.
func NewPublisher(client publishClient, topics Topics) *Publisher {
	return &Publisher{client: client, topics: topics, now: time.Now}
}

func (p *Publisher) AccelerometerValues(x, y, z, m float64) {
	p.publish(motion.Accelerometer, x, y, z, m)
}

func (p *Publisher) GyroscopeValues(x, y, z, m float64) {
	p.publish(motion.Gyroscope, x, y, z, m)
}

func (p *Publisher) DeviceMotionValues(x, y, z, m float64) {
	p.publish(motion.DeviceMotion, x, y, z, m)
}

func (p *Publisher) MagnetometerValues(x, y, z, m float64) {
	p.publish(motion.Magnetometer, x, y, z, m)
}

func (p *Publisher) publish(kind motion.Kind, x, y, z, m float64) {
	topic := p.topics[kind]
	if topic == "" {
		return
	}
	payload, err := json.Marshal(Message{
		Kind:      kind.String(),
		X:         x,
		Y:         y,
		Z:         z,
		Magnitude: m,
		Time:      p.now(),
	})
	if err != nil {
		log.Printf("telemetry: json marshal error (%s): %v", kind, err)
		return
	}

	token := p.client.Publish(topic, qos, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("telemetry: MQTT publish timeout (%s)", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("telemetry: MQTT publish error (%s): %v", topic, err)
	}
}

type subscribeClient interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Subscribe registers fn for every topic in topics. Payloads that fail to
// decode are logged and dropped.
func Subscribe(client subscribeClient, topics Topics, fn func(motion.Kind, Message)) error {
	for _, kind := range motion.Kinds() {
		topic, ok := topics[kind]
		if !ok || topic == "" {
			continue
		}
		token := client.Subscribe(topic, qos, handler(kind, fn))
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("MQTT subscribe %s: %w", topic, err)
		}
		log.Printf("telemetry: subscribed to %s", topic)
	}
	return nil
}

func handler(kind motion.Kind, fn func(motion.Kind, Message)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		m, err := Decode(msg.Payload())
		if err != nil {
			log.Printf("telemetry: %s unmarshal error: %v", kind, err)
			return
		}
		fn(kind, m)
	}
}

// Decode parses a published payload.
func Decode(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
