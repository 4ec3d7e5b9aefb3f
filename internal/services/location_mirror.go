package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/device-simulator/internal/models"
	"github.com/benmeehan/device-simulator/pkg/location"
	"github.com/benmeehan/device-simulator/pkg/mqtt"
)

// LocationMirror publishes reported locations to a secondary sink.
type LocationMirror interface {
	Publish(deviceID string, loc location.Location) error
}

// MQTTLocationMirror publishes every reported location to <topic>/<device id>.
type MQTTLocationMirror struct {
	topic      string
	qos        int
	timeout    time.Duration
	mqttClient mqtt.MQTTClient
}

// NewMQTTLocationMirror creates a mirror publishing through mqttClient.
func NewMQTTLocationMirror(topic string, qos int, timeout time.Duration, mqttClient mqtt.MQTTClient) *MQTTLocationMirror {
	return &MQTTLocationMirror{
		topic:      topic,
		qos:        qos,
		timeout:    timeout,
		mqttClient: mqttClient,
	}
}

// Publish serializes the location and waits up to the configured timeout for the broker to accept it.
func (m *MQTTLocationMirror) Publish(deviceID string, loc location.Location) error {
	payload, err := json.Marshal(models.LocationMirror{
		DeviceID:  deviceID,
		Timestamp: time.Now(),
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Accuracy:  loc.Accuracy,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize location message: %w", err)
	}

	topic := m.topic + "/" + deviceID
	token := m.mqttClient.Publish(topic, byte(m.qos), false, payload)
	if !token.WaitTimeout(m.timeout) {
		return errors.New("timed out publishing location to " + topic)
	}
	return token.Error()
}
