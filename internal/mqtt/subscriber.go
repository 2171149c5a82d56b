package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fitcoach-backend/internal/models"
)

// Subscriber handles MQTT subscriptions and writes messages to channels
type Subscriber struct {
	client mqtt.Client

	// Output channels (written by subscriber, read by services)
	SampleChan  chan *models.SampleBatch
	ControlChan chan *models.SessionControl

	accelTopic   string
	gyroTopic    string
	controlTopic string
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	AccelTopic   string // e.g., "fitcoach/+/accelerometer"
	GyroTopic    string // e.g., "fitcoach/+/gyroscope"
	ControlTopic string // e.g., "fitcoach/+/control"
}

// NewSubscriber creates a new MQTT subscriber with channels
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	sampleChan chan *models.SampleBatch,
	controlChan chan *models.SessionControl,
) *Subscriber {
	return &Subscriber{
		client:       client,
		SampleChan:   sampleChan,
		ControlChan:  controlChan,
		accelTopic:   config.AccelTopic,
		gyroTopic:    config.GyroTopic,
		controlTopic: config.ControlTopic,
	}
}

// SubscribeAll subscribes to all configured topics
func (s *Subscriber) SubscribeAll() error {
	if s.accelTopic != "" {
		if err := s.subscribeToTopic(s.accelTopic, s.sampleHandler(models.SensorAccelerometer)); err != nil {
			return fmt.Errorf("failed to subscribe to accelerometer topic: %w", err)
		}
		log.Printf("Subscribed to accelerometer topic: %s", s.accelTopic)
	}

	if s.gyroTopic != "" {
		if err := s.subscribeToTopic(s.gyroTopic, s.sampleHandler(models.SensorGyroscope)); err != nil {
			return fmt.Errorf("failed to subscribe to gyroscope topic: %w", err)
		}
		log.Printf("Subscribed to gyroscope topic: %s", s.gyroTopic)
	}

	if s.controlTopic != "" && s.ControlChan != nil {
		if err := s.subscribeToTopic(s.controlTopic, s.handleControl); err != nil {
			return fmt.Errorf("failed to subscribe to control topic: %w", err)
		}
		log.Printf("Subscribed to control topic: %s", s.controlTopic)
	}

	return nil
}

func (s *Subscriber) subscribeToTopic(topic string, handler mqtt.MessageHandler) error {
	token := s.client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// sampleHandler returns the handler for one sensor's sample topic
func (s *Subscriber) sampleHandler(sensor models.SensorKind) mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		batch, err := decodeSampleBatch(msg.Topic(), msg.Payload(), sensor, time.Now())
		if err != nil {
			log.Printf("Error decoding %s message: %v", sensor, err)
			return
		}

		// Write to channel (non-blocking with timeout)
		select {
		case s.SampleChan <- batch:
		case <-time.After(1 * time.Second):
			log.Printf("Warning: Sample channel full, dropping %d %s samples from %s",
				len(batch.Samples), sensor, batch.DeviceID)
		}
	}
}

// handleControl processes session control messages
func (s *Subscriber) handleControl(client mqtt.Client, msg mqtt.Message) {
	var ctrl models.SessionControl
	if err := json.Unmarshal(msg.Payload(), &ctrl); err != nil {
		log.Printf("Error unmarshaling control message: %v", err)
		return
	}
	if ctrl.DeviceID == "" {
		ctrl.DeviceID = extractDeviceID(msg.Topic())
	}

	log.Printf("Received control %q for %s", ctrl.Action, ctrl.DeviceID)

	select {
	case s.ControlChan <- &ctrl:
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Control channel full, dropping message for %s", ctrl.DeviceID)
	}
}

// decodeSampleBatch turns one sample message into a batch stamped with receivedAt
func decodeSampleBatch(topic string, payload []byte, sensor models.SensorKind, receivedAt time.Time) (*models.SampleBatch, error) {
	deviceID := extractDeviceID(topic)
	if deviceID == "" {
		return nil, fmt.Errorf("could not extract device ID from topic: %s", topic)
	}

	var body models.SampleBatchPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("invalid payload from %s: %w", deviceID, err)
	}
	if len(body.Samples) == 0 {
		return nil, fmt.Errorf("empty sample list from %s", deviceID)
	}

	return &models.SampleBatch{
		DeviceID:   deviceID,
		Sensor:     sensor,
		ReceivedAt: receivedAt,
		Samples:    body.Samples,
	}, nil
}

// extractDeviceID extracts device ID from MQTT topic
// Example: "fitcoach/phone-001/accelerometer" -> "phone-001"
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
