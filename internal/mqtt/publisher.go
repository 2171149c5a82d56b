package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fitcoach-backend/internal/models"
)

// Publisher handles MQTT publishing from channels
type Publisher struct {
	client mqtt.Client

	// Input channel (read by publisher, written by inference service)
	ResultChan chan *models.RepResult

	resultTopic string // e.g., "fitcoach/{device_id}/rep"
	sampleTopic string // e.g., "fitcoach/{device_id}/{sensor}"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	ResultTopic string
	SampleTopic string
}

// NewPublisher creates a new MQTT publisher with channels
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	resultChan chan *models.RepResult,
) *Publisher {
	return &Publisher{
		client:      client,
		ResultChan:  resultChan,
		resultTopic: config.ResultTopic,
		sampleTopic: config.SampleTopic,
	}
}

// Start begins publishing rep results from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case result, ok := <-p.ResultChan:
			if !ok {
				log.Println("MQTT Publisher: Result channel closed, shutting down...")
				return
			}

			if err := p.PublishResult(result); err != nil {
				log.Printf("Error publishing rep result: %v", err)
			}
		}
	}
}

// PublishResult publishes one rep result to the device's result topic
func (p *Publisher) PublishResult(result *models.RepResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal rep result: %w", err)
	}

	topic := formatTopic(p.resultTopic, result.DeviceID)

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish rep result: %w", token.Error())
	}

	log.Printf("Published rep %d of %s (%s, %.2f) to topic: %s",
		result.Index, result.DeviceID, result.Label, result.Confidence, topic)
	return nil
}

// PublishSamples sends raw samples the way a device does. The simulator uses
// it to drive the live path.
func (p *Publisher) PublishSamples(deviceID string, sensor models.SensorKind, samples []models.RawSample) error {
	payload, err := json.Marshal(models.SampleBatchPayload{Samples: samples})
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}

	topic := strings.ReplaceAll(formatTopic(p.sampleTopic, deviceID), "{sensor}", string(sensor))

	token := p.client.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish %s samples: %w", sensor, token.Error())
	}
	return nil
}

// formatTopic replaces {device_id} placeholder with actual device ID
func formatTopic(topicPattern, deviceID string) string {
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}
