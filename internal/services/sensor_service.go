package services

import (
	"context"
	"log"
	"sync"
	"time"

	"fitcoach-backend/internal/aggregator"
	"fitcoach-backend/internal/models"
)

// SampleStore persists raw samples and the device registry
type SampleStore interface {
	SaveSamples(batch *models.SampleBatch) error
	UpsertDevice(device *models.Device) error
}

// SensorService persists incoming sample batches and feeds them to the stream aggregator
type SensorService struct {
	store      SampleStore
	aggregator *aggregator.StreamAggregator

	// Input channels from MQTT subscriber
	SampleChan  chan *models.SampleBatch
	ControlChan chan *models.SessionControl

	sessionTimeout   time.Duration
	registerInterval time.Duration

	mu         sync.Mutex
	registered map[string]time.Time
}

// SensorServiceConfig holds configuration for sensor service
type SensorServiceConfig struct {
	SampleChannelSize  int
	ControlChannelSize int
	SessionTimeout     time.Duration // idle time after which a device session is closed
	RegisterInterval   time.Duration // how often last_seen is refreshed in the registry
}

// DefaultSensorServiceConfig returns default configuration
func DefaultSensorServiceConfig() SensorServiceConfig {
	return SensorServiceConfig{
		SampleChannelSize:  200,
		ControlChannelSize: 20,
		SessionTimeout:     2 * time.Minute,
		RegisterInterval:   30 * time.Second,
	}
}

// NewSensorService creates a new sensor service. store may be nil when
// persistence is disabled.
func NewSensorService(
	store SampleStore,
	agg *aggregator.StreamAggregator,
	config SensorServiceConfig,
) *SensorService {
	return &SensorService{
		store:            store,
		aggregator:       agg,
		SampleChan:       make(chan *models.SampleBatch, config.SampleChannelSize),
		ControlChan:      make(chan *models.SessionControl, config.ControlChannelSize),
		sessionTimeout:   config.SessionTimeout,
		registerInterval: config.RegisterInterval,
		registered:       make(map[string]time.Time),
	}
}

// Start processes sample batches and control messages until ctx is cancelled
func (s *SensorService) Start(ctx context.Context) {
	log.Println("SensorService: Starting...")

	var expire <-chan time.Time
	if s.sessionTimeout > 0 {
		ticker := time.NewTicker(s.sessionTimeout / 2)
		defer ticker.Stop()
		expire = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("SensorService: Shutting down...")
			return

		case batch, ok := <-s.SampleChan:
			if !ok {
				return
			}
			s.processBatch(batch)

		case ctrl, ok := <-s.ControlChan:
			if !ok {
				return
			}
			s.processControl(ctrl)

		case <-expire:
			if n := s.aggregator.ExpireIdle(s.sessionTimeout); n > 0 {
				log.Printf("SensorService: Closed %d idle sessions", n)
			}
		}
	}
}

// processBatch handles a single sample batch
func (s *SensorService) processBatch(batch *models.SampleBatch) {
	if s.store != nil {
		// Best effort - keep buffering even if the insert fails
		if err := s.store.SaveSamples(batch); err != nil {
			log.Printf("Error saving %s samples from %s: %v", batch.Sensor, batch.DeviceID, err)
		}
	}

	s.registerDevice(batch.DeviceID)

	windows, err := s.aggregator.Append(batch)
	if err != nil {
		log.Printf("Error buffering %s samples from %s: %v", batch.Sensor, batch.DeviceID, err)
		return
	}
	if windows > 0 {
		log.Printf("SensorService: %d window(s) ready for %s", windows, batch.DeviceID)
	}
}

func (s *SensorService) processControl(ctrl *models.SessionControl) {
	switch ctrl.Action {
	case models.ControlReset:
		s.aggregator.Reset(ctrl.DeviceID)
	default:
		log.Printf("SensorService: Ignoring unknown control action %q for %s", ctrl.Action, ctrl.DeviceID)
	}
}

// registerDevice upserts a device on its first batch and then at most once per registerInterval
func (s *SensorService) registerDevice(deviceID string) {
	now := time.Now()

	s.mu.Lock()
	last, seen := s.registered[deviceID]
	if seen && now.Sub(last) < s.registerInterval {
		s.mu.Unlock()
		return
	}
	s.registered[deviceID] = now
	s.mu.Unlock()

	if s.store == nil {
		return
	}

	device := &models.Device{
		DeviceID:     deviceID,
		Name:         deviceID,
		RegisteredAt: now,
		LastSeen:     now,
		IsActive:     true,
	}

	if err := s.store.UpsertDevice(device); err != nil {
		log.Printf("Error registering device %s: %v", deviceID, err)
	}
}
