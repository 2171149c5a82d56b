package services

import (
	"context"
	"log"
	"time"

	"fitcoach-backend/internal/aggregator"
	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/models"
	"fitcoach-backend/internal/pipeline"
)

// WindowClassifier labels one feature vector
type WindowClassifier interface {
	Classify(features pipeline.FeatureVector) (ml.Prediction, error)
	Version() string
}

// RepStore persists rep results
type RepStore interface {
	SaveRepResult(result *models.RepResult) error
}

// Broadcaster pushes rep results to live subscribers
type Broadcaster interface {
	Broadcast(result *models.RepResult)
}

// InferenceService classifies live windows and fans results out to the
// publisher, the store and the live feed
type InferenceService struct {
	classifier  WindowClassifier
	store       RepStore
	broadcaster Broadcaster

	// Input channel, filled by the stream aggregator callback
	WindowChan chan *aggregator.WindowReady

	// Output channel for the MQTT publisher; nil when MQTT is disabled
	ResultChan chan *models.RepResult

	sendTimeout time.Duration
}

// InferenceServiceConfig holds configuration for inference service
type InferenceServiceConfig struct {
	WindowChannelSize int
	ResultChannelSize int // 0 disables the result channel
	SendTimeout       time.Duration
}

// DefaultInferenceServiceConfig returns default configuration
func DefaultInferenceServiceConfig() InferenceServiceConfig {
	return InferenceServiceConfig{
		WindowChannelSize: 50,
		ResultChannelSize: 50,
		SendTimeout:       1 * time.Second,
	}
}

// NewInferenceService creates a new inference service. store and broadcaster
// may be nil.
func NewInferenceService(
	classifier WindowClassifier,
	store RepStore,
	broadcaster Broadcaster,
	config InferenceServiceConfig,
) *InferenceService {
	is := &InferenceService{
		classifier:  classifier,
		store:       store,
		broadcaster: broadcaster,
		WindowChan:  make(chan *aggregator.WindowReady, config.WindowChannelSize),
		sendTimeout: config.SendTimeout,
	}
	if config.ResultChannelSize > 0 {
		is.ResultChan = make(chan *models.RepResult, config.ResultChannelSize)
	}
	return is
}

// Enqueue hands a ready window to the service; it is the aggregator callback
func (is *InferenceService) Enqueue(w *aggregator.WindowReady) {
	select {
	case is.WindowChan <- w:
	case <-time.After(is.sendTimeout):
		log.Printf("Warning: Window channel full, dropping window %d of %s", w.Index, w.DeviceID)
	}
}

// Start classifies windows until ctx is cancelled
func (is *InferenceService) Start(ctx context.Context) {
	log.Printf("InferenceService: Starting with model %s...", is.classifier.Version())

	for {
		select {
		case <-ctx.Done():
			log.Println("InferenceService: Shutting down...")
			return

		case w, ok := <-is.WindowChan:
			if !ok {
				return
			}
			result, err := is.Process(w)
			if err != nil {
				log.Printf("Error classifying window %d of %s: %v", w.Index, w.DeviceID, err)
				continue
			}
			is.dispatch(result)
		}
	}
}

// Process classifies one window into a RepResult
func (is *InferenceService) Process(w *aggregator.WindowReady) (*models.RepResult, error) {
	started := time.Now()
	pred, err := is.classifier.Classify(w.Features)
	if err != nil {
		return nil, err
	}

	result := &models.RepResult{
		DeviceID:        w.DeviceID,
		SessionID:       w.SessionID,
		Index:           w.Index,
		StartTime:       w.StartTime,
		EndTime:         w.EndTime,
		Label:           pred.Label.String(),
		Confidence:      pred.Confidence,
		InferenceTimeMs: float64(time.Since(started).Microseconds()) / 1000,
		ModelVersion:    is.classifier.Version(),
		Timestamp:       time.Now(),
	}

	log.Printf("InferenceService: %s rep %d -> %s (confidence %.2f)",
		result.DeviceID, result.Index, result.Label, result.Confidence)
	return result, nil
}

func (is *InferenceService) dispatch(result *models.RepResult) {
	if is.ResultChan != nil {
		select {
		case is.ResultChan <- result:
		case <-time.After(is.sendTimeout):
			log.Printf("Warning: Result channel full, dropping rep %d of %s", result.Index, result.DeviceID)
		}
	}

	if is.store != nil {
		if err := is.store.SaveRepResult(result); err != nil {
			log.Printf("Error saving rep result: %v", err)
		}
	}

	if is.broadcaster != nil {
		is.broadcaster.Broadcast(result)
	}
}
