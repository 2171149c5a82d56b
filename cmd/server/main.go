package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitcoach-backend/internal/aggregator"
	"fitcoach-backend/internal/database"
	"fitcoach-backend/internal/handlers"
	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/mqtt"
	"fitcoach-backend/internal/services"
	"fitcoach-backend/pkg/config"
)

func main() {
	log.Println("Starting FitCoach backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The model is loaded once and shared read-only by every request
	predictor, err := ml.LoadPredictor(cfg.ModelPath, cfg.Pipeline)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := handlers.Dependencies{Classifier: predictor}

	// === Optional ClickHouse storage ===
	var db *database.ClickHouseDB
	if cfg.ClickHouseEnabled {
		db, err = database.NewClickHouseDB(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer db.Close()
		deps.History = db
	}

	// === Optional live ingestion over MQTT ===
	if cfg.MQTTEnabled {
		hub := handlers.NewHub()
		deps.Hub = hub

		agg, err := aggregator.NewStreamAggregator(cfg.Pipeline)
		if err != nil {
			log.Fatalf("Failed to create stream aggregator: %v", err)
		}
		deps.Sessions = agg

		// nil interfaces, not typed nil pointers, when storage is off
		var sampleStore services.SampleStore
		var repStore services.RepStore
		if db != nil {
			sampleStore = db
			repStore = db
		}

		inferenceService := services.NewInferenceService(predictor, repStore, hub, services.DefaultInferenceServiceConfig())
		agg.SetWindowCallback(inferenceService.Enqueue)

		sensorConfig := services.DefaultSensorServiceConfig()
		sensorConfig.SessionTimeout = cfg.SessionTimeout
		sensorService := services.NewSensorService(sampleStore, agg, sensorConfig)

		log.Println("Connecting to MQTT broker...")
		mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			log.Fatalf("Failed to initialize MQTT client: %v", err)
		}
		defer mqttClient.Close()

		subscriber := mqtt.NewSubscriber(
			mqttClient.GetNativeClient(),
			mqtt.SubscriberConfig{
				AccelTopic:   cfg.MQTTTopicAccel,
				GyroTopic:    cfg.MQTTTopicGyro,
				ControlTopic: cfg.MQTTTopicControl,
			},
			sensorService.SampleChan,
			sensorService.ControlChan,
		)

		publisher := mqtt.NewPublisher(
			mqttClient.GetNativeClient(),
			mqtt.PublisherConfig{ResultTopic: cfg.MQTTTopicRep, SampleTopic: cfg.MQTTTopicSamples},
			inferenceService.ResultChan,
		)

		go publisher.Start(ctx)
		go inferenceService.Start(ctx)
		go sensorService.Start(ctx)

		if err := subscriber.SubscribeAll(); err != nil {
			log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
		}

		log.Printf("MQTT Topics:")
		log.Printf("  - Accelerometer: %s", cfg.MQTTTopicAccel)
		log.Printf("  - Gyroscope:     %s", cfg.MQTTTopicGyro)
		log.Printf("  - Control:       %s", cfg.MQTTTopicControl)
		log.Printf("  - Rep results:   %s", cfg.MQTTTopicRep)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s (model %s, window=%vs, step=%vs)",
			cfg.HTTPAddr, predictor.Version(), cfg.Pipeline.WindowSeconds, cfg.Pipeline.StepSeconds)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received, stopping services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	log.Println("Shutdown complete. Goodbye!")
}
