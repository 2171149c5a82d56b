package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitcoach-backend/internal/mqtt"
	"fitcoach-backend/internal/pipeline"
	"fitcoach-backend/internal/simulator"
	"fitcoach-backend/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[simulate] ")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <session_dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	server := flag.String("server", "http://localhost:8000", "classification server base URL")
	realtime := flag.Bool("realtime", true, "sleep between windows like a live client")
	useMQTT := flag.Bool("mqtt", false, "publish raw samples to the MQTT broker instead of posting windows")
	deviceID := flag.String("device", "simulator", "device ID used in MQTT topics")
	timeout := flag.Duration("timeout", 10*time.Second, "HTTP request timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	sessionDir := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *useMQTT {
		if err := publishRaw(ctx, cfg, sessionDir, *deviceID, *realtime); err != nil {
			log.Fatalf("Simulation failed: %v", err)
		}
		fmt.Println("Done simulation.")
		return
	}

	table, err := pipeline.AlignSession(sessionDir, cfg.Pipeline)
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}
	windows, err := pipeline.Segment(table, cfg.Pipeline.WindowSeconds, cfg.Pipeline.StepSeconds)
	if err != nil {
		log.Fatalf("Failed to segment session: %v", err)
	}
	log.Printf("Replaying %d windows from %s to %s", len(windows), sessionDir, *server)

	var step time.Duration
	if *realtime {
		step = time.Duration(cfg.Pipeline.StepSeconds * float64(time.Second))
	}

	client := simulator.NewHTTP(*server, *timeout)
	if _, err := simulator.ReplayWindows(ctx, table, windows, client, step, os.Stdout); err != nil {
		log.Fatalf("Simulation interrupted: %v", err)
	}
}

// publishRaw streams the session's raw samples to the broker so the server's
// live path does the windowing
func publishRaw(ctx context.Context, cfg *config.Config, sessionDir, deviceID string, realtime bool) error {
	accel, gyro, err := pipeline.LoadSession(sessionDir)
	if err != nil {
		return err
	}

	client, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID + "-simulator",
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	publisher := mqtt.NewPublisher(
		client.GetNativeClient(),
		mqtt.PublisherConfig{SampleTopic: cfg.MQTTTopicSamples},
		nil,
	)

	log.Printf("Publishing %d accelerometer and %d gyroscope samples as %s", len(accel), len(gyro), deviceID)
	return simulator.ReplayRaw(ctx, deviceID, accel, gyro, publisher, 0.5, realtime)
}
