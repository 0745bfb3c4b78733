// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/motionkit/internal/config"
	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/observability"
	"github.com/relabs-tech/motionkit/internal/sensors"
	"github.com/relabs-tech/motionkit/internal/telemetry"
)

// RunMotionProducer samples every available sensor and publishes each
// sample on its MQTT topic until SIGINT/SIGTERM.
func RunMotionProducer(cfg *config.Config) error {
	log.Printf("producer: starting with %s backend", cfg.MotionBackend)

	mgr, err := sensors.NewManagerFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("sensor setup: %w", err)
	}

	collector, err := observability.NewCollector(nil)
	if err != nil {
		mgr.Close()
		return fmt.Errorf("metrics setup: %w", err)
	}

	kit := motion.New(mgr,
		motion.WithDefaultInterval(cfg.Interval()),
		motion.WithRecorder(collector),
	)
	defer func() {
		if err := kit.Close(); err != nil {
			log.Printf("producer: %v", err)
		}
	}()

	client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	if cfg.MetricsPort > 0 {
		serveMetrics(cfg.MetricsPort, collector.Handler())
	}

	kit.SetObserver(motion.Observers(
		telemetry.NewPublisher(client, telemetry.TopicsFromConfig(cfg)),
		collector,
	))

	kit.StartAccelerometerUpdates(cfg.Interval(), nil)
	kit.StartGyroUpdates(cfg.Interval(), nil)
	kit.StartDeviceMotionUpdates(cfg.Interval(), nil)
	kit.StartMagnetometerUpdates(cfg.Interval(), nil)

	log.Printf("producer: publishing every %v", cfg.Interval())
	waitForSignal()
	log.Println("producer: shutting down")
	return nil
}

func serveMetrics(port int, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	addr := fmt.Sprintf(":%d", port)

	go func() {
		log.Printf("metrics: listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics: server error: %v", err)
		}
	}()
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
