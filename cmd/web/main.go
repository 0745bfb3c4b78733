// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/motionkit/internal/app"
	"github.com/relabs-tech/motionkit/internal/config"
)

func main() {
	configPath := flag.String("config", "./motionkit_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting motionkit web server (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunWeb(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
