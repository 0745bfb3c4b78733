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

	log.Println("starting motionkit console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
