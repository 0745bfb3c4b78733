package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/relabs-tech/motionkit/internal/config"
	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/telemetry"
)

var consoleTags = map[motion.Kind]string{
	motion.Accelerometer: "ACC",
	motion.Gyroscope:     "GYR",
	motion.DeviceMotion:  "GRV",
	motion.Magnetometer:  "MAG",
}

func printMessage(w io.Writer, kind motion.Kind, m telemetry.Message) {
	fmt.Fprintf(w,
		"[%-4s] x=%8.3f  y=%8.3f  z=%8.3f  |v|=%8.3f  %s\n",
		consoleTags[kind], m.X, m.Y, m.Z, m.Magnitude, m.Time.Format("15:04:05.000"),
	)
}

// RunConsoleMQTT prints every sample published by the producer.
func RunConsoleMQTT(cfg *config.Config) error {
	client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	topics := telemetry.TopicsFromConfig(cfg)
	if err := telemetry.Subscribe(client, topics, func(kind motion.Kind, m telemetry.Message) {
		printMessage(os.Stdout, kind, m)
	}); err != nil {
		return err
	}

	names := make([]string, 0, len(topics))
	for _, k := range motion.Kinds() {
		names = append(names, topics[k])
	}
	log.Printf("console: listening on %s", strings.Join(names, ", "))

	waitForSignal()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
