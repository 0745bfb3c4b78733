package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/motionkit/internal/config"
	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/telemetry"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// magnitudes holds the latest magnitude per kind for the display.
type magnitudes struct {
	mu   sync.RWMutex
	vals map[motion.Kind]float64
}

func newMagnitudes() *magnitudes {
	return &magnitudes{vals: make(map[motion.Kind]float64)}
}

func (m *magnitudes) update(kind motion.Kind, msg telemetry.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[kind] = msg.Magnitude
}

func (m *magnitudes) snapshot() map[motion.Kind]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[motion.Kind]float64, len(m.vals))
	for k, v := range m.vals {
		out[k] = v
	}
	return out
}

// displayLines formats one line per kind, "-" until data arrives.
func displayLines(vals map[motion.Kind]float64) []string {
	lines := make([]string, 0, len(motion.Kinds()))
	for _, k := range motion.Kinds() {
		tag := consoleTags[k]
		if v, ok := vals[k]; ok {
			lines = append(lines, fmt.Sprintf("%s %8.3f %s", tag, v, consoleUnits[k]))
		} else {
			lines = append(lines, fmt.Sprintf("%s        -", tag))
		}
	}
	return lines
}

func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, lineHeight*(i+1)-2)
		drawer.DrawString(line)
	}
	return img
}

// RunDisplay shows the magnitudes of all four sensors on an SSD1306 OLED.
func RunDisplay(cfg *config.Config) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// The driver always talks to 0x3C; config validation rejects any other address.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", config.SSD1306Addr)

	if err := dev.Draw(dev.Bounds(), renderLines([]string{"MotionKit", "", "Waiting..."}), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := newMagnitudes()

	client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := telemetry.Subscribe(client, telemetry.TopicsFromConfig(cfg), data.update); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for range ticker.C {
		img := renderLines(displayLines(data.snapshot()))
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}
