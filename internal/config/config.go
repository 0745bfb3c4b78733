package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/motionkit/internal/motion"
)

// SSD1306Addr is the only display address the ssd1306 I2C driver opens.
const SSD1306Addr = 0x3C

// Backends understood by MOTION_BACKEND.
const (
	BackendMock    = "mock"
	BackendMPU9250 = "mpu9250"
	BackendSerial  = "serial"
)

// Config holds all application configuration values.
type Config struct {
	// Motion service
	MotionBackend    string
	MotionIntervalMS int

	// IMU Hardware (MPU9250 over SPI)
	IMUSPIDevice string
	IMUCSPin     string

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte
	IMUSelfTest  bool

	// Magnetometer (LSM303 over I2C). Negative bus means no magnetometer.
	MagI2CBus int

	// Serial IMU stream
	SerialPort     string
	SerialBaudRate int
	SerialKinds    []motion.Kind

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicAccelerometer string
	TopicGyroscope     string
	TopicDeviceMotion  string
	TopicMagnetometer  string

	// Web Server
	WebServerPort int
	MetricsPort   int

	// Display
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Default returns a Config with every optional value filled in.
func Default() *Config {
	return &Config{
		MotionBackend:    BackendMock,
		MotionIntervalMS: int(motion.DefaultInterval / time.Millisecond),

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		MagI2CBus: -1,

		SerialPort:     "/dev/serial0",
		SerialBaudRate: 115200,
		SerialKinds:    motion.Kinds(),

		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "motionkit-producer",
		MQTTClientIDConsole:  "motionkit-console",
		MQTTClientIDWeb:      "motionkit-web",
		MQTTClientIDDisplay:  "motionkit-display",

		TopicAccelerometer: "motion/accelerometer",
		TopicGyroscope:     "motion/gyroscope",
		TopicDeviceMotion:  "motion/device_motion",
		TopicMagnetometer:  "motion/magnetometer",

		WebServerPort: 8080,

		DisplayI2CAddr:        SSD1306Addr,
		DisplayUpdateInterval: 250,
	}
}

// Interval returns the configured sampling interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.MotionIntervalMS) * time.Millisecond
}

// Topic returns the MQTT topic configured for kind.
func (c *Config) Topic(kind motion.Kind) string {
	switch kind {
	case motion.Accelerometer:
		return c.TopicAccelerometer
	case motion.Gyroscope:
		return c.TopicGyroscope
	case motion.DeviceMotion:
		return c.TopicDeviceMotion
	case motion.Magnetometer:
		return c.TopicMagnetometer
	}
	return ""
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu guards globalConfig; Get takes the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseRange(key, value string, max int) (byte, error) {
	val, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val < 0 || val > max {
		return 0, fmt.Errorf("%s must be 0-%d, got %d", key, max, val)
	}
	return byte(val), nil
}

// parseKinds reads a comma-separated list of sensor kind names.
func parseKinds(key, value string) ([]motion.Kind, error) {
	var kinds []motion.Kind
	seen := make(map[motion.Kind]bool)
	for _, name := range strings.Split(value, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		k, err := motion.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

func parseInt(key, value string) (int, error) {
	val, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return val, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Motion service
	case "MOTION_BACKEND":
		c.MotionBackend = strings.ToLower(value)
	case "MOTION_INTERVAL_MS":
		c.MotionIntervalMS, err = parseInt(key, value)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		c.IMUAccelRange, err = parseRange(key, value, 3)
	case "IMU_GYRO_RANGE":
		c.IMUGyroRange, err = parseRange(key, value, 3)
	case "IMU_SELF_TEST":
		c.IMUSelfTest, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid %s %q: %w", key, value, err)
		}

	// Magnetometer
	case "MAG_I2C_BUS":
		if value == "" {
			c.MagI2CBus = -1
			break
		}
		c.MagI2CBus, err = parseInt(key, value)
		if err == nil && c.MagI2CBus < 0 {
			err = fmt.Errorf("MAG_I2C_BUS must not be negative, got %d", c.MagI2CBus)
		}

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)
	case "SERIAL_KINDS":
		c.SerialKinds, err = parseKinds(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ACCELEROMETER":
		c.TopicAccelerometer = value
	case "TOPIC_GYROSCOPE":
		c.TopicGyroscope = value
	case "TOPIC_DEVICE_MOTION":
		c.TopicDeviceMotion = value
	case "TOPIC_MAGNETOMETER":
		c.TopicMagnetometer = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
	case "METRICS_PORT":
		c.MetricsPort, err = parseInt(key, value)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that the values that matter for the chosen backend are set.
func (c *Config) validate() error {
	switch c.MotionBackend {
	case BackendMock:
	case BackendMPU9250:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for backend %q", c.MotionBackend)
		}
		if c.IMUCSPin == "" {
			return fmt.Errorf("IMU_CS_PIN is required for backend %q", c.MotionBackend)
		}
	case BackendSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for backend %q", c.MotionBackend)
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
		if len(c.SerialKinds) == 0 {
			return fmt.Errorf("SERIAL_KINDS must name at least one sensor kind")
		}
	default:
		return fmt.Errorf("MOTION_BACKEND must be one of %s, %s, %s; got %q",
			BackendMock, BackendMPU9250, BackendSerial, c.MotionBackend)
	}
	if c.MotionIntervalMS <= 0 {
		return fmt.Errorf("MOTION_INTERVAL_MS must be positive, got %d", c.MotionIntervalMS)
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	for _, k := range motion.Kinds() {
		if c.Topic(k) == "" {
			return fmt.Errorf("topic for %s is required", k)
		}
	}
	if c.DisplayI2CAddr != SSD1306Addr {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x%02X, the ssd1306 driver address; got 0x%02X",
			SSD1306Addr, c.DisplayI2CAddr)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads anything; later calls return nil.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
