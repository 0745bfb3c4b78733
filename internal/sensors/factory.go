// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"log"

	"github.com/relabs-tech/motionkit/internal/config"
	"github.com/relabs-tech/motionkit/internal/motion"
)

// NewManagerFromConfig builds the Manager for the configured backend.
//
//	mock     all four kinds, synthetic
//	mpu9250  accelerometer and gyroscope; magnetometer when MAG_I2C_BUS is set
//	serial   the kinds listed in SERIAL_KINDS (all four by default)
func NewManagerFromConfig(cfg *config.Config) (*Manager, error) {
	switch cfg.MotionBackend {
	case config.BackendMock:
		log.Printf("sensors: using mock backend")
		return NewMockManager(), nil

	case config.BackendMPU9250:
		accel, gyro, err := NewMPU9250Readers(MPU9250Options{
			SPIDevice:  cfg.IMUSPIDevice,
			CSPin:      cfg.IMUCSPin,
			AccelRange: cfg.IMUAccelRange,
			GyroRange:  cfg.IMUGyroRange,
			SelfTest:   cfg.IMUSelfTest,
		})
		if err != nil {
			return nil, err
		}
		readers := map[motion.Kind]Reader{
			motion.Accelerometer: accel,
			motion.Gyroscope:     gyro,
		}
		var closers []io.Closer
		if cfg.MagI2CBus >= 0 {
			mag, bus, err := NewLSM303Magnetometer(cfg.MagI2CBus)
			if err != nil {
				return nil, err
			}
			readers[motion.Magnetometer] = mag
			closers = append(closers, bus)
		} else {
			log.Printf("sensors: MAG_I2C_BUS not set, magnetometer unavailable")
		}
		return NewManager(readers, closers...), nil

	case config.BackendSerial:
		stream, err := OpenSerialStream(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, err
		}
		log.Printf("sensors: serial stream on %s exposes %v", cfg.SerialPort, cfg.SerialKinds)
		return NewManager(serialReaders(stream, cfg.SerialKinds), stream), nil
	}
	return nil, fmt.Errorf("unknown motion backend %q", cfg.MotionBackend)
}

// serialReaders registers only the kinds the device is configured to send,
// so the rest report unavailable instead of failing every tick.
func serialReaders(stream *SerialStream, kinds []motion.Kind) map[motion.Kind]Reader {
	readers := make(map[motion.Kind]Reader, len(kinds))
	for _, k := range kinds {
		readers[k] = stream.Reader(k)
	}
	return readers
}
