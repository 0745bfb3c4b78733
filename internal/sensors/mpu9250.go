// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/motionkit/internal/motion"
)

// accelLSBPerG and gyroLSBPerDPS are the MPU9250 sensitivities for each
// full-scale range setting (0-3).
var (
	accelLSBPerG  = [4]float64{16384, 8192, 4096, 2048}
	gyroLSBPerDPS = [4]float64{131, 65.5, 32.8, 16.4}
)

// axisReader is the subset of *mpu9250.MPU9250 used for sampling.
type axisReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

// mpuSource serializes access to one MPU9250 shared by the accelerometer
// and gyroscope readers.
type mpuSource struct {
	mu         sync.Mutex
	dev        axisReader
	accelScale float64 // LSB per g
	gyroScale  float64 // LSB per rad/s
}

// MPU9250Options selects the SPI wiring and full-scale ranges.
type MPU9250Options struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0=±2g ... 3=±16g
	GyroRange  byte // 0=±250°/s ... 3=±2000°/s
	SelfTest   bool
}

// NewMPU9250Readers initializes an MPU9250 over SPI and returns readers
// for the accelerometer (g) and gyroscope (rad/s).
func NewMPU9250Readers(opts MPU9250Options) (accel, gyro Reader, err error) {
	if opts.AccelRange > 3 || opts.GyroRange > 3 {
		return nil, nil, fmt.Errorf("MPU9250: range out of bounds (accel=%d gyro=%d)", opts.AccelRange, opts.GyroRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("MPU9250: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, nil, fmt.Errorf("MPU9250: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, nil, fmt.Errorf("MPU9250: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, nil, fmt.Errorf("MPU9250: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, nil, fmt.Errorf("MPU9250: initialization: %w", err)
	}

	if opts.SelfTest {
		if _, err := dev.SelfTest(); err != nil {
			log.Printf("sensors: Warning: MPU9250 self-test failed: %v", err)
		} else {
			log.Printf("sensors: MPU9250 self-test passed")
		}
		if err := dev.Calibrate(); err != nil {
			log.Printf("sensors: Warning: MPU9250 calibration failed: %v", err)
		}
	}

	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, nil, fmt.Errorf("MPU9250: set accel range: %w", err)
	}
	log.Printf("sensors: MPU9250 accelerometer range set to %d (±%dg)", opts.AccelRange, []int{2, 4, 8, 16}[opts.AccelRange])

	if err := dev.SetGyroRange(opts.GyroRange); err != nil {
		return nil, nil, fmt.Errorf("MPU9250: set gyro range: %w", err)
	}
	log.Printf("sensors: MPU9250 gyroscope range set to %d (±%d°/s)", opts.GyroRange, []int{250, 500, 1000, 2000}[opts.GyroRange])

	src := newMPUSource(dev, opts.AccelRange, opts.GyroRange)
	return ReaderFunc(src.readAccel), ReaderFunc(src.readGyro), nil
}

func newMPUSource(dev axisReader, accelRange, gyroRange byte) *mpuSource {
	return &mpuSource{
		dev:        dev,
		accelScale: accelLSBPerG[accelRange&3],
		gyroScale:  gyroLSBPerDPS[gyroRange&3] * 180 / math.Pi,
	}
}

// read3 reads three axes in order. Axes read before a failure are kept.
func read3(fx, fy, fz func() (int16, error), scale float64, name string) (motion.Vector, error) {
	var v motion.Vector
	x, err := fx()
	if err != nil {
		return v, fmt.Errorf("MPU9250 %s X: %w", name, err)
	}
	v.X = float64(x) / scale
	y, err := fy()
	if err != nil {
		return v, fmt.Errorf("MPU9250 %s Y: %w", name, err)
	}
	v.Y = float64(y) / scale
	z, err := fz()
	if err != nil {
		return v, fmt.Errorf("MPU9250 %s Z: %w", name, err)
	}
	v.Z = float64(z) / scale
	return v, nil
}

func (s *mpuSource) readAccel() (motion.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := read3(s.dev.GetAccelerationX, s.dev.GetAccelerationY, s.dev.GetAccelerationZ, s.accelScale, "accel")
	return motion.Data{Timestamp: time.Now(), Acceleration: v}, err
}

func (s *mpuSource) readGyro() (motion.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := read3(s.dev.GetRotationX, s.dev.GetRotationY, s.dev.GetRotationZ, s.gyroScale, "gyro")
	return motion.Data{Timestamp: time.Now(), RotationRate: v}, err
}
