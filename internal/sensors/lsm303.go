// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/d2r2/go-i2c"

	"github.com/relabs-tech/motionkit/internal/motion"
)

// LSM303DLHC magnetometer registers.
const (
	LSM303MagAddress = 0x1E

	lsm303CRARegM = 0x00 // data rate
	lsm303CRBRegM = 0x01 // gain
	lsm303MRRegM  = 0x02 // mode
	lsm303OutXHM  = 0x03 // X_H X_L Z_H Z_L Y_H Y_L
	lsm303IRARegM = 0x0A

	lsm303MagID = 0x48 // 'H'

	lsm303Rate15Hz     = 0x10
	lsm303Gain1_3Gauss = 0x20
	lsm303Continuous   = 0x00

	// LSB per gauss at ±1.3 gauss. Z has its own sensitivity.
	lsm303LSBPerGaussXY = 1100.0
	lsm303LSBPerGaussZ  = 980.0

	microTeslaPerGauss = 100.0
)

// regBus is the register access the magnetometer needs; *i2c.I2C has it.
type regBus interface {
	ReadRegU8(reg byte) (byte, error)
	WriteRegU8(reg byte, value byte) error
}

type magReader struct {
	mu  sync.Mutex
	bus regBus
}

// NewLSM303Magnetometer opens the LSM303 magnetometer on I2C bus number
// busNum (1 for /dev/i2c-1) and returns a reader in µT plus the bus handle
// to close afterwards.
func NewLSM303Magnetometer(busNum int) (Reader, io.Closer, error) {
	bus, err := i2c.NewI2C(LSM303MagAddress, busNum)
	if err != nil {
		return nil, nil, fmt.Errorf("LSM303: i2c open (bus %d): %w", busNum, err)
	}

	mag, err := newMagReader(bus)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	log.Printf("sensors: LSM303 magnetometer initialized on I2C bus %d", busNum)

	return mag, bus, nil
}

func newMagReader(bus regBus) (*magReader, error) {
	id, err := bus.ReadRegU8(lsm303IRARegM)
	if err != nil {
		return nil, fmt.Errorf("LSM303: read identification: %w", err)
	}
	if id != lsm303MagID {
		return nil, fmt.Errorf("LSM303: no magnetometer detected (IRA_REG_M=0x%02X)", id)
	}

	setup := []struct {
		reg, value byte
		name       string
	}{
		{lsm303CRARegM, lsm303Rate15Hz, "CRA_REG_M"},
		{lsm303CRBRegM, lsm303Gain1_3Gauss, "CRB_REG_M"},
		{lsm303MRRegM, lsm303Continuous, "MR_REG_M"},
	}
	for _, w := range setup {
		if err := bus.WriteRegU8(w.reg, w.value); err != nil {
			return nil, fmt.Errorf("LSM303: write %s: %w", w.name, err)
		}
	}
	return &magReader{bus: bus}, nil
}

func (m *magReader) Read() (motion.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := motion.Data{Timestamp: time.Now()}

	// Output order on the chip is X, Z, Y.
	var raw [3]int16
	for i := range raw {
		v, err := m.readS16(lsm303OutXHM + byte(2*i))
		if err != nil {
			d.MagneticField = magneticField(raw)
			return d, fmt.Errorf("LSM303 read: %w", err)
		}
		raw[i] = v
	}
	d.MagneticField = magneticField(raw)
	return d, nil
}

func (m *magReader) readS16(reg byte) (int16, error) {
	high, err := m.bus.ReadRegU8(reg)
	if err != nil {
		return 0, err
	}
	low, err := m.bus.ReadRegU8(reg + 1)
	if err != nil {
		return 0, err
	}
	return int16(uint16(high)<<8 | uint16(low)), nil
}

// magneticField converts raw X, Z, Y counts to µT.
func magneticField(xzy [3]int16) motion.Vector {
	return motion.Vector{
		X: float64(xzy[0]) / lsm303LSBPerGaussXY * microTeslaPerGauss,
		Y: float64(xzy[2]) / lsm303LSBPerGaussXY * microTeslaPerGauss,
		Z: float64(xzy[1]) / lsm303LSBPerGaussZ * microTeslaPerGauss,
	}
}
