package sensors

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motionkit/internal/motion"
)

type fakeMPU struct {
	accel, gyro [3]int16
	failAt      string
}

func (f *fakeMPU) axis(name string, v int16) (int16, error) {
	if f.failAt == name {
		return 0, errors.New("spi timeout")
	}
	return v, nil
}

func (f *fakeMPU) GetAccelerationX() (int16, error) { return f.axis("ax", f.accel[0]) }
func (f *fakeMPU) GetAccelerationY() (int16, error) { return f.axis("ay", f.accel[1]) }
func (f *fakeMPU) GetAccelerationZ() (int16, error) { return f.axis("az", f.accel[2]) }
func (f *fakeMPU) GetRotationX() (int16, error)     { return f.axis("gx", f.gyro[0]) }
func (f *fakeMPU) GetRotationY() (int16, error)     { return f.axis("gy", f.gyro[1]) }
func (f *fakeMPU) GetRotationZ() (int16, error)     { return f.axis("gz", f.gyro[2]) }

func TestMPUSourceScaling(t *testing.T) {
	dev := &fakeMPU{
		accel: [3]int16{0, -8192, 16384},
		gyro:  [3]int16{131, 0, -262},
	}
	src := newMPUSource(dev, 0, 0)

	d, err := src.readAccel()
	require.NoError(t, err)
	assert.InDelta(t, 0, d.Acceleration.X, 1e-12)
	assert.InDelta(t, -0.5, d.Acceleration.Y, 1e-12)
	assert.InDelta(t, 1, d.Acceleration.Z, 1e-12)
	assert.Equal(t, motion.Vector{}, d.RotationRate)

	d, err = src.readGyro()
	require.NoError(t, err)
	degree := math.Pi / 180
	assert.InDelta(t, degree, d.RotationRate.X, 1e-12)
	assert.InDelta(t, -2*degree, d.RotationRate.Z, 1e-12)
}

func TestMPUSourceRanges(t *testing.T) {
	dev := &fakeMPU{accel: [3]int16{0, 0, 2048}, gyro: [3]int16{164, 0, 0}}
	src := newMPUSource(dev, 3, 3)

	d, err := src.readAccel()
	require.NoError(t, err)
	assert.InDelta(t, 1, d.Acceleration.Z, 1e-12, "±16g is 2048 LSB/g")

	d, err = src.readGyro()
	require.NoError(t, err)
	assert.InDelta(t, 10*math.Pi/180, d.RotationRate.X, 1e-9, "±2000°/s is 16.4 LSB per °/s")
}

func TestMPUSourcePartialRead(t *testing.T) {
	dev := &fakeMPU{accel: [3]int16{16384, 16384, 16384}, failAt: "ay"}
	src := newMPUSource(dev, 0, 0)

	d, err := src.readAccel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accel Y")
	assert.Equal(t, 1.0, d.Acceleration.X, "axes read before the failure are kept")
	assert.Equal(t, 0.0, d.Acceleration.Y)
	assert.False(t, d.Timestamp.IsZero())
}

// fakeRegs is an LSM303 register file. Reads of failReg fail.
type fakeRegs struct {
	regs    map[byte]byte
	writes  []byte
	failReg int
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{regs: map[byte]byte{lsm303IRARegM: lsm303MagID}, failReg: -1}
}

func (f *fakeRegs) ReadRegU8(reg byte) (byte, error) {
	if int(reg) == f.failReg {
		return 0, errors.New("i2c nack")
	}
	return f.regs[reg], nil
}

func (f *fakeRegs) WriteRegU8(reg byte, value byte) error {
	f.regs[reg] = value
	f.writes = append(f.writes, reg)
	return nil
}

func (f *fakeRegs) setS16(reg byte, v int16) {
	f.regs[reg] = byte(uint16(v) >> 8)
	f.regs[reg+1] = byte(uint16(v))
}

func TestMagReaderConfiguresChip(t *testing.T) {
	regs := newFakeRegs()
	_, err := newMagReader(regs)
	require.NoError(t, err)

	assert.Equal(t, []byte{lsm303CRARegM, lsm303CRBRegM, lsm303MRRegM}, regs.writes)
	assert.Equal(t, byte(lsm303Gain1_3Gauss), regs.regs[lsm303CRBRegM])
	assert.Equal(t, byte(lsm303Continuous), regs.regs[lsm303MRRegM])
}

func TestMagReaderRejectsUnknownChip(t *testing.T) {
	regs := newFakeRegs()
	regs.regs[lsm303IRARegM] = 0x00

	_, err := newMagReader(regs)
	assert.ErrorContains(t, err, "no magnetometer detected")
	assert.Empty(t, regs.writes)
}

func TestMagReaderMicroTesla(t *testing.T) {
	regs := newFakeRegs()
	r, err := newMagReader(regs)
	require.NoError(t, err)

	// X, Z, Y register order; 1100 LSB/gauss on X/Y and 980 on Z.
	regs.setS16(lsm303OutXHM, 242)    // 0.22 gauss
	regs.setS16(lsm303OutXHM+2, -392) // -0.40 gauss
	regs.setS16(lsm303OutXHM+4, -55)  // -0.05 gauss

	d, err := r.Read()
	require.NoError(t, err)
	assert.InDelta(t, 22.0, d.MagneticField.X, 1e-9)
	assert.InDelta(t, -5.0, d.MagneticField.Y, 1e-9)
	assert.InDelta(t, -40.0, d.MagneticField.Z, 1e-9)
	assert.Equal(t, motion.Vector{}, d.Acceleration)
	assert.False(t, d.Timestamp.IsZero())
}

func TestMagReaderError(t *testing.T) {
	regs := newFakeRegs()
	r, err := newMagReader(regs)
	require.NoError(t, err)

	regs.setS16(lsm303OutXHM, 1100)
	regs.failReg = lsm303OutXHM + 2

	d, err := r.Read()
	assert.ErrorContains(t, err, "i2c nack")
	assert.InDelta(t, 100.0, d.MagneticField.X, 1e-9, "axes read before the failure are kept")
	assert.Zero(t, d.MagneticField.Z)
}
