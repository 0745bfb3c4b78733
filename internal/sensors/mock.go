// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/motionkit/internal/motion"
)

type mockReader struct {
	kind  motion.Kind
	start time.Time
}

// NewMockReader creates a reader for kind that generates smoothly
// changing values, roughly what a device rocking on a desk would report.
func NewMockReader(kind motion.Kind) Reader {
	return &mockReader{kind: kind, start: time.Now()}
}

func (m *mockReader) Read() (motion.Data, error) {
	elapsed := time.Since(m.start).Seconds()
	return motion.Data{Timestamp: time.Now()}.WithAxes(m.kind, mockVector(m.kind, elapsed)), nil
}

func mockVector(kind motion.Kind, t float64) motion.Vector {
	roll := 0.35 * math.Sin(t)
	pitch := 0.25 * math.Cos(t*0.7)

	// Gravity seen by a device tilted by roll/pitch.
	g := motion.Vector{
		X: -math.Sin(pitch),
		Y: math.Sin(roll) * math.Cos(pitch),
		Z: math.Cos(roll) * math.Cos(pitch),
	}

	switch kind {
	case motion.Accelerometer:
		return motion.Vector{X: g.X + 0.02*math.Sin(7*t), Y: g.Y, Z: g.Z + 0.02*math.Cos(5*t)}
	case motion.Gyroscope:
		// Time derivatives of roll and pitch, in rad/s.
		return motion.Vector{X: 0.35 * math.Cos(t), Y: -0.175 * math.Sin(t*0.7), Z: 0.1}
	case motion.DeviceMotion:
		return g
	case motion.Magnetometer:
		yaw := math.Mod(t*0.5, 2*math.Pi)
		return motion.Vector{X: 22 * math.Cos(yaw), Y: -22 * math.Sin(yaw), Z: -40}
	}
	return motion.Vector{}
}

// NewMockManager returns a Manager with a mock reader for every kind.
func NewMockManager() *Manager {
	readers := make(map[motion.Kind]Reader)
	for _, k := range motion.Kinds() {
		readers[k] = NewMockReader(k)
	}
	return NewManager(readers)
}
