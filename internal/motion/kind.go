// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind identifies one of the four motion sensors.
type Kind int

const (
	Accelerometer Kind = iota
	Gyroscope
	DeviceMotion // gravity vector only
	Magnetometer
)

// ErrUnknownKind is returned by ParseKind for names it does not recognise.
var ErrUnknownKind = errors.New("unknown sensor kind")

var kindNames = [...]string{"accelerometer", "gyroscope", "device_motion", "magnetometer"}

// Kinds returns all sensor kinds in declaration order.
func Kinds() []Kind {
	return []Kind{Accelerometer, Gyroscope, DeviceMotion, Magnetometer}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// label is the human form used in log lines.
func (k Kind) label() string {
	switch k {
	case Accelerometer:
		return "Accelerometer"
	case Gyroscope:
		return "Gyroscope"
	case DeviceMotion:
		return "Device Motion"
	case Magnetometer:
		return "Magnetometer"
	}
	return k.String()
}

// ParseKind is the inverse of Kind.String. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if s == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Vector is a three-axis reading.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the Euclidean norm sqrt(x² + y² + z²).
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Data is the payload of one tick as produced by a Service.
// A reader fills in the fields it knows about and leaves the rest zero.
//
// Units: Acceleration and Gravity in g, RotationRate in rad/s,
// MagneticField in µT.
type Data struct {
	Timestamp     time.Time
	Acceleration  Vector
	RotationRate  Vector
	Gravity       Vector
	MagneticField Vector
}

// Axes returns the vector of d that belongs to kind k.
// DeviceMotion maps to the gravity vector, not the attitude.
func (d Data) Axes(k Kind) Vector {
	switch k {
	case Accelerometer:
		return d.Acceleration
	case Gyroscope:
		return d.RotationRate
	case DeviceMotion:
		return d.Gravity
	case Magnetometer:
		return d.MagneticField
	}
	return Vector{}
}

// WithAxes returns a copy of d with the vector for kind k replaced by v.
func (d Data) WithAxes(k Kind, v Vector) Data {
	switch k {
	case Accelerometer:
		d.Acceleration = v
	case Gyroscope:
		d.RotationRate = v
	case DeviceMotion:
		d.Gravity = v
	case Magnetometer:
		d.MagneticField = v
	}
	return d
}

// Sample is what observers receive for a single tick.
type Sample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Magnitude float64 `json:"magnitude"`
}

// NewSample builds a Sample and computes its magnitude.
func NewSample(x, y, z float64) Sample {
	v := Vector{X: x, Y: y, Z: z}
	return Sample{X: x, Y: y, Z: z, Magnitude: v.Magnitude()}
}

// Reading is handed to a Handler once per tick. A non-nil Err is a
// delivery error; Data still carries whatever values the service had.
type Reading struct {
	Data Data
	Err  error
}
