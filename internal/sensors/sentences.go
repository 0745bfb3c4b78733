// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/motionkit/internal/motion"
)

// Serial IMUs that fuse on-board stream one NMEA-framed sentence per
// sensor, all with talker "MK":
//
//	$MKACC,A,x,y,z*CS   accelerometer (g)
//	$MKGYR,A,x,y,z*CS   rotation rate (rad/s)
//	$MKGRV,A,x,y,z*CS   gravity vector (g)
//	$MKMAG,A,x,y,z*CS   magnetic field (µT)
//
// The status field is A (valid) or V (void).
const (
	TalkerMotion = "MK"

	TypeAccel   = "ACC"
	TypeGyro    = "GYR"
	TypeGravity = "GRV"
	TypeMag     = "MAG"

	StatusValid = "A"
	StatusVoid  = "V"
)

var sentenceKinds = map[string]motion.Kind{
	TypeAccel:   motion.Accelerometer,
	TypeGyro:    motion.Gyroscope,
	TypeGravity: motion.DeviceMotion,
	TypeMag:     motion.Magnetometer,
}

// SentenceType returns the sentence type that carries kind.
func SentenceType(kind motion.Kind) string {
	for typ, k := range sentenceKinds {
		if k == kind {
			return typ
		}
	}
	return ""
}

// AxisSentence is one decoded motion sentence.
type AxisSentence struct {
	nmea.BaseSentence
	Kind   motion.Kind
	Status string
	Vector motion.Vector
}

// Void reports whether the device flagged the reading as invalid.
func (s AxisSentence) Void() bool {
	return s.Status == StatusVoid
}

func parseAxisSentence(s nmea.BaseSentence) (nmea.Sentence, error) {
	kind, ok := sentenceKinds[s.Type]
	if !ok {
		return nil, fmt.Errorf("nmea: unsupported motion sentence type %q", s.Type)
	}
	p := nmea.NewParser(s)
	m := AxisSentence{
		BaseSentence: s,
		Kind:         kind,
		Status:       p.EnumString(0, "status", StatusValid, StatusVoid),
		Vector: motion.Vector{
			X: p.Float64(1, "x"),
			Y: p.Float64(2, "y"),
			Z: p.Float64(3, "z"),
		},
	}
	return m, p.Err()
}

// newSentenceParser returns a go-nmea parser that understands the four
// motion sentences on top of the standard ones.
func newSentenceParser() *nmea.SentenceParser {
	custom := make(map[string]nmea.ParserFunc, len(sentenceKinds))
	for typ := range sentenceKinds {
		custom[typ] = parseAxisSentence
	}
	return &nmea.SentenceParser{CustomParsers: custom}
}

// FormatSentence renders a motion sentence with its checksum. It is the
// inverse of what the stream decodes and is handy for simulators and tests.
func FormatSentence(kind motion.Kind, void bool, v motion.Vector) string {
	status := StatusValid
	if void {
		status = StatusVoid
	}
	body := fmt.Sprintf("%s%s,%s,%.6f,%.6f,%.6f", TalkerMotion, SentenceType(kind), status, v.X, v.Y, v.Z)
	return fmt.Sprintf("$%s*%02X", body, checksum(body))
}

func checksum(body string) byte {
	var c byte
	for i := 0; i < len(body); i++ {
		c ^= body[i]
	}
	return c
}
