// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

// Observer is any value implementing a subset of the four per-kind
// observer interfaces below. Kinds it does not implement are skipped.
type Observer any

// AccelerometerObserver receives accelerometer samples (g).
type AccelerometerObserver interface {
	AccelerometerValues(x, y, z, magnitude float64)
}

// GyroscopeObserver receives rotation-rate samples (rad/s).
type GyroscopeObserver interface {
	GyroscopeValues(x, y, z, magnitude float64)
}

// DeviceMotionObserver receives gravity-vector samples (g).
type DeviceMotionObserver interface {
	DeviceMotionValues(x, y, z, magnitude float64)
}

// MagnetometerObserver receives magnetic-field samples (µT).
type MagnetometerObserver interface {
	MagnetometerValues(x, y, z, magnitude float64)
}

// notify calls the method of o matching kind, if o implements it.
// It reports whether anything was called.
func notify(o Observer, kind Kind, s Sample) bool {
	switch kind {
	case Accelerometer:
		if ob, ok := o.(AccelerometerObserver); ok {
			ob.AccelerometerValues(s.X, s.Y, s.Z, s.Magnitude)
			return true
		}
	case Gyroscope:
		if ob, ok := o.(GyroscopeObserver); ok {
			ob.GyroscopeValues(s.X, s.Y, s.Z, s.Magnitude)
			return true
		}
	case DeviceMotion:
		if ob, ok := o.(DeviceMotionObserver); ok {
			ob.DeviceMotionValues(s.X, s.Y, s.Z, s.Magnitude)
			return true
		}
	case Magnetometer:
		if ob, ok := o.(MagnetometerObserver); ok {
			ob.MagnetometerValues(s.X, s.Y, s.Z, s.Magnitude)
			return true
		}
	}
	return false
}

// SampleFunc receives a sample together with its kind.
type SampleFunc func(kind Kind, s Sample)

// kindFuncs implements all four observer interfaces by forwarding to fn
// for the kinds in the set.
type kindFuncs struct {
	kinds map[Kind]bool
	fn    SampleFunc
}

// ObserverFunc adapts fn into an observer for the given kinds.
// With no kinds it observes all four.
func ObserverFunc(fn SampleFunc, kinds ...Kind) Observer {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	set := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return &kindFuncs{kinds: set, fn: fn}
}

func (f *kindFuncs) call(kind Kind, x, y, z, m float64) {
	if f.kinds[kind] {
		f.fn(kind, Sample{X: x, Y: y, Z: z, Magnitude: m})
	}
}

func (f *kindFuncs) AccelerometerValues(x, y, z, m float64) { f.call(Accelerometer, x, y, z, m) }
func (f *kindFuncs) GyroscopeValues(x, y, z, m float64)     { f.call(Gyroscope, x, y, z, m) }
func (f *kindFuncs) DeviceMotionValues(x, y, z, m float64)  { f.call(DeviceMotion, x, y, z, m) }
func (f *kindFuncs) MagnetometerValues(x, y, z, m float64)  { f.call(Magnetometer, x, y, z, m) }

// multi fans a delivery out to several observers in order.
type multi []Observer

// Observers combines several observers into one. Each member still only
// receives the kinds it implements.
func Observers(obs ...Observer) Observer {
	return multi(obs)
}

func (m multi) AccelerometerValues(x, y, z, mag float64) { m.each(Accelerometer, x, y, z, mag) }
func (m multi) GyroscopeValues(x, y, z, mag float64)     { m.each(Gyroscope, x, y, z, mag) }
func (m multi) DeviceMotionValues(x, y, z, mag float64)  { m.each(DeviceMotion, x, y, z, mag) }
func (m multi) MagnetometerValues(x, y, z, mag float64)  { m.each(Magnetometer, x, y, z, mag) }

func (m multi) each(kind Kind, x, y, z, mag float64) {
	s := Sample{X: x, Y: y, Z: z, Magnitude: mag}
	for _, o := range m {
		if o != nil {
			notify(o, kind, s)
		}
	}
}
