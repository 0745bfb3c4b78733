// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion is a small facade over a motion-sensor service.
//
// A Kit exposes four symmetric start/stop pairs (accelerometer, gyroscope,
// device motion and magnetometer). Every tick is delivered through an
// optional per-call callback and, independently, to the observer set on
// the Kit. Neither failure mode is returned to the caller: unavailable
// hardware and per-tick errors only show up in the log.
package motion

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the sampling interval used when none is given (0.1 s).
const DefaultInterval = 100 * time.Millisecond

// Handler is invoked by a Service once per tick.
type Handler func(Reading)

// Service is the motion service a Kit wraps. Implementations deliver
// each kind on its own goroutine, serialized and in tick order, and keep
// kinds independent of each other.
type Service interface {
	Available(kind Kind) bool
	SetUpdateInterval(kind Kind, d time.Duration)
	StartUpdates(kind Kind, h Handler)
	// StopUpdates must be safe to call for inactive kinds and from
	// inside a handler.
	StopUpdates(kind Kind)
	Close() error
}

// Recorder is notified of deliveries and failures. A nil Recorder is fine.
type Recorder interface {
	Delivered(kind Kind)
	DeliveryError(kind Kind)
	Unavailable(kind Kind)
}

// SampleCallback receives the three axis values of one tick.
type SampleCallback func(x, y, z float64)

// Option configures a Kit.
type Option func(*Kit)

// WithLogger sets the logger used for unavailability and tick errors.
func WithLogger(l *log.Logger) Option {
	return func(k *Kit) {
		if l != nil {
			k.log = l
		}
	}
}

// WithDefaultInterval changes the interval used when StartUpdates is
// called with a non-positive interval.
func WithDefaultInterval(d time.Duration) Option {
	return func(k *Kit) {
		if d > 0 {
			k.interval = d
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(k *Kit) { k.rec = r }
}

type observerBox struct{ o Observer }

// Kit is the motion facade. It owns exactly one Service handle for its
// whole lifetime; Close releases it.
type Kit struct {
	svc      Service
	log      *log.Logger
	interval time.Duration
	rec      Recorder

	observer atomic.Value // observerBox
	closed   atomic.Bool
	closeMu  sync.Mutex
}

// New wraps svc. The Kit takes ownership of svc and closes it in Close.
func New(svc Service, opts ...Option) *Kit {
	k := &Kit{
		svc:      svc,
		log:      log.Default(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(k)
	}
	k.observer.Store(observerBox{})
	return k
}

// SetObserver replaces the observer consulted on every tick. Pass nil to
// clear it. A tick in flight sees whichever observer is set when it
// reaches the observer step.
func (k *Kit) SetObserver(o Observer) {
	k.observer.Store(observerBox{o: o})
}

// Observer returns the current observer, or nil.
func (k *Kit) Observer() Observer {
	return k.observer.Load().(observerBox).o
}

// DefaultInterval returns the interval used for non-positive requests.
func (k *Kit) DefaultInterval() time.Duration {
	return k.interval
}

// StartUpdates subscribes to kind. If the hardware is unavailable a
// warning is logged and nothing else happens. Otherwise every tick is
// passed to onSample (if non-nil) as x, y, z and to the observer (if it
// implements the matching method) as x, y, z, magnitude. Starting an
// active kind rearms it with the new interval and callback.
func (k *Kit) StartUpdates(kind Kind, interval time.Duration, onSample SampleCallback) {
	if k.closed.Load() {
		k.log.Printf("motion: %s updates requested after close, ignoring", kind)
		return
	}
	if !kind.Valid() {
		k.log.Printf("motion: %v", fmt.Errorf("%w: %d", ErrUnknownKind, int(kind)))
		return
	}
	if !k.svc.Available(kind) {
		k.log.Printf("motion: The %s is not available", kind.label())
		if k.rec != nil {
			k.rec.Unavailable(kind)
		}
		return
	}
	if interval <= 0 {
		interval = k.interval
	}

	k.svc.SetUpdateInterval(kind, interval)
	k.svc.StartUpdates(kind, func(r Reading) {
		k.deliver(kind, r, onSample)
	})
}

func (k *Kit) deliver(kind Kind, r Reading, onSample SampleCallback) {
	if r.Err != nil {
		k.log.Printf("motion: %s error: %v", kind, r.Err)
		if k.rec != nil {
			k.rec.DeliveryError(kind)
		}
	}

	// The tick is delivered even when it carried an error.
	v := r.Data.Axes(kind)
	s := NewSample(v.X, v.Y, v.Z)

	if onSample != nil {
		onSample(s.X, s.Y, s.Z)
	}
	if o := k.Observer(); o != nil {
		notify(o, kind, s)
	}
	if k.rec != nil {
		k.rec.Delivered(kind)
	}
}

// StopUpdates cancels kind. It is a no-op when kind is not active.
func (k *Kit) StopUpdates(kind Kind) {
	if !kind.Valid() {
		return
	}
	k.svc.StopUpdates(kind)
}

// Close stops all four kinds and releases the service. Calling it more
// than once is harmless. Close must not be called from inside a callback.
func (k *Kit) Close() error {
	k.closeMu.Lock()
	defer k.closeMu.Unlock()

	if k.closed.Swap(true) {
		return nil
	}
	for _, kind := range Kinds() {
		k.svc.StopUpdates(kind)
	}
	if err := k.svc.Close(); err != nil {
		return fmt.Errorf("motion: close service: %w", err)
	}
	return nil
}

// StartAccelerometerUpdates is StartUpdates(Accelerometer, ...).
func (k *Kit) StartAccelerometerUpdates(interval time.Duration, onSample SampleCallback) {
	k.StartUpdates(Accelerometer, interval, onSample)
}

// StartGyroUpdates is StartUpdates(Gyroscope, ...).
func (k *Kit) StartGyroUpdates(interval time.Duration, onSample SampleCallback) {
	k.StartUpdates(Gyroscope, interval, onSample)
}

// StartDeviceMotionUpdates is StartUpdates(DeviceMotion, ...). Samples
// carry the gravity vector.
func (k *Kit) StartDeviceMotionUpdates(interval time.Duration, onSample SampleCallback) {
	k.StartUpdates(DeviceMotion, interval, onSample)
}

// StartMagnetometerUpdates is StartUpdates(Magnetometer, ...).
func (k *Kit) StartMagnetometerUpdates(interval time.Duration, onSample SampleCallback) {
	k.StartUpdates(Magnetometer, interval, onSample)
}

func (k *Kit) StopAccelerometerUpdates() { k.StopUpdates(Accelerometer) }
func (k *Kit) StopGyroUpdates()          { k.StopUpdates(Gyroscope) }
func (k *Kit) StopDeviceMotionUpdates()  { k.StopUpdates(DeviceMotion) }
func (k *Kit) StopMagnetometerUpdates()  { k.StopUpdates(Magnetometer) }
