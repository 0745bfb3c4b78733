// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/relabs-tech/motionkit/internal/motion"
)

// Reader returns the current payload for one sensor kind. On a partial
// failure it returns what it has together with the error.
type Reader interface {
	Read() (motion.Data, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func() (motion.Data, error)

func (f ReaderFunc) Read() (motion.Data, error) { return f() }

// Manager implements motion.Service by polling a Reader per kind on its
// own goroutine. A kind without a Reader is unavailable.
type Manager struct {
	mu        sync.Mutex
	readers   map[motion.Kind]Reader
	intervals map[motion.Kind]time.Duration
	subs      map[motion.Kind]context.CancelFunc
	done      map[motion.Kind]chan struct{} // closed when the kind's latest goroutine returns
	closers   []io.Closer
	closed    bool
	wg        sync.WaitGroup
}

// NewManager builds a Manager from per-kind readers. The closers are
// released by Close, after all subscriptions have ended.
func NewManager(readers map[motion.Kind]Reader, closers ...io.Closer) *Manager {
	m := &Manager{
		readers:   make(map[motion.Kind]Reader, len(readers)),
		intervals: make(map[motion.Kind]time.Duration),
		subs:      make(map[motion.Kind]context.CancelFunc),
		done:      make(map[motion.Kind]chan struct{}),
		closers:   closers,
	}
	for k, r := range readers {
		if r != nil {
			m.readers[k] = r
		}
	}
	return m
}

func (m *Manager) Available(kind motion.Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.readers[kind]
	return ok && !m.closed
}

func (m *Manager) SetUpdateInterval(kind motion.Kind, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intervals[kind] = d
}

// Interval returns the interval that the next StartUpdates for kind uses.
func (m *Manager) Interval(kind motion.Kind) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intervalLocked(kind)
}

func (m *Manager) intervalLocked(kind motion.Kind) time.Duration {
	if d := m.intervals[kind]; d > 0 {
		return d
	}
	return motion.DefaultInterval
}

// StartUpdates replaces any running subscription for kind with a new
// goroutine ticking at the kind's interval. The new goroutine waits for the
// previous one to return before its first tick, so handlers for a kind never
// overlap. StartUpdates itself does not block and may be called from inside
// a handler.
func (m *Manager) StartUpdates(kind motion.Kind, h motion.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.readers[kind]
	if !ok || m.closed || h == nil {
		return
	}
	if cancel := m.subs[kind]; cancel != nil {
		cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.subs[kind] = cancel
	prev := m.done[kind]
	done := make(chan struct{})
	m.done[kind] = done

	interval := m.intervalLocked(kind)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		run(ctx, r, interval, h)
	}()
}

func run(ctx context.Context, r Reader, interval time.Duration, h motion.Handler) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			data, err := r.Read()
			if ctx.Err() != nil {
				return
			}
			if data.Timestamp.IsZero() {
				data.Timestamp = t
			}
			h(motion.Reading{Data: data, Err: err})
		}
	}
}

// StopUpdates cancels kind without waiting for its goroutine, so it can be
// called from inside a handler.
func (m *Manager) StopUpdates(kind motion.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel := m.subs[kind]; cancel != nil {
		cancel()
		delete(m.subs, kind)
	}
}

// Active reports whether kind has a running subscription.
func (m *Manager) Active(kind motion.Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[kind]
	return ok
}

// Close stops every subscription, waits for the delivery goroutines to
// return and closes the hardware handles.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for kind, cancel := range m.subs {
		cancel()
		delete(m.subs, kind)
	}
	closers := m.closers
	m.closers = nil
	m.mu.Unlock()

	// Stopped and replaced subscriptions are waited for as well.
	m.wg.Wait()

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
