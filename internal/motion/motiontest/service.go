// Package motiontest provides a deterministic motion.Service for tests.
package motiontest

import (
	"sync"
	"time"

	"github.com/relabs-tech/motionkit/internal/motion"
)

// Service is a fake motion.Service. Ticks are injected by the test and
// delivered synchronously on the calling goroutine.
type Service struct {
	mu        sync.Mutex
	available map[motion.Kind]bool
	intervals map[motion.Kind]time.Duration
	handlers  map[motion.Kind]motion.Handler
	starts    map[motion.Kind]int
	stops     map[motion.Kind]int
	closed    int
}

// New returns a fake where the given kinds are available.
func New(available ...motion.Kind) *Service {
	s := &Service{
		available: make(map[motion.Kind]bool),
		intervals: make(map[motion.Kind]time.Duration),
		handlers:  make(map[motion.Kind]motion.Handler),
		starts:    make(map[motion.Kind]int),
		stops:     make(map[motion.Kind]int),
	}
	for _, k := range available {
		s.available[k] = true
	}
	return s
}

// SetAvailable toggles hardware availability for kind.
func (s *Service) SetAvailable(kind motion.Kind, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available[kind] = ok
}

func (s *Service) Available(kind motion.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available[kind]
}

func (s *Service) SetUpdateInterval(kind motion.Kind, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals[kind] = d
}

func (s *Service) StartUpdates(kind motion.Kind, h motion.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
	s.starts[kind]++
}

func (s *Service) StopUpdates(kind motion.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, kind)
	s.stops[kind]++
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = make(map[motion.Kind]motion.Handler)
	s.closed++
	return nil
}

// Inject delivers one tick for kind. It reports false when kind has no
// active handler, mirroring a stopped subscription.
func (s *Service) Inject(kind motion.Kind, v motion.Vector, err error) bool {
	s.mu.Lock()
	h, ok := s.handlers[kind]
	s.mu.Unlock()
	if !ok {
		return false
	}
	h(motion.Reading{Data: motion.Data{Timestamp: time.Now()}.WithAxes(kind, v), Err: err})
	return true
}

// InjectData delivers a full payload for kind.
func (s *Service) InjectData(kind motion.Kind, d motion.Data, err error) bool {
	s.mu.Lock()
	h, ok := s.handlers[kind]
	s.mu.Unlock()
	if !ok {
		return false
	}
	h(motion.Reading{Data: d, Err: err})
	return true
}

// Active reports whether kind currently has a handler.
func (s *Service) Active(kind motion.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handlers[kind]
	return ok
}

// Interval returns the last interval set for kind.
func (s *Service) Interval(kind motion.Kind) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervals[kind]
}

// Starts returns how many times kind was started.
func (s *Service) Starts(kind motion.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts[kind]
}

// Stops returns how many times kind was stopped.
func (s *Service) Stops(kind motion.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops[kind]
}

// Closed returns how many times Close was called.
func (s *Service) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
