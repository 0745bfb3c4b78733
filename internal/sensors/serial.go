// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/motionkit/internal/motion"
)

var (
	// ErrNoData is returned until the first sentence for a kind arrives.
	ErrNoData = errors.New("no data received yet")
	// ErrVoidReading marks a reading the device flagged as invalid.
	ErrVoidReading = errors.New("device reported void reading")
)

type latest struct {
	vector motion.Vector
	void   bool
	at     time.Time
	seen   bool
}

// SerialStream decodes motion sentences from a serial IMU and keeps the
// most recent value per kind.
type SerialStream struct {
	port   io.ReadCloser
	parser *nmea.SentenceParser

	mu      sync.Mutex
	values  map[motion.Kind]*latest
	readErr error
	closing bool

	done chan struct{}
}

// OpenSerialStream opens the serial port and starts decoding.
func OpenSerialStream(portName string, baud int) (*SerialStream, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", portName, err)
	}
	log.Printf("sensors: serial IMU port opened on %s at %d baud", portName, baud)

	return NewSerialStream(port), nil
}

// NewSerialStream starts decoding sentences from r. The stream owns r and
// closes it in Close.
func NewSerialStream(r io.ReadCloser) *SerialStream {
	s := &SerialStream{
		port:   r,
		parser: newSentenceParser(),
		values: make(map[motion.Kind]*latest),
		done:   make(chan struct{}),
	}
	for _, k := range motion.Kinds() {
		s.values[k] = &latest{}
	}
	go s.loop()
	return s
}

func (s *SerialStream) loop() {
	defer close(s.done)

	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			s.handleLine(line)
		}
		if err != nil {
			s.mu.Lock()
			if !s.closing {
				log.Printf("sensors: serial IMU read error: %v", err)
				s.readErr = err
			}
			s.mu.Unlock()
			return
		}
	}
}

func (s *SerialStream) handleLine(line string) {
	// NMEA sentences start with '$'; anything else is boot noise.
	if !strings.HasPrefix(line, "$") {
		return
	}
	sentence, err := s.parser.Parse(line)
	if err != nil {
		// partial or corrupted sentence; the next one will do
		return
	}
	m, ok := sentence.(AxisSentence)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[m.Kind]
	v.vector = m.Vector
	v.void = m.Void()
	v.at = time.Now()
	v.seen = true
}

// Reader returns a Reader for kind backed by this stream.
func (s *SerialStream) Reader(kind motion.Kind) Reader {
	return ReaderFunc(func() (motion.Data, error) {
		return s.read(kind)
	})
}

func (s *SerialStream) read(kind motion.Kind) (motion.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.values[kind]
	d := motion.Data{Timestamp: v.at}.WithAxes(kind, v.vector)
	switch {
	case s.readErr != nil:
		return d, fmt.Errorf("serial IMU stream ended: %w", s.readErr)
	case !v.seen:
		return d, fmt.Errorf("%s: %w", kind, ErrNoData)
	case v.void:
		return d, fmt.Errorf("%s: %w", kind, ErrVoidReading)
	}
	return d, nil
}

// Close closes the port and waits for the decoder to stop.
func (s *SerialStream) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	err := s.port.Close()
	<-s.done
	return err
}
