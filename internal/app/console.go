// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relabs-tech/motionkit/internal/config"
	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/sensors"
)

const (
	minConsoleInterval = 10 * time.Millisecond
	maxConsoleInterval = 5 * time.Second
)

var consoleKeys = map[string]motion.Kind{
	"a": motion.Accelerometer,
	"g": motion.Gyroscope,
	"d": motion.DeviceMotion,
	"m": motion.Magnetometer,
}

var consoleUnits = map[motion.Kind]string{
	motion.Accelerometer: "g",
	motion.Gyroscope:     "rad/s",
	motion.DeviceMotion:  "g",
	motion.Magnetometer:  "µT",
}

// sampleMsg carries one observer call into the bubbletea loop.
type sampleMsg struct {
	kind   motion.Kind
	sample motion.Sample
}

type sensorControl interface {
	StartUpdates(kind motion.Kind, interval time.Duration, onSample motion.SampleCallback)
	StopUpdates(kind motion.Kind)
}

// consoleModel shows the latest sample per kind. Keys a/g/d/m toggle a
// kind, +/- change the interval, q quits.
type consoleModel struct {
	kit      sensorControl
	interval time.Duration
	active   map[motion.Kind]bool
	latest   map[motion.Kind]motion.Sample
	counts   map[motion.Kind]int
}

func newConsoleModel(kit sensorControl, interval time.Duration) consoleModel {
	return consoleModel{
		kit:      kit,
		interval: interval,
		active:   make(map[motion.Kind]bool),
		latest:   make(map[motion.Kind]motion.Sample),
		counts:   make(map[motion.Kind]int),
	}
}

func (m consoleModel) startAll() {
	for _, k := range motion.Kinds() {
		m.start(k)
	}
}

func (m consoleModel) start(kind motion.Kind) {
	m.active[kind] = true
	m.kit.StartUpdates(kind, m.interval, nil)
}

func (m consoleModel) stop(kind motion.Kind) {
	m.active[kind] = false
	m.kit.StopUpdates(kind)
}

func (m consoleModel) Init() tea.Cmd {
	return nil
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sampleMsg:
		m.latest[msg.kind] = msg.sample
		m.counts[msg.kind]++

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "+", "-":
			m.interval = nextInterval(m.interval, key == "+")
			for k, on := range m.active {
				if on {
					m.start(k)
				}
			}
		default:
			if kind, ok := consoleKeys[key]; ok {
				if m.active[kind] {
					m.stop(kind)
				} else {
					m.start(kind)
				}
			}
		}
	}
	return m, nil
}

func nextInterval(d time.Duration, slower bool) time.Duration {
	if slower {
		d *= 2
	} else {
		d /= 2
	}
	return min(max(d, minConsoleInterval), maxConsoleInterval)
}

func (m consoleModel) View() string {
	var b strings.Builder

	b.WriteString("MotionKit console\n")
	b.WriteString("=================\n\n")
	fmt.Fprintf(&b, "interval: %v\n\n", m.interval)

	for _, k := range motion.Kinds() {
		state := "off"
		if m.active[k] {
			state = "on "
		}
		s, ok := m.latest[k]
		if !ok {
			fmt.Fprintf(&b, "[%s] %-14s waiting...\n", state, k)
			continue
		}
		fmt.Fprintf(&b, "[%s] %-14s x=%8.3f y=%8.3f z=%8.3f |v|=%8.3f %-5s (%d)\n",
			state, k, s.X, s.Y, s.Z, s.Magnitude, consoleUnits[k], m.counts[k])
	}

	b.WriteString("\n(a/g/d/m toggle sensors, +/- change interval, q to quit)")
	return b.String()
}

// RunConsole drives the sensors directly and shows them in a terminal UI.
// Log output goes to motionkit-console.log so it does not tear the screen.
func RunConsole(cfg *config.Config) error {
	f, err := tea.LogToFile("motionkit-console.log", "console")
	if err != nil {
		return fmt.Errorf("console log file: %w", err)
	}
	defer f.Close()

	mgr, err := sensors.NewManagerFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("sensor setup: %w", err)
	}
	kit := motion.New(mgr, motion.WithDefaultInterval(cfg.Interval()))
	defer func() {
		if err := kit.Close(); err != nil {
			log.Printf("console: %v", err)
		}
	}()

	model := newConsoleModel(kit, cfg.Interval())
	program := tea.NewProgram(model, tea.WithAltScreen())

	kit.SetObserver(motion.ObserverFunc(func(kind motion.Kind, s motion.Sample) {
		program.Send(sampleMsg{kind: kind, sample: s})
	}))
	model.startAll()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
