package app

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/motion/motiontest"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m consoleModel, msg tea.Msg) (consoleModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	cm, ok := next.(consoleModel)
	require.True(t, ok)
	return cm, cmd
}

func TestConsoleShowsSamples(t *testing.T) {
	svc := motiontest.New(motion.Kinds()...)
	kit := motion.New(svc)
	m := newConsoleModel(kit, 50*time.Millisecond)
	m.startAll()

	assert.Contains(t, m.View(), "waiting...")

	m, _ = update(t, m, sampleMsg{kind: motion.Magnetometer, sample: motion.NewSample(3, 4, 0)})
	view := m.View()
	assert.Contains(t, view, "magnetometer")
	assert.Contains(t, view, "|v|=   5.000")
	assert.Contains(t, view, "interval: 50ms")
}

func TestConsoleTogglesKinds(t *testing.T) {
	svc := motiontest.New(motion.Kinds()...)
	kit := motion.New(svc)
	m := newConsoleModel(kit, 50*time.Millisecond)
	m.startAll()
	require.True(t, svc.Active(motion.Gyroscope))

	m, _ = update(t, m, key("g"))
	assert.False(t, svc.Active(motion.Gyroscope))
	assert.Contains(t, m.View(), "[off] gyroscope")

	m, _ = update(t, m, key("g"))
	assert.True(t, svc.Active(motion.Gyroscope))
	assert.Equal(t, 2, svc.Starts(motion.Gyroscope))
}

func TestConsoleIntervalKeysRearmActiveKinds(t *testing.T) {
	svc := motiontest.New(motion.Kinds()...)
	kit := motion.New(svc)
	m := newConsoleModel(kit, 40*time.Millisecond)
	m.startAll()
	m, _ = update(t, m, key("d"))

	m, _ = update(t, m, key("+"))
	assert.Equal(t, 80*time.Millisecond, m.interval)
	assert.Equal(t, 80*time.Millisecond, svc.Interval(motion.Accelerometer))
	assert.Equal(t, 40*time.Millisecond, svc.Interval(motion.DeviceMotion), "stopped kinds are left alone")

	for i := 0; i < 10; i++ {
		m, _ = update(t, m, key("-"))
	}
	assert.Equal(t, minConsoleInterval, m.interval)
}

func TestConsoleQuit(t *testing.T) {
	m := newConsoleModel(motion.New(motiontest.New()), time.Second)

	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
}

func TestNextIntervalClamps(t *testing.T) {
	assert.Equal(t, maxConsoleInterval, nextInterval(4*time.Second, true))
	assert.Equal(t, minConsoleInterval, nextInterval(15*time.Millisecond, false))
	assert.Equal(t, 200*time.Millisecond, nextInterval(100*time.Millisecond, true))
}
