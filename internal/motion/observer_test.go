package motion_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/motion/motiontest"
)

func TestObserverFuncFiltersKinds(t *testing.T) {
	svc := motiontest.New(motion.Kinds()...)
	kit, _ := newKit(t, svc)

	var kinds []motion.Kind
	kit.SetObserver(motion.ObserverFunc(func(k motion.Kind, s motion.Sample) {
		kinds = append(kinds, k)
		assert.Equal(t, 5.0, s.Magnitude)
	}, motion.Gyroscope, motion.Magnetometer))

	for _, k := range motion.Kinds() {
		kit.StartUpdates(k, 0, nil)
		svc.Inject(k, motion.Vector{X: 3, Y: 4}, nil)
	}
	assert.Equal(t, []motion.Kind{motion.Gyroscope, motion.Magnetometer}, kinds)
}

func TestObserversFanOut(t *testing.T) {
	svc := motiontest.New(motion.Kinds()...)
	kit, _ := newKit(t, svc)

	a := &accelOnly{}
	all := newAllKinds()
	kit.SetObserver(motion.Observers(a, nil, all, struct{}{}))

	kit.StartAccelerometerUpdates(0, nil)
	kit.StartDeviceMotionUpdates(0, nil)
	svc.Inject(motion.Accelerometer, motion.Vector{Z: 1}, nil)
	svc.Inject(motion.DeviceMotion, motion.Vector{Z: -1}, nil)

	assert.Len(t, a.calls, 1)
	assert.Len(t, all.got[motion.Accelerometer], 1)
	assert.Equal(t, []call{{0, 0, -1, 1}}, all.got[motion.DeviceMotion])
}

func TestKindNames(t *testing.T) {
	for _, k := range motion.Kinds() {
		parsed, err := motion.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	k, err := motion.ParseKind(" Device_Motion ")
	require.NoError(t, err)
	assert.Equal(t, motion.DeviceMotion, k)

	_, err = motion.ParseKind("barometer")
	assert.True(t, errors.Is(err, motion.ErrUnknownKind))
	assert.Equal(t, "kind(9)", motion.Kind(9).String())
	assert.False(t, motion.Kind(-1).Valid())
}

func TestDataAxes(t *testing.T) {
	d := motion.Data{}
	for i, k := range motion.Kinds() {
		d = d.WithAxes(k, motion.Vector{X: float64(i)})
	}
	for i, k := range motion.Kinds() {
		assert.Equal(t, float64(i), d.Axes(k).X)
	}
	assert.Equal(t, motion.Vector{}, d.Axes(motion.Kind(42)))
}
