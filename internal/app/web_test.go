package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/telemetry"
)

func TestMotionAPIUnavailableUntilData(t *testing.T) {
	store := newMotionStore()
	srv := httptest.NewServer(store.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/motion")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	store.update(motion.Gyroscope, telemetry.Message{X: 3, Y: 4, Magnitude: 5})

	resp, err = http.Get(srv.URL + "/api/motion")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]telemetry.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Contains(t, got, "gyroscope")
	assert.Equal(t, "gyroscope", got["gyroscope"].Kind, "kind is filled from the topic")
	assert.Equal(t, 5.0, got["gyroscope"].Magnitude)
}

func TestMotionStoreKeepsLatest(t *testing.T) {
	store := newMotionStore()
	store.update(motion.Accelerometer, telemetry.Message{Kind: "accelerometer", Z: 1})
	store.update(motion.Accelerometer, telemetry.Message{Kind: "accelerometer", Z: 2})

	snap := store.snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, 2.0, snap["accelerometer"].Z)
}

func TestMotionStoreDropsForSlowListeners(t *testing.T) {
	store := newMotionStore()
	ch, cancel := store.listen()
	defer cancel()

	for i := 0; i < wsBuffer+10; i++ {
		store.update(motion.Magnetometer, telemetry.Message{X: float64(i)})
	}
	assert.Len(t, ch, wsBuffer)
}

func TestMotionWebsocketStreams(t *testing.T) {
	store := newMotionStore()
	store.update(motion.DeviceMotion, telemetry.Message{Z: 1, Magnitude: 1})

	srv := httptest.NewServer(store.routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first telemetry.Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "device_motion", first.Kind)

	// The handler registers its listener before sending the snapshot, so
	// anything published now is streamed.
	store.update(motion.Magnetometer, telemetry.Message{X: 20, Magnitude: 20})

	var next telemetry.Message
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "magnetometer", next.Kind)
	assert.Equal(t, 20.0, next.X)
}
