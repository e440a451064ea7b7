package service

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/proctor"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func drainEvents(s *ProctorSession) []proctor.Event {
	var out []proctor.Event
	for {
		select {
		case raw := <-s.Send():
			var ev proctor.Event
			if json.Unmarshal(raw, &ev) == nil && ev.Type == "state" {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func TestProctorSessionFramesDriveMonitor(t *testing.T) {
	clock := proctor.NewManualClock(time.Unix(0, 0))
	hub := NewProctorHub(config.ProctorConfig{}, clock)
	s := hub.NewSession(7, nil)
	defer s.Close()

	s.HandleText([]byte(`{"type":"camera_ready"}`))
	assert.Equal(t, proctor.StateMonitoring, s.Monitor.State())

	skin := solidPNG(t, color.RGBA{R: 180, G: 120, B: 90, A: 255})
	dark := solidPNG(t, color.RGBA{R: 10, G: 10, B: 10, A: 255})

	s.HandleFrame(skin)
	assert.Equal(t, 0, s.Monitor.Misses())

	for i := 0; i < 5; i++ {
		s.HandleFrame(dark)
	}
	assert.Equal(t, proctor.StateFaceLost, s.Monitor.State())

	clock.Advance(3 * time.Second)
	assert.Equal(t, proctor.StateTerminated, s.Monitor.State())

	events := drainEvents(s)
	require.Len(t, events, 4)
	assert.Equal(t, proctor.StateCameraStarting, events[0].State)
	assert.Equal(t, proctor.StateMonitoring, events[1].State)
	assert.Equal(t, proctor.StateFaceLost, events[2].State)
	assert.Equal(t, proctor.MessageFaceLost, events[2].Message)
	assert.Equal(t, proctor.StateTerminated, events[3].State)
	assert.Equal(t, 800, events[3].RedirectAfterMs)
}

func TestProctorSessionPresenceMessages(t *testing.T) {
	clock := proctor.NewManualClock(time.Unix(0, 0))
	hub := NewProctorHub(config.ProctorConfig{MaxConsecutiveMiss: 2}, clock)
	s := hub.NewSession(1, nil)
	defer s.Close()

	s.HandleText([]byte(`{"type":"start"}`))
	s.HandleText([]byte(`{"type":"camera_ready"}`))
	s.HandleText([]byte(`{"type":"presence","present":false}`))
	s.HandleText([]byte(`{"type":"presence","present":false}`))
	assert.Equal(t, proctor.StateFaceLost, s.Monitor.State())

	s.HandleText([]byte(`{"type":"presence","present":true}`))
	assert.Equal(t, proctor.StateMonitoring, s.Monitor.State())
	assert.Equal(t, 0, clock.Pending())

	s.HandleText([]byte(`not json`))
	assert.Equal(t, proctor.StateMonitoring, s.Monitor.State())
}

func TestProctorSessionCameraFailure(t *testing.T) {
	hub := NewProctorHub(config.ProctorConfig{}, proctor.NewManualClock(time.Unix(0, 0)))
	s := hub.NewSession(1, nil)
	defer s.Close()

	s.HandleText([]byte(`{"type":"start"}`))
	s.HandleText([]byte(`{"type":"camera_failed","reason":"NotAllowedError"}`))

	events := drainEvents(s)
	require.Len(t, events, 2)
	assert.Equal(t, proctor.StateTerminated, events[1].State)
	assert.True(t, strings.HasPrefix(events[1].Message, proctor.MessageCameraFailure))
}

func TestProctorSessionOversizedFrameIgnored(t *testing.T) {
	hub := NewProctorHub(config.ProctorConfig{MaxFrameBytes: 8}, proctor.NewManualClock(time.Unix(0, 0)))
	s := hub.NewSession(1, nil)
	defer s.Close()

	s.HandleText([]byte(`{"type":"camera_ready"}`))
	s.HandleFrame(make([]byte, 64))
	assert.Equal(t, 0, s.Monitor.Misses())

	s.HandleFrame([]byte("garbage"))
	assert.Equal(t, 1, s.Monitor.Misses())
}

func TestProctorHubSessionLifecycle(t *testing.T) {
	hub := NewProctorHub(config.ProctorConfig{}, proctor.NewManualClock(time.Unix(0, 0)))
	s := hub.NewSession(1, nil)
	assert.Equal(t, 1, hub.ActiveSessions())
	assert.Same(t, s, hub.Session(s.ID))

	s.Close()
	s.Close()
	assert.Equal(t, 0, hub.ActiveSessions())

	// 关闭后的事件被丢弃
	s.HandleText([]byte(`{"type":"start"}`))
}

func TestProctorHubServeWs(t *testing.T) {
	hub := NewProctorHub(config.ProctorConfig{}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWs(w, r, 42)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var info SessionInfo
	require.NoError(t, conn.ReadJSON(&info))
	assert.Equal(t, "session", info.Type)
	assert.NotEmpty(t, info.SessionID)
	assert.Equal(t, proctor.StateIdle, info.State)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"camera_ready"}`)))

	var ev proctor.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, proctor.StateCameraStarting, ev.State)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, proctor.StateMonitoring, ev.State)

	skin := solidPNG(t, color.RGBA{R: 180, G: 120, B: 90, A: 255})
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, skin))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ActiveSessions() == 0 }, 2*time.Second, 20*time.Millisecond)
}
