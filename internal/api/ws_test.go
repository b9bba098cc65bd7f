package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelab/yieldstress/pkg/config"
	"github.com/curvelab/yieldstress/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "development"})
}

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestHubBroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub(testLogger())

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	// Registration happens in the upgrade handler goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.Clients())

	latest := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	hub.Broadcast(RefreshEvent{
		Type:       "curve_refresh",
		LatestDate: latest,
		At:         time.Now().UTC(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event RefreshEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "curve_refresh", event.Type)
	assert.True(t, event.LatestDate.Equal(latest))
}

func TestHubDropsDisconnectedClient(t *testing.T) {
	hub := NewHub(testLogger())

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.Clients())

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.Clients())
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthCheckHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
