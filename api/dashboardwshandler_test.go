package api_test

import (
	"fmt"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	fasthttp_websocket "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapolisx/trafficserver/api"
	"github.com/datapolisx/trafficserver/models"
	"github.com/datapolisx/trafficserver/traffic"
)

// wsFrame is one pushed websocket message.
type wsFrame struct {
	Snapshots []models.CameraSnapshot `json:"snapshots"`
	Error     string                  `json:"error"`
}

// startWSApp serves the API on an ephemeral port and returns its ws URL.
func startWSApp(t *testing.T, store traffic.Store) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	server := api.NewServer(traffic.NewAggregator(store, traffic.Config{}), nil)
	server.Register(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })

	return fmt.Sprintf("ws://%s/ws/dashboard", ln.Addr().String())
}

func dialDashboard(t *testing.T, url string) *fasthttp_websocket.Conn {
	t.Helper()
	conn, resp, err := fasthttp_websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 101, resp.StatusCode)
	assert.Equal(t, "websocket", resp.Header.Get("Upgrade"))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestDashboardWSRequiresUpgrade(t *testing.T) {
	app := newTestApp(&stubStore{})

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestDashboardWSPushesSnapshotsOnCommand(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	url := startWSApp(t, &stubStore{events: []models.DetectionEvent{
		{CameraID: "quiet", CreatedAt: now, Detections: &models.VehicleCounts{Car: 5}, TotalObjects: 100},
		{CameraID: "busy", CreatedAt: now, Detections: &models.VehicleCounts{Car: 90}, TotalObjects: 100},
	}})
	conn := dialDashboard(t, url)

	require.NoError(t, conn.WriteJSON(api.Command{IntervalMs: 50}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Empty(t, frame.Error)
	require.Len(t, frame.Snapshots, 2)
	assert.Equal(t, "busy", frame.Snapshots[0].ID, "pushed snapshots are ranked")
	assert.Equal(t, "quiet", frame.Snapshots[1].ID)
}

func TestDashboardWSFirstPushIsImmediate(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	url := startWSApp(t, &stubStore{events: []models.DetectionEvent{
		{CameraID: "C1", CreatedAt: now, Detections: &models.VehicleCounts{Car: 10}, TotalObjects: 10},
	}})
	conn := dialDashboard(t, url)

	// No interval requested: the loop falls back to its default tick, but
	// the first push must not wait for it.
	require.NoError(t, conn.WriteJSON(api.Command{}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Len(t, frame.Snapshots, 1)
	assert.Equal(t, "C1", frame.Snapshots[0].ID)
}

func TestDashboardWSSecondCommandSupersedesFirst(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	url := startWSApp(t, &stubStore{events: []models.DetectionEvent{
		{CameraID: "quiet", CreatedAt: now, Detections: &models.VehicleCounts{Car: 5}, TotalObjects: 100},
		{CameraID: "busy", CreatedAt: now, Detections: &models.VehicleCounts{Car: 90}, TotalObjects: 100},
	}})
	conn := dialDashboard(t, url)

	require.NoError(t, conn.WriteJSON(api.Command{IntervalMs: 25}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Len(t, frame.Snapshots, 2)

	// Narrow the subscription; the unfiltered loop is cancelled. A frame
	// it already had in flight may still arrive, after that every push
	// carries the filtered view.
	require.NoError(t, conn.WriteJSON(api.Command{CameraID: "busy", IntervalMs: 25}))

	filtered := false
	for i := 0; i < 20; i++ {
		require.NoError(t, conn.ReadJSON(&frame))
		if len(frame.Snapshots) == 1 && frame.Snapshots[0].ID == "busy" {
			filtered = true
			break
		}
	}
	assert.True(t, filtered, "pushes never switched to the new command")
}
