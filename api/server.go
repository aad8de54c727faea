// Package api exposes the aggregation core over HTTP and WebSocket.
package api

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/datapolisx/trafficserver/cache"
	"github.com/datapolisx/trafficserver/images"
	"github.com/datapolisx/trafficserver/models"
	"github.com/datapolisx/trafficserver/traffic"
)

const frameCacheTTL = 10 * time.Second

// Server holds the handlers' collaborators. The aggregator and frame
// store are injected at construction; handlers carry no globals.
type Server struct {
	agg        *traffic.Aggregator
	frames     *images.Store
	frameCache *cache.Cache
}

// NewServer builds the API surface. frames may be nil when no image store
// is configured; the frame endpoint is then not registered.
func NewServer(agg *traffic.Aggregator, frames *images.Store) *Server {
	s := &Server{agg: agg, frames: frames}
	if frames != nil {
		s.frameCache = cache.New(func(cameraID string) ([]byte, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return frames.LatestFrame(ctx, cameraID)
		}, frameCacheTTL)
	}
	return s
}

// Register mounts all routes on the app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/api/dashboard", s.DashboardHandler)
	app.Get("/api/traffic/:cameraId/daily/:date", s.DailyStatsHandler)
	if s.frames != nil {
		app.Get("/api/camera/:cameraId/image", s.CameraImageHandler)
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/dashboard", websocket.New(s.DashboardWSHandler))
}

// sortSnapshots orders most congested first; ID breaks ties so the
// ranking is stable across recomputations.
func sortSnapshots(snaps []models.CameraSnapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].SiScore != snaps[j].SiScore {
			return snaps[i].SiScore > snaps[j].SiScore
		}
		return snaps[i].ID < snaps[j].ID
	})
}
