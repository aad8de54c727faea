package api

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const defaultPushInterval = 5 * time.Second

// DashboardWSHandler streams live snapshots over a websocket. The client
// sends a Command to (re)subscribe; each new command cancels the previous
// push loop. Pushes continue on the requested interval until the
// connection closes.
func (s *Server) DashboardWSHandler(c *websocket.Conn) {
	var socketMutex sync.Mutex
	var cancel context.CancelFunc
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	for {
		var cmd Command
		if err := c.ReadJSON(&cmd); err != nil {
			log.Debug().Err(err).Msg("Dashboard websocket closed")
			return
		}
		if cancel != nil {
			cancel()
			cancel = nil
		}

		ctx, cancel1 := context.WithCancel(context.Background())
		cancel = cancel1
		go s.pushSnapshots(ctx, c, &socketMutex, cmd)
	}
}

func (s *Server) pushSnapshots(ctx context.Context, c *websocket.Conn, socketMutex *sync.Mutex, cmd Command) {
	logger := log.With().Str("cameraId", cmd.CameraID).Logger()
	logger.Info().Msg("Snapshot push start")
	defer logger.Info().Msg("Snapshot push end")

	interval := defaultPushInterval
	if cmd.IntervalMs > 0 {
		interval = time.Duration(cmd.IntervalMs) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snapshots, err := s.agg.Snapshots(ctx, cmd.CameraID)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to compute snapshots for push")
			writeErrorResponse(c, socketMutex, err)
		} else {
			sortSnapshots(snapshots)
			if err := writeResponse(c, socketMutex, "snapshots", snapshots); err != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func writeErrorResponse(c *websocket.Conn, socketMutex *sync.Mutex, err error) {
	socketMutex.Lock()
	_ = c.WriteJSON(fiber.Map{"error": err.Error()})
	socketMutex.Unlock()
}

func writeResponse(c *websocket.Conn, socketMutex *sync.Mutex, msgKey string, msg interface{}) error {
	socketMutex.Lock()
	err := c.WriteJSON(fiber.Map{msgKey: msg})
	socketMutex.Unlock()
	return err
}
