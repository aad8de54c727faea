package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/datapolisx/trafficserver/images"
)

// CameraImageHandler serves the most recent stored frame of a camera.
// Lookups go through a short-lived cache so a burst of dashboard clients
// triggers one object-store round trip, not one per client.
func (s *Server) CameraImageHandler(c *fiber.Ctx) error {
	cameraID := c.Params("cameraId")
	if cameraID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(NewErrorResponse("invalid cameraId"))
	}

	frame, err := s.frameCache.Get(cameraID)
	if err != nil {
		if errors.Is(err, images.ErrNoFrames) {
			return c.Status(fiber.StatusNotFound).JSON(NewErrorResponse("no frames for camera"))
		}
		log.Error().Err(err).Str("cameraId", cameraID).Msg("Error fetching camera frame")
		return c.Status(fiber.StatusInternalServerError).
			JSON(NewErrorResponse("error fetching camera frame"))
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(frame)
}
