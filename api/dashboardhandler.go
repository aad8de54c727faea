package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// DashboardHandler serves the live congestion ranking. An optional
// camera_id query parameter narrows the result to one camera.
func (s *Server) DashboardHandler(c *fiber.Ctx) error {
	cameraID := c.Query("camera_id")
	logger := log.With().Str("cameraId", cameraID).Logger()

	snapshots, err := s.agg.Snapshots(c.Context(), cameraID)
	if err != nil {
		logger.Error().Err(err).Msg("Error computing live snapshots")
		return c.Status(fiber.StatusInternalServerError).
			JSON(NewErrorResponse("error computing live snapshots"))
	}

	sortSnapshots(snapshots)
	logger.Info().Int("camera_count", len(snapshots)).Msg("Live snapshots served")
	return c.JSON(NewDataResponse(snapshots))
}
