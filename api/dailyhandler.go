package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/datapolisx/trafficserver/traffic"
)

// DailyStatsHandler serves the 24-hour histogram of one camera for one
// calendar day (YYYY-MM-DD, local to the deployment city).
func (s *Server) DailyStatsHandler(c *fiber.Ctx) error {
	cameraID := c.Params("cameraId")
	date := c.Params("date")
	if cameraID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(NewErrorResponse("invalid cameraId"))
	}

	logger := log.With().Str("cameraId", cameraID).Str("date", date).Logger()

	stats, err := s.agg.DailyStats(c.Context(), cameraID, date)
	if err != nil {
		var badDate traffic.InvalidDateError
		if errors.As(err, &badDate) {
			return c.Status(fiber.StatusBadRequest).JSON(NewErrorResponse(badDate.Error()))
		}
		logger.Error().Err(err).Msg("Error computing daily stats")
		return c.Status(fiber.StatusInternalServerError).
			JSON(NewErrorResponse("error computing daily stats"))
	}

	logger.Info().Int("record_count", stats.Summary.TotalRecords).Msg("Daily stats served")
	return c.JSON(NewDataResponse(stats))
}
