package traffic

import (
	"context"
	"time"

	"github.com/datapolisx/trafficserver/models"
)

// Store is the read-only event-store surface the aggregators depend on.
// A cameraID of "" means all cameras. The aggregators tolerate eventual
// consistency across the individual calls; any error is surfaced to the
// caller untouched.
type Store interface {
	// LatestDetectionTime returns the most recent created_at among
	// detection events, and false when no rows match.
	LatestDetectionTime(ctx context.Context, cameraID string) (time.Time, bool, error)

	// DetectionsInRange returns every detection event with created_at in
	// [from, to], inclusive on both ends.
	DetectionsInRange(ctx context.Context, cameraID string, from, to time.Time) ([]models.DetectionEvent, error)

	// Capacities returns, per camera, the maximum total_objects ever
	// observed. Cameras with no rows are absent from the map.
	Capacities(ctx context.Context, cameraID string) (map[string]int, error)

	// NearestPredictions returns, per camera, the predicted total of the
	// temporally nearest forecast strictly after the given time.
	NearestPredictions(ctx context.Context, cameraID string, after time.Time) (map[string]float64, error)
}
