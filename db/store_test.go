package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/datapolisx/trafficserver/models"
)

// The store decodes raw collection documents straight into the domain
// models; these tests pin the bson mapping with offline cursors.

func TestDetectionEventDecode(t *testing.T) {
	createdAt := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	docs := []interface{}{
		bson.M{
			"camera_id":     "C1",
			"created_at":    createdAt,
			"detections":    bson.M{"motorbike": 40, "car": 4, "truck": 2},
			"total_objects": 46,
		},
		bson.M{
			"camera_id":     "C2",
			"created_at":    createdAt.Add(time.Minute),
			"total_objects": 0,
		},
	}
	cursor, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	require.NoError(t, err)

	var events []models.DetectionEvent
	require.NoError(t, cursor.All(context.TODO(), &events))
	require.Len(t, events, 2)

	assert.Equal(t, "C1", events[0].CameraID)
	assert.True(t, events[0].CreatedAt.Equal(createdAt))
	require.NotNil(t, events[0].Detections)
	assert.Equal(t, 40, events[0].Detections.Motorbike)
	assert.Equal(t, 2, events[0].Detections.Truck)
	assert.Equal(t, 0, events[0].Detections.Bus)
	assert.Equal(t, 46, events[0].TotalObjects)

	assert.Nil(t, events[1].Detections, "rows without a payload decode to nil")
}

func TestDetectionEventDecodeDiscardsUnknownClasses(t *testing.T) {
	docs := []interface{}{
		bson.M{
			"camera_id":  "C1",
			"created_at": time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			"detections": bson.M{"car": 3, "bicycle": 12},
		},
	}
	cursor, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	require.NoError(t, err)

	var events []models.DetectionEvent
	require.NoError(t, cursor.All(context.TODO(), &events))
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Detections)
	assert.Equal(t, 3, events[0].Detections.Car)
	assert.Equal(t, 0, events[0].Detections.Motorbike)
}

func TestPredictionEventDecode(t *testing.T) {
	forecastAt := time.Date(2025, 3, 10, 8, 10, 0, 0, time.UTC)
	docs := []interface{}{
		bson.M{
			"camera_id":               "C1",
			"forecast_timestamp":      forecastAt,
			"predicted_total_objects": 52.5,
		},
	}
	cursor, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	require.NoError(t, err)

	var preds []models.PredictionEvent
	require.NoError(t, cursor.All(context.TODO(), &preds))
	require.Len(t, preds, 1)
	assert.Equal(t, "C1", preds[0].CameraID)
	assert.True(t, preds[0].ForecastTimestamp.Equal(forecastAt))
	assert.Equal(t, 52.5, preds[0].PredictedTotal)
}
