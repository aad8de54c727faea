package ingest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapolisx/trafficserver/ingest"
)

func TestParseDetectionMessage(t *testing.T) {
	payload := []byte(`{
		"camera_id": "662b86c41afb9c00172dd31c",
		"timestamp_utc": "2025-03-10T08:00:00Z",
		"detections": {"motorbike": 40, "car": 4, "truck": 1},
		"total_objects": 45,
		"minio_key": "image_662b86c41afb9c00172dd31c_20250310_080000.jpeg"
	}`)

	event, err := ingest.ParseDetectionMessage(payload)
	require.NoError(t, err)

	assert.Equal(t, "662b86c41afb9c00172dd31c", event.CameraID)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), event.CreatedAt)
	require.NotNil(t, event.Detections)
	assert.Equal(t, 40, event.Detections.Motorbike)
	assert.Equal(t, 4, event.Detections.Car)
	assert.Equal(t, 1, event.Detections.Truck)
	assert.Equal(t, 45, event.TotalObjects)
}

func TestParseDetectionMessageWithoutPayloadIsKept(t *testing.T) {
	event, err := ingest.ParseDetectionMessage([]byte(`{
		"camera_id": "C1",
		"timestamp_utc": "2025-03-10T08:00:00Z",
		"total_objects": 12
	}`))
	require.NoError(t, err)
	assert.Nil(t, event.Detections)
	assert.Equal(t, 12, event.TotalObjects)
}

func TestParseDetectionMessageRejections(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"camera_id":`,
		"missing camera":    `{"timestamp_utc": "2025-03-10T08:00:00Z"}`,
		"missing timestamp": `{"camera_id": "C1"}`,
		"bad timestamp":     `{"camera_id": "C1", "timestamp_utc": "yesterday"}`,
	}
	for name, payload := range cases {
		_, err := ingest.ParseDetectionMessage([]byte(payload))
		assert.Error(t, err, name)
	}
}
