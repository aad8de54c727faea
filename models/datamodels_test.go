package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapolisx/trafficserver/models"
)

func TestVehicleCountsDecodeDefaultsAndDiscards(t *testing.T) {
	// Absent classes decode to zero; classes the model does not define
	// are discarded.
	var v models.VehicleCounts
	err := json.Unmarshal([]byte(`{"car": 3, "container": 2, "rickshaw": 9}`), &v)
	require.NoError(t, err)

	assert.Equal(t, 3, v.Car)
	assert.Equal(t, 2, v.Container)
	assert.Equal(t, 0, v.Motorbike)
	assert.Equal(t, 0, v.Truck)
	assert.Equal(t, 0, v.Bus)
}

func TestDetectionEventWithoutPayload(t *testing.T) {
	var ev models.DetectionEvent
	err := json.Unmarshal([]byte(`{"camera_id": "C1", "total_objects": 7}`), &ev)
	require.NoError(t, err)

	assert.Equal(t, "C1", ev.CameraID)
	assert.Equal(t, 7, ev.TotalObjects)
	assert.Nil(t, ev.Detections, "absent payload must stay nil, not become a zero sample")
}

func TestCameraSnapshotSerialization(t *testing.T) {
	snap := models.CameraSnapshot{
		ID:            "C1",
		SiScore:       23,
		Composition:   models.Composition{Primary: "motorbike"},
		ChangePercent: -5,
		VehicleCount:  models.VehicleCount{BigCar: 2, Car: 10, Motorbike: 76},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "C1",
		"si_score": 23,
		"composition": {"primary": "motorbike"},
		"change_percent": -5,
		"vehicle_count": {"bigcar": 2, "car": 10, "motorbike": 76}
	}`, string(data))
}

func TestHourBucketSerialization(t *testing.T) {
	bucket := models.HourBucket{TimeDisplay: "07:00", HourIndex: 7, SiScore: 41, TotalCount: 52, Motorbike: 40, Car: 10, BigCar: 2}

	data, err := json.Marshal(bucket)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"time_display": "07:00",
		"hour_index": 7,
		"si_score": 41,
		"total_count": 52,
		"motorbike": 40,
		"car": 10,
		"big_car": 2
	}`, string(data))
}
