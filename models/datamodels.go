// Package models contains all the data models
package models

import "time"

// VehicleCounts holds the per-class counts of a single detection sample.
// A class absent from the stored payload decodes to zero; classes the
// detector does not emit here are discarded on decode.
type VehicleCounts struct {
	Motorbike int `json:"motorbike,omitempty" bson:"motorbike,omitempty"`
	Car       int `json:"car,omitempty" bson:"car,omitempty"`
	Truck     int `json:"truck,omitempty" bson:"truck,omitempty"`
	Bus       int `json:"bus,omitempty" bson:"bus,omitempty"`
	Container int `json:"container,omitempty" bson:"container,omitempty"`
}

// DetectionEvent is one camera_detections row. Detections is nil when the
// row carries no decomposable payload; such rows are skipped by the
// aggregators, they do not count as zero samples.
type DetectionEvent struct {
	CameraID     string         `json:"camera_id" bson:"camera_id"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
	Detections   *VehicleCounts `json:"detections,omitempty" bson:"detections,omitempty"`
	TotalObjects int            `json:"total_objects" bson:"total_objects"`
}

// PredictionEvent is one camera_predictions row, a forward-looking point
// forecast of the total object count at a camera.
type PredictionEvent struct {
	CameraID          string    `json:"camera_id" bson:"camera_id"`
	ForecastTimestamp time.Time `json:"forecast_timestamp" bson:"forecast_timestamp"`
	PredictedTotal    float64   `json:"predicted_total_objects" bson:"predicted_total_objects"`
}

// Composition classifies the dominant vehicle type at a camera.
type Composition struct {
	Primary string `json:"primary"`
}

// VehicleCount carries the raw per-class sums accumulated over the live
// window, unweighted.
type VehicleCount struct {
	BigCar    int `json:"bigcar"`
	Car       int `json:"car"`
	Motorbike int `json:"motorbike"`
}

// CameraSnapshot is the live congestion view of one camera. It is derived
// per request and never persisted. SiScore is unbounded above.
type CameraSnapshot struct {
	ID            string       `json:"id"`
	SiScore       int          `json:"si_score"`
	Composition   Composition  `json:"composition"`
	ChangePercent int          `json:"change_percent"`
	VehicleCount  VehicleCount `json:"vehicle_count"`
}

// HourBucket is one hour of a daily chart. All fields are zero for hours
// without samples; per-event values are reported as rounded means, not
// cumulative sums, because detections are periodic snapshots of the same
// road, summing them would double-count stationary vehicles.
type HourBucket struct {
	TimeDisplay string `json:"time_display"`
	HourIndex   int    `json:"hour_index"`
	SiScore     int    `json:"si_score"`
	TotalCount  int    `json:"total_count"`
	Motorbike   int    `json:"motorbike"`
	Car         int    `json:"car"`
	BigCar      int    `json:"big_car"`
}

// ClassBreakdown is the until-now average and share of one vehicle class.
type ClassBreakdown struct {
	AvgCount   int `json:"avg_count"`
	Percentage int `json:"percentage"`
}

// VehicleBreakdown splits the until-now traffic by vehicle class.
type VehicleBreakdown struct {
	Motorbike ClassBreakdown `json:"motorbike"`
	Car       ClassBreakdown `json:"car"`
	BigCar    ClassBreakdown `json:"big_car"`
}

// DailySummary is the same-day-to-date roll-up of a daily chart.
type DailySummary struct {
	TotalRecords        int              `json:"total_records"`
	EstimatedCapacity   int              `json:"estimated_capacity"`
	AvgSiUntilNow       int              `json:"avg_si_until_now"`
	AvgVehiclesUntilNow int              `json:"avg_vehicles_until_now"`
	VehicleBreakdown    VehicleBreakdown `json:"vehicle_breakdown"`
}

// DailyStats is the full per-camera daily aggregation: a running summary
// plus exactly 24 hour buckets in ascending hour order.
type DailyStats struct {
	CameraID  string       `json:"camera_id"`
	Date      string       `json:"date"`
	Summary   DailySummary `json:"summary"`
	ChartData []HourBucket `json:"chart_data"`
}
