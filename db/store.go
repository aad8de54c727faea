package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/datapolisx/trafficserver/models"
)

const (
	// DefaultDatabase is the database holding the traffic collections.
	DefaultDatabase = "trafficDB"

	detectionsCollection  = "camera_detections"
	predictionsCollection = "camera_predictions"
)

// EventStore implements traffic.Store over MongoDB. The event log is
// externally owned and append-only; every method is a read.
type EventStore struct {
	client *mongo.Client
	dbName string
}

// NewEventStore wraps a connected client. dbName of "" selects
// DefaultDatabase.
func NewEventStore(client *mongo.Client, dbName string) *EventStore {
	if dbName == "" {
		dbName = DefaultDatabase
	}
	return &EventStore{client: client, dbName: dbName}
}

func (s *EventStore) detections() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(detectionsCollection)
}

func (s *EventStore) predictions() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(predictionsCollection)
}

func cameraFilter(cameraID string) bson.M {
	if cameraID == "" {
		return bson.M{}
	}
	return bson.M{"camera_id": cameraID}
}

// LatestDetectionTime returns the newest created_at among matching
// detection events. found is false when the collection has no match.
func (s *EventStore) LatestDetectionTime(ctx context.Context, cameraID string) (time.Time, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"created_at": 1})

	var row struct {
		CreatedAt time.Time `bson:"created_at"`
	}
	err := s.detections().FindOne(ctx, cameraFilter(cameraID), opts).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return row.CreatedAt, true, nil
}

// DetectionsInRange returns every matching detection event with
// created_at in [from, to].
func (s *EventStore) DetectionsInRange(ctx context.Context, cameraID string, from, to time.Time) ([]models.DetectionEvent, error) {
	filter := cameraFilter(cameraID)
	filter["created_at"] = bson.M{"$gte": from, "$lte": to}

	cursor, err := s.detections().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx) //nolint:errcheck

	var events []models.DetectionEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Capacities returns the historical maximum total_objects per camera,
// unbounded look-back.
func (s *EventStore) Capacities(ctx context.Context, cameraID string) (map[string]int, error) {
	pipeline := mongo.Pipeline{}
	if cameraID != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: cameraFilter(cameraID)}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$camera_id"},
		{Key: "max_total", Value: bson.D{{Key: "$max", Value: "$total_objects"}}},
	}}})

	cursor, err := s.detections().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx) //nolint:errcheck

	var rows []capacityRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	caps := make(map[string]int, len(rows))
	for _, row := range rows {
		caps[row.CameraID] = row.MaxTotal
	}
	return caps, nil
}

type capacityRow struct {
	CameraID string `bson:"_id"`
	MaxTotal int    `bson:"max_total"`
}

// NearestPredictions returns, per camera, the predicted total of the
// earliest forecast strictly after the given time. The sort before the
// $first group breaks ties on the earliest timestamp.
func (s *EventStore) NearestPredictions(ctx context.Context, cameraID string, after time.Time) (map[string]float64, error) {
	match := cameraFilter(cameraID)
	match["forecast_timestamp"] = bson.M{"$gt": after}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "camera_id", Value: 1},
			{Key: "forecast_timestamp", Value: 1},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$camera_id"},
			{Key: "predicted", Value: bson.D{{Key: "$first", Value: "$predicted_total_objects"}}},
		}}},
	}

	cursor, err := s.predictions().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx) //nolint:errcheck

	var rows []predictionRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	preds := make(map[string]float64, len(rows))
	for _, row := range rows {
		preds[row.CameraID] = row.Predicted
	}
	return preds, nil
}

type predictionRow struct {
	CameraID  string  `bson:"_id"`
	Predicted float64 `bson:"predicted"`
}
