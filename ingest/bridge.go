// Package ingest bridges detection messages from the analysis workers'
// MQTT topic into the append-only event log. The aggregation core never
// depends on it; it only fills the store the core reads.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/datapolisx/trafficserver/models"
)

const (
	connectTimeout = 10 * time.Second
	insertTimeout  = 5 * time.Second

	detectionsCollection = "camera_detections"
)

var (
	errMissingCameraID  = errors.New("detection message without camera_id")
	errMissingTimestamp = errors.New("detection message without timestamp_utc")
)

// Config locates the broker and topic.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

// Bridge subscribes to the detection topic and appends rows to the event
// log. Malformed messages are dropped and logged, never fatal.
type Bridge struct {
	client     mqtt.Client
	detections *mongo.Collection
	topic      string
}

// NewBridge connects to the broker. The Mongo client is shared with the
// serving path; the bridge only ever inserts.
func NewBridge(cfg Config, mongoClient *mongo.Client, dbName string) (*Bridge, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if ok := token.WaitTimeout(connectTimeout); !ok {
		return nil, fmt.Errorf("mqtt connect timeout to %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	return &Bridge{
		client:     client,
		detections: mongoClient.Database(dbName).Collection(detectionsCollection),
		topic:      cfg.Topic,
	}, nil
}

// Start subscribes to the detection topic.
func (b *Bridge) Start() error {
	token := b.client.Subscribe(b.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		b.handleMessage(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", b.topic, err)
	}
	log.Info().Str("topic", b.topic).Msg("Ingest bridge subscribed")
	return nil
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}

func (b *Bridge) handleMessage(topic string, payload []byte) {
	event, err := ParseDetectionMessage(payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Dropping malformed detection message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	if _, err := b.detections.InsertOne(ctx, event); err != nil {
		log.Error().Err(err).Str("cameraId", event.CameraID).Msg("Failed to insert detection event")
		return
	}
	log.Debug().Str("cameraId", event.CameraID).Int("totalObjects", event.TotalObjects).Msg("Detection event ingested")
}

// detectionMessage is the worker payload. Fields outside this shape are
// discarded on decode.
type detectionMessage struct {
	CameraID     string                `json:"camera_id"`
	TimestampUTC string                `json:"timestamp_utc"`
	Detections   *models.VehicleCounts `json:"detections"`
	TotalObjects int                   `json:"total_objects"`
}

// ParseDetectionMessage validates one worker payload into an event row.
// A missing camera id or timestamp rejects the message; a missing
// detections payload does not, the row is stored without one and the
// aggregators skip it.
func ParseDetectionMessage(payload []byte) (models.DetectionEvent, error) {
	var msg detectionMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.DetectionEvent{}, fmt.Errorf("decoding detection message: %w", err)
	}
	if msg.CameraID == "" {
		return models.DetectionEvent{}, errMissingCameraID
	}
	if msg.TimestampUTC == "" {
		return models.DetectionEvent{}, errMissingTimestamp
	}
	createdAt, err := time.Parse(time.RFC3339, msg.TimestampUTC)
	if err != nil {
		return models.DetectionEvent{}, fmt.Errorf("parsing timestamp_utc %q: %w", msg.TimestampUTC, err)
	}

	return models.DetectionEvent{
		CameraID:     msg.CameraID,
		CreatedAt:    createdAt.UTC(),
		Detections:   msg.Detections,
		TotalObjects: msg.TotalObjects,
	}, nil
}
