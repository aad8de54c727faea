// Package images reads camera frames from the object store the ingest
// workers upload into.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// ErrNoFrames reports a camera with no stored frames.
var ErrNoFrames = errors.New("no frames stored for camera")

// Config locates the frame bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store serves the latest stored frame per camera. Frames are uploaded by
// the ingest workers as image_<cameraID>_<YYYYMMDD_HHMMSS>.jpeg, so the
// lexically greatest key under a camera's prefix is the newest frame.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the object store.
func New(cfg Config) (*Store, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("object store access key / secret key not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("Connected to frame store")
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// LatestFrame returns the newest frame of a camera, or ErrNoFrames.
func (s *Store) LatestFrame(ctx context.Context, cameraID string) ([]byte, error) {
	prefix := fmt.Sprintf("image_%s_", cameraID)

	var latest string
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if object.Err != nil {
			return nil, fmt.Errorf("listing frames for %s: %w", cameraID, object.Err)
		}
		if object.Key > latest {
			latest = object.Key
		}
	}
	if latest == "" {
		return nil, ErrNoFrames
	}

	object, err := s.client.GetObject(ctx, s.bucket, latest, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching frame %s: %w", latest, err)
	}
	defer object.Close() //nolint:errcheck

	frame, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("reading frame %s: %w", latest, err)
	}
	return frame, nil
}
