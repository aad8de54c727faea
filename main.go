package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/datapolisx/trafficserver/api"
	"github.com/datapolisx/trafficserver/db"
	"github.com/datapolisx/trafficserver/images"
	"github.com/datapolisx/trafficserver/ingest"
	"github.com/datapolisx/trafficserver/traffic"
)

func getFolder(s string) string {
	err := os.MkdirAll(s, os.ModePerm)
	if err != nil {
		fmt.Printf("Unable to create folder %s, %v", s, err)
	}
	return s
}

func getApplicationName() string {
	return "traffic-server"
}

func getLogFolder() string {
	return getFolder(filepath.Join("logs", getApplicationName()))
}

var GitCommit string

func getVersion() string {
	if GitCommit != "" {
		return GitCommit
	}
	GitCommit = "unknown"
	buildDate := ""

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	modified := false

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			GitCommit = setting.Value
		case "vcs.time":
			buildDate = setting.Value
		case "vcs.modified":
			modified = true
		}
	}
	if modified {
		GitCommit += "+CHANGES"
	}
	if buildDate != "" {
		GitCommit += " " + buildDate
	}
	return GitCommit
}

func main() {
	// Local overrides; absent .env is fine.
	_ = godotenv.Load()

	cmd := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "traffic-server",
		Version:               getVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Value: "127.0.0.1",
				Usage: "The host address for the server",
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "The port number for the server",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "mongo-connection-string",
				Value:   "mongodb://127.0.0.1:27017/",
				Usage:   "The connection string for the MongoDB server",
				Sources: cli.EnvVars("MONGO_CONNECTION_STRING"),
			},
			&cli.StringFlag{
				Name:    "mongo-database",
				Value:   db.DefaultDatabase,
				Usage:   "The database holding the traffic collections",
				Sources: cli.EnvVars("MONGO_DATABASE"),
			},
			&cli.IntFlag{
				Name:    "window-minutes",
				Value:   10,
				Usage:   "The live aggregation look-back window in minutes",
				Sources: cli.EnvVars("TRAFFIC_WINDOW_MINUTES"),
			},
			&cli.FloatFlag{
				Name:    "capacity-factor",
				Value:   traffic.DefaultCapacityFactor,
				Usage:   "The capacity inflation factor of the live congestion score",
				Sources: cli.EnvVars("TRAFFIC_CAPACITY_FACTOR"),
			},
			&cli.FloatFlag{
				Name:    "daily-capacity-factor",
				Value:   traffic.DefaultDailyCapacityFactor,
				Usage:   "The capacity inflation factor of the daily chart score",
				Sources: cli.EnvVars("TRAFFIC_DAILY_CAPACITY_FACTOR"),
			},
			&cli.StringFlag{
				Name:    "mqtt-broker",
				Usage:   "The MQTT broker URL of the detection ingest topic; empty disables ingest",
				Sources: cli.EnvVars("MQTT_BROKER"),
			},
			&cli.StringFlag{
				Name:    "mqtt-topic",
				Value:   "traffic/detections/#",
				Usage:   "The MQTT topic filter carrying detection messages",
				Sources: cli.EnvVars("MQTT_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "mqtt-username",
				Sources: cli.EnvVars("MQTT_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "mqtt-password",
				Sources: cli.EnvVars("MQTT_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "minio-endpoint",
				Usage:   "The object store endpoint holding camera frames; empty disables the frame endpoint",
				Sources: cli.EnvVars("MINIO_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "minio-access-key",
				Sources: cli.EnvVars("MINIO_ACCESS_KEY"),
			},
			&cli.StringFlag{
				Name:    "minio-secret-key",
				Sources: cli.EnvVars("MINIO_SECRET_KEY"),
			},
			&cli.StringFlag{
				Name:    "minio-bucket",
				Value:   "images",
				Sources: cli.EnvVars("MINIO_BUCKET"),
			},
			&cli.StringFlag{
				Name:  "logfile",
				Value: fmt.Sprintf("%s.log", filepath.Join(getLogFolder(), getApplicationName())),
				Usage: "The log file path for the rotating logger",
			},
			&cli.StringFlag{
				Name:  "logLevel",
				Value: "debug",
				Usage: "The log level",
			},
		},
		Action: startServer,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}

func startServer(ctx context.Context, cmd *cli.Command) error {
	err, bufferWriter := initLogger(cmd.String("logfile"), cmd.String("logLevel"))
	if err != nil {
		return err
	}
	defer bufferWriter.Close()
	address := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))

	mongoClient, err := db.GetMongoClient(cmd.String("mongo-connection-string"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to MongoDB")
		return err
	}
	defer mongoClient.Disconnect(ctx) //nolint:errcheck

	dbName := cmd.String("mongo-database")
	store := db.NewEventStore(mongoClient, dbName)

	cfg := traffic.DefaultConfig()
	cfg.Window = time.Duration(cmd.Int("window-minutes")) * time.Minute
	cfg.CapacityFactor = cmd.Float("capacity-factor")
	cfg.DailyCapacityFactor = cmd.Float("daily-capacity-factor")
	aggregator := traffic.NewAggregator(store, cfg)

	var frameStore *images.Store
	if endpoint := cmd.String("minio-endpoint"); endpoint != "" {
		frameStore, err = images.New(images.Config{
			Endpoint:  endpoint,
			AccessKey: cmd.String("minio-access-key"),
			SecretKey: cmd.String("minio-secret-key"),
			Bucket:    cmd.String("minio-bucket"),
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to frame store")
			return err
		}
	}

	if broker := cmd.String("mqtt-broker"); broker != "" {
		bridge, err := ingest.NewBridge(ingest.Config{
			Broker:   broker,
			ClientID: getApplicationName(),
			Topic:    cmd.String("mqtt-topic"),
			Username: cmd.String("mqtt-username"),
			Password: cmd.String("mqtt-password"),
		}, mongoClient, dbName)
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to MQTT broker")
			return err
		}
		defer bridge.Close()
		if err := bridge.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to subscribe to detection topic")
			return err
		}
	}

	app := fiber.New(fiber.Config{
		ServerHeader: "DatapolisX",
		AppName:      fmt.Sprintf("Traffic Server %v", getVersion()),
	})
	app.Use(fiberzerolog.New(fiberzerolog.Config{
		Logger: &log.Logger,
	}))

	server := api.NewServer(aggregator, frameStore)
	server.Register(app)

	go func() {
		log.Info().Msgf("Starting server at %s", address)
		if err := app.Listen(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()
	waitForTerminationRequest()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	log.Info().Msg("Starting shutdown")
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	log.Info().Msg("Server shut down gracefully")
	return nil
}

// waitForTerminationRequest blocks until a termination signal arrives.
func waitForTerminationRequest() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down server...")
}

// initLogger initializes the logger with zerolog, diode, and a rotating logger.
func initLogger(logFile string, logLevel string) (error, diode.Writer) {
	rotatingLogger := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10,   // Max size in MB before rotation
		MaxBackups: 3,    // Max number of old log files to keep
		MaxAge:     28,   // Max number of days to retain old log files
		Compress:   true, // Compress rotated files
	}

	// Wrap Lumberjack with Diode for non-blocking logging
	bufferedWriter := diode.NewWriter(rotatingLogger, 1000, 0, func(missed int) {
		fmt.Printf("Dropped %d log messages due to buffer overflow\n", missed)
	})

	log.Logger = zerolog.New(bufferedWriter).With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		fmt.Printf("Invalid log level: %s\n", logLevel)
		return err, bufferedWriter
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msgf("App started %s %s", getApplicationName(), getVersion())
	return nil, bufferedWriter
}
