package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voltfox-backend/config"
	"voltfox-backend/internal/api"
	"voltfox-backend/internal/db"
	"voltfox-backend/internal/device"
	"voltfox-backend/internal/ingest"
	"voltfox-backend/internal/logger"
	"voltfox-backend/internal/mw"
	"voltfox-backend/internal/notification"
	"voltfox-backend/internal/snapshot"
	"voltfox-backend/internal/store"
	"voltfox-backend/internal/vision"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Environment, cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("configuration loaded successfully", zap.String("path", configPath))

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, log.Named(logger.NameStore))
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)
	log.Info("data store initialized", zap.String("driver", cfg.Database.Driver))

	// Create a context that is cancelled on SIGINT or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	// Notification channels
	var webpushOptions *webpush.Options
	var pushSender notification.PushSender
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pushSender = notification.NewWebPushSender(webpushOptions)
	} else {
		log.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	var emailSender notification.EmailSender
	if cfg.Email.Enabled {
		sender, err := notification.NewSMTPSender(cfg.Email)
		if err != nil {
			log.Fatal("failed to configure email sender", zap.Error(err))
		}
		emailSender = sender
	}

	notificationLog := log.Named(logger.NameNotification)
	workerPool := notification.NewWorkerPool(notification.Options{
		Size:              cfg.WorkerPool.Size,
		QueueSize:         cfg.WorkerPool.QueueSize,
		FanoutConcurrency: cfg.WorkerPool.FanoutConcurrency,
		WarrantyWindow:    time.Duration(cfg.Snapshot.WarrantyReminderDays) * 24 * time.Hour,
		DrainTimeout:      10 * time.Second,
	}, appStore, pushSender, emailSender, notificationLog)
	workerPool.Start(workerCtx)
	log.Info("notification worker pool started", zap.Int("size", cfg.WorkerPool.Size))

	devices := device.NewService(appStore, workerPool, log)

	// Device recognition
	var recognizer api.Recognizer
	if cfg.Vision.Enabled {
		visionLog := log.Named(logger.NameVision)
		recognizer = vision.NewService(vision.NewClient(cfg.Vision, visionLog), newRecognitionCache(ctx, cfg, visionLog), visionLog)
	}

	// Background snapshots and warranty reminders
	scheduler := snapshot.NewScheduler(cfg.Snapshot, appStore, workerPool, log.Named(logger.NameSnapshot))
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()

	// Telemetry ingestion
	var ingester *ingest.Ingester
	if cfg.MQTT.Enabled {
		ingestLog := log.Named(logger.NameIngest)
		client := ingest.NewClient(cfg.MQTT, ingestLog)
		if err := client.Connect(); err != nil {
			log.Fatal("failed to connect to mqtt broker", zap.Error(err))
		}
		ingester = ingest.NewIngester(devices, cfg.MQTT.Topic, cfg.MQTT.QoS, ingestLog)
		if err := ingester.Start(ctx, client); err != nil {
			log.Fatal("failed to start telemetry ingestion", zap.Error(err))
		}
	}

	// Initialize router
	router := api.NewRouter(api.Deps{
		Store:      appStore,
		Devices:    devices,
		Recognizer: recognizer,
		WebPush:    webpushOptions,
		Verifier:   mw.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Server:     cfg.Server,
		Vision:     cfg.Vision,
		Log:        log.Named(logger.NameAPI),
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Block until a signal is received.
	<-ctx.Done()
	log.Info("shutdown signal received, stopping services")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server Shutdown", zap.Error(err))
	}
	if ingester != nil {
		ingester.Stop()
	}

	<-schedulerDone

	// Every producer has stopped. Cancelling the workers makes them drain
	// what is still queued before Wait returns.
	cancelWorkers()
	workerPool.Wait()

	log.Info("server gracefully stopped")
}

// newRecognitionCache uses Redis when configured and reachable so replicas
// share results, and process memory otherwise.
func newRecognitionCache(ctx context.Context, cfg *config.Config, log *zap.Logger) vision.Cache {
	if cfg.Cache.RedisAddr == "" {
		return vision.NewMemoryCache(cfg.Vision.CacheTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, using in-memory recognition cache",
			zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		client.Close()
		return vision.NewMemoryCache(cfg.Vision.CacheTTL)
	}
	return vision.NewRedisCache(client, cfg.Vision.CacheTTL)
}
