package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Idosegev23/homeruncms-sub000/internal/api"
	"github.com/Idosegev23/homeruncms-sub000/internal/cache"
	"github.com/Idosegev23/homeruncms-sub000/internal/config"
	"github.com/Idosegev23/homeruncms-sub000/internal/db"
	"github.com/Idosegev23/homeruncms-sub000/internal/matching"
	"github.com/Idosegev23/homeruncms-sub000/internal/queue"
	"github.com/Idosegev23/homeruncms-sub000/internal/services"
	"github.com/Idosegev23/homeruncms-sub000/internal/stats"
	"github.com/Idosegev23/homeruncms-sub000/internal/storage"
	"github.com/Idosegev23/homeruncms-sub000/internal/tasks"
	"github.com/Idosegev23/homeruncms-sub000/internal/whatsapp"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Shared messaging components: send stats, gateway client, outbound queue.
	tracker := stats.NewTracker(stats.NewRedisStore(redisClient), cfg.DailySendSoftLimit)
	gateway := whatsapp.NewClient(cfg, tracker)
	messageQueue := queue.New(
		queue.NewRedisStore(redisClient),
		queue.NewGatewaySender(gateway),
		cfg.QueueSendDelay,
		cfg.QueueRetryBackoff,
		cfg.QueueMaxAttempts,
	)

	weights := matching.WeightsForVariant(cfg.MatchWeightsVariant)
	if cfg.MatchWeightsFile != "" {
		weights, err = matching.LoadWeightsFromFile(cfg.MatchWeightsFile)
		if err != nil {
			log.Fatalf("Failed to load match weights from %s: %v", cfg.MatchWeightsFile, err)
		}
	}

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}

	taskClient := tasks.NewClient(redisClient)

	// Services needed by the task processor. The API router builds its own set.
	customerService := services.NewCustomerService(mongoDb)
	propertyService := services.NewPropertyService(mongoDb)
	inboxService := services.NewInboxService(mongoDb, customerService)
	notificationSource := whatsapp.NewPollingSource(gateway)

	taskProcessor := tasks.NewTaskProcessor(cfg, notificationSource, inboxService, propertyService, s3StorageService, messageQueue, taskClient)

	var wg sync.WaitGroup
	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server

	log.Printf("Starting %s in '%s' mode", cfg.AppName, cfg.RunMode)

	apiMode := func() {
		router := api.SetupRouter(cfg, mongoDb, api.RouterDeps{
			Gateway:        gateway,
			MessageQueue:   messageQueue,
			Tracker:        tracker,
			TaskClient:     taskClient,
			StorageService: s3StorageService,
			Weights:        weights,
		})
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: router,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("API ListenAndServe error: %v", err)
			}
			log.Println("API server stopped.")
		}()
	}

	bgMode := func() {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor, true)
		backgroundTaskSrv = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(mux); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			log.Println("Background task server stopped.")
		}()

		// Seed the recurring tasks; the handlers re-enqueue themselves.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := taskClient.EnqueueContext(ctx, tasks.NewNotificationPollTask()); err != nil {
			log.Printf("Failed to seed notification poll task: %v", err)
		}
		if _, err := taskClient.EnqueueContext(ctx, tasks.NewQueueDrainTask()); err != nil {
			log.Printf("Failed to seed queue drain task: %v", err)
		}
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified: %s.", cfg.RunMode)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal: %s. Shutting down gracefully...", sig)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	wg.Wait()
	log.Println("Server gracefully stopped")
}
