package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/callsplit/config"
	"github.com/yoockh/callsplit/internal/api/handlers"
	"github.com/yoockh/callsplit/internal/api/middleware"
	"github.com/yoockh/callsplit/internal/api/routes"
	"github.com/yoockh/callsplit/internal/cache"
	"github.com/yoockh/callsplit/internal/health"
	"github.com/yoockh/callsplit/internal/logger"
	"github.com/yoockh/callsplit/internal/media"
	"github.com/yoockh/callsplit/internal/providers/diarizer"
	"github.com/yoockh/callsplit/internal/providers/llm"
	"github.com/yoockh/callsplit/internal/providers/stt"
	mongorepo "github.com/yoockh/callsplit/internal/repositories/mongo"
	pgrepo "github.com/yoockh/callsplit/internal/repositories/postgres"
	"github.com/yoockh/callsplit/internal/services"
	"github.com/yoockh/callsplit/internal/storage"
	"github.com/yoockh/callsplit/internal/workers"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("MongoDB index error")
	}
	log.Info("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	if err := config.MigratePostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL migration error")
	}
	log.Info("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		log.WithError(err).Fatal("work dir")
	}

	// Health + monitoring
	healthSvc := health.NewService(
		health.NewChecker(cfg),
		cache.NewRedisCache(config.RedisClient, "callsplit:"),
		cfg.HealthCacheTTL, cfg.HealthTimeout, log,
	)
	monitor := services.NewMonitoringService(pgrepo.NewDiarizationLogRepo(config.PostgresDB), log)

	// Providers
	dp, err := diarizer.FromConfig(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("diarizer init error")
	}
	tr, err := stt.FromConfig(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("transcriber init error")
	}

	diarSvc := services.NewDiarizationService(dp, monitor, cfg.DiarizationTimeout, log)
	transSvc := services.NewTranscriptionService(tr, stt.Options{Model: cfg.WhisperModel, Language: cfg.WhisperLanguage}, log)
	recSvc := services.NewRecordingService(
		mongorepo.NewRecordingRepo(config.MongoDatabase(cfg.MongoDB)),
		&workers.StreamQueue{Redis: config.RedisClient},
		cfg.AudioRoot,
		cfg.WhisperLanguage,
	)

	pool := &workers.RecordingWorkerPool{
		Redis:         config.RedisClient,
		Recordings:    recSvc,
		Diarization:   diarSvc,
		Transcription: transSvc,
		Media:         media.New(cfg.FFmpegBin, cfg.FFprobeBin, cfg.WorkDir),
		Logger:        log,
		NumWorkers:    cfg.Workers,
	}

	// Optional stages
	if cfg.GCPProjectID != "" {
		gem, err := llm.NewVertexGemini(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.VertexModel)
		if err != nil {
			log.WithError(err).Warn("vertex unavailable, summaries disabled")
		} else {
			defer gem.Close()
			pool.Summary = services.NewSummaryService(gem)
		}
	}
	var signer storage.Signer
	if cfg.GCSBucket != "" {
		up, err := storage.NewGCSUploader(ctx, cfg.GCSBucket)
		if err != nil {
			log.WithError(err).Warn("gcs unavailable, archiving disabled")
		} else {
			defer up.Close()
			pool.Archiver = storage.NewArchiver(up)
			signer = up
		}
	}

	go func() {
		if err := pool.Run(ctx); err != nil {
			log.WithError(err).Error("worker pool stopped")
			stop()
		}
	}()

	// Warm the health cache so the first request does not pay for it.
	go func() {
		if healthSvc.IsAvailable(ctx) {
			return
		}
		log.WithFields(logrus.Fields{"provider": dp.Name()}).Warn("diarization degraded: full audio will be transcribed")
	}()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Health:     handlers.NewHealthHandler(healthSvc, monitor),
		Recordings: handlers.NewRecordingHandler(recSvc, signer),
		WS:         handlers.NewWSHandler(recSvc, &workers.RedisSubscriber{Redis: config.RedisClient}),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("port", cfg.Port).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server error")
	}
}
