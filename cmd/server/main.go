package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/digkill/artrelay/internal/api"
	"github.com/digkill/artrelay/internal/config"
	"github.com/digkill/artrelay/internal/database"
	"github.com/digkill/artrelay/internal/openai"
	"github.com/digkill/artrelay/internal/razorpay"
	"github.com/digkill/artrelay/internal/repository"
	"github.com/digkill/artrelay/internal/service"
	"github.com/digkill/artrelay/internal/storage"
	"github.com/digkill/artrelay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	uploads, err := newUploadStore(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	paymentClient := razorpay.NewClient(paymentConfig(cfg), logr)

	var (
		vision    service.VisionModel
		generator service.ImageModel
	)
	if cfg.AIEnabled() {
		aiClient := openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			VisionModel: cfg.OpenAIVisionModel,
			ImageModel:  cfg.OpenAIImageModel,
			Timeout:     cfg.RequestTimeout,
		}, logr)
		vision, generator = aiClient, aiClient
	} else {
		logr.Warn("OPENAI_API_KEY is not set, image transformation is disabled")
	}

	userRepo := repository.NewUserRepository(db)
	imageRepo := repository.NewImageRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	userService := service.NewUserService(userRepo, imageRepo, transactionRepo)
	paymentService := service.NewPaymentService(logr, paymentClient, userRepo, transactionRepo, cfg.PaymentCurrency)
	transformService := service.NewTransformService(service.TransformConfig{
		PromptMaxChars: cfg.PromptMaxChars,
		PromptTruncate: cfg.PromptTruncate,
		CleanupDelay:   cfg.UploadCleanup,
	}, logr, userRepo, imageRepo, transactionRepo, uploads, vision, generator)

	apiCfg := api.Config{
		Addr:                  cfg.ListenAddr,
		Production:            cfg.IsProduction(),
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
		UploadRateLimitPerMin: cfg.UploadRateLimitPerMin,
		MetricsUsername:       cfg.MetricsUsername,
		MetricsPassword:       cfg.MetricsPassword,
	}
	if cfg.StorageDriver == config.StorageDriverDisk {
		apiCfg.UploadDir = cfg.UploadDir
	}

	server := api.NewServer(apiCfg, logr, db, userService, paymentService, transformService)
	logr.Info("starting artrelay",
		slog.String("env", cfg.AppEnv),
		slog.String("storage", cfg.StorageDriver),
		slog.Bool("ai_enabled", cfg.AIEnabled()),
	)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("http server stopped", "err", err)
	}
}

func paymentConfig(cfg config.Config) razorpay.Config {
	return razorpay.Config{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		BaseURL:   cfg.RazorpayBaseURL,
		Timeout:   cfg.RequestTimeout,
	}
}

func newUploadStore(cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.StorageDriverS3 {
		return storage.NewS3Store(storage.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBase,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
	}
	return storage.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL+"/uploads")
}
