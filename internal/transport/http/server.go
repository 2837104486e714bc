package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"postify/internal/cache"
	"postify/internal/config"
	"postify/internal/database"
	"postify/internal/handler"
	"postify/internal/lib/sl"
	"postify/internal/model"
	"postify/internal/queue"
	"postify/internal/redis"
	"postify/internal/repository"
	"postify/internal/scheduler"
	"postify/internal/service"
	authmw "postify/internal/transport/http/middleware"
	"postify/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// Run wires every component and serves until SIGINT or SIGTERM.
func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := sl.New(cfg.Env)
	log.Info("starting postify", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	// 3. Connect to Redis
	rdb, err := redis.NewClient(cfg.RedisURL, log)
	if err != nil {
		return err
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		return err
	}

	// 4. Repositories
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	txr := repository.NewTransactor(db)

	// 5. Cache and events
	publisher := queue.NewPublisher(rdb.Client, log)
	blogCache := cache.NewBlogCache(rdb.Client, cfg.BlogCacheTTL, log)
	viewBuffer := cache.NewViewBuffer(rdb.Client)

	// 6. Services
	subscriptionService := service.NewSubscriptionService(subRepo, log)
	userService := service.NewUserService(userRepo)
	userService.SetPublisher(publisher, log)
	authService := service.NewAuthService(refreshTokenRepo, cfg, log)
	postService := service.NewPostService(postRepo, userRepo, subscriptionService, txr, publisher, log)
	blogService := service.NewBlogService(userRepo, postRepo, blogCache, publisher, log)

	var mediaService handler.MediaService
	switch media, err := service.NewMediaService(ctx, cfg, log); {
	case errors.Is(err, model.ErrStorageDisabled):
		log.Warn("object storage not configured, uploads disabled")
	case err != nil:
		return err
	default:
		mediaService = media
	}

	var stripeClient service.StripeClient
	if cfg.StripeSecretKey != "" {
		stripeClient = service.NewStripeClient(cfg.StripeSecretKey)
	} else {
		log.Warn("stripe not configured, billing disabled")
	}
	billingService := service.NewBillingService(stripeClient, subscriptionService, userRepo, cfg, log)

	// 7. Background workers
	if cfg.WorkerEnabled {
		manager := worker.NewManager(
			queue.NewConsumer(rdb.Client, log),
			worker.NewHandler(blogCache, viewBuffer, log),
			worker.ManagerConfig{WorkerCount: cfg.WorkerCount},
			log,
		)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("start workers: %w", err)
		}
		defer manager.Stop()
	}

	jobs := scheduler.NewJobs(subscriptionService, viewBuffer, postRepo, authService, cfg.TokenPurgeGrace, log)
	cronScheduler := scheduler.New(jobs, cfg, log)
	if err := cronScheduler.Start(); err != nil {
		return err
	}
	defer func() { <-cronScheduler.Stop().Done() }()

	// 8. Setup Server
	router := NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(userService, authService, cfg.Env != config.EnvLocal, log),
		UserHandler:    handler.NewUserHandler(userService, mediaService, log),
		PostHandler:    handler.NewPostHandler(postService, log),
		BlogHandler:    handler.NewBlogHandler(blogService, log),
		UploadHandler:  handler.NewUploadHandler(mediaService, log),
		BillingHandler: handler.NewBillingHandler(billingService, log),
		Tokens:         authService,
		RateLimiter:    authmw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", sl.Err(err))
		return err
	}
	return nil
}
