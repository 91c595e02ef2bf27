package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/handlers"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/logger"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/metrics"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/notify"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/attachment"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/auth"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/bid"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/services/project"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	base := logger.New(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component(base, "main")

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN, logger.Component(base, "gorm"))
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer db.Close(gdb)
	if err := db.Migrate(gdb); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	hub := realtime.NewHub(logger.Component(base, "hub"))
	go hub.Run(ctx)

	sinks := []notify.Sink{
		&notify.InboxSink{DB: gdb},
		notify.NewMailSink(cfg.Mail, logger.Component(base, "mail")),
	}

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb = realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger.Component(base, "redis"))
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("redis ping")
		}
		relay := &realtime.Relay{RDB: rdb, Hub: hub, Log: logger.Component(base, "relay")}
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.WithError(err).Error("notification relay stopped")
			}
		}()
		sinks = append(sinks, &notify.RedisSink{RDB: rdb})
	} else {
		log.Info("redis disabled, pushing notifications to local sockets only")
		sinks = append(sinks, &notify.HubSink{Hub: hub})
	}

	dispatcher := notify.NewDispatcher(logger.Component(base, "notify"), notify.Options{
		QueueSize: cfg.NotifyQueueSize,
		OnResult:  m.NotificationResult,
		OnDrop:    m.NotificationDropped,
	}, sinks...)
	dispatcher.Start()

	storage, err := attachment.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		log.WithError(err).Fatal("prepare upload dir")
	}
	files := attachment.NewService(gdb, storage, cfg.UploadMaxMB, cfg.AppBaseURL, logger.Component(base, "attachments"))

	projects := project.NewService(gdb, dispatcher, logger.Component(base, "projects"))
	projects.Observer = m
	projects.Blobs = files
	projects.BaseURL = cfg.AppBaseURL

	bids := bid.NewService(gdb, dispatcher, logger.Component(base, "bids"))
	bids.Observer = m

	authSvc := auth.NewService(gdb, cfg.JWTSecret, cfg.JWTExpiresMin, logger.Component(base, "auth"))

	srv := &handlers.Server{
		DB:          gdb,
		Auth:        authSvc,
		Projects:    projects,
		Bids:        bids,
		Attachments: files,
		Hub:         hub,
		Log:         logger.Component(base, "http"),
	}
	if cfg.GoogleEnabled() {
		srv.Google = &handlers.GoogleOAuthHandler{
			Auth:            authSvc,
			GoogleClientID:  cfg.GoogleClientID,
			GoogleSecret:    cfg.GoogleSecret,
			GoogleRedirect:  cfg.GoogleRedirect,
			FrontendBaseURL: cfg.FrontendBaseURL,
			Log:             logger.Component(base, "oauth"),
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger.Component(base, "ratelimit"))
	limiter.StartCleanup(ctx, time.Minute)
	srv.Limiter = limiter

	// room for several files per request
	app := handlers.NewApp(srv.Log, (cfg.UploadMaxMB*4+1)<<20)
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders: "Content-Length",
	}))
	app.Use(middleware.RequestLogger(srv.Log))
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Static("/uploads", cfg.UploadDir)

	srv.Mount(app)
	app.Use(handlers.NotFound)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	}()

	log.WithField("port", cfg.AppPort).Info("listening")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.WithError(err).Error("http server stopped")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		log.WithError(err).Warn("notification queue not fully drained")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info("bye")
}
