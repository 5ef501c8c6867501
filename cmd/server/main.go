// Package main runs the ticketing HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tixora/backend/config"
	"github.com/tixora/backend/internal/analytics"
	"github.com/tixora/backend/internal/auth"
	"github.com/tixora/backend/internal/checkin"
	"github.com/tixora/backend/internal/emaillogs"
	"github.com/tixora/backend/internal/events"
	"github.com/tixora/backend/internal/mailer"
	"github.com/tixora/backend/internal/metrics"
	"github.com/tixora/backend/internal/middleware"
	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/internal/realtime"
	"github.com/tixora/backend/internal/registrations"
	"github.com/tixora/backend/internal/team"
	"github.com/tixora/backend/internal/tickets"
	"github.com/tixora/backend/internal/worker"
	"github.com/tixora/backend/pkg/database"
	applog "github.com/tixora/backend/pkg/logger"
	"github.com/tixora/backend/pkg/queue"
	"github.com/tixora/backend/pkg/redis"
	"github.com/tixora/backend/pkg/response"
	"github.com/tixora/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := applog.New(applog.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var (
		images events.ImagePresigner
		cards  tickets.CardCache
	)
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ImagesBucket:         cfg.AWS.ImagesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			images = s3Client
			cards = storage.TicketCards{S3: s3Client}
		}
	}

	m := metrics.New()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events and team
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, images, logger)
	teamHandler := team.NewHandler(team.NewRepository(pool), authRepo, logger)

	// Registrations and tickets
	registrationRepo := registrations.NewRepository(pool)
	issuer := registrations.NewIssuer(registrationRepo, eventRepo, tickets.NewMinter(), jobQueue, m, logger)
	registrationHandler := registrations.NewHandler(issuer, registrationRepo, cfg.Server.AppURL, logger)
	ticketHandler := tickets.NewHandler(registrationRepo, eventRepo, cards, cfg.Ticket.QRSize, logger)

	// Check-in
	verifier := checkin.NewVerifier(registrationRepo, hub, m, logger)
	checkinHandler := checkin.NewHandler(verifier, cfg.Ticket.MaxImageUploadKB, logger)

	// Email and stats
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo, registrationRepo, jobQueue, logger)
	analyticsHandler := analytics.NewHandler(pool, registrationRepo, hub, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(m))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Public: event pages, registration and tickets
	router.GET("/public/events", eventHandler.ListPublished)
	router.GET("/public/events/:slug", eventHandler.GetBySlug)
	router.POST("/events/:id/register", registrationHandler.Register)
	router.GET("/tickets/:code", ticketHandler.Get)
	router.GET("/tickets/:code/qr.png", ticketHandler.QR)
	router.GET("/tickets/:code/image.png", ticketHandler.Card)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	staff := events.RequireEventAccess(eventRepo, models.TeamRoleAdmin, models.TeamRoleStaff)
	admins := events.RequireEventAccess(eventRepo, models.TeamRoleAdmin)
	owner := events.RequireEventAccess(eventRepo)

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)
		api.GET("/dashboard/stats", analyticsHandler.Dashboard)

		api.GET("/events", eventHandler.ListMine)
		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", staff, eventHandler.GetByID)
		api.PATCH("/events/:id", admins, eventHandler.Update)
		api.PATCH("/events/:id/publish", admins, eventHandler.Publish)
		api.DELETE("/events/:id", owner, eventHandler.Delete)
		api.POST("/events/:id/image-upload-url", admins, eventHandler.ImageUploadURL)
		api.GET("/events/:id/stats", staff, analyticsHandler.GetByEvent)

		api.GET("/events/:id/team", admins, teamHandler.List)
		api.POST("/events/:id/team", admins, teamHandler.Add)
		api.DELETE("/events/:id/team/:userId", admins, teamHandler.Remove)

		api.GET("/events/:id/registrations", staff, registrationHandler.List)
		api.POST("/events/:id/waitlist/:registrationId/approve", admins, registrationHandler.ApproveWaitlist)
		api.DELETE("/events/:id/waitlist/:registrationId", admins, registrationHandler.RejectWaitlist)

		api.POST("/events/:id/checkin", staff, checkinHandler.Verify)
		api.POST("/events/:id/checkin/image", staff, checkinHandler.VerifyImage)
		api.POST("/events/:id/checkin/bulk", admins, checkinHandler.Bulk)

		api.GET("/events/:id/emails", admins, emailLogsHandler.ListByEvent)
		api.POST("/events/:id/emails/resend", admins, emailLogsHandler.Resend)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, verifier, eventRepo, jwtService, realtime.ScanConfig{
		Interval: cfg.Ticket.ScanInterval,
		Cooldown: cfg.Ticket.ScanCooldown,
	}, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Server.RunEmailWorker {
		sender := mailer.New(mailer.Config{
			APIKey:      cfg.Email.APIKey,
			APIURL:      cfg.Email.APIURL,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
		}, logger)
		processor := worker.NewEmailProcessor(jobQueue, registrationRepo, eventRepo, sender, emailLogsRepo, func(code string) string {
			return registrations.TicketURL(cfg.Server.AppURL, code)
		}, logger)
		go processor.Run(workerCtx)
		logger.Info("email worker started", zap.Bool("sending_enabled", sender.Enabled()))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	issuer.Wait()
	logger.Info("server stopped")
}
