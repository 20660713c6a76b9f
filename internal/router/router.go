package router

import (
	"context"
	"net/http"

	"hive/config"
	"hive/internal/handler"
	"hive/internal/middleware"
	"hive/internal/models"
	"hive/internal/repository"
	"hive/internal/service"
	"hive/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers onto a gin engine. Background
// helpers (the rate limiter sweeper) stop when ctx is cancelled.
func Setup(ctx context.Context, cfg *config.Config, db *gorm.DB, log zerolog.Logger) (*gin.Engine, error) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	limiter := middleware.NewInMemoryRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	go func() {
		<-ctx.Done()
		limiter.Stop()
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	r.Use(middleware.RateLimit(limiter))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	timebankRepo := repository.NewTimeBankRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	listingRepo := repository.NewListingRepository(db)
	exchangeRepo := repository.NewExchangeRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	hub := ws.NewHub()
	exchangeHub := ws.NewExchangeHub()

	// Services
	fcmSvc := service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath, log)
	emailSvc := service.NewEmailService(cfg.Email.ResendAPIKey, cfg.Email.From, log)
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, hub, fcmSvc, emailSvc, log)
	timebankSvc := service.NewTimeBankService(db, timebankRepo, txRepo, cfg.Ledger.InitialGrant, log)
	listingSvc := service.NewListingService(db, listingRepo, exchangeRepo, userRepo, timebankSvc, cfg.Ledger.BrowseRadiusKm, log)
	exchangeSvc := service.NewExchangeService(db, exchangeRepo, listingRepo, userRepo, txRepo, timebankSvc, notifSvc, exchangeHub, log)
	ratingSvc := service.NewRatingService(db, ratingRepo, exchangeRepo, userRepo, notifSvc, log)
	reportSvc := service.NewReportService(db, reportRepo, userRepo, listingRepo, exchangeRepo, log)
	moderationSvc := service.NewModerationService(db, userRepo, listingRepo, exchangeRepo, reportRepo, auditRepo, timebankSvc, notifSvc, exchangeHub, log)

	// Handlers
	meHandler := handler.NewMeHandler(userRepo, timebankSvc)
	timebankHandler := handler.NewTimeBankHandler(timebankSvc)
	listingHandler := handler.NewListingHandler(listingSvc)
	exchangeHandler := handler.NewExchangeHandler(exchangeSvc, ratingSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	adminHandler := handler.NewAdminHandler(adminRepo, reportSvc, moderationSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)
	activeMw := middleware.ActiveUser(userRepo)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": hub.ClientCount()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	wsLog := log.With().Str("component", "ws").Logger()
	r.GET("/ws/notifications", ws.UpgradeNotificationsWS(&cfg.JWT, hub, wsLog))
	r.GET("/ws/exchanges/:id", ws.UpgradeExchangeWS(&cfg.JWT, exchangeHub,
		func(ctx context.Context, userID, exchangeID uint) (*models.Exchange, error) {
			return exchangeSvc.Get(ctx, userID, exchangeID, false)
		}, wsLog))

	api := r.Group("/api/v1")
	api.Use(authMw)
	{
		// Reads stay open to banned users so they can see what moderation did.
		api.GET("/me", meHandler.Get)
		api.GET("/me/listings", listingHandler.Mine)
		api.GET("/timebank", timebankHandler.Get)
		api.GET("/transactions", timebankHandler.Transactions)

		api.GET("/listings", listingHandler.Browse)
		api.GET("/listings/:id", listingHandler.Get)
		api.GET("/listings/:id/exchanges", exchangeHandler.ForListing)
		api.GET("/listings/:id/my-exchange", exchangeHandler.MineForListing)

		api.GET("/my-exchanges", exchangeHandler.Mine)
		api.GET("/exchanges/:id", exchangeHandler.Get)
		api.GET("/exchanges/:id/ratings", exchangeHandler.Ratings)

		api.GET("/notifications", notificationHandler.List)
		api.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		api.POST("/notifications/mark-all-read", notificationHandler.MarkAllRead)
		api.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	act := api.Group("")
	act.Use(activeMw)
	{
		act.PATCH("/me/profile", meHandler.UpdateProfile)
		act.PUT("/me/fcm-token", meHandler.RegisterFCMToken)

		act.POST("/listings", listingHandler.Create)
		act.PATCH("/listings/:id", listingHandler.Update)
		act.DELETE("/listings/:id", listingHandler.Delete)

		act.POST("/exchanges", exchangeHandler.Create)
		act.POST("/exchanges/:id/accept", exchangeHandler.Accept)
		act.POST("/exchanges/:id/reject", exchangeHandler.Reject)
		act.POST("/exchanges/:id/cancel", exchangeHandler.Cancel)
		act.POST("/exchanges/:id/confirm", exchangeHandler.Confirm)
		act.POST("/exchanges/:id/propose-datetime", exchangeHandler.ProposeDateTime)
		act.POST("/exchanges/:id/rate", exchangeHandler.Rate)

		act.POST("/reports", reportHandler.Create)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/kpi", adminHandler.KPI)
		admin.GET("/reports", adminHandler.ListReports)
		admin.GET("/reports/:id", adminHandler.GetReport)
		admin.POST("/reports/:id/resolve", adminHandler.ResolveReport)
		admin.POST("/users/:id/ban", adminHandler.BanUser)
		admin.POST("/users/:id/warn", adminHandler.WarnUser)
		admin.DELETE("/listings/:id", adminHandler.DeleteListing)
		admin.GET("/exchanges/:id", adminHandler.ExchangeDetail)
	}

	return r, nil
}
