// File: main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"slotify/config"
	"slotify/cron"
	"slotify/database"
	bookingRepo "slotify/database/repository/booking"
	calendarRepo "slotify/database/repository/calendar"
	disputeRepo "slotify/database/repository/dispute"
	paymentRepo "slotify/database/repository/payment"
	"slotify/handlers"
	"slotify/middleware"
	"slotify/routes"
	"slotify/services/booking"
	"slotify/services/dispute"
	"slotify/services/notification"
	"slotify/services/payment"
	"slotify/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitLockCache()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := bookingRepo.EnsureBookingIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to create booking indexes: %v", err)
	}
	if err := disputeRepo.EnsureDisputeIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to create dispute indexes: %v", err)
	}
	if err := paymentRepo.EnsurePaymentIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to create payment indexes: %v", err)
	}
	cancel()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	calendars := calendarRepo.NewMongoCalendarRepo()
	payments := paymentRepo.NewMongoPaymentRepo()
	disputes := disputeRepo.NewMongoDisputeRepo()

	// background task client.
	taskClient := cron.NewTaskClient()
	defer taskClient.Close()

	// services.
	gateway := payment.NewHTTPEscrowGateway(
		config.AppConfig.GatewayAPIURL,
		config.AppConfig.GatewayShopID,
		config.AppConfig.GatewaySecretKey,
	)
	paymentService := payment.NewPaymentService(
		payments, bookings, gateway, taskClient,
		int64(config.AppConfig.PlatformFeeBP), logger,
	)

	notificationService := notification.NewNotificationService(taskClient, logger)

	locker := booking.NewRedisDayLocker(utils.GetLockClient())
	bookingService := booking.NewBookingService(
		bookings, calendars, paymentService, locker, notificationService, logger,
	)
	bookingService.PendingPaymentTimeout = time.Duration(config.AppConfig.PendingPaymentTimeoutMin) * time.Minute
	bookingService.AutoCancelAfter = time.Duration(config.AppConfig.AutoCancelPendingDays) * 24 * time.Hour
	bookingService.AutoCaptureAfter = time.Duration(config.AppConfig.AutoCaptureReadyDays) * 24 * time.Hour

	disputeService := dispute.NewDisputeService(
		disputes, bookings, payments, calendars, taskClient, logger,
	)

	// Assemble the handler bundle and register routes.
	handlerBundle := handlers.NewHandlerBundle(
		bookingService, paymentService, disputeService,
		config.AppConfig.WebhookSecret, logger,
	)
	routes.RegisterRoutes(router, handlerBundle)

	// Background worker, sweep scheduler and health monitor.
	cron.InitWorker(bookingService, paymentService, disputes)
	cron.InitScheduler()
	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetLockClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: forced shutdown: %v", err)
	}
	logger.Sugar().Info("Server exited")
}
