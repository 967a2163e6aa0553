package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	alerting "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Alerting"
	"gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/controllers"
	broadcast "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Broadcast"
	container "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Container"
	realtime "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Realtime"
	scheduler "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Scheduler"
	telemetry "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Telemetry"

	// Auth imports
	authService "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/auth"
	jwt "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/jwt"
	rbac "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/rbac"
	authMiddleware "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/middleware"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
)

// the live broadcast only needs the newest entry of each channel
const broadcastResults = 1

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	config := ctr.GetConfig()
	logger.Info("Starting flood alert service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ctr.InitializeDatabase(ctx); err != nil {
		logger.FatalWithError(err, "Failed to initialize database")
	}

	deviceRepo, userRepo, readingRepo, err := ctr.Repositories()
	if err != nil {
		logger.FatalWithError(err, "Failed to create repositories")
	}

	// Optional transports; nil when not configured
	snapshotCache, err := ctr.SnapshotCache(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to Redis")
	}
	eventPublisher, err := ctr.Publisher()
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to MQTT broker")
	}

	// Realtime hub lives until shutdown
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := ctr.Hub()
	go hub.Run(hubCtx)
	ctr.AddCleanupFunc(func() error {
		stopHub()
		return nil
	})

	// Auth
	jwtService := jwt.NewService(api_models.TokenConfig{
		SecretKey:           config.Auth.JWTSecretKey,
		AccessTokenDuration: config.Auth.AccessTokenDuration,
		Issuer:              config.Auth.JWTIssuer,
	})
	rbacService := rbac.NewService()
	authMiddlewareInstance := authMiddleware.NewAuthMiddleware(jwtService, rbacService, userRepo, authMiddleware.DefaultConfig())

	mailer := alerting.NewMailer(config.Email)
	authServiceInstance := authService.NewAuthService(userRepo, jwtService, mailer, config.Auth.PasswordMinLength, config.Auth.OTPTTL)
	userServiceInstance := authService.NewUserService(userRepo)

	adminInitializer := authService.NewAdminInitializer(userRepo, logger, authService.AdminConfig{
		Username: config.Auth.Admin.Username,
		Email:    config.Auth.Admin.Email,
		Password: config.Auth.Admin.Password,
	})
	if err := adminInitializer.InitializeAdminUser(ctx); err != nil {
		logger.FatalWithError(err, "Failed to initialize admin user")
	}

	// Telemetry fetch
	provider := ctr.ThingSpeak()
	fetcher := telemetry.NewFetcher(deviceRepo, readingRepo, provider, config.ThingSpeak.Results, logger)

	// Alerting
	var evalOpts []alerting.EvaluatorOption
	if config.Alert.ReadingRuleEnabled {
		evalOpts = append(evalOpts, alerting.WithReadingRule(alerting.ReadingRule{
			WaterLevelThreshold: config.Alert.WaterLevelThreshold,
			RainThreshold:       config.Alert.RainThreshold,
		}, readingRepo))
	}
	evaluator := alerting.NewEvaluator(deviceRepo, provider, config.Alert.Field, logger, evalOpts...)

	var channels []alerting.Channel
	if config.Email.Enabled {
		channels = append(channels, alerting.NewEmailChannel(mailer, config.Email.Subject))
	}
	if config.SMS.Enabled {
		channels = append(channels, alerting.NewSMSChannel(config.SMS))
	}
	notifier := alerting.NewProximityNotifier(userRepo, channels, config.Alert.RadiusKm, logger)

	var pipelineOpts []alerting.PipelineOption
	if eventPublisher != nil {
		pipelineOpts = append(pipelineOpts, alerting.WithPublisher(eventPublisher))
	}
	pipeline := alerting.NewPipeline(evaluator, notifier, config.Alert.Message, logger, pipelineOpts...)

	// Live broadcast
	var broadcastOpts []broadcast.Option
	if snapshotCache != nil {
		broadcastOpts = append(broadcastOpts, broadcast.WithStore(snapshotCache))
	}
	if eventPublisher != nil {
		broadcastOpts = append(broadcastOpts, broadcast.WithBus(eventPublisher))
	}
	snapshots := broadcast.NewPublisher(deviceRepo, provider, broadcastResults, hub, logger, broadcastOpts...)

	// Scheduler
	sched := scheduler.New(config.Scheduler.SkipOverlap, logger)
	tasks := []scheduler.Task{
		{
			Name:       "fetch",
			Interval:   config.Scheduler.FetchInterval,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := fetcher.RunCycle(ctx)
				return err
			},
		},
		{
			Name:       "alert",
			Interval:   config.Scheduler.AlertInterval,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := pipeline.RunCycle(ctx)
				return err
			},
		},
		{
			Name:       "broadcast",
			Interval:   config.Scheduler.BroadcastInterval,
			RunOnStart: true,
			Run:        snapshots.RunCycle,
		},
	}
	for _, task := range tasks {
		if err := sched.Add(task); err != nil {
			logger.FatalWithError(err, "Failed to register scheduler task")
		}
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		ExposeHeaders:    config.CORS.ExposedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	var liveSource controllers.SnapshotReader
	if snapshotCache != nil {
		liveSource = snapshotCache
	}

	// Create controllers and register routes
	authController := controllers.NewAuthController(authServiceInstance, logger)
	userController := controllers.NewUserController(userServiceInstance, logger, authMiddlewareInstance)
	deviceController := controllers.NewDeviceController(deviceRepo, logger, authMiddlewareInstance)
	floodController := controllers.NewFloodController(fetcher, provider, snapshots, deviceRepo, readingRepo, config.ThingSpeak.Results, logger, authMiddlewareInstance)
	rainController := controllers.NewRainController(ctr.RainGauge(), config.RainGauge.ChannelID, config.RainGauge.Results, logger)
	liveController := controllers.NewLiveController(liveSource, logger)
	healthController := controllers.NewHealthController(ctr.GetHealthChecker(), provider, realtime.NewHandler(hub, config.CORS.AllowedOrigins))

	authController.RegisterRoutes(router)
	userController.RegisterRoutes(router)
	deviceController.RegisterRoutes(router)
	floodController.RegisterRoutes(router)
	rainController.RegisterRoutes(router)
	liveController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)

	port := config.Server.Port

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	sched.Start(context.Background())
	logger.Info("Flood alert service running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
	sched.Stop()
}
