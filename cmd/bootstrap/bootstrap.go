package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-clinic-scheduler/config"
	deliveryHttp "go-clinic-scheduler/internal/delivery/http"
	"go-clinic-scheduler/internal/delivery/http/handler"
	"go-clinic-scheduler/internal/delivery/http/middleware"
	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/infrastructure/cache"
	"go-clinic-scheduler/internal/infrastructure/database"
	"go-clinic-scheduler/internal/repository"
	"go-clinic-scheduler/internal/service"
	"go-clinic-scheduler/internal/usecase"
	"go-clinic-scheduler/pkg/jwt"
	"go-clinic-scheduler/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	SlotLocks   *service.SlotLockService
	Server      *http.Server
}

// NewLogger configures a JSON logrus logger at the given level.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Connect opens PostgreSQL and Redis for cfg.
func Connect(cfg *config.Config, log *logrus.Logger) (*gorm.DB, *redis.Client, error) {
	db, err := database.NewPostgresConnection(cfg.DB, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient, err := cache.NewRedisClient(cfg.Redis, log)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return db, redisClient, nil
}

// New creates a new App instance with all dependencies initialized
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	db, redisClient, err := Connect(cfg, log)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		SlotLocks: service.NewSlotLockService(redisClient, log, service.SlotLockOptions{
			TTL:        cfg.Booking.LockTTL,
			Retries:    cfg.Booking.LockRetries,
			RetryDelay: cfg.Booking.LockRetryDelay,
		}),
	}
	app.Server = app.initializeServer()

	return app, nil
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer() *http.Server {
	cfg, db, redisClient, log := app.Config, app.DB, app.RedisClient, app.Log

	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()

	// Initialize repositories
	userRepo := repository.NewUserRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	medicineRepo := repository.NewMedicineRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	auditService := service.NewAuditService(db, log, auditLogRepo)
	credentialService := service.NewCredentialService(redisClient, log, auditService, cfg.Credential.PickupTTL)

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(db, log, userRepo, auditService, jwtService, redisClient)
	medicineUsecase := usecase.NewMedicineUsecase(db, log, medicineRepo, auditService)
	assigner := usecase.NewResourceAssigner(usecase.RandomSelector{}, userRepo)
	scheduler := usecase.NewAppointmentScheduler(db, log, appointmentRepo, userRepo, assigner, app.SlotLocks,
		authUsecase, auditService, credentialService, usecase.SchedulerOptions{
			HorizonDays: cfg.Booking.HorizonDays,
			FirstVisitRange: entity.QueueRange{
				Min: cfg.Booking.FirstVisitMinQueue,
				Max: cfg.Booking.FirstVisitMaxQueue,
			},
		})
	stateMachine := usecase.NewStatusStateMachine(db, log, appointmentRepo, userRepo, medicineUsecase, auditService)
	queryUsecase := usecase.NewAppointmentQueryUsecase(db, log, appointmentRepo, userRepo)
	freeDoctorFinder := usecase.NewFreeDoctorFinder(db, log, userRepo)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(scheduler, stateMachine, queryUsecase, freeDoctorFinder, customValidator)
	medicineHandler := handler.NewMedicineHandler(medicineUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase, customValidator)
	credentialHandler := handler.NewCredentialHandler(credentialService)
	healthHandler := handler.NewHealthHandler(db, redisClient, log)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, redisClient, log)
	corsMiddleware := middleware.NewCORSMiddleware("")
	loggingMiddleware := middleware.NewLoggingMiddleware(log)

	router := deliveryHttp.NewRouter(authHandler, appointmentHandler, medicineHandler, auditLogHandler,
		credentialHandler, healthHandler, authMiddleware, corsMiddleware, loggingMiddleware)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close stops background workers, then closes database and Redis connections.
func (app *App) Close() {
	if app.SlotLocks != nil {
		app.SlotLocks.Stop()
	}

	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
