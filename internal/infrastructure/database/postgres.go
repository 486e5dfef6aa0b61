package database

import (
	"fmt"
	"time"

	"go-clinic-scheduler/config"
	"go-clinic-scheduler/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresConnection(cfg config.DBConfig, log *logrus.Logger) (*gorm.DB, error) {
	gormLogLevel := logger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.New(log, logger.Config{SlowThreshold: 200 * time.Millisecond, LogLevel: gormLogLevel}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("Successfully connected to PostgreSQL database")

	return db, nil
}

// Models lists every persisted entity, parents first.
func Models() []interface{} {
	return []interface{}{
		&entity.Role{},
		&entity.User{},
		&entity.Appointment{},
		&entity.Medicine{},
		&entity.MedicineUsageLog{},
		&entity.AuditLog{},
	}
}
