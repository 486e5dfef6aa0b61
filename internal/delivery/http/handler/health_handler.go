package handler

import (
	"context"
	"net/http"
	"time"

	"go-clinic-scheduler/pkg/response"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger
}

// NewHealthHandler builds the liveness and readiness probes. A nil redisClient
// is reported as not configured rather than failing readiness.
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
		log:         log,
	}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "", map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "ok"}
	ready := true

	if err := pingDatabase(ctx, h.db); err != nil {
		h.log.Warnf("Readiness: database unreachable: %+v", err)
		checks["database"] = "unavailable"
		ready = false
	}

	if h.redisClient == nil {
		checks["redis"] = "not configured"
	} else if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Warnf("Readiness: redis unreachable: %+v", err)
		checks["redis"] = "unavailable"
		ready = false
	}

	if !ready {
		response.Error(w, http.StatusServiceUnavailable, "Service not ready", checks)
		return
	}
	response.Success(w, http.StatusOK, "", checks)
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
