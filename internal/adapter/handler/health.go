package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dispatchcrew/airdispatch/internal/realtime"
)

// Pinger is any collaborator that can answer a connectivity check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles liveness and readiness probes
type Health struct {
	db       *gorm.DB
	redis    *redis.Client
	dispatch Pinger
	registry *realtime.Registry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, dispatchClient Pinger, registry *realtime.Registry) *Health {
	return &Health{
		db:       db,
		redis:    redisClient,
		dispatch: dispatchClient,
		registry: registry,
	}
}

// Liveness handles GET /health
func (h *Health) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// Readiness handles GET /health/ready. Reports per-dependency status;
// the overall status degrades if any hard dependency is down.
func (h *Health) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if sqlDB, err := h.db.DB(); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else if err := sqlDB.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	// Dispatch back-end is a soft dependency; its outage degrades
	// actions but the API stays up.
	if h.dispatch != nil {
		if err := h.dispatch.Ping(ctx); err != nil {
			checks["dispatch"] = err.Error()
		} else {
			checks["dispatch"] = "ok"
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	resp := map[string]interface{}{
		"status": status,
		"checks": checks,
	}
	if h.registry != nil {
		resp["active_sessions"] = h.registry.Count()
	}
	return c.JSON(code, resp)
}
