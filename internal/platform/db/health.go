package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// HealthHandler serves GET /health/db: a ping plus pool statistics.
func HealthHandler(pool *pgxpool.Pool, logger zerolog.Logger) echo.HandlerFunc {
	return healthHandler(pool.Ping, func() *PoolStats { return GetPoolStats(pool) }, logger)
}

// healthReport is the data half of the health envelope.
type healthReport struct {
	Status    string     `json:"status"`
	LatencyMS float64    `json:"ping_ms"`
	Pool      *PoolStats `json:"pool"`
}

func healthHandler(ping func(context.Context) error, stats func() *PoolStats, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		start := time.Now()
		err := ping(ctx)
		report := healthReport{
			Status:    "healthy",
			LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
			Pool:      stats(),
		}
		code := http.StatusOK
		if err != nil {
			// the driver error stays in the log
			logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("database health check failed")
			report.Status = "unhealthy"
			report.Pool.Healthy = false
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]interface{}{"ok": err == nil, "data": report})
	}
}
