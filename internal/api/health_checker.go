package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// DBHealthChecker defines the interface for database health checks.
type DBHealthChecker interface {
	Health(ctx context.Context) error
}

// RedisHealthChecker defines the interface for Redis health checks.
type RedisHealthChecker interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

// HealthCheckResponse represents the response structure for the health check endpoint.
type HealthCheckResponse struct {
	OverallStatus string `json:"overall_status"`
	TimescaleDB   string `json:"timescaledb"`
	Redis         string `json:"redis"`
	LastRun       string `json:"last_run,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (s *Server) healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthCheckResponse{
			OverallStatus: statusUnhealthy,
			TimescaleDB:   statusDisabled,
			Redis:         statusDisabled,
		}

		overallHealthy := true
		addMessage := func(msg string) {
			if response.Message != "" {
				response.Message += "; "
			}
			response.Message += msg
		}

		if s.timescaleDB != nil {
			tsCtx, tsCancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer tsCancel()
			if err := s.timescaleDB.Health(tsCtx); err == nil {
				response.TimescaleDB = statusHealthy
			} else {
				overallHealthy = false
				response.TimescaleDB = statusUnhealthy
				addMessage(fmt.Sprintf("TimescaleDB unhealthy: %v", err))
			}
		}

		if s.redisClient != nil {
			redisCtx, redisCancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer redisCancel()
			if err := s.redisClient.Ping(redisCtx).Err(); err == nil {
				response.Redis = statusHealthy
			} else {
				overallHealthy = false
				response.Redis = statusUnhealthy
				addMessage(fmt.Sprintf("Redis unhealthy: %v", err))
			}
		}

		if report, ok := s.reports.Latest(); ok {
			response.LastRun = report.GeneratedAt.Format(time.RFC3339)
		}

		if overallHealthy {
			response.OverallStatus = statusHealthy
			c.JSON(http.StatusOK, response)
		} else {
			c.JSON(http.StatusServiceUnavailable, response)
		}
	}
}
