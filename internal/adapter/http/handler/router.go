package handler

import (
	"checkout-sandbox/internal/adapter/http/middleware"
	"checkout-sandbox/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SessionSvc      ports.SessionService
	ShipmentSvc     ports.ShipmentService
	NotificationSvc ports.NotificationService
	WebhookSecret   string
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	sessionHandler := NewSessionHandler(deps.SessionSvc, deps.ShipmentSvc)
	webhookHandler := NewWebhookHandler(deps.NotificationSvc, deps.WebhookSecret)

	v1 := r.Group("/api/v1")

	sessions := v1.Group("/sessions")
	{
		sessions.POST("", sessionHandler.CreateSession)
		sessions.GET("", sessionHandler.ListSessions)
		sessions.GET("/:id", sessionHandler.GetSession)
		sessions.GET("/:id/tracking", sessionHandler.TrackShipment)
	}

	// The gateway delivers notifications as PATCH; POST is accepted for
	// manual replays from tooling that cannot send PATCH.
	payments := v1.Group("/payments")
	{
		payments.POST("/notify", webhookHandler.Notify)
		payments.PATCH("/notify", webhookHandler.Notify)
	}

	return r
}
