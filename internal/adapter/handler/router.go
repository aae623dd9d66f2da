package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dispatchcrew/airdispatch/internal/infrastructure/http/middleware"
	"github.com/dispatchcrew/airdispatch/internal/realtime"
	"github.com/dispatchcrew/airdispatch/pkg/config"
	"github.com/dispatchcrew/airdispatch/pkg/jwt"
)

// Router holds all handlers
type Router struct {
	cfg                 *config.Config
	jwtManager          *jwt.Manager
	channelHandler      *Channel
	transmissionHandler *Transmission
	policyHandler       *Policy
	executionHandler    *Execution
	healthHandler       *Health
	gateway             *realtime.Gateway
}

// NewRouter creates a new router with all handlers
func NewRouter(
	cfg *config.Config,
	jwtManager *jwt.Manager,
	channelHandler *Channel,
	transmissionHandler *Transmission,
	policyHandler *Policy,
	executionHandler *Execution,
	healthHandler *Health,
	gateway *realtime.Gateway,
) *Router {
	return &Router{
		cfg:                 cfg,
		jwtManager:          jwtManager,
		channelHandler:      channelHandler,
		transmissionHandler: transmissionHandler,
		policyHandler:       policyHandler,
		executionHandler:    executionHandler,
		healthHandler:       healthHandler,
		gateway:             gateway,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthHandler.Liveness)
	e.GET("/health/ready", rt.healthHandler.Readiness)

	v1 := e.Group("/v1")

	// The websocket gateway authenticates inside the handler so
	// browser clients can pass the token as a query parameter.
	if rt.gateway != nil {
		v1.GET("/ws", rt.gateway.Handle)
	}

	auth := middleware.EchoAuth(rt.jwtManager)

	rt.setupChannelRoutes(v1, auth)
	rt.setupTransmissionRoutes(v1, auth)
	rt.setupPolicyRoutes(v1, auth)
	rt.setupExecutionRoutes(v1, auth)
}

// setupChannelRoutes configures channel management routes. Mutations
// are restricted to tenant admins.
func (rt *Router) setupChannelRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	channels := g.Group("/channels", auth)
	channels.GET("", rt.channelHandler.ListChannels)
	channels.GET("/:id", rt.channelHandler.GetChannel)

	adminOnly := middleware.RequireRole("admin", "superadmin")
	channels.POST("", rt.channelHandler.CreateChannel, adminOnly)
	channels.PUT("/:id", rt.channelHandler.UpdateChannel, adminOnly)
	channels.DELETE("/:id", rt.channelHandler.DeactivateChannel, adminOnly)
}

// setupTransmissionRoutes configures ingestion and listing routes
func (rt *Router) setupTransmissionRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	transmissions := g.Group("/transmissions", auth)
	transmissions.POST("", rt.transmissionHandler.Ingest)
	transmissions.POST("/audio", rt.transmissionHandler.UploadAudio)
	transmissions.GET("", rt.transmissionHandler.ListTransmissions)
	transmissions.GET("/:id", rt.transmissionHandler.GetTransmission)
	transmissions.POST("/:id/reset", rt.transmissionHandler.ResetTransmission)
}

// setupPolicyRoutes configures policy management routes
func (rt *Router) setupPolicyRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	policies := g.Group("/policies", auth)
	policies.GET("", rt.policyHandler.ListPolicies)
	policies.GET("/:id", rt.policyHandler.GetPolicy)

	adminOnly := middleware.RequireRole("admin", "superadmin")
	policies.POST("", rt.policyHandler.CreatePolicy, adminOnly)
	policies.PUT("/:id", rt.policyHandler.UpdatePolicy, adminOnly)
	policies.DELETE("/:id", rt.policyHandler.DeactivatePolicy, adminOnly)
}

// setupExecutionRoutes configures the approval queue routes
func (rt *Router) setupExecutionRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	executions := g.Group("/executions", auth)
	executions.GET("", rt.executionHandler.ListExecutions)
	executions.GET("/:id", rt.executionHandler.GetExecution)
	executions.POST("/:id/approve", rt.executionHandler.ApproveExecution)
	executions.POST("/:id/reject", rt.executionHandler.RejectExecution)
}
