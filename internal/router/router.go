package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/temple-slot-admission/internal/config"
	"github.com/iliyamo/temple-slot-admission/internal/handler"
	"github.com/iliyamo/temple-slot-admission/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check, slot browsing and the
// prediction read endpoints.
func RegisterRoutes(e *echo.Echo, slots *handler.SlotHandler, crowd *handler.CrowdHandler) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.GET("/slots", slots.ListByDate)
	v1.GET("/slots/:id/capacity", slots.Capacity)
	v1.GET("/zones/:zone/prediction", crowd.GetPrediction)
	v1.GET("/zones/:zone/risk", crowd.ZoneRisk)
}

// RegisterBooking registers the booking workflow and SOS reporting.
// Booking and SOS creation accept anonymous callers, so the JWT
// middleware is not applied here; identity, when present, is resolved
// by JWTAuth on the authenticated group. The booking endpoint carries
// the Redis token-bucket limiter since it is the surge-prone surface.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, s *handler.SosHandler, crowd *handler.CrowdHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	v1 := e.Group("/v1")

	limiter := middleware.NewTokenBucket(rlCfg, rdb)
	v1.POST("/slots/:id/book", b.Book, limiter)
	v1.POST("/checkin", b.CheckIn)
	v1.DELETE("/reservations/:id", b.Cancel)
	v1.POST("/sos", s.Create)
	v1.POST("/crowd/snapshots", crowd.IngestSnapshot)
}

// RegisterAuthenticated registers endpoints that require a valid access
// token: the caller's reservation list and the admin surface for
// schedule generation, aggregation triggers and SOS handling. Tokens
// are issued by the external auth service; JWTAuth only verifies them.
func RegisterAuthenticated(e *echo.Echo, b *handler.BookingHandler, slots *handler.SlotHandler, crowd *handler.CrowdHandler, s *handler.SosHandler, jwtSecret string) {
	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	v1.GET("/reservations", b.List)

	admin := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret))
	admin.POST("/slots", slots.CreateBulk)
	admin.POST("/slots/:id/deactivate", slots.Deactivate)
	admin.POST("/zones/:zone/aggregate", crowd.RunAggregation)
	admin.GET("/sos", s.ListOpen)
	admin.POST("/sos/:ref/acknowledge", s.Acknowledge)
	admin.POST("/sos/:ref/resolve", s.Resolve)
}
