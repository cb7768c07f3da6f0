package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // exposes the metrics registry
	"github.com/redis/go-redis/v9"                            // backing store for the rate limiter

	"github.com/iliyamo/event-ticket-booking/internal/config"     // rate limit and auth settings
	"github.com/iliyamo/event-ticket-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/event-ticket-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// Handlers bundles every HTTP handler mounted by Register.
type Handlers struct {
	Events       *handler.EventHandler
	Holds        *handler.HoldHandler
	Bookings     *handler.BookingHandler
	Availability *handler.AvailabilityHandler
	Ready        handler.Pinger // optional readiness dependency
}

// Options carries the settings the routes depend on.
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Redis     *redis.Client // nil disables rate limiting
}

// Register installs the error handler, the request context middleware and
// every route on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(middleware.RequestContext())

	RegisterRoutes(e, h.Ready)

	auth := opt.JWTSecret != ""
	limit := middleware.NewTokenBucket(opt.RateLimit, opt.Redis)

	// Event and availability reads are public.  Tokens are parsed whenever
	// present; hold and booking routes require one when auth is enabled.
	api := e.Group("/api", middleware.OptionalJWT(opt.JWTSecret))
	RegisterEvents(api, h.Events, h.Availability, auth, limit)
	RegisterBooking(api, h.Holds, h.Bookings, auth, limit)
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: liveness, readiness and the metrics endpoint.
func RegisterRoutes(e *echo.Echo, ready handler.Pinger) {
	// Map the GET request at path "/healthz" to the Health handler.
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ready))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterEvents registers event management and availability routes.
// Writes need the ADMIN role when authentication is enabled.
func RegisterEvents(g *echo.Group, ev *handler.EventHandler, av *handler.AvailabilityHandler, auth bool, limit echo.MiddlewareFunc) {
	admin := []echo.MiddlewareFunc{middleware.RequireAuth(auth), middleware.RequireRole(auth, middleware.RoleAdmin), limit}

	g.GET("/events", ev.List)
	// Static segment wins over :id in echo's router.
	g.GET("/events/availability", av.All)
	g.GET("/events/:id", ev.Get)
	g.GET("/events/:id/availability", av.One)

	g.POST("/events", ev.Create, admin...)
	g.PUT("/events/:id", ev.Update, admin...)
	g.DELETE("/events/:id", ev.Delete, admin...)
}

// RegisterBooking registers hold and booking routes.  With authentication
// enabled every route needs an ADMIN or CUSTOMER token; mutations are also
// rate limited.
func RegisterBooking(g *echo.Group, holds *handler.HoldHandler, bookings *handler.BookingHandler, auth bool, limit echo.MiddlewareFunc) {
	reader := []echo.MiddlewareFunc{
		middleware.RequireAuth(auth),
		middleware.RequireRole(auth, middleware.RoleAdmin, middleware.RoleCustomer),
	}
	member := append(append([]echo.MiddlewareFunc{}, reader...), limit)

	g.POST("/events/:id/holds", holds.Create, member...)
	g.GET("/holds", holds.List, reader...)

	g.POST("/bookings/confirm", bookings.Confirm, member...)
	g.GET("/bookings", bookings.List, reader...)
	g.GET("/bookings/:id", bookings.Get, reader...)
	g.POST("/bookings/:id/cancel", bookings.Cancel, member...)
}
