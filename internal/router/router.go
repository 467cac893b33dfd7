package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/handler"
	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/model"
)

// Deps carries everything the routes need.  Cache and RateLimit may be
// nil, in which case the routes run without them.
type Deps struct {
	Auth      *handler.AuthHandler
	Halls     *handler.HallHandler
	Bookings  *handler.BookingHandler
	Admin     *handler.AdminHandler
	DB        handler.Pinger
	JWTSecret string
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func orPassthrough(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return passthrough
	}
	return m
}

// Register wires every route onto e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	registerAuth(e, d)
	registerPublic(e, d)
	registerBookings(e, d)
	registerAdmin(e, d)
}

// registerAuth: token endpoints are public, /v1/me needs a token.
// Logout parses the bearer itself so it works with only a refresh token.
func registerAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/refresh-access", d.Auth.RefreshAccess)
	g.POST("/logout", d.Auth.Logout)

	e.GET("/v1/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret))
}

// registerPublic exposes the catalogue and calendar reads.  All but the
// availability check go through the response cache; the check is the
// freshest answer a client can get before booking.
func registerPublic(e *echo.Echo, d Deps) {
	cache := orPassthrough(d.Cache)
	g := e.Group("/v1/halls")
	g.GET("", d.Halls.ListHalls, cache)
	g.GET("/:id", d.Halls.GetHall, cache)
	g.GET("/:id/availability", d.Halls.Availability, cache)
	g.GET("/:id/availability/check", d.Halls.CheckAvailability)
	g.GET("/:id/quote", d.Halls.Quote, cache)
	g.GET("/:id/pricing-rules", d.Halls.PricingRules, cache)
}

// registerBookings: customer endpoints.  Ownership is checked by the
// engine, so admins may use them too.
func registerBookings(e *echo.Echo, d Deps) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	}
	// JWTAuth runs first so the limiter can key on the user.
	e.POST("/v1/bookings", d.Bookings.Create, append(auth, orPassthrough(d.RateLimit))...)
	e.GET("/v1/my-bookings", d.Bookings.Mine, auth...)

	g := e.Group("/v1/bookings")
	g.GET("/:id", d.Bookings.Get, auth...)
	g.POST("/:id/payment", d.Bookings.SubmitPayment, auth...)
	g.POST("/:id/cancel", d.Bookings.Cancel, auth...)
	g.DELETE("/:id", d.Bookings.Delete, auth...)
}

func registerAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/bookings", d.Admin.Bookings)
	g.POST("/bookings/:id/payment-review", d.Admin.PaymentReview)
	g.POST("/bookings/:id/cancellation-review", d.Admin.CancellationReview)
	g.GET("/overview", d.Admin.Overview)

	g.POST("/halls", d.Admin.CreateHall)
	g.GET("/halls/:id/availability", d.Admin.Availability)
	g.PUT("/halls/:id/availability/:date", d.Admin.SetDay)
	g.PUT("/halls/:id/availability", d.Admin.SetRange)
	g.POST("/halls/:id/availability/seed", d.Admin.Seed)
	g.POST("/halls/:id/pricing-rules", d.Admin.AddPricingRule)
	g.DELETE("/halls/:id/pricing-rules", d.Admin.ClearPricingRules)
	g.DELETE("/pricing-rules/:id", d.Admin.DeletePricingRule)
}
