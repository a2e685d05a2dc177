package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework for routing

	"github.com/shecares/shecares-backend/internal/handler" // handlers implementing the endpoints
)

// RegisterRoutes registers routes that require no authentication: the
// health check used by load balancers and the public incident form.
func RegisterRoutes(e *echo.Echo, inc *handler.IncidentHandler) {
	e.GET("/healthz", handler.Health)
	// The incident form is submitted anonymously, so no bearer token here.
	e.POST("/api/submit-form", inc.Submit)
}

// RegisterAPI registers the bearer-protected endpoints under /api.  The
// middleware order matters: the rate limiter and cache key on the user id
// that JWTAuth stores in the context, so JWTAuth runs first.
func RegisterAPI(e *echo.Echo, d *handler.DosageLogHandler, m *handler.MedicineHandler, inc *handler.IncidentHandler, mws ...echo.MiddlewareFunc) {
	api := e.Group("/api")
	api.Use(mws...)

	// Medicine registry
	api.GET("/medicines", m.List)
	api.POST("/medicines", m.Create)
	api.DELETE("/medicines/:id", m.Delete)
	api.POST("/medicines/:id/take-dose", m.TakeDose)

	// Dosage logs.  bulk-miss is registered before :id so Echo does not
	// swallow it as a path parameter.
	api.PATCH("/dosage-logs/bulk-miss", d.BulkMiss)
	api.GET("/dosage-logs/today", d.Today)
	api.GET("/dosage-logs/today/summary", d.TodaySummary)
	api.POST("/dosage-logs/generate-today", d.GenerateToday)
	api.POST("/dosage-logs", d.Create)
	api.PATCH("/dosage-logs/:id/take", d.Take)
	api.PATCH("/dosage-logs/:id/miss", d.Miss)

	// Operator read path for submitted incident reports.
	api.GET("/incidents", inc.List)
}
