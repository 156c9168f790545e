package router

// Back-office routes for the rental desk and fleet management.  Agents
// run the desk (customers, reservations, contracts); fleet changes,
// maintenance and finance are admin-only.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-backoffice/internal/handler"
	"github.com/iliyamo/car-rental-backoffice/internal/middleware"
	"github.com/iliyamo/car-rental-backoffice/internal/model"
)

// BackofficeHandlers bundles the handlers mounted under /v1.
type BackofficeHandlers struct {
	Vehicles     *handler.VehicleHandler
	Customers    *handler.CustomerHandler
	Reservations *handler.ReservationHandler
	Contracts    *handler.ContractHandler
	Maintenance  *handler.MaintenanceHandler
	Reports      *handler.ReportHandler
}

// RegisterBackoffice registers the protected desk and fleet endpoints.
// cacheMW is the Redis response cache; it only touches configured
// methods (GET by default) so mounting it on the whole group is safe.
func RegisterBackoffice(e *echo.Echo, h BackofficeHandlers, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	desk := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleAgent),
		cacheMW,
	)

	// ---- Vehicles (reads; writes are admin-only below) ----
	desk.GET("/vehicles", h.Vehicles.List)
	desk.GET("/vehicles/:id", h.Vehicles.Get)
	desk.GET("/vehicles/:id/calendar", h.Vehicles.Calendar)
	desk.GET("/vehicles/:id/maintenance", h.Maintenance.ListByVehicle)

	// ---- Customers ----
	desk.POST("/customers", h.Customers.Create)
	desk.GET("/customers", h.Customers.List)
	desk.GET("/customers/:id", h.Customers.Get)
	desk.PUT("/customers/:id", h.Customers.Update)
	desk.PATCH("/customers/:id", h.Customers.Update)

	// ---- Reservations ----
	desk.POST("/reservations", h.Reservations.Create)
	desk.GET("/reservations", h.Reservations.List)
	desk.GET("/reservations/expiring", h.Reservations.ExpiringSoon)
	desk.GET("/reservations/:id", h.Reservations.Get)
	desk.POST("/reservations/:id/mark-paid", h.Reservations.MarkPaid)
	desk.POST("/reservations/:id/contract", h.Reservations.GenerateContract)
	desk.POST("/reservations/:id/confirm", h.Reservations.Confirm)
	desk.POST("/reservations/:id/complete", h.Reservations.Complete)
	desk.POST("/reservations/:id/cancel", h.Reservations.Cancel)

	// ---- Contracts ----
	desk.GET("/contracts", h.Contracts.List)
	desk.GET("/contracts/:id", h.Contracts.Get)
	desk.POST("/contracts/:id/sign", h.Contracts.Sign)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Fleet management ----
	admin.POST("/vehicles", h.Vehicles.Create)
	admin.PUT("/vehicles/:id", h.Vehicles.Update)
	admin.PATCH("/vehicles/:id", h.Vehicles.Update)
	admin.DELETE("/vehicles/:id", h.Vehicles.Delete)
	admin.DELETE("/customers/:id", h.Customers.Delete)

	// ---- Maintenance ----
	admin.POST("/maintenance", h.Maintenance.Open)
	admin.POST("/maintenance/:id/close", h.Maintenance.Close)

	// ---- Finance ----
	admin.GET("/reports/revenue", h.Reports.Revenue)
}

// RegisterInternal registers the scheduler-facing expiration endpoint.
// It is deliberately outside the JWT groups: external schedulers call
// it without a session, and the sweep itself is idempotent.
func RegisterInternal(e *echo.Echo, exp *handler.ExpirationHandler) {
	e.POST("/v1/internal/expire-reservations", exp.Expire)
}
