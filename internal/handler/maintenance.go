package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-backoffice/internal/model"
	"github.com/iliyamo/car-rental-backoffice/internal/repository"
)

// MaintenanceHandler opens and closes maintenance records.  An open
// record keeps the vehicle in in_maintenance, which the expiration
// sweeper and reservation flow both respect via guarded transitions.
type MaintenanceHandler struct {
	Maintenance *repository.MaintenanceRepo
	Vehicles    *repository.VehicleRepo
}

func NewMaintenanceHandler(m *repository.MaintenanceRepo, v *repository.VehicleRepo) *MaintenanceHandler {
	if m == nil || v == nil {
		panic("nil repository passed to NewMaintenanceHandler")
	}
	return &MaintenanceHandler{Maintenance: m, Vehicles: v}
}

type openMaintenanceReq struct {
	VehicleID   uint64 `json:"vehicle_id" validate:"required"`
	Description string `json:"description" validate:"required"`
	CostCents   uint32 `json:"cost_cents"`
}

type closeMaintenanceReq struct {
	CostCents uint32 `json:"cost_cents"`
}

type maintenanceResp struct {
	ID          uint64     `json:"id"`
	VehicleID   uint64     `json:"vehicle_id"`
	Description string     `json:"description"`
	CostCents   uint32     `json:"cost_cents"`
	OpenedAt    time.Time  `json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

func toMaintenanceResp(m model.MaintenanceRecord) maintenanceResp {
	return maintenanceResp{
		ID: m.ID, VehicleID: m.VehicleID, Description: m.Description,
		CostCents: m.CostCents, OpenedAt: m.OpenedAt, ClosedAt: m.ClosedAt,
	}
}

// Open starts a maintenance record and flips the vehicle to
// in_maintenance.  Only an available vehicle can enter maintenance; a
// reserved or rented one would strand its reservation.
func (h *MaintenanceHandler) Open(c echo.Context) error {
	var req openMaintenanceReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Maintenance.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Vehicles.TransitionStatusTx(ctx, tx, req.VehicleID, model.VehicleInMaintenance, model.VehicleAvailable); err != nil {
		if err == repository.ErrInvalidTransition {
			return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle not available for maintenance"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update vehicle failed"})
	}
	rec := model.MaintenanceRecord{
		VehicleID:   req.VehicleID,
		Description: req.Description,
		CostCents:   req.CostCents,
		OpenedAt:    time.Now().UTC(),
	}
	if err := h.Maintenance.OpenTx(ctx, tx, &rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open record failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.JSON(http.StatusCreated, toMaintenanceResp(rec))
}

// Close finishes a maintenance record with its final cost and returns
// the vehicle to the fleet.
func (h *MaintenanceHandler) Close(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req closeMaintenanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Maintenance.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	vehicleID, err := h.Maintenance.CloseTx(ctx, tx, id, req.CostCents, time.Now().UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "open record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "close record failed"})
	}
	if err := h.Vehicles.TransitionStatusTx(ctx, tx, vehicleID, model.VehicleAvailable, model.VehicleInMaintenance); err != nil && err != repository.ErrInvalidTransition {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update vehicle failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.NoContent(http.StatusNoContent)
}

// ListByVehicle returns a vehicle's maintenance history.
func (h *MaintenanceHandler) ListByVehicle(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	records, err := h.Maintenance.ListByVehicle(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]maintenanceResp, 0, len(records))
	for _, rec := range records {
		out = append(out, toMaintenanceResp(rec))
	}
	return c.JSON(http.StatusOK, echo.Map{"maintenance": out})
}
