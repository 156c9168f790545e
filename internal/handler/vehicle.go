package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-backoffice/internal/lifecycle"
	"github.com/iliyamo/car-rental-backoffice/internal/model"
	"github.com/iliyamo/car-rental-backoffice/internal/repository"
)

// VehicleHandler owns fleet CRUD plus the calendar-occupancy view.
type VehicleHandler struct {
	Vehicles     *repository.VehicleRepo
	Reservations *repository.ReservationRepo
}

func NewVehicleHandler(v *repository.VehicleRepo, r *repository.ReservationRepo) *VehicleHandler {
	if v == nil || r == nil {
		panic("nil repository passed to NewVehicleHandler")
	}
	return &VehicleHandler{Vehicles: v, Reservations: r}
}

// ----- DTOs -----

type vehicleReq struct {
	Plate          string `json:"plate" validate:"required"`
	Make           string `json:"make" validate:"required"`
	Model          string `json:"model" validate:"required"`
	Year           uint16 `json:"year" validate:"required,gte=1980,lte=2100"`
	Category       string `json:"category" validate:"required"`
	DailyRateCents uint32 `json:"daily_rate_cents" validate:"required,gt=0"`
	Mileage        uint32 `json:"mileage"`
}

type vehicleResp struct {
	ID             uint64    `json:"id"`
	Plate          string    `json:"plate"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           uint16    `json:"year"`
	Category       string    `json:"category"`
	DailyRateCents uint32    `json:"daily_rate_cents"`
	Status         string    `json:"status"`
	Mileage        uint32    `json:"mileage"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toVehicleResp(v model.Vehicle) vehicleResp {
	return vehicleResp{
		ID: v.ID, Plate: v.Plate, Make: v.Make, Model: v.Model, Year: v.Year,
		Category: v.Category, DailyRateCents: v.DailyRateCents, Status: v.Status,
		Mileage: v.Mileage, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
	}
}

// Create registers a fleet vehicle; new vehicles start available.
func (h *VehicleHandler) Create(c echo.Context) error {
	var req vehicleReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v := model.Vehicle{
		Plate: req.Plate, Make: req.Make, Model: req.Model, Year: req.Year,
		Category: req.Category, DailyRateCents: req.DailyRateCents, Mileage: req.Mileage,
	}
	if err := h.Vehicles.Create(ctx, &v); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "plate already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create vehicle failed"})
	}
	full, err := h.Vehicles.GetByID(ctx, v.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusCreated, toVehicleResp(full))
}

// List returns vehicles with optional ?status= and ?category= filters.
func (h *VehicleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	vehicles, err := h.Vehicles.List(ctx, c.QueryParam("status"), c.QueryParam("category"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]vehicleResp, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehicleResp(v))
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicles": out})
}

// Get returns one vehicle.
func (h *VehicleHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toVehicleResp(v))
}

// Update overwrites the descriptive fields; status is only ever changed
// by the lifecycle transitions (reservations, maintenance, sweeper).
func (h *VehicleHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req vehicleReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v := model.Vehicle{
		ID: id, Plate: req.Plate, Make: req.Make, Model: req.Model, Year: req.Year,
		Category: req.Category, DailyRateCents: req.DailyRateCents, Mileage: req.Mileage,
	}
	if err := h.Vehicles.Update(ctx, &v); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	full, err := h.Vehicles.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toVehicleResp(full))
}

// Delete removes a vehicle with no reservation history.
func (h *VehicleHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Vehicles.Delete(ctx, id); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle has reservation history"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Calendar derives the occupied spans of one vehicle in a window.
// Whether a reservation blocks the calendar comes from the registry's
// OccupiesVehicle flag, so expired and cancelled rows drop out without
// any date arithmetic here.
func (h *VehicleHandler) Calendar(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	now := time.Now().UTC()
	from, err := parseDateQuery(c, "from", now)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	to, err := parseDateQuery(c, "to", now.AddDate(0, 1, 0))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to before from"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Vehicles.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	reservations, err := h.Reservations.ListForVehicleBetween(ctx, id, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	type occupiedSpan struct {
		ReservationID uint64    `json:"reservation_id"`
		StartDate     time.Time `json:"start_date"`
		EndDate       time.Time `json:"end_date"`
		Status        string    `json:"status"`
		CalendarClass string    `json:"calendar_class"`
	}
	occupied := make([]occupiedSpan, 0)
	for _, r := range reservations {
		cfg := lifecycle.Resolve(r.Status)
		if !cfg.OccupiesVehicle {
			continue
		}
		occupied = append(occupied, occupiedSpan{
			ReservationID: r.ID,
			StartDate:     r.StartDate,
			EndDate:       r.EndDate,
			Status:        string(cfg.Status),
			CalendarClass: cfg.CalendarClass,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"vehicle_id": id,
		"from":       from,
		"to":         to,
		"occupied":   occupied,
	})
}
