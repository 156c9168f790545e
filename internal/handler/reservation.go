package handler

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-backoffice/internal/lifecycle"
	"github.com/iliyamo/car-rental-backoffice/internal/model"
	"github.com/iliyamo/car-rental-backoffice/internal/queue"
	"github.com/iliyamo/car-rental-backoffice/internal/repository"
	queue_publisher "github.com/iliyamo/car-rental-backoffice/internal/service"
)

// ReservationHandler owns the reservation lifecycle endpoints.  Every
// manual transition goes through a guarded repository update inside a
// transaction; the lifecycle registry supplies display metadata and
// expiration countdowns.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo
	Vehicles     *repository.VehicleRepo
	Contracts    *repository.ContractRepo
	Events       *queue_publisher.Publisher // nil when the broker is disabled
}

func NewReservationHandler(r *repository.ReservationRepo, v *repository.VehicleRepo, ct *repository.ContractRepo, ev *queue_publisher.Publisher) *ReservationHandler {
	if r == nil || v == nil || ct == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: r, Vehicles: v, Contracts: ct, Events: ev}
}

// signalChange publishes an entity-changed event in the background so
// cached listings refresh.  A nil publisher disables signalling.
func (h *ReservationHandler) signalChange(action string, id uint64, entities ...string) {
	if h.Events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, entity := range entities {
			_ = h.Events.PublishEntityChanged(ctx, queue.EntityChangedEvent{
				Entity:    entity,
				Action:    action,
				ID:        id,
				Source:    "api",
				ChangedAt: time.Now().UTC().Format(time.RFC3339),
			})
		}
	}()
}

// ----- DTOs -----

type createReservationReq struct {
	CustomerID       uint64     `json:"customer_id" validate:"required"`
	VehicleID        uint64     `json:"vehicle_id" validate:"required"`
	StartDate        time.Time  `json:"start_date" validate:"required"`
	EndDate          time.Time  `json:"end_date" validate:"required"`
	TotalAmountCents uint32     `json:"total_amount_cents" validate:"required,gt=0"`
	AutoCancelAt     *time.Time `json:"auto_cancel_at"`
}

type cancelReservationReq struct {
	CancellationType string `json:"cancellation_type" validate:"required,oneof=with_refund without_refund"`
	Reason           string `json:"reason"`
}

type reservationResp struct {
	ID               uint64               `json:"id"`
	CustomerID       uint64               `json:"customer_id"`
	VehicleID        uint64               `json:"vehicle_id"`
	Status           string               `json:"status"`
	StatusLabel      string               `json:"status_label"`
	StatusColor      string               `json:"status_color"`
	BadgeClass       string               `json:"badge_class"`
	PaymentStatus    string               `json:"payment_status"`
	StartDate        time.Time            `json:"start_date"`
	EndDate          time.Time            `json:"end_date"`
	TotalAmountCents uint32               `json:"total_amount_cents"`
	AutoCancelAt     *time.Time           `json:"auto_cancel_at,omitempty"`
	CancellationType string               `json:"cancellation_type,omitempty"`
	CancelledAt      *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason     *string              `json:"cancel_reason,omitempty"`
	CustomerName     string               `json:"customer_name,omitempty"`
	VehiclePlate     string               `json:"vehicle_plate,omitempty"`
	Countdown        *lifecycle.Countdown `json:"countdown,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func toReservationResp(r model.Reservation) reservationResp {
	cfg := lifecycle.Resolve(r.Status)
	resp := reservationResp{
		ID:               r.ID,
		CustomerID:       r.CustomerID,
		VehicleID:        r.VehicleID,
		Status:           string(cfg.Status),
		StatusLabel:      cfg.Label,
		StatusColor:      cfg.Color,
		BadgeClass:       cfg.BadgeClass,
		PaymentStatus:    string(r.PaymentStatus),
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		TotalAmountCents: r.TotalAmountCents,
		AutoCancelAt:     r.AutoCancelAt,
		CancellationType: string(r.CancellationType),
		CancelledAt:      r.CancelledAt,
		CancelReason:     r.CancelReason,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if cd, ok := lifecycle.TimeUntilExpiration(r.Status, r.CreatedAt, r.AutoCancelAt, time.Now().UTC()); ok {
		resp.Countdown = &cd
	}
	return resp
}

func toDetailResp(d repository.ReservationDetail) reservationResp {
	resp := toReservationResp(d.Reservation)
	resp.CustomerName = d.CustomerName
	resp.VehiclePlate = d.VehiclePlate
	return resp
}

// Create books a vehicle: the vehicle flips from available to reserved
// and the reservation starts in awaiting_payment with the auto-cancel
// timer running.  An explicit auto_cancel_at in the past is rejected —
// storing it would make the reservation expire on the next sweep.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.EndDate.Before(req.StartDate) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date before start_date"})
	}
	if req.AutoCancelAt != nil && !req.AutoCancelAt.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "auto_cancel_at must be in the future"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Holding the vehicle is the contended step; the guarded update
	// doubles as the availability check.
	if err := h.Vehicles.TransitionStatusTx(ctx, tx, req.VehicleID, model.VehicleReserved, model.VehicleAvailable); err != nil {
		if err == repository.ErrInvalidTransition {
			return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle not available"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hold vehicle failed"})
	}

	res := model.Reservation{
		CustomerID:       req.CustomerID,
		VehicleID:        req.VehicleID,
		Status:           string(lifecycle.StatusAwaitingPayment),
		PaymentStatus:    model.PaymentPending,
		StartDate:        req.StartDate.UTC(),
		EndDate:          req.EndDate.UTC(),
		TotalAmountCents: req.TotalAmountCents,
		AutoCancelAt:     req.AutoCancelAt,
	}
	if err := h.Reservations.CreateTx(ctx, tx, &res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reservation failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	h.signalChange("created", res.ID, "reservations", "vehicles")
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// List returns reservations, ordered by the registry sort priority so
// urgent rows come first; optional ?status= and ?customer_id= filters.
func (h *ReservationHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var customerID uint64
	if raw := c.QueryParam("customer_id"); raw != "" {
		var err error
		if customerID, err = parseUint(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer_id"})
		}
	}
	details, err := h.Reservations.List(ctx, c.QueryParam("status"), customerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]reservationResp, 0, len(details))
	for _, d := range details {
		out = append(out, toDetailResp(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// Get returns one reservation with customer/vehicle context.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Reservations.GetDetail(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toDetailResp(d))
}

// MarkPaid records payment: payment_status=paid, status advances to
// paid_no_contract and the auto-cancel timer stops with it.
func (h *ReservationHandler) MarkPaid(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, tx *sql.Tx, id uint64) error {
		return h.Reservations.MarkPaidTx(ctx, tx, id)
	}, nil)
}

// GenerateContract creates the rental contract for a paid reservation
// and advances it to contract_generated.
func (h *ReservationHandler) GenerateContract(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Reservations.TransitionStatusTx(ctx, tx, id, lifecycle.StatusContractGenerated, lifecycle.StatusPaidNoContract); err != nil {
		if err == repository.ErrInvalidTransition {
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation not in a contractable state"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transition failed"})
	}
	contract := model.Contract{ReservationID: id, GeneratedBy: uid}
	if err := h.Contracts.CreateTx(ctx, tx, &contract); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "contract already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create contract failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	h.signalChange("contract_generated", id, "reservations", "contracts")
	return c.JSON(http.StatusCreated, toContractResp(contract))
}

// Confirm starts the rental: contract_generated -> confirmed, vehicle
// reserved -> rented.  Publishes a confirmation event for downstream
// notification.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Reservations.GetDetail(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Reservations.TransitionStatusTx(ctx, tx, id, lifecycle.StatusConfirmed, lifecycle.StatusContractGenerated); err != nil {
		if err == repository.ErrInvalidTransition {
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation not confirmable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transition failed"})
	}
	if err := h.Vehicles.TransitionStatusTx(ctx, tx, d.VehicleID, model.VehicleRented, model.VehicleReserved); err != nil && err != repository.ErrInvalidTransition {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update vehicle failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	if h.Events != nil {
		now := time.Now().UTC()
		if err := h.Events.PublishReservationConfirmed(ctx, queue.ReservationConfirmedEvent{
			ReservationID:    id,
			CustomerName:     d.CustomerName,
			VehiclePlate:     d.VehiclePlate,
			StartDate:        d.StartDate.Format("2006-01-02"),
			EndDate:          d.EndDate.Format("2006-01-02"),
			TotalAmountCents: d.TotalAmountCents,
			ConfirmedAt:      now.Format(time.RFC3339),
		}); err != nil {
			log.Printf("reservation: publish confirmed event failed: %v", err)
		}
	}
	h.signalChange("confirmed", id, "reservations", "vehicles")
	return c.NoContent(http.StatusNoContent)
}

// Complete closes the rental: confirmed -> completed and the vehicle
// returns to the fleet.
func (h *ReservationHandler) Complete(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, tx *sql.Tx, id uint64) error {
		if err := h.Reservations.TransitionStatusTx(ctx, tx, id, lifecycle.StatusCompleted, lifecycle.StatusConfirmed); err != nil {
			return err
		}
		return h.releaseVehicleTx(ctx, tx, id)
	}, []string{"reservations", "vehicles"})
}

// Cancel records a manual cancellation with its refund tag.  A refunded
// cancellation also flips payment_status; either way a vehicle still
// held by the reservation is released.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	var req cancelReservationReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ct := lifecycle.CancellationType(req.CancellationType)
	return h.transition(c, func(ctx context.Context, tx *sql.Tx, id uint64) error {
		if err := h.Reservations.CancelTx(ctx, tx, id, ct, req.Reason, time.Now().UTC()); err != nil {
			return err
		}
		return h.releaseVehicleTx(ctx, tx, id)
	}, []string{"reservations", "vehicles"})
}

// ExpiringSoon lists unpaid reservations with their countdowns for the
// dashboard, most urgent first.
func (h *ReservationHandler) ExpiringSoon(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cands, err := h.Reservations.ListExpirationCandidates(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	now := time.Now().UTC()
	type expiringRow struct {
		ID           uint64              `json:"id"`
		CustomerName string              `json:"customer_name"`
		Status       string              `json:"status"`
		Deadline     time.Time           `json:"deadline"`
		Countdown    lifecycle.Countdown `json:"countdown"`
	}
	out := make([]expiringRow, 0, len(cands))
	for _, cand := range cands {
		cd, ok := lifecycle.TimeUntilExpiration(cand.Status, cand.CreatedAt, cand.AutoCancelAt, now)
		if !ok {
			continue
		}
		out = append(out, expiringRow{
			ID:           cand.ID,
			CustomerName: cand.CustomerName,
			Status:       cand.Status,
			Deadline:     lifecycle.Deadline(cand.CreatedAt, cand.AutoCancelAt),
			Countdown:    cd,
		})
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Deadline.Before(out[i].Deadline) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// transition runs one guarded lifecycle step inside a transaction and
// maps the usual outcomes: 409 on an invalid source state, 204 on
// success.
func (h *ReservationHandler) transition(c echo.Context, step func(context.Context, *sql.Tx, uint64) error, entities []string) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := step(ctx, tx, id); err != nil {
		if err == repository.ErrInvalidTransition {
			return c.JSON(http.StatusConflict, echo.Map{"error": "invalid transition"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transition failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	if entities == nil {
		entities = []string{"reservations"}
	}
	h.signalChange("updated", id, entities...)
	return c.NoContent(http.StatusNoContent)
}

// releaseVehicleTx frees the reservation's vehicle if it is still held
// (reserved or rented).  A vehicle that moved to maintenance stays put.
func (h *ReservationHandler) releaseVehicleTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	var vehicleID uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT vehicle_id FROM reservations WHERE id = ?`, reservationID).Scan(&vehicleID); err != nil {
		return err
	}
	err := h.Vehicles.TransitionStatusTx(ctx, tx, vehicleID, model.VehicleAvailable,
		model.VehicleReserved, model.VehicleRented)
	if err == repository.ErrInvalidTransition {
		return nil
	}
	return err
}
