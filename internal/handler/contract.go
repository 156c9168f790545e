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

// ContractHandler exposes read access to contracts plus the signature
// step.  Contracts are only ever created through the reservation
// generate-contract endpoint.
type ContractHandler struct {
	Contracts *repository.ContractRepo
}

func NewContractHandler(ct *repository.ContractRepo) *ContractHandler {
	if ct == nil {
		panic("nil repository passed to NewContractHandler")
	}
	return &ContractHandler{Contracts: ct}
}

type contractResp struct {
	ID            uint64     `json:"id"`
	ReservationID uint64     `json:"reservation_id"`
	Number        string     `json:"number"`
	GeneratedBy   uint64     `json:"generated_by"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toContractResp(c model.Contract) contractResp {
	return contractResp{
		ID: c.ID, ReservationID: c.ReservationID, Number: c.Number,
		GeneratedBy: c.GeneratedBy, SignedAt: c.SignedAt, CreatedAt: c.CreatedAt,
	}
}

// List returns contracts newest first.
func (h *ContractHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	contracts, err := h.Contracts.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]contractResp, 0, len(contracts))
	for _, ct := range contracts {
		out = append(out, toContractResp(ct))
	}
	return c.JSON(http.StatusOK, echo.Map{"contracts": out})
}

// Get returns one contract.
func (h *ContractHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ct, err := h.Contracts.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "contract not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toContractResp(ct))
}

// Sign records the signature timestamp on an unsigned contract.
func (h *ContractHandler) Sign(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Contracts.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Contracts.MarkSignedTx(ctx, tx, id, time.Now().UTC()); err != nil {
		if err == repository.ErrInvalidTransition {
			return c.JSON(http.StatusConflict, echo.Map{"error": "contract already signed or missing"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.NoContent(http.StatusNoContent)
}
