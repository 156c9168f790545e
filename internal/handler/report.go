package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-backoffice/internal/lifecycle"
	"github.com/iliyamo/car-rental-backoffice/internal/repository"
)

// ReportHandler produces the revenue report.  The inclusion rule lives
// in the lifecycle registry; this handler only sums what the registry
// admits.
type ReportHandler struct {
	Reservations *repository.ReservationRepo
}

func NewReportHandler(r *repository.ReservationRepo) *ReportHandler {
	if r == nil {
		panic("nil repository passed to NewReportHandler")
	}
	return &ReportHandler{Reservations: r}
}

// Revenue sums reservation totals over ?from / ?to (defaulting to the
// current month).  Cancelled rows count only when the cancellation was
// without refund.
func (h *ReportHandler) Revenue(c echo.Context) error {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from, err := parseDateQuery(c, "from", monthStart)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	to, err := parseDateQuery(c, "to", monthStart.AddDate(0, 1, 0))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to before from"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Reservations.RevenueRows(ctx, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	var (
		total    uint64
		included int
	)
	for _, row := range rows {
		if !lifecycle.IncludeInRevenue(row.Status, row.CancellationType) {
			continue
		}
		total += uint64(row.TotalAmountCents)
		included++
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":         from,
		"to":           to,
		"total_cents":  total,
		"reservations": included,
	})
}
