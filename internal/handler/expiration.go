package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-backoffice/internal/sweeper"
)

// ExpirationHandler exposes the expiration sweep to external schedulers
// (cron, cloud scheduler) so unpaid reservations get cleaned up even
// when no long-running process is around.  It runs the exact same sweep
// as the background runner.
type ExpirationHandler struct {
	Sweeper *sweeper.Sweeper
}

func NewExpirationHandler(s *sweeper.Sweeper) *ExpirationHandler {
	if s == nil {
		panic("nil sweeper passed to NewExpirationHandler")
	}
	return &ExpirationHandler{Sweeper: s}
}

// Expire runs one sweep cycle and reports what it cancelled.
func (h *ExpirationHandler) Expire(c echo.Context) error {
	res, err := h.Sweeper.Sweep(c.Request().Context())
	if err != nil {
		log.Printf("expire-reservations: sweep failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "sweep failed",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"cancelled":    res.Cancelled,
		"reservations": res.Reservations,
	})
}
