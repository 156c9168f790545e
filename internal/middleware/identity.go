package middleware

// identity.go holds the user identification helper shared by the
// middleware in this package, mainly for building rate-limit keys.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a stable identifier for the authenticated user,
// or "anon" when no JWT claims are present in the context.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	case uint64:
		return fmt.Sprintf("%d", v)
	}
	return "anon"
}
