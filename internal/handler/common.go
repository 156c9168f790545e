package handler // handler defines the HTTP handlers of the back office

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// One validator instance for the whole package; it is safe for
// concurrent use and caches struct metadata.
var validate = validator.New()

// bindAndValidate binds the JSON body into req and runs its validate
// tags.  The returned error is safe to echo back to the client.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.New("invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	return nil
}

// parseID reads a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// parseUint parses a numeric query value.
func parseUint(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}

// parseDateQuery reads an RFC3339 or YYYY-MM-DD query parameter,
// returning def when absent.
func parseDateQuery(c echo.Context, name string, def time.Time) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("invalid date for " + name)
	}
	return t.UTC(), nil
}

// getUserID extracts the user_id stored by the JWT middleware and
// converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}
