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

// CustomerHandler owns customer-record CRUD.  Customers never log in;
// these records exist so agents can attach reservations and contracts.
type CustomerHandler struct {
	Customers *repository.CustomerRepo
}

func NewCustomerHandler(cr *repository.CustomerRepo) *CustomerHandler {
	if cr == nil {
		panic("nil repository passed to NewCustomerHandler")
	}
	return &CustomerHandler{Customers: cr}
}

type customerReq struct {
	FullName      string `json:"full_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone"`
	DocumentID    string `json:"document_id" validate:"required"`
	LicenseNumber string `json:"license_number" validate:"required"`
}

type customerResp struct {
	ID            uint64    `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	DocumentID    string    `json:"document_id"`
	LicenseNumber string    `json:"license_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toCustomerResp(c model.Customer) customerResp {
	return customerResp{
		ID: c.ID, FullName: c.FullName, Email: c.Email, Phone: c.Phone,
		DocumentID: c.DocumentID, LicenseNumber: c.LicenseNumber,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

// Create registers a customer.
func (h *CustomerHandler) Create(c echo.Context) error {
	var req customerReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cust := model.Customer{
		FullName: req.FullName, Email: req.Email, Phone: req.Phone,
		DocumentID: req.DocumentID, LicenseNumber: req.LicenseNumber,
	}
	if err := h.Customers.Create(ctx, &cust); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email or document already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create customer failed"})
	}
	full, err := h.Customers.GetByID(ctx, cust.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusCreated, toCustomerResp(full))
}

// List searches customers by name, email or document; empty ?q= lists
// everyone.
func (h *CustomerHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	customers, err := h.Customers.Search(ctx, c.QueryParam("q"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	out := make([]customerResp, 0, len(customers))
	for _, cust := range customers {
		out = append(out, toCustomerResp(cust))
	}
	return c.JSON(http.StatusOK, echo.Map{"customers": out})
}

// Get returns one customer.
func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cust, err := h.Customers.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toCustomerResp(cust))
}

// Update overwrites contact and document fields.
func (h *CustomerHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req customerReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cust := model.Customer{
		ID: id, FullName: req.FullName, Email: req.Email, Phone: req.Phone,
		DocumentID: req.DocumentID, LicenseNumber: req.LicenseNumber,
	}
	if err := h.Customers.Update(ctx, &cust); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	full, err := h.Customers.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toCustomerResp(full))
}

// Delete removes a customer with no reservation history.
func (h *CustomerHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Customers.Delete(ctx, id); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "customer has reservation history"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
