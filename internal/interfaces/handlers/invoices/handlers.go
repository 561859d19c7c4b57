package invoices

import (
	"errors"
	"time"

	invsvc "wicked-backend/internal/application/invoices"
	"wicked-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *invsvc.Service
}

// CreateRequest body for invoice creation. Dates are RFC 3339.
type CreateRequest struct {
	Title           string  `json:"title"`
	ClientEmail     string  `json:"client_email"`
	ClientCC        string  `json:"client_cc"`
	ClientBCC       string  `json:"client_bcc"`
	ClientUserID    *uint   `json:"client_user_id"`
	StartDate       *string `json:"start_date"`
	DueDate         *string `json:"due_date"`
	Total           float64 `json:"total"`
	DepositRequired float64 `json:"deposit_required"`
	PONumber        string  `json:"po_number"`
	Notes           string  `json:"notes"`
}

// Create POST /api/v1/invoices — new invoice in temp status.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.Title == "" {
		return response.Error(c, "Title is required", fiber.StatusBadRequest, nil)
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return response.Error(c, "Invalid start_date", fiber.StatusBadRequest, nil)
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return response.Error(c, "Invalid due_date", fiber.StatusBadRequest, nil)
	}

	inv, err := h.Service.Create(c.Context(), invsvc.CreateInput{
		Title:           req.Title,
		ClientEmail:     req.ClientEmail,
		ClientCC:        req.ClientCC,
		ClientBCC:       req.ClientBCC,
		ClientUserID:    req.ClientUserID,
		StartDate:       start,
		DueDate:         due,
		Total:           req.Total,
		DepositRequired: req.DepositRequired,
		PONumber:        req.PONumber,
		Notes:           req.Notes,
	})
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.SuccessCreated(c, "Invoice created", fiber.Map{"invoice": inv}, nil)
}

// List GET /api/v1/invoices?page=&per_page=&status= — paginated, with
// logical-status filtering.
func (h *Handlers) List(c *fiber.Ctx) error {
	res, err := h.Service.List(c.Context(), invsvc.ListInput{
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", 10),
		Status:  c.Query("status"),
	})
	if err != nil {
		return response.Error(c, "Failed to list invoices", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Invoices", fiber.Map{"invoices": res.Invoices}, fiber.Map{
		"total":    res.Total,
		"page":     res.Page,
		"per_page": res.PerPage,
	})
}

// Get GET /api/v1/invoices/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid invoice id", fiber.StatusBadRequest, nil)
	}
	inv, err := h.Service.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, invsvc.ErrNotFound) {
			return response.NotFound(c, "Invoice not found")
		}
		return response.Error(c, "Failed to load invoice", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Invoice", fiber.Map{"invoice": inv}, nil)
}

// UpdateRequest body for partial invoice edits. Absent fields are
// untouched; dates are RFC 3339.
type UpdateRequest struct {
	Title           *string  `json:"title"`
	ClientEmail     *string  `json:"client_email"`
	ClientCC        *string  `json:"client_cc"`
	ClientBCC       *string  `json:"client_bcc"`
	ClientUserID    *uint    `json:"client_user_id"`
	StartDate       *string  `json:"start_date"`
	DueDate         *string  `json:"due_date"`
	Total           *float64 `json:"total"`
	DepositRequired *float64 `json:"deposit_required"`
	PONumber        *string  `json:"po_number"`
	Notes           *string  `json:"notes"`
}

// Update PATCH /api/v1/invoices/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid invoice id", fiber.StatusBadRequest, nil)
	}
	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return response.Error(c, "Invalid start_date", fiber.StatusBadRequest, nil)
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return response.Error(c, "Invalid due_date", fiber.StatusBadRequest, nil)
	}

	inv, err := h.Service.Update(c.Context(), uint(id), invsvc.UpdateInput{
		Title:           req.Title,
		ClientEmail:     req.ClientEmail,
		ClientCC:        req.ClientCC,
		ClientBCC:       req.ClientBCC,
		ClientUserID:    req.ClientUserID,
		StartDate:       start,
		DueDate:         due,
		Total:           req.Total,
		DepositRequired: req.DepositRequired,
		PONumber:        req.PONumber,
		Notes:           req.Notes,
	})
	if err != nil {
		if errors.Is(err, invsvc.ErrNotFound) {
			return response.NotFound(c, "Invoice not found")
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Success(c, "Invoice updated", fiber.Map{"invoice": inv}, nil)
}

// SetStatusRequest carries the target logical status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus PATCH /api/v1/invoices/:id/status
func (h *Handlers) SetStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid invoice id", fiber.StatusBadRequest, nil)
	}
	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return response.Error(c, "Status is required", fiber.StatusBadRequest, nil)
	}
	inv, err := h.Service.SetStatus(c.Context(), uint(id), req.Status)
	if err != nil {
		if errors.Is(err, invsvc.ErrNotFound) {
			return response.NotFound(c, "Invoice not found")
		}
		return response.Error(c, "Failed to update status", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Status updated", fiber.Map{"invoice": inv}, nil)
}

// GetByHash GET /api/v1/public/invoices/:hash — the client-facing view,
// no auth.
func (h *Handlers) GetByHash(c *fiber.Ctx) error {
	inv, err := h.Service.GetByHash(c.Context(), c.Params("hash"))
	if err != nil {
		if errors.Is(err, invsvc.ErrNotFound) {
			return response.NotFound(c, "Invoice not found")
		}
		return response.Error(c, "Failed to load invoice", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Invoice", fiber.Map{"invoice": inv}, nil)
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("unrecognized date format")
}
