package payments

import (
	"errors"

	invsvc "wicked-backend/internal/application/invoices"
	paysvc "wicked-backend/internal/application/payments"
	"wicked-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *paysvc.Service
}

type RecordRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
	Note   string  `json:"note"`
}

// Record POST /api/v1/invoices/:id/payments — books a payment against
// the invoice and advances its status when thresholds are crossed.
func (h *Handlers) Record(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid invoice id", fiber.StatusBadRequest, nil)
	}
	var req RecordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	payment, inv, err := h.Service.Record(c.Context(), paysvc.RecordInput{
		InvoiceID: uint(id),
		Amount:    req.Amount,
		Method:    req.Method,
		Note:      req.Note,
	})
	if err != nil {
		if errors.Is(err, invsvc.ErrNotFound) {
			return response.NotFound(c, "Invoice not found")
		}
		if errors.Is(err, paysvc.ErrInvalidAmount) {
			return response.Error(c, "Amount must be greater than zero", fiber.StatusBadRequest, nil)
		}
		return response.Error(c, "Failed to record payment", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Payment recorded", fiber.Map{
		"payment": payment,
		"invoice": inv,
	}, nil)
}

// List GET /api/v1/invoices/:id/payments
func (h *Handlers) List(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.Error(c, "Invalid invoice id", fiber.StatusBadRequest, nil)
	}
	payments, err := h.Service.List(c.Context(), uint(id))
	if err != nil {
		return response.Error(c, "Failed to list payments", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Payments", fiber.Map{"payments": payments}, nil)
}
