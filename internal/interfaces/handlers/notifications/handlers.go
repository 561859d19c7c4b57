package notifications

import (
	"errors"

	invsvc "wicked-backend/internal/application/invoices"
	notifsvc "wicked-backend/internal/application/notifications"
	"wicked-backend/internal/middleware"
	"wicked-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for notification endpoints.
type Handlers struct {
	Rules  *notifsvc.Rules
	Engine *notifsvc.Engine
}

// GetSettings GET /api/v1/notifications/settings — normalized rules plus
// the license cap.
func (h *Handlers) GetSettings(c *fiber.Ctx) error {
	rules := h.Rules.Effective(c.Context())
	return response.Success(c, "Notification settings", fiber.Map{
		"rules":     rules,
		"max_rules": h.Rules.MaxRules(),
	}, nil)
}

// SaveSettings POST /api/v1/notifications/settings — accepts {rules: [...]}
// or legacy flat fields, sanitizes, enforces the cap, persists.
func (h *Handlers) SaveSettings(c *fiber.Ctx) error {
	var payload notifsvc.StoredSettings
	if err := c.BodyParser(&payload); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	rules, max, err := h.Rules.Save(c.Context(), payload)
	if err != nil {
		return response.Error(c, "Failed to save notification settings", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Notification settings saved", fiber.Map{
		"ok":        true,
		"rules":     rules,
		"max_rules": max,
	}, nil)
}

// TestSendRequest selects the rule and invoice for a test send.
type TestSendRequest struct {
	RuleID    string `json:"rule_id"`
	Rule      string `json:"rule"` // legacy alias: "sent" | "paid"
	InvoiceID uint   `json:"invoice_id"`
}

// TestSend POST /api/v1/notifications/test-send — renders a rule and mails
// it to the requesting user only.
func (h *Handlers) TestSend(c *fiber.Ctx) error {
	var req TestSendRequest
	_ = c.BodyParser(&req)

	email := middleware.CurrentEmail(c)
	res, err := h.Engine.TestSend(c.Context(), notifsvc.TestSendInput{
		Email:     email,
		RuleID:    req.RuleID,
		Legacy:    req.Rule,
		InvoiceID: req.InvoiceID,
	})
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Success(c, "Test send processed", res, nil)
}

// ResendRequest names the invoice to re-arm.
type ResendRequest struct {
	InvoiceID uint `json:"invoice_id"`
}

// Resend POST /api/v1/notifications/resend — clears the invoice's sent
// markers and schedules an engine run.
func (h *Handlers) Resend(c *fiber.Ctx) error {
	var req ResendRequest
	if err := c.BodyParser(&req); err != nil || req.InvoiceID == 0 {
		return response.Error(c, "invoice_id is required", fiber.StatusBadRequest, nil)
	}
	if err := h.Engine.Resend(c.Context(), req.InvoiceID); err != nil {
		if errors.Is(err, invsvc.ErrNotFound) {
			return response.NotFound(c, "Invoice not found")
		}
		return response.Error(c, "Failed to resend notifications", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Notifications re-armed", fiber.Map{"invoice_id": req.InvoiceID}, nil)
}
