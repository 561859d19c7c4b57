package payments

import (
	"context"
	"errors"

	"wicked-backend/internal/application/invoices"
	"wicked-backend/internal/constants"
	"wicked-backend/internal/domain"

	"gorm.io/gorm"
)

// ErrInvalidAmount is returned when a payment amount is zero or negative.
var ErrInvalidAmount = errors.New("amount must be positive")

// Service records payment bookkeeping entries against invoices. There is
// no processor integration; amounts are taken as reported and the invoice
// status advances when the deposit or the total is covered.
type Service struct {
	DB       *gorm.DB
	Invoices *invoices.Service
}

type RecordInput struct {
	InvoiceID uint    `json:"invoice_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Note      string  `json:"note"`
}

// Record adds a payment row, bumps the invoice's paid amount, and applies
// status transitions through the invoice service so change events fire.
func (s *Service) Record(ctx context.Context, in RecordInput) (*domain.Payment, *domain.Invoice, error) {
	if in.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	inv, err := s.Invoices.GetByID(ctx, in.InvoiceID)
	if err != nil {
		return nil, nil, err
	}

	p := &domain.Payment{
		InvoiceID: inv.ID,
		Amount:    in.Amount,
		Method:    in.Method,
		Note:      in.Note,
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, nil, err
	}

	inv, err = s.Invoices.AddPaid(ctx, inv.ID, in.Amount)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case inv.Total > 0 && inv.Paid >= inv.Total:
		inv, err = s.Invoices.SetStatus(ctx, inv.ID, constants.StatusPaid)
	case inv.Status == constants.StatusDepositRequired &&
		inv.DepositRequired > 0 && inv.Paid >= inv.DepositRequired:
		inv, err = s.Invoices.SetStatus(ctx, inv.ID, constants.StatusDepositPaid)
	}
	if err != nil {
		return nil, nil, err
	}
	return p, inv, nil
}

// List returns an invoice's payments, newest first.
func (s *Service) List(ctx context.Context, invoiceID uint) ([]domain.Payment, error) {
	var out []domain.Payment
	err := s.DB.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
