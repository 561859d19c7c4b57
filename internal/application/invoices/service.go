package invoices

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"wicked-backend/internal/application/statuses"
	"wicked-backend/internal/constants"
	"wicked-backend/internal/domain"
	"wicked-backend/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Statuses under which an invoice is reachable through its public hash.
var hashVisibleStatuses = []string{
	constants.StatusTemp,
	constants.StatusPending,
	constants.StatusDepositRequired,
	constants.StatusDepositPaid,
	constants.StatusPaid,
}

var ErrNotFound = errors.New("invoice not found")

type Service struct {
	DB       *gorm.DB
	Resolver *statuses.Resolver
	Bus      *events.Manager
}

type CreateInput struct {
	Title           string
	ClientEmail     string
	ClientCC        string
	ClientBCC       string
	ClientUserID    *uint
	StartDate       *time.Time
	DueDate         *time.Time
	Total           float64
	DepositRequired float64
	PONumber        string
	Notes           string
}

// Create inserts a new invoice in the temp status with a fresh public hash
// and emits InvoiceCreated.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Invoice, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	inv := &domain.Invoice{
		Title:           title,
		Status:          constants.StatusTemp,
		Hash:            newHash(),
		ClientEmail:     strings.TrimSpace(in.ClientEmail),
		ClientCC:        in.ClientCC,
		ClientBCC:       in.ClientBCC,
		ClientUserID:    in.ClientUserID,
		StartDate:       in.StartDate,
		DueDate:         in.DueDate,
		Total:           in.Total,
		DepositRequired: in.DepositRequired,
		PONumber:        in.PONumber,
		Notes:           in.Notes,
	}
	if err := s.DB.WithContext(ctx).Create(inv).Error; err != nil {
		return nil, err
	}
	if s.Bus != nil {
		s.Bus.Emit(events.TypeInvoiceCreated, events.InvoiceCreated{InvoiceID: inv.ID, Status: inv.Status})
	}
	return inv, nil
}

func (s *Service) GetByID(ctx context.Context, id uint) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.DB.WithContext(ctx).First(&inv, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByHash looks an invoice up by its public hash. Only invoices in a
// visible status resolve; anything else behaves as missing.
func (s *Service) GetByHash(ctx context.Context, hash string) (*domain.Invoice, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, ErrNotFound
	}
	var inv domain.Invoice
	err := s.DB.WithContext(ctx).
		Where("hash = ? AND status IN ?", hash, hashVisibleStatuses).
		First(&inv).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

type ListInput struct {
	Page    int
	PerPage int
	Status  string // logical status; expanded through the bucket map
}

type ListResult struct {
	Invoices []domain.Invoice `json:"invoices"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}

func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PerPage < 1 || in.PerPage > 100 {
		in.PerPage = 10
	}

	q := s.DB.WithContext(ctx).Model(&domain.Invoice{})
	if in.Status != "" {
		expanded := s.Resolver.ExpandStatus(statuses.NormalizeSlug(in.Status))
		q = q.Where("status IN ?", expanded)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var invs []domain.Invoice
	err := q.Order("created_at DESC").
		Offset((in.Page - 1) * in.PerPage).
		Limit(in.PerPage).
		Find(&invs).Error
	if err != nil {
		return nil, err
	}
	return &ListResult{Invoices: invs, Total: total, Page: in.Page, PerPage: in.PerPage}, nil
}

// SetStatus transitions an invoice to a new concrete status and emits
// InvoiceStatusChanged. A no-op transition emits nothing.
func (s *Service) SetStatus(ctx context.Context, id uint, status string) (*domain.Invoice, error) {
	status = statuses.NormalizeSlug(status)
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := inv.Status
	if old == status {
		return inv, nil
	}
	if err := s.DB.WithContext(ctx).Model(inv).Update("status", status).Error; err != nil {
		return nil, err
	}
	inv.Status = status
	if s.Bus != nil {
		s.Bus.Emit(events.TypeInvoiceStatusChanged, events.InvoiceStatusChanged{
			InvoiceID: inv.ID,
			OldStatus: old,
			NewStatus: status,
		})
	}
	return inv, nil
}

// UpdateInput carries optional field changes; nil fields are untouched.
// Status is not updatable here, SetStatus owns transitions.
type UpdateInput struct {
	Title           *string
	ClientEmail     *string
	ClientCC        *string
	ClientBCC       *string
	ClientUserID    *uint
	StartDate       *time.Time
	DueDate         *time.Time
	Total           *float64
	DepositRequired *float64
	PONumber        *string
	Notes           *string
}

// Update applies partial field changes to an invoice.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*domain.Invoice, error) {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, errors.New("title is required")
		}
		changes["title"] = title
	}
	if in.ClientEmail != nil {
		changes["client_email"] = strings.TrimSpace(*in.ClientEmail)
	}
	if in.ClientCC != nil {
		changes["client_cc"] = *in.ClientCC
	}
	if in.ClientBCC != nil {
		changes["client_bcc"] = *in.ClientBCC
	}
	if in.ClientUserID != nil {
		changes["client_user_id"] = *in.ClientUserID
	}
	if in.StartDate != nil {
		changes["start_date"] = *in.StartDate
	}
	if in.DueDate != nil {
		changes["due_date"] = *in.DueDate
	}
	if in.Total != nil {
		changes["total"] = *in.Total
	}
	if in.DepositRequired != nil {
		changes["deposit_required"] = *in.DepositRequired
	}
	if in.PONumber != nil {
		changes["po_number"] = *in.PONumber
	}
	if in.Notes != nil {
		changes["notes"] = *in.Notes
	}
	if len(changes) == 0 {
		return inv, nil
	}

	if err := s.DB.WithContext(ctx).Model(inv).Updates(changes).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// AddPaid bumps the recorded paid amount. Status transitions are the
// payments service's concern.
func (s *Service) AddPaid(ctx context.Context, id uint, amount float64) (*domain.Invoice, error) {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(inv).
		Update("paid", gorm.Expr("paid + ?", amount)).Error; err != nil {
		return nil, err
	}
	inv.Paid += amount
	return inv, nil
}

// MostRecent returns the newest invoice regardless of status, used by the
// notification test send when no invoice is chosen.
func (s *Service) MostRecent(ctx context.Context) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.DB.WithContext(ctx).Order("created_at DESC").First(&inv).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindForRule returns up to limit invoices whose status is in the
// (already bucket-expanded) status set and which carry no sent-marker for
// the rule, newest first.
func (s *Service) FindForRule(ctx context.Context, concreteStatuses []string, ruleID string, limit int) ([]domain.Invoice, error) {
	if len(concreteStatuses) == 0 {
		return nil, nil
	}
	sub := s.DB.Model(&domain.SentMarker{}).Select("invoice_id").Where("rule_id = ?", ruleID)

	var invs []domain.Invoice
	err := s.DB.WithContext(ctx).
		Where("status IN ?", concreteStatuses).
		Where("id NOT IN (?)", sub).
		Order("created_at DESC").
		Limit(limit).
		Find(&invs).Error
	if err != nil {
		return nil, err
	}
	return invs, nil
}

// MarkSent writes the sent-marker for (invoice, rule). Writing an existing
// marker is a no-op.
func (s *Service) MarkSent(ctx context.Context, invoiceID uint, ruleID string) error {
	marker := domain.SentMarker{InvoiceID: invoiceID, RuleID: ruleID, SentAt: time.Now()}
	err := s.DB.WithContext(ctx).Create(&marker).Error
	if err != nil && isDuplicate(err) {
		return nil
	}
	return err
}

// HasMarker reports whether a sent-marker exists for (invoice, rule).
func (s *Service) HasMarker(ctx context.Context, invoiceID uint, ruleID string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.SentMarker{}).
		Where("invoice_id = ? AND rule_id = ?", invoiceID, ruleID).
		Count(&n).Error
	return n > 0, err
}

// ClearSentMarkers removes the markers for one invoice across the given
// rule IDs, re-arming those rules for it.
func (s *Service) ClearSentMarkers(ctx context.Context, invoiceID uint, ruleIDs []string) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).
		Where("invoice_id = ? AND rule_id IN ?", invoiceID, ruleIDs).
		Delete(&domain.SentMarker{}).Error
}

// LinkedClient resolves the user account an invoice is linked to, if any.
func (s *Service) LinkedClient(ctx context.Context, inv *domain.Invoice) (*domain.User, error) {
	if inv.ClientUserID == nil {
		return nil, nil
	}
	var u domain.User
	err := s.DB.WithContext(ctx).First(&u, *inv.ClientUserID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func newHash() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

func isDuplicate(err error) bool {
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(strings.ToLower(err.Error()), "unique"))
}
