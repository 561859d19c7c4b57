package payments

import (
	"context"
	"testing"

	invsvc "wicked-backend/internal/application/invoices"
	"wicked-backend/internal/application/settings"
	"wicked-backend/internal/application/statuses"
	"wicked-backend/internal/constants"
	"wicked-backend/internal/domain"
	"wicked-backend/internal/events"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPayments(t *testing.T) (*Service, *invsvc.Service, *events.Manager) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Invoice{}, &domain.SentMarker{}, &domain.Setting{}, &domain.Payment{}))

	settingsSvc := &settings.Service{DB: db}
	bus := events.NewManager()
	invoices := &invsvc.Service{DB: db, Resolver: statuses.New(settingsSvc), Bus: bus}
	return &Service{DB: db, Invoices: invoices}, invoices, bus
}

func TestRecord_RejectsNonPositiveAmount(t *testing.T) {
	s, inv, _ := setupPayments(t)
	created, err := inv.Create(context.Background(), invsvc.CreateInput{Title: "T", Total: 10})
	require.NoError(t, err)

	_, _, err = s.Record(context.Background(), RecordInput{InvoiceID: created.ID, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = s.Record(context.Background(), RecordInput{InvoiceID: created.ID, Amount: -5})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRecord_UnknownInvoice(t *testing.T) {
	s, _, _ := setupPayments(t)
	_, _, err := s.Record(context.Background(), RecordInput{InvoiceID: 999, Amount: 10})
	assert.ErrorIs(t, err, invsvc.ErrNotFound)
}

func TestRecord_PartialPaymentKeepsStatus(t *testing.T) {
	s, inv, _ := setupPayments(t)
	ctx := context.Background()
	created, err := inv.Create(ctx, invsvc.CreateInput{Title: "T", Total: 100})
	require.NoError(t, err)
	_, err = inv.SetStatus(ctx, created.ID, constants.StatusPending)
	require.NoError(t, err)

	p, updated, err := s.Record(ctx, RecordInput{InvoiceID: created.ID, Amount: 30, Method: "check"})
	require.NoError(t, err)
	assert.Equal(t, 30.0, p.Amount)
	assert.Equal(t, 30.0, updated.Paid)
	assert.Equal(t, constants.StatusPending, updated.Status)
}

func TestRecord_FullPaymentMarksPaid(t *testing.T) {
	s, inv, bus := setupPayments(t)
	ctx := context.Background()
	ch := make(chan interface{}, 4)
	bus.Register(events.TypeInvoiceStatusChanged, ch)

	created, err := inv.Create(ctx, invsvc.CreateInput{Title: "T", Total: 100})
	require.NoError(t, err)
	_, err = inv.SetStatus(ctx, created.ID, constants.StatusPending)
	require.NoError(t, err)

	_, updated, err := s.Record(ctx, RecordInput{InvoiceID: created.ID, Amount: 60})
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPending, updated.Status)

	_, updated, err = s.Record(ctx, RecordInput{InvoiceID: created.ID, Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPaid, updated.Status)

	// pending transition + paid transition, both through the event bus.
	require.Len(t, drain(ch), 2)
}

func TestRecord_DepositThresholdAdvancesStatus(t *testing.T) {
	s, inv, _ := setupPayments(t)
	ctx := context.Background()
	created, err := inv.Create(ctx, invsvc.CreateInput{Title: "T", Total: 1000, DepositRequired: 250})
	require.NoError(t, err)
	_, err = inv.SetStatus(ctx, created.ID, constants.StatusDepositRequired)
	require.NoError(t, err)

	_, updated, err := s.Record(ctx, RecordInput{InvoiceID: created.ID, Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDepositRequired, updated.Status)

	_, updated, err = s.Record(ctx, RecordInput{InvoiceID: created.ID, Amount: 150})
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDepositPaid, updated.Status)
}

func TestRecord_NoDepositConfiguredNoAdvance(t *testing.T) {
	s, inv, _ := setupPayments(t)
	ctx := context.Background()
	created, err := inv.Create(ctx, invsvc.CreateInput{Title: "T", Total: 1000})
	require.NoError(t, err)
	_, err = inv.SetStatus(ctx, created.ID, constants.StatusDepositRequired)
	require.NoError(t, err)

	_, updated, err := s.Record(ctx, RecordInput{InvoiceID: created.ID, Amount: 500})
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDepositRequired, updated.Status)
}

func TestList_NewestFirst(t *testing.T) {
	s, inv, _ := setupPayments(t)
	ctx := context.Background()
	created, err := inv.Create(ctx, invsvc.CreateInput{Title: "T", Total: 100})
	require.NoError(t, err)

	_, _, err = s.Record(ctx, RecordInput{InvoiceID: created.ID, Amount: 10, Note: "first"})
	require.NoError(t, err)
	_, _, err = s.Record(ctx, RecordInput{InvoiceID: created.ID, Amount: 20, Note: "second"})
	require.NoError(t, err)

	got, err := s.List(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 30.0, got[0].Amount+got[1].Amount)
}

func drain(ch chan interface{}) []interface{} {
	var out []interface{}
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
