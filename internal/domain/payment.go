package domain

import "time"

// Payment is a bookkeeping entry against an invoice. No processor
// integration; amounts are recorded as reported.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	InvoiceID uint      `gorm:"not null;index" json:"invoice_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Method    string    `json:"method"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
