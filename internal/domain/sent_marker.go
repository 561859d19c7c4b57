package domain

import "time"

// SentMarker records that a notification rule has already fired for an
// invoice. Its presence makes the (invoice, rule) pair ineligible for
// further dispatch until explicitly cleared by a resend.
type SentMarker struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	InvoiceID uint      `gorm:"not null;uniqueIndex:idx_sent_invoice_rule" json:"invoice_id"`
	RuleID    string    `gorm:"not null;uniqueIndex:idx_sent_invoice_rule;size:64" json:"rule_id"`
	SentAt    time.Time `json:"sent_at"`
}

func (SentMarker) TableName() string {
	return "invoice_sent_markers"
}
