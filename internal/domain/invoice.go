package domain

import (
	"time"

	"gorm.io/gorm"
)

// Invoice is the billing document. Status holds a concrete storage status;
// logical statuses are expanded to concrete ones at query time by the
// statuses resolver.
type Invoice struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"not null" json:"title"`
	Status          string         `gorm:"not null;index;default:temp" json:"status"`
	Hash            string         `gorm:"size:36;uniqueIndex" json:"hash"`
	ClientEmail     string         `json:"client_email"`
	ClientCC        string         `gorm:"column:client_cc" json:"client_cc"`
	ClientBCC       string         `gorm:"column:client_bcc" json:"client_bcc"`
	ClientUserID    *uint          `gorm:"index" json:"client_user_id"`
	StartDate       *time.Time     `json:"start_date"`
	DueDate         *time.Time     `json:"due_date"`
	Total           float64        `gorm:"not null;default:0" json:"total"`
	Paid            float64        `gorm:"not null;default:0" json:"paid"`
	DepositRequired float64        `gorm:"not null;default:0" json:"deposit_required"`
	PONumber        string         `gorm:"column:po_number" json:"po_number"`
	Notes           string         `json:"notes"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// Balance is the amount still owed, floored at zero.
func (i Invoice) Balance() float64 {
	b := i.Total - i.Paid
	if b < 0 {
		return 0
	}
	return b
}
