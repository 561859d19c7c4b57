package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a staff or client account. Roles feed the capability resolver;
// CC/BCC are fallbacks for invoices linked to this user that carry no
// addresses of their own.
type User struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	Fullname     string                      `gorm:"not null" json:"fullname"`
	Email        string                      `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string                      `gorm:"not null" json:"-"`
	Roles        datatypes.JSONSlice[string] `json:"roles"`
	CC           string                      `gorm:"column:cc" json:"cc"`
	BCC          string                      `gorm:"column:bcc" json:"bcc"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	DeletedAt    gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
