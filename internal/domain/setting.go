package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is a named JSON configuration blob (capability matrix, status
// label overrides, notification rules). One row per key.
type Setting struct {
	Key       string         `gorm:"primaryKey;size:128" json:"key"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}
