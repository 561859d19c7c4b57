package settings

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"wicked-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting blob keys.
const (
	KeyCore          = "wicked_invoicing_settings"
	KeyNotifications = "wicked_invoicing_notifications"
)

// CoreSettings is the main settings blob. Missing fields
// degrade to safe defaults; loading never fails invoice operations.
type CoreSettings struct {
	DebugEnabled bool                `json:"debug_enabled"`
	SuperAdmin   uint                `json:"super_admin"`
	RoleCaps     map[string][]string `json:"role_caps"`
	StatusLabels map[string]string   `json:"status_labels"`
}

// Service reads and writes named JSON settings blobs. Every write bumps the
// version counter so cached views (e.g. the status resolver) can invalidate
// explicitly instead of guessing at call order.
type Service struct {
	DB *gorm.DB

	version atomic.Int64
}

// Version returns the current settings version. It increases on every Put.
func (s *Service) Version() int64 {
	return s.version.Load()
}

// Get unmarshals the blob stored under key into out. A missing row leaves
// out untouched and returns nil.
func (s *Service) Get(ctx context.Context, key string, out interface{}) error {
	var row domain.Setting
	err := s.DB.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(row.Value, out)
}

// Put upserts the blob stored under key.
func (s *Service) Put(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	row := domain.Setting{Key: key, Value: b}
	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	s.version.Add(1)
	return nil
}

// Core loads the main settings blob, degrading to zero values on any
// error: the resolver must never block on missing configuration.
func (s *Service) Core(ctx context.Context) CoreSettings {
	var cs CoreSettings
	if err := s.Get(ctx, KeyCore, &cs); err != nil {
		log.Warn().Err(err).Msg("settings: core blob unreadable, using defaults")
		return CoreSettings{}
	}
	return cs
}

// SaveCore persists the main settings blob.
func (s *Service) SaveCore(ctx context.Context, cs CoreSettings) error {
	return s.Put(ctx, KeyCore, cs)
}

// DebugEnabled reports whether diagnostic logging is switched on in settings.
func (s *Service) DebugEnabled(ctx context.Context) bool {
	return s.Core(ctx).DebugEnabled
}
