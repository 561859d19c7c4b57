package dashboard

import (
	"context"
	"time"

	"wicked-backend/internal/application/statuses"
	"wicked-backend/internal/constants"
	"wicked-backend/internal/domain"

	"gorm.io/gorm"
)

// Summary is the reporting payload: per-logical-status counts (with
// underscore aliases), overdue count, and money totals.
type Summary struct {
	CountsByStatus map[string]int64 `json:"counts_by_status"`
	OverdueCount   int64            `json:"overdue_count"`
	Outstanding    float64          `json:"outstanding"`
	Collected      float64          `json:"collected"`
}

type Service struct {
	DB       *gorm.DB
	Resolver *statuses.Resolver
}

// Collect builds the dashboard summary. Concrete statuses fold into
// logical buckets via the resolver, so drafts count under temp.
func (s *Service) Collect(ctx context.Context) (*Summary, error) {
	type statusCount struct {
		Status string
		N      int64
	}
	var rows []statusCount
	err := s.DB.WithContext(ctx).Model(&domain.Invoice{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	concrete := make(map[string]int64, len(rows))
	for _, r := range rows {
		concrete[r.Status] = r.N
	}

	counts := make(map[string]int64)
	bm := s.Resolver.BucketMap()
	for _, logical := range s.Resolver.StatusSlugs() {
		var n int64
		for _, c := range bm[logical] {
			n += concrete[c]
		}
		counts[logical] = n
	}

	overdueSet := s.Resolver.ExpandStatuses(s.Resolver.OverdueStatuses())
	var overdue int64
	err = s.DB.WithContext(ctx).Model(&domain.Invoice{}).
		Where("due_date IS NOT NULL AND due_date < ? AND status IN ?", time.Now(), overdueSet).
		Count(&overdue).Error
	if err != nil {
		return nil, err
	}

	type sums struct {
		Outstanding float64
		Collected   float64
	}
	var m sums
	err = s.DB.WithContext(ctx).Model(&domain.Invoice{}).
		Select("COALESCE(SUM(CASE WHEN total > paid THEN total - paid ELSE 0 END), 0) as outstanding, COALESCE(SUM(paid), 0) as collected").
		Where("status NOT IN ?", s.Resolver.ExpandStatus(constants.StatusTemp)).
		Scan(&m).Error
	if err != nil {
		return nil, err
	}

	return &Summary{
		CountsByStatus: statuses.AliasStatusKeys(counts),
		OverdueCount:   overdue,
		Outstanding:    m.Outstanding,
		Collected:      m.Collected,
	}, nil
}
