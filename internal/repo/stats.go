// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides a small aggregate query used for
// conditional responses (weak ETags) on the history endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-summary-backend/internal/domain"
)

// SummariesStats returns the total number of records, the highest record ID
// and the newest CreatedAt. Records are never updated, so any insert or delete
// changes at least one of the three values.
//
// When the history is empty, count and maxID are 0 and newest is nil.
func SummariesStats(ctx context.Context, db *gorm.DB) (count int64, maxID uint, newest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.SummaryRecord{})

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, nil, err
	}
	if count == 0 {
		return 0, 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite for the timestamp.
	var row struct {
		ID        uint
		CreatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.SummaryRecord{}).
		Select("id, created_at").
		Order(newestFirst).
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, 0, nil, err
	}
	if err = db.WithContext(ctx).Model(&domain.SummaryRecord{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error; err != nil {
		return 0, 0, nil, err
	}
	return count, maxID, &row.CreatedAt, nil
}
