// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SummaryRecord model, i.e. the summary history.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, GetSummary returns ErrNotFound.
//   - DeleteSummary treats a missing record as success.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - CreateSummary(ctx, db, rec) -> error
//     Inserts a new record; the ID is assigned by the database.
//
//   - GetSummary(ctx, db, id) -> *domain.SummaryRecord, error
//
//   - ListSummaries(ctx, db) -> []domain.SummaryRecord, error
//     Returns every record, newest first.
//
//   - CountSummaries / ListSummariesPage
//     Paginated variant of ListSummaries.
//
//   - DeleteSummary(ctx, db, id) -> error
//     Hard-deletes a record; idempotent.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-summary-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// newestFirst orders history by creation time, breaking ties on the
// monotonic ID so records created within the same clock tick stay ordered.
const newestFirst = "created_at desc, id desc"

// CreateSummary inserts rec and fills in its ID. CreatedAt is set to the
// current UTC time unless the caller already provided one.
func CreateSummary(ctx context.Context, db *gorm.DB, rec *domain.SummaryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}

// GetSummary fetches a single record by ID. If the record does not exist, it
// returns ErrNotFound.
func GetSummary(ctx context.Context, db *gorm.DB, id uint) (*domain.SummaryRecord, error) {
	var rec domain.SummaryRecord
	if err := db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListSummaries returns all records ordered by creation time descending
// (most recent first). It returns an empty slice when the history is empty.
func ListSummaries(ctx context.Context, db *gorm.DB) ([]domain.SummaryRecord, error) {
	out := []domain.SummaryRecord{}
	err := db.WithContext(ctx).
		Order(newestFirst).
		Find(&out).Error
	return out, err
}

// CountSummaries returns the total number of stored records.
func CountSummaries(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.SummaryRecord{}).
		Count(&total).Error
	return total, err
}

// ListSummariesPage returns a slice of the history in the same order as
// ListSummaries. The caller computes offset and limit.
func ListSummariesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.SummaryRecord, error) {
	out := []domain.SummaryRecord{}
	err := db.WithContext(ctx).
		Order(newestFirst).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteSummary removes the record with the given ID. Deleting an ID that
// does not exist is not an error.
func DeleteSummary(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).
		Delete(&domain.SummaryRecord{}, id).Error
}
