package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pitabwire/frame/datastore/pool"
)

// Repository provides CRUD operations for expense records.
type Repository struct {
	pool pool.Pool
}

// NewRepository creates a new ledger repository.
func NewRepository(pool pool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Create persists a new expense record.
func (r *Repository) Create(ctx context.Context, rec *Record) error {
	return r.db(ctx, false).Create(rec).Error
}

// GetByID returns an expense record by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.db(ctx, true).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns expense records, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	var records []Record
	q := r.db(ctx, true).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&records).Error
	return records, err
}

// ListByCapture returns records produced by one capture, newest first.
func (r *Repository) ListByCapture(ctx context.Context, captureID string) ([]Record, error) {
	var records []Record
	err := r.db(ctx, true).
		Where("capture_id = ?", captureID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// Delete soft-deletes an expense record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db(ctx, false).Where("id = ?", id).Delete(&Record{}).Error
}

// TotalSince sums the amounts of all records created at or after since.
func (r *Repository) TotalSince(ctx context.Context, since time.Time) (decimal.Decimal, int64, error) {
	var count int64
	err := r.db(ctx, true).
		Model(&Record{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return decimal.Zero, 0, err
	}

	var total decimal.Decimal
	err = r.db(ctx, true).
		Model(&Record{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("created_at >= ?", since).
		Scan(&total).Error
	return total, count, err
}
