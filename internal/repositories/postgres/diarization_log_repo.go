package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yoockh/callsplit/internal/models"
)

type DiarizationLogRepo interface {
	Insert(ctx context.Context, row *models.DiarizationLog) error
	ListSince(ctx context.Context, since time.Time) ([]models.DiarizationLog, error)
	RecentFailures(ctx context.Context, limit int) ([]models.DiarizationLog, error)
	Latest(ctx context.Context, since time.Time, n int) ([]models.DiarizationLog, error)
}

type diarizationLogRepo struct {
	db *gorm.DB
}

func NewDiarizationLogRepo(db *gorm.DB) DiarizationLogRepo {
	return &diarizationLogRepo{db: db}
}

func (r *diarizationLogRepo) Insert(ctx context.Context, row *models.DiarizationLog) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *diarizationLogRepo) ListSince(ctx context.Context, since time.Time) ([]models.DiarizationLog, error) {
	var rows []models.DiarizationLog
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// RecentFailures returns failed and timed-out runs, newest first.
func (r *diarizationLogRepo) RecentFailures(ctx context.Context, limit int) ([]models.DiarizationLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.DiarizationLog
	err := r.db.WithContext(ctx).
		Where("status IN ?", []models.DiarizationStatus{models.DiarizationFailed, models.DiarizationTimeout}).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *diarizationLogRepo) Latest(ctx context.Context, since time.Time, n int) ([]models.DiarizationLog, error) {
	if n <= 0 {
		n = 5
	}
	var rows []models.DiarizationLog
	err := r.db.WithContext(ctx).
		Select("id", "status", "created_at").
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}
