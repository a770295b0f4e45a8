package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"relato/internal/models"
)

// AuditStore writes login audit rows and purges them past retention.
type AuditStore struct {
	db *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Record(ctx context.Context, entry *models.LoginAudit) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// PurgeOlderThan deletes audit rows created before cutoff and returns
// how many were removed.
func (s *AuditStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.LoginAudit{})
	return res.RowsAffected, res.Error
}
