package postgres

import (
	"github.com/stepacademy/course-access/internal/audit"
	"gorm.io/gorm"
)

// AuditRepository implements the audit.Repository interface using GORM.
// Reads order by created_at descending with id as a tiebreaker, so entries
// written in the same instant still come back in insertion order.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(entry *audit.Entry) error {
	return r.db.Create(entry).Error
}

func (r *AuditRepository) ListByTarget(targetID string, limit, offset int) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	err := r.db.Where("target_id = ?", targetID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

func (r *AuditRepository) ListByActor(actorID string, limit, offset int) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	err := r.db.Where("actor_id = ?", actorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

func (r *AuditRepository) ListAll(limit, offset int) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	err := r.db.Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
