package postgres

import (
	"time"

	"github.com/stepacademy/course-access/internal/notification"
	"gorm.io/gorm"
)

// NotificationRepository implements the notification.Repository interface
// using GORM
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(req *notification.Request) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	return r.db.Create(req).Error
}

func (r *NotificationRepository) MarkSent(id string) error {
	return r.db.Model(&notification.Request{}).
		Where("id = ?", id).
		Update("status", notification.StatusSent).Error
}

func (r *NotificationRepository) ListByUser(userID string, limit, offset int) ([]*notification.Request, error) {
	var list []*notification.Request
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *NotificationRepository) DeleteByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).
		Delete(&notification.Request{}).Error
}
