package postgres

import (
	"time"

	"github.com/stepacademy/course-access/internal/entitlement"
	"gorm.io/gorm"
)

// EntitlementRepository implements the entitlement.Repository interface using
// GORM. The one-active-per-(user, product) invariant is held by running the
// supersede and the insert in one transaction; the partial unique index from
// the migration backstops it under concurrent grants for the same pair.
type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) entitlement.Repository {
	return &EntitlementRepository{db: db}
}

func (r *EntitlementRepository) CreateSuperseding(e *entitlement.Entitlement) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := supersede(tx, e.UserID, e.ProductID).Error; err != nil {
			return err
		}
		return tx.Create(e).Error
	})
}

func (r *EntitlementRepository) Supersede(userID, productID string) (int64, error) {
	res := supersede(r.db, userID, productID)
	return res.RowsAffected, res.Error
}

func supersede(db *gorm.DB, userID, productID string) *gorm.DB {
	return db.Model(&entitlement.Entitlement{}).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, entitlement.StatusActive).
		Updates(map[string]interface{}{
			"status":     entitlement.StatusRevoked,
			"updated_at": time.Now().UTC(),
		})
}

// FindActive returns (nil, nil) when the pair has no active record.
func (r *EntitlementRepository) FindActive(userID, productID string) (*entitlement.Entitlement, error) {
	var e entitlement.Entitlement
	err := r.db.Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, entitlement.StatusActive).
		First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *EntitlementRepository) ListByUser(userID string) ([]*entitlement.Entitlement, error) {
	var list []*entitlement.Entitlement
	err := r.db.Where("user_id = ?", userID).
		Order("granted_at DESC").
		Find(&list).Error
	return list, err
}

// ExpireBefore transitions every active record whose expires_at has passed
// to expired, as a single bulk statement. Running it twice over the same set
// affects zero rows the second time.
func (r *EntitlementRepository) ExpireBefore(now time.Time) (int64, error) {
	res := r.db.Model(&entitlement.Entitlement{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", entitlement.StatusActive, now).
		Updates(map[string]interface{}{
			"status":     entitlement.StatusExpired,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// DeleteByUser removes all entitlement rows for a user. Only the user
// deletion cascade calls this.
func (r *EntitlementRepository) DeleteByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).
		Delete(&entitlement.Entitlement{}).Error
}
