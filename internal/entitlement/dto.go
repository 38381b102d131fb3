package entitlement

import (
	"errors"
	"time"
)

// GrantAccessDTO is the admin-facing request payload for granting access.
// DurationDays zero means the grant never expires.
type GrantAccessDTO struct {
	ProductID     string `json:"product_id" validate:"required"`
	AccessLevel   string `json:"access_level" validate:"required,oneof=partial full"`
	UnitsUnlocked int    `json:"units_unlocked" validate:"min=0"`
	DurationDays  int    `json:"duration_days,omitempty" validate:"min=0"`
}

func (dto GrantAccessDTO) Validate() error {
	if dto.ProductID == "" {
		return errors.New("product_id is required")
	}
	if !AccessLevel(dto.AccessLevel).Valid() {
		return errors.New("access_level must be either 'partial' or 'full'")
	}
	if dto.UnitsUnlocked < 0 {
		return errors.New("units_unlocked cannot be negative")
	}
	if dto.DurationDays < 0 {
		return errors.New("duration_days cannot be negative")
	}
	return nil
}

// ExpiryFrom converts the optional duration into an absolute expiry.
func (dto GrantAccessDTO) ExpiryFrom(now time.Time) *time.Time {
	if dto.DurationDays <= 0 {
		return nil
	}
	expiresAt := now.UTC().AddDate(0, 0, dto.DurationDays)
	return &expiresAt
}

// EntitlementsResponse wraps a user's entitlement list.
type EntitlementsResponse struct {
	UserID       string         `json:"user_id"`
	Entitlements []*Entitlement `json:"entitlements"`
}
