package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAccessGranted = "access.granted"
	EventTypeAccessRevoked = "access.revoked"
	EventTypeUserDeleted   = "user.deleted"
)

type AccessGrantedEvent struct {
	BaseEvent
	EntitlementID string     `json:"entitlement_id"`
	UserID        string     `json:"user_id"`
	ProductID     string     `json:"product_id"`
	AccessLevel   string     `json:"access_level"`
	UnitsUnlocked int        `json:"units_unlocked"`
	GrantedBy     string     `json:"granted_by"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

func NewAccessGrantedEvent(entitlementID, userID, productID, accessLevel string, unitsUnlocked int, grantedBy string, expiresAt *time.Time) *AccessGrantedEvent {
	return &AccessGrantedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessGranted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"entitlement_id": entitlementID,
				"user_id":        userID,
				"product_id":     productID,
				"access_level":   accessLevel,
				"units_unlocked": unitsUnlocked,
				"granted_by":     grantedBy,
			},
		},
		EntitlementID: entitlementID,
		UserID:        userID,
		ProductID:     productID,
		AccessLevel:   accessLevel,
		UnitsUnlocked: unitsUnlocked,
		GrantedBy:     grantedBy,
		ExpiresAt:     expiresAt,
	}
}

type AccessRevokedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	RevokedBy string `json:"revoked_by"`
}

func NewAccessRevokedEvent(userID, productID, revokedBy string) *AccessRevokedEvent {
	return &AccessRevokedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessRevoked,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
				"revoked_by": revokedBy,
			},
		},
		UserID:    userID,
		ProductID: productID,
		RevokedBy: revokedBy,
	}
}

type UserDeletedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	DeletedBy string `json:"deleted_by"`
}

func NewUserDeletedEvent(userID, deletedBy string) *UserDeletedEvent {
	return &UserDeletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUserDeleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"deleted_by": deletedBy,
			},
		},
		UserID:    userID,
		DeletedBy: deletedBy,
	}
}
