package entitlement

import (
	"errors"
	"time"
)

type AccessLevel string

const (
	AccessLevelPartial AccessLevel = "partial"
	AccessLevelFull    AccessLevel = "full"
)

func (l AccessLevel) Valid() bool {
	return l == AccessLevelPartial || l == AccessLevelFull
}

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// ActorSystem is the granted_by value for grants the platform makes on its
// own behalf, such as the registration trial.
const ActorSystem = "system"

// Entitlement records who has access to what. Records are only ever mutated
// by status transition (active -> revoked/expired); a change of level or
// units is modeled as revoke-old + create-new.
type Entitlement struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	UserID        string      `json:"user_id" gorm:"column:user_id;not null;index:idx_entitlements_user_product"`
	ProductID     string      `json:"product_id" gorm:"column:product_id;not null;index:idx_entitlements_user_product"`
	AccessLevel   AccessLevel `json:"access_level" gorm:"column:access_level;not null"`
	Status        Status      `json:"status" gorm:"column:status;not null;default:active"`
	UnitsUnlocked int         `json:"units_unlocked" gorm:"column:units_unlocked;not null"`
	GrantedBy     string      `json:"granted_by" gorm:"column:granted_by;not null"`
	GrantedAt     time.Time   `json:"granted_at" gorm:"column:granted_at"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty" gorm:"column:expires_at"`
	CreatedAt     time.Time   `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time   `json:"updated_at" gorm:"column:updated_at"`
}

func (Entitlement) TableName() string {
	return "entitlements"
}

// IsExpired reports whether the record's time limit has passed at the given
// instant. A record with no expires_at never expires.
func (e *Entitlement) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// AccessDecision is the engine's answer to "what does this user see".
type AccessDecision struct {
	HasAccess     bool        `json:"has_access"`
	Level         AccessLevel `json:"access_level"`
	UnitsUnlocked int         `json:"units_unlocked"`
}

// NoAccess is the decision for users without an active, unexpired entitlement.
var NoAccess = AccessDecision{HasAccess: false, Level: AccessLevelPartial, UnitsUnlocked: 0}

// Repository defines the entitlement store contract. FindActive reports the
// "no access" case as (nil, nil), never as an error. Supersede is safe to
// call when no active record exists and reports how many records it revoked.
// CreateSuperseding must revoke any prior active record for the pair and
// insert the new one so that no concurrent reader ever observes two active
// records for the same (user, product).
type Repository interface {
	CreateSuperseding(e *Entitlement) error
	Supersede(userID, productID string) (int64, error)
	FindActive(userID, productID string) (*Entitlement, error)
	ListByUser(userID string) ([]*Entitlement, error)
	ExpireBefore(now time.Time) (int64, error)
	DeleteByUser(userID string) error
}

var (
	ErrUnknownProduct     = errors.New("unknown product")
	ErrInvalidAccessLevel = errors.New("invalid access level")
	ErrInvalidUnits       = errors.New("units unlocked cannot be negative")
	ErrInvalidTrialDays   = errors.New("trial days must be positive")
)
