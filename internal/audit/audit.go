package audit

import "time"

// Action identifies what an actor did. Login and logout are distinct kinds;
// one value is never reused for two events.
type Action string

const (
	ActionLogin         Action = "login"
	ActionLogout        Action = "logout"
	ActionRegister      Action = "register"
	ActionGrantAccess   Action = "grant_access"
	ActionRevokeAccess  Action = "revoke_access"
	ActionUpdateUser    Action = "update_user"
	ActionDeleteUser    Action = "delete_user"
	ActionDeniedAttempt Action = "denied_attempt"
)

// TargetType classifies what a log entry points at.
const (
	TargetTypeUser        = "user"
	TargetTypeEntitlement = "entitlement"
	TargetTypeRoute       = "route"
)

// Entry is an append-only audit record. Entries are never updated or deleted;
// they survive user deletion for traceability.
type Entry struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	ActorID    string    `json:"actor_id" gorm:"column:actor_id;not null;index"`
	Action     Action    `json:"action" gorm:"column:action;not null"`
	TargetID   string    `json:"target_id" gorm:"column:target_id;index"`
	TargetType string    `json:"target_type" gorm:"column:target_type"`
	Details    string    `json:"details" gorm:"column:details"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Entry) TableName() string {
	return "audit_log_entries"
}

// Repository is append-only: no update or delete operations exist.
type Repository interface {
	Append(entry *Entry) error
	ListByTarget(targetID string, limit, offset int) ([]*Entry, error)
	ListByActor(actorID string, limit, offset int) ([]*Entry, error)
	ListAll(limit, offset int) ([]*Entry, error)
}
