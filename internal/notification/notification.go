package notification

import "time"

type Channel string

const (
	ChannelInApp     Channel = "in_app"
	ChannelMessaging Channel = "messaging"
)

type Kind string

const (
	KindPromo   Kind = "promo"
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
)

// Request is an ephemeral message produced as a side effect of an access
// change. The engine never waits on its delivery.
type Request struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"column:user_id;not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Message   string    `json:"message"`
	Channel   Channel   `json:"channel" gorm:"column:channel;not null"`
	Kind      Kind      `json:"kind" gorm:"column:kind;not null"`
	Status    Status    `json:"status" gorm:"column:status;not null;default:pending"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Request) TableName() string {
	return "notification_requests"
}

type Repository interface {
	Create(req *Request) error
	MarkSent(id string) error
	ListByUser(userID string, limit, offset int) ([]*Request, error)
	DeleteByUser(userID string) error
}

// Sender delivers a request on its channel. Implementations own retry/drop
// policy; the caller treats delivery as fire-and-forget.
type Sender interface {
	Send(req *Request) error
}
