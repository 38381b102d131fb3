package user

import (
	"errors"
	"time"
)

// User is an account on the platform. Students and admins share the table;
// what an admin can do is decided by permissions, not by a role column.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type Repository interface {
	Create(u *User) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	Update(u *User) error
	Delete(id string) error
	List(limit, offset int) ([]*User, error)
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)
