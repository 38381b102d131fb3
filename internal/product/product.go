package product

import (
	"errors"
	"time"
)

// Product is immutable reference data describing a sellable course. The
// access engine validates grants against it but never mutates it.
type Product struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Title          string    `json:"title" gorm:"not null"`
	Description    string    `json:"description"`
	TotalUnits     int       `json:"total_units" gorm:"column:total_units;not null"`
	PartialDefault int       `json:"partial_default" gorm:"column:partial_default;not null"`
	AccessDays     int       `json:"access_days" gorm:"column:access_days"`
	PriceCents     int64     `json:"price_cents" gorm:"column:price_cents"`
	IsActive       bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Product) TableName() string {
	return "products"
}

type Repository interface {
	GetByID(id string) (*Product, error)
	GetAllActive() ([]*Product, error)
	Create(p *Product) error
}

var ErrProductNotFound = errors.New("product not found")
