package postgres

import (
	"github.com/stepacademy/course-access/internal/product"
	"gorm.io/gorm"
)

// ProductRepository implements the product.Repository interface using GORM
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) product.Repository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(id string) (*product.Product, error) {
	var p product.Product
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, product.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) GetAllActive() ([]*product.Product, error) {
	var products []*product.Product
	err := r.db.Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&products).Error
	return products, err
}

func (r *ProductRepository) Create(p *product.Product) error {
	return r.db.Create(p).Error
}
