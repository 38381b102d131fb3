package product

import (
	"log/slog"
)

// Service exposes the read-only catalog.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(id string) (*Product, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get product", "error", err, "product_id", id)
		return nil, err
	}
	return p, nil
}

func (s *Service) GetAllActive() ([]*Product, error) {
	products, err := s.repo.GetAllActive()
	if err != nil {
		s.logger.Error("failed to list products", "error", err)
		return nil, err
	}
	return products, nil
}
