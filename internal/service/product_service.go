package service

import (
	"context"
	"strings"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/repository"
)

// ProductFilter narrows a catalogue listing. Empty fields match everything.
type ProductFilter struct {
	VendorID string
	Category string
}

func (f ProductFilter) matches(p models.Product) bool {
	if f.VendorID != "" && p.VendorID != f.VendorID {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	return true
}

// ProductService serves the furniture catalogue
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService creates a new product service
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// ListProducts returns the catalogue products matching the filter, for
// the storefront or one vendor's dashboard.
func (s *ProductService) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if filter.matches(p) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// GetProduct returns a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}
