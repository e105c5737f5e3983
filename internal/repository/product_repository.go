package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

// InMemoryProductRepository implements ProductRepository with in-memory storage
type InMemoryProductRepository struct {
	products map[string]models.Product
}

// NewInMemoryProductRepository creates a new in-memory product repository with seed data
func NewInMemoryProductRepository() *InMemoryProductRepository {
	products := map[string]models.Product{
		"1":  {ID: "1", Name: "Oslo Three-Seat Sofa", Price: 899.00, Category: "Sofa", VendorID: "nordhaus"},
		"2":  {ID: "2", Name: "Bergen Armchair", Price: 349.50, Category: "Chair", VendorID: "nordhaus"},
		"3":  {ID: "3", Name: "Linen Cushion", Price: 24.99, Category: "Decor", VendorID: "nordhaus"},
		"4":  {ID: "4", Name: "Solid Oak Dining Table", Price: 1249.00, Category: "Table", VendorID: "oakworks"},
		"5":  {ID: "5", Name: "Oak Dining Chair", Price: 149.99, Category: "Chair", VendorID: "oakworks"},
		"6":  {ID: "6", Name: "Oak Side Table", Price: 49.99, Category: "Table", VendorID: "oakworks"},
		"7":  {ID: "7", Name: "Walnut Bookshelf", Price: 429.00, Category: "Storage", VendorID: "grainline"},
		"8":  {ID: "8", Name: "Floating Wall Shelf", Price: 39.95, Category: "Storage", VendorID: "grainline"},
		"9":  {ID: "9", Name: "Queen Platform Bed", Price: 1099.00, Category: "Bed", VendorID: "grainline"},
		"10": {ID: "10", Name: "Arc Floor Lamp", Price: 89.90, Category: "Lighting", VendorID: "lumen-studio"},
	}

	return &InMemoryProductRepository{
		products: products,
	}
}

// GetAll returns all products ordered by id
func (r *InMemoryProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0, len(r.products))
	for _, product := range r.products {
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool {
		if len(products[i].ID) != len(products[j].ID) {
			return len(products[i].ID) < len(products[j].ID)
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

// GetByID returns a product by its ID
func (r *InMemoryProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	product, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}
