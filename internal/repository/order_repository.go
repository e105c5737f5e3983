package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists")
	// ErrStatusConflict means the stored status no longer matches the one
	// the caller's transition was decided against.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderRepository is the source of truth for orders and their status.
type OrderRepository interface {
	CreateOrders(ctx context.Context, orders []*models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*models.Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]*models.Order, error)
	// UpdateStatus sets the status to `to` only if it is currently `from`.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error)
	Ping(ctx context.Context) error
	Close() error
}

// InMemoryOrderRepository keeps orders in a map guarded by a mutex
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]models.Order
	now    func() time.Time
}

// NewInMemoryOrderRepository creates an empty in-memory order store
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[string]models.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrders stores all orders or none of them.
func (r *InMemoryOrderRepository) CreateOrders(ctx context.Context, orders []*models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range orders {
		if _, exists := r.orders[o.ID]; exists {
			return ErrDuplicateOrder
		}
	}

	now := r.now()
	for _, o := range orders {
		o.CreatedAt = now
		o.UpdatedAt = now
		r.orders[o.ID] = *o
	}
	return nil
}

// GetByID returns a copy of the stored order
func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

// ListByCustomer returns a customer's orders, newest first
func (r *InMemoryOrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.Order, error) {
	return r.list(func(o models.Order) bool { return o.CustomerID == customerID }), nil
}

// ListByVendor returns a vendor's orders, newest first
func (r *InMemoryOrderRepository) ListByVendor(ctx context.Context, vendorID string) ([]*models.Order, error) {
	return r.list(func(o models.Order) bool { return o.VendorID == vendorID }), nil
}

func (r *InMemoryOrderRepository) list(match func(models.Order) bool) []*models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*models.Order, 0)
	for _, o := range r.orders {
		if match(o) {
			o := o
			orders = append(orders, &o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

// UpdateStatus performs a compare-and-set on the order status
func (r *InMemoryOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.OrderStatus != from {
		return nil, ErrStatusConflict
	}

	o.OrderStatus = to
	o.UpdatedAt = r.now()
	r.orders[id] = o
	return &o, nil
}

// Ping always succeeds for the in-memory store
func (r *InMemoryOrderRepository) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (r *InMemoryOrderRepository) Close() error {
	return nil
}
