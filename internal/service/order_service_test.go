package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/coupon"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/lifecycle"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/pricing"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/repository"
	"github.com/Lixing-Zhang/furniture-store/backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customer = models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	oakworks = models.Actor{ID: "oakworks", Role: models.RoleVendor}
	nordhaus = models.Actor{ID: "nordhaus", Role: models.RoleVendor}
	admin    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

type fixture struct {
	svc     *OrderService
	coupons *coupon.Directory
	orders  repository.OrderRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, repository.NewInMemoryOrderRepository())
}

func newFixtureWithStore(t *testing.T, orders repository.OrderRepository) *fixture {
	t.Helper()

	coupons := coupon.NewDirectory()
	require.NoError(t, coupons.SeedDefaults())

	svc := NewOrderService(
		repository.NewInMemoryProductRepository(),
		coupons,
		orders,
		pricing.NewEngine(pricing.DefaultPolicy()),
		logger.New("error"),
	)
	return &fixture{svc: svc, coupons: coupons, orders: orders}
}

func item(id string, qty int) models.OrderItem {
	return models.OrderItem{ProductID: models.Reference(id), Quantity: qty}
}

func TestOrderService_Quote(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name        string
		req         models.OrderRequest
		wantErr     error
		subtotal    float64
		shipping    float64
		discount    float64
		total       float64
		wantMessage string
	}{
		{
			name:     "below free shipping",
			req:      models.OrderRequest{Items: []models.OrderItem{item("6", 2)}},
			subtotal: 99.98,
			shipping: 20,
			total:    119.98,
		},
		{
			name:     "fixed coupon",
			req:      models.OrderRequest{Items: []models.OrderItem{item("6", 2)}, CouponCode: "welcome10"},
			subtotal: 99.98,
			shipping: 20,
			discount: 10,
			total:    109.98,
		},
		{
			name:     "free shipping above threshold",
			req:      models.OrderRequest{Items: []models.OrderItem{item("2", 1)}},
			subtotal: 349.50,
			total:    349.50,
		},
		{
			name:        "vendor coupon on another vendor's product",
			req:         models.OrderRequest{Items: []models.OrderItem{item("1", 1)}, CouponCode: "OAKWORKS15"},
			subtotal:    899,
			total:       899,
			wantMessage: "This coupon only applies to items sold by vendor oakworks",
		},
		{
			name:    "empty order",
			req:     models.OrderRequest{},
			wantErr: ErrEmptyOrder,
		},
		{
			name:    "zero quantity",
			req:     models.OrderRequest{Items: []models.OrderItem{item("1", 0)}},
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "unknown product",
			req:     models.OrderRequest{Items: []models.OrderItem{item("99999", 1)}},
			wantErr: ErrInvalidProduct,
		},
		{
			name:    "missing product",
			req:     models.OrderRequest{Items: []models.OrderItem{{Quantity: 1}}},
			wantErr: ErrInvalidProduct,
		},
		{
			name:    "unknown coupon",
			req:     models.OrderRequest{Items: []models.OrderItem{item("1", 1)}, CouponCode: "NOPE"},
			wantErr: coupon.ErrCouponNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := f.svc.Quote(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.subtotal, quote.Subtotal)
			assert.Equal(t, tt.shipping, quote.Shipping)
			assert.Equal(t, tt.discount, quote.Discount)
			assert.Equal(t, tt.total, quote.Total)
			assert.Equal(t, tt.wantMessage, quote.CouponMessage)
		})
	}
}

func TestOrderService_Quote_UnknownCouponIsInvalidCoupon(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Quote(context.Background(), models.OrderRequest{
		Items:      []models.OrderItem{item("1", 1)},
		CouponCode: "NOPE",
	})
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestOrderService_Quote_MergesRepeatedProducts(t *testing.T) {
	f := newFixture(t)

	quote, err := f.svc.Quote(context.Background(), models.OrderRequest{
		Items: []models.OrderItem{item("6", 1), item("10", 1), item("6", 1)},
	})
	require.NoError(t, err)

	require.Len(t, quote.Lines, 2)
	assert.Equal(t, "6", quote.Lines[0].ProductID)
	assert.Equal(t, 2, quote.Lines[0].Quantity)
	assert.Equal(t, 99.98, quote.Lines[0].LineTotal)
	assert.Equal(t, "10", quote.Lines[1].ProductID)
}

func TestOrderService_Quote_EmbeddedProductUsesCataloguePrice(t *testing.T) {
	f := newFixture(t)

	quote, err := f.svc.Quote(context.Background(), models.OrderRequest{
		Items: []models.OrderItem{{
			ProductID: models.Embedded(models.ProductSummary{ID: "6", Name: "Oak Side Table", Price: 0.01}),
			Quantity:  1,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 49.99, quote.Subtotal)
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newFixture(t)

	orders, err := f.svc.PlaceOrder(context.Background(), customer, models.OrderRequest{
		Items:      []models.OrderItem{item("6", 2), item("10", 1)},
		CouponCode: "SPRING20",
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first, second := orders[0], orders[1]
	assert.Equal(t, first.CheckoutID, second.CheckoutID)
	assert.NotEqual(t, first.ID, second.ID)

	// 20% of each line is capped at 15.00; the 189.88 subtotal ships free
	assert.Equal(t, "oakworks", first.VendorID)
	assert.Equal(t, 15.0, first.DiscountAmountMajor)
	assert.Equal(t, 0.0, first.ShippingFeeMajor)
	assert.Equal(t, 84.98, first.TotalMajor)

	assert.Equal(t, "lumen-studio", second.VendorID)
	assert.Equal(t, 15.0, second.DiscountAmountMajor)
	assert.Equal(t, 74.90, second.TotalMajor)

	for _, o := range orders {
		assert.Equal(t, models.StatusPending, o.OrderStatus)
		assert.Equal(t, models.PaymentPending, o.PaymentStatus)
		assert.Equal(t, "cust-1", o.CustomerID)
		assert.Equal(t, "SPRING20", o.CouponCode)
	}

	c, err := f.coupons.Lookup(context.Background(), "SPRING20")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedCount)

	stored, err := f.orders.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TotalMajor, stored.TotalMajor)
}

func TestOrderService_PlaceOrder_ShippingOnFirstOrderOnly(t *testing.T) {
	f := newFixture(t)

	orders, err := f.svc.PlaceOrder(context.Background(), customer, models.OrderRequest{
		Items: []models.OrderItem{item("3", 1), item("8", 1)},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, 20.0, orders[0].ShippingFeeMajor)
	assert.Equal(t, 44.99, orders[0].TotalMajor)
	assert.Equal(t, 0.0, orders[1].ShippingFeeMajor)
	assert.Equal(t, 39.95, orders[1].TotalMajor)
}

func TestOrderService_PlaceOrder_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, oakworks, models.OrderRequest{Items: []models.OrderItem{item("1", 1)}})
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	_, err = f.svc.PlaceOrder(ctx, customer, models.OrderRequest{
		Items:      []models.OrderItem{item("1", 1)},
		CouponCode: "OAKWORKS15",
	})
	assert.ErrorIs(t, err, ErrInvalidCoupon)
	var ineligible *pricing.IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, pricing.ReasonVendorMismatch, ineligible.Reason)

	c, err := f.coupons.Lookup(ctx, "OAKWORKS15")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsedCount)
}

func TestOrderService_PlaceOrder_UsageLimitExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	limit := 1
	require.NoError(t, f.coupons.Put(models.Coupon{
		Code: "ONCE", Scope: models.ScopeGlobal,
		DiscountType: models.DiscountFixed, DiscountValue: 5,
		UsageLimit: &limit, IsActive: true,
	}))

	req := models.OrderRequest{Items: []models.OrderItem{item("3", 1)}, CouponCode: "ONCE"}
	_, err := f.svc.PlaceOrder(ctx, customer, req)
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, customer, req)
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

type failingOrderStore struct {
	*repository.InMemoryOrderRepository
}

func (failingOrderStore) CreateOrders(ctx context.Context, orders []*models.Order) error {
	return errors.New("disk full")
}

func TestOrderService_PlaceOrder_ReleasesCouponWhenStoreFails(t *testing.T) {
	f := newFixtureWithStore(t, failingOrderStore{repository.NewInMemoryOrderRepository()})

	_, err := f.svc.PlaceOrder(context.Background(), customer, models.OrderRequest{
		Items:      []models.OrderItem{item("6", 1)},
		CouponCode: "SPRING20",
	})
	require.Error(t, err)

	c, err := f.coupons.Lookup(context.Background(), "SPRING20")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsedCount)
}

func placeOne(t *testing.T, f *fixture, productID string) *models.Order {
	t.Helper()
	orders, err := f.svc.PlaceOrder(context.Background(), customer, models.OrderRequest{
		Items: []models.OrderItem{item(productID, 1)},
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	return orders[0]
}

func TestOrderService_Transition_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeOne(t, f, "6")

	steps := []struct {
		actor  models.Actor
		action models.Action
		want   models.OrderStatus
	}{
		{oakworks, models.ActionConfirm, models.StatusConfirmed},
		{oakworks, models.ActionInProgress, models.StatusInProcessing},
		{oakworks, models.ActionDelivered, models.StatusDelivered},
	}
	for _, step := range steps {
		v, err := f.svc.Transition(ctx, step.actor, order.ID, step.action)
		require.NoError(t, err)
		assert.Equal(t, step.want, v.OrderStatus)
	}

	_, err := f.svc.Transition(ctx, customer, order.ID, models.ActionCancel)
	assert.ErrorIs(t, err, lifecycle.ErrTerminalState)

	v, err := f.svc.GetOrder(ctx, customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Delivered", v.StatusLabel)
	assert.Empty(t, v.AvailableActions)
}

func TestOrderService_Transition_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeOne(t, f, "6")

	_, err := f.svc.Transition(ctx, nordhaus, order.ID, models.ActionConfirm)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	_, err = f.svc.Transition(ctx, customer, order.ID, models.ActionDelivered)
	assert.ErrorIs(t, err, lifecycle.ErrNotPermitted)

	_, err = f.svc.Transition(ctx, oakworks, order.ID, models.ActionDelivered)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidSourceState)

	_, err = f.svc.Transition(ctx, oakworks, order.ID, models.Action("ship"))
	assert.ErrorIs(t, err, lifecycle.ErrUnknownAction)

	_, err = f.svc.Transition(ctx, admin, "not-a-uuid", models.ActionCancel)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.OrderStatus)
}

// racingOrderStore cancels the order just before the first status write,
// standing in for another request that got there first.
type racingOrderStore struct {
	*repository.InMemoryOrderRepository
	raced bool
}

func (r *racingOrderStore) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.InMemoryOrderRepository.UpdateStatus(ctx, id, from, models.StatusCancelled); err != nil {
			return nil, err
		}
	}
	return r.InMemoryOrderRepository.UpdateStatus(ctx, id, from, to)
}

func TestOrderService_Transition_ConcurrentChange(t *testing.T) {
	store := &racingOrderStore{InMemoryOrderRepository: repository.NewInMemoryOrderRepository()}
	f := newFixtureWithStore(t, store)
	order := placeOne(t, f, "6")

	_, err := f.svc.Transition(context.Background(), oakworks, order.ID, models.ActionConfirm)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	stored, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.OrderStatus)
}

func TestOrderService_GetOrder_AvailableActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := placeOne(t, f, "6")

	v, err := f.svc.GetOrder(ctx, oakworks, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pending", v.StatusLabel)
	assert.Equal(t, []models.Action{models.ActionConfirm}, v.AvailableActions)

	v, err = f.svc.GetOrder(ctx, customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Action{models.ActionCancel}, v.AvailableActions)

	v, err = f.svc.GetOrder(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Action{models.ActionConfirm, models.ActionCancel}, v.AvailableActions)

	_, err = f.svc.GetOrder(ctx, models.Actor{ID: "cust-2", Role: models.RoleCustomer}, order.ID)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)
}

func TestOrderService_ListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placeOne(t, f, "6")
	placeOne(t, f, "1")

	mine, err := f.svc.ListOrders(ctx, customer, "", "")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	vendor, err := f.svc.ListOrders(ctx, oakworks, "", "")
	require.NoError(t, err)
	require.Len(t, vendor, 1)
	assert.Equal(t, "6", vendor[0].ProductID)

	byVendor, err := f.svc.ListOrders(ctx, admin, "", "nordhaus")
	require.NoError(t, err)
	assert.Len(t, byVendor, 1)

	_, err = f.svc.ListOrders(ctx, admin, "", "")
	assert.ErrorIs(t, err, ErrMissingFilter)
}
