package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/coupon"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/lifecycle"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/money"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/pricing"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrEmptyOrder        = errors.New("order must contain at least one item")
	ErrInvalidCoupon     = errors.New("coupon code is not valid")
	ErrOrderAccessDenied = errors.New("order is not accessible to this actor")
	ErrMissingFilter     = errors.New("a customerId or vendorId filter is required")
)

// CouponDirectory is the coupon store the order service redeems against
type CouponDirectory interface {
	Usable(ctx context.Context, code string, now time.Time) (*models.Coupon, error)
	Redeem(ctx context.Context, code string) (*models.Coupon, error)
	Release(ctx context.Context, code string) error
}

// ProductRepository interface for product data access
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

// OrderService prices checkouts, places orders and moves them through
// their lifecycle.
type OrderService struct {
	productRepo ProductRepository
	coupons     CouponDirectory
	orders      repository.OrderRepository
	engine      *pricing.Engine
	now         func() time.Time
	log         *slog.Logger
}

// NewOrderService creates a new order service. coupons may be nil, in
// which case any coupon code is rejected.
func NewOrderService(productRepo ProductRepository, coupons CouponDirectory, orders repository.OrderRepository,
	engine *pricing.Engine, log *slog.Logger) *OrderService {
	return &OrderService{
		productRepo: productRepo,
		coupons:     coupons,
		orders:      orders,
		engine:      engine,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// checkout is a priced cart, shared by Quote and PlaceOrder
type checkout struct {
	products map[string]models.Product
	cart     []models.CartLineItem
	coupon   *models.Coupon
	totals   pricing.Totals
}

// Quote prices a cart without placing it
func (s *OrderService) Quote(ctx context.Context, req models.OrderRequest) (*models.Quote, error) {
	co, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}
	return co.quote(), nil
}

func (s *OrderService) price(ctx context.Context, req models.OrderRequest) (*checkout, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	co := &checkout{products: make(map[string]models.Product)}
	lines := make(map[string]int)

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		if item.ProductID.IsZero() {
			return nil, ErrInvalidProduct
		}
		productID := item.ProductID.ID()

		// Repeated products are merged into one line
		if idx, exists := lines[productID]; exists {
			co.cart[idx].Quantity += item.Quantity
			continue
		}

		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, productID)
			}
			return nil, fmt.Errorf("get product %s: %w", productID, err)
		}

		co.products[productID] = *product
		lines[productID] = len(co.cart)
		co.cart = append(co.cart, models.CartLineItem{
			LineID:         product.ID,
			Product:        models.Reference(product.ID),
			VendorID:       product.VendorID,
			UnitPriceMajor: product.Price,
			Quantity:       item.Quantity,
		})
	}

	if req.CouponCode != "" {
		if s.coupons == nil {
			return nil, ErrInvalidCoupon
		}
		c, err := s.coupons.Usable(ctx, req.CouponCode, s.now())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCoupon, err)
		}
		co.coupon = c
	}

	co.totals = s.engine.Quote(co.cart, co.coupon)
	return co, nil
}

func (co *checkout) quote() *models.Quote {
	q := &models.Quote{
		Lines:    make([]models.QuoteLine, 0, len(co.cart)),
		Subtotal: co.totals.SubtotalMajor(),
		Shipping: co.totals.ShippingMajor(),
		Discount: co.totals.DiscountMajor(),
		Total:    co.totals.TotalMajor(),
	}

	if co.coupon != nil {
		q.CouponCode = co.coupon.Code
		if co.totals.Discount.Ineligible != nil {
			q.CouponMessage = co.totals.Discount.Ineligible.Message
		}
	}

	for _, item := range co.cart {
		key := item.Key()
		q.Lines = append(q.Lines, models.QuoteLine{
			ProductID:   item.Product.ID(),
			ProductName: co.products[item.Product.ID()].Name,
			VendorID:    item.VendorID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPriceMajor,
			LineTotal:   money.ToMajor(pricing.LineTotalCents(item)),
			Discount:    money.ToMajor(co.totals.Discount.PerLineDiscountMinor[key]),
			Eligible:    co.totals.Discount.IsEligible(key),
		})
	}
	return q
}

// PlaceOrder creates one PENDING order per cart line. The cart's shipping
// fee is carried by the first order and each order keeps its own line
// discount, so the orders' totals add up to the quoted total. A coupon that
// does not apply to the cart is rejected rather than silently ignored.
func (s *OrderService) PlaceOrder(ctx context.Context, actor models.Actor, req models.OrderRequest) ([]*models.Order, error) {
	if actor.Role != models.RoleCustomer || actor.ID == "" {
		return nil, ErrOrderAccessDenied
	}

	co, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}

	if co.coupon != nil {
		if ineligible := co.totals.Discount.Ineligible; ineligible != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCoupon, ineligible)
		}
		if _, err := s.coupons.Redeem(ctx, co.coupon.Code); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCoupon, err)
		}
	}

	checkoutID := uuid.New().String()
	orders := make([]*models.Order, 0, len(co.cart))
	for i, item := range co.cart {
		var shippingCents int64
		if i == 0 {
			shippingCents = co.totals.ShippingCents
		}
		lineCents := pricing.LineTotalCents(item)
		discountCents := co.totals.Discount.PerLineDiscountMinor[item.Key()]

		totalCents := lineCents + shippingCents - discountCents
		if totalCents < 0 {
			totalCents = 0
		}

		order := &models.Order{
			ID:                  uuid.New().String(),
			CheckoutID:          checkoutID,
			ProductID:           item.Product.ID(),
			ProductName:         co.products[item.Product.ID()].Name,
			VendorID:            item.VendorID,
			CustomerID:          actor.ID,
			Quantity:            item.Quantity,
			UnitPriceMajor:      money.ToMajor(money.ToMinor(item.UnitPriceMajor)),
			ShippingFeeMajor:    money.ToMajor(shippingCents),
			DiscountAmountMajor: money.ToMajor(discountCents),
			TotalMajor:          money.ToMajor(totalCents),
			OrderStatus:         models.StatusPending,
			PaymentStatus:       models.PaymentPending,
		}
		if co.coupon != nil {
			order.CouponCode = co.coupon.Code
		}
		orders = append(orders, order)
	}

	if err := s.orders.CreateOrders(ctx, orders); err != nil {
		if co.coupon != nil {
			if relErr := s.coupons.Release(ctx, co.coupon.Code); relErr != nil {
				s.log.Error("failed to release coupon", "coupon", co.coupon.Code, "error", relErr)
			}
		}
		return nil, fmt.Errorf("store orders: %w", err)
	}

	s.log.Info("orders placed",
		"checkout_id", checkoutID,
		"customer_id", actor.ID,
		"orders", len(orders),
		"total", money.Format(co.totals.TotalCents),
		"coupon", req.CouponCode,
	)
	return orders, nil
}

// GetOrder returns the order with its label and the actions the actor may take
func (s *OrderService) GetOrder(ctx context.Context, actor models.Actor, orderID string) (*models.OrderView, error) {
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return view(order, actor), nil
}

// ListOrders returns the actor's own orders. Admins must pick a customer or
// vendor to list.
func (s *OrderService) ListOrders(ctx context.Context, actor models.Actor, customerID, vendorID string) ([]*models.OrderView, error) {
	var (
		orders []*models.Order
		err    error
	)

	switch actor.Role {
	case models.RoleCustomer:
		orders, err = s.orders.ListByCustomer(ctx, actor.ID)
	case models.RoleVendor:
		orders, err = s.orders.ListByVendor(ctx, actor.ID)
	case models.RoleAdmin:
		switch {
		case customerID != "":
			orders, err = s.orders.ListByCustomer(ctx, customerID)
		case vendorID != "":
			orders, err = s.orders.ListByVendor(ctx, vendorID)
		default:
			return nil, ErrMissingFilter
		}
	default:
		return nil, ErrOrderAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	views := make([]*models.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, view(o, actor))
	}
	return views, nil
}

// Transition applies an action to an order. The new status is decided by
// the lifecycle rules against the stored status and written only if that
// status is still current; a concurrent change yields ErrStatusConflict.
func (s *OrderService) Transition(ctx context.Context, actor models.Actor, orderID string, action models.Action) (*models.OrderView, error) {
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.AttemptTransition(order.OrderStatus, action, actor.Role)
	if err != nil {
		s.log.Info("order transition rejected",
			"order_id", orderID,
			"action", action,
			"status", order.OrderStatus,
			"role", actor.Role,
			"error", err,
		)
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, order.OrderStatus, next)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}

	s.log.Info("order transitioned",
		"order_id", orderID,
		"action", action,
		"from", order.OrderStatus,
		"to", next,
		"actor_id", actor.ID,
	)
	return view(updated, actor), nil
}

// load fetches an order and checks the actor owns it
func (s *OrderService) load(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, repository.ErrOrderNotFound
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !canAccess(actor, order) {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func canAccess(actor models.Actor, order *models.Order) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleVendor:
		return actor.ID != "" && order.VendorID == actor.ID
	case models.RoleCustomer:
		return actor.ID != "" && order.CustomerID == actor.ID
	default:
		return false
	}
}

func view(order *models.Order, actor models.Actor) *models.OrderView {
	return &models.OrderView{
		Order:            order,
		StatusLabel:      lifecycle.Label(order.OrderStatus),
		AvailableActions: lifecycle.AvailableActions(order.OrderStatus, actor.Role),
	}
}

var _ CouponDirectory = (*coupon.Directory)(nil)
