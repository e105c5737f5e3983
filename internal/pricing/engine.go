// Package pricing computes line totals, coupon discounts and order totals
// in integer cents. It performs no I/O and holds no mutable state, so an
// Engine may be shared freely between goroutines.
package pricing

import (
	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/money"
)

// Policy holds store-wide pricing settings.
type Policy struct {
	// FreeShippingThresholdCents waives shipping when the subtotal reaches it.
	FreeShippingThresholdCents int64
	// ShippingFeeCents is charged below the threshold.
	ShippingFeeCents int64
}

// DefaultPolicy is free shipping from $100.00, otherwise a $20.00 fee.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThresholdCents: 10000,
		ShippingFeeCents:           2000,
	}
}

// DiscountResult is the outcome of applying a coupon to a cart.
type DiscountResult struct {
	PerLineDiscountMinor map[string]int64
	TotalDiscountMinor   int64
	EligibleLineIDs      []string
	// Ineligible is set when the coupon does not apply to the cart at all.
	Ineligible *IneligibleError
}

// IsEligible reports whether the line with this key received the coupon.
func (r DiscountResult) IsEligible(lineID string) bool {
	for _, id := range r.EligibleLineIDs {
		if id == lineID {
			return true
		}
	}
	return false
}

// Totals is the payable breakdown of a cart.
type Totals struct {
	SubtotalCents int64
	ShippingCents int64
	DiscountCents int64
	TotalCents    int64
	Discount      DiscountResult
}

func (t Totals) SubtotalMajor() float64 { return money.ToMajor(t.SubtotalCents) }
func (t Totals) ShippingMajor() float64 { return money.ToMajor(t.ShippingCents) }
func (t Totals) DiscountMajor() float64 { return money.ToMajor(t.DiscountCents) }
func (t Totals) TotalMajor() float64    { return money.ToMajor(t.TotalCents) }

// Engine prices carts under a fixed Policy.
type Engine struct {
	policy Policy
}

// NewEngine creates an engine for the given policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy returns the engine's pricing policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// LineTotalCents is round(unitPrice*100) * quantity. The unit price is
// rounded to cents once, before multiplying.
func LineTotalCents(item models.CartLineItem) int64 {
	if item.Quantity <= 0 {
		return 0
	}
	return money.ToMinor(item.UnitPriceMajor) * int64(item.Quantity)
}

// SubtotalCents sums the line totals of a cart.
func SubtotalCents(cart []models.CartLineItem) int64 {
	var subtotal int64
	for _, item := range cart {
		subtotal += LineTotalCents(item)
	}
	return subtotal
}

// LineDiscountCents is the discount the coupon grants on one line,
// always within [0, line total].
func LineDiscountCents(c *models.Coupon, item models.CartLineItem) int64 {
	if c == nil || !validDiscount(c) || !IsLineItemEligible(c, item) {
		return 0
	}

	lineTotal := LineTotalCents(item)
	if lineTotal <= 0 {
		return 0
	}

	var discount int64
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = money.PercentOf(lineTotal, c.DiscountValue)
		if maxCents, ok := money.OptionalMinor(c.MaxDiscountMajor); ok && discount > maxCents {
			discount = maxCents
		}
	case models.DiscountFixed:
		discount = money.ToMinor(c.DiscountValue)
	}

	if discount < 0 {
		return 0
	}
	if discount > lineTotal {
		return lineTotal
	}
	return discount
}

// CartDiscount applies the coupon to every line. When the coupon fails the
// cart-level check the whole result is zero, whatever individual lines
// would have qualified for.
func CartDiscount(c *models.Coupon, cart []models.CartLineItem) DiscountResult {
	result := DiscountResult{
		PerLineDiscountMinor: make(map[string]int64, len(cart)),
		EligibleLineIDs:      []string{},
	}

	if err := CheckEligibility(c, cart); err != nil {
		for _, item := range cart {
			result.PerLineDiscountMinor[item.Key()] = 0
		}
		result.Ineligible = err
		return result
	}

	for _, item := range cart {
		key := item.Key()
		discount := LineDiscountCents(c, item)
		result.PerLineDiscountMinor[key] += discount
		result.TotalDiscountMinor += discount
		if IsLineItemEligible(c, item) && !result.IsEligible(key) {
			result.EligibleLineIDs = append(result.EligibleLineIDs, key)
		}
	}

	return result
}

// OrderTotals prices a cart with an optional coupon. Shipping is
// shippingFeeMajor unless the subtotal reaches the free-shipping
// threshold; an empty cart ships free. The total never goes below zero.
func (e *Engine) OrderTotals(cart []models.CartLineItem, shippingFeeMajor float64, c *models.Coupon) Totals {
	totals := Totals{SubtotalCents: SubtotalCents(cart)}

	if len(cart) > 0 && totals.SubtotalCents < e.policy.FreeShippingThresholdCents {
		totals.ShippingCents = money.ToMinor(shippingFeeMajor)
		if totals.ShippingCents < 0 {
			totals.ShippingCents = 0
		}
	}

	if c != nil {
		totals.Discount = CartDiscount(c, cart)
		totals.DiscountCents = totals.Discount.TotalDiscountMinor
	}

	totals.TotalCents = totals.SubtotalCents + totals.ShippingCents - totals.DiscountCents
	if totals.TotalCents < 0 {
		totals.TotalCents = 0
	}

	return totals
}

// Quote prices a cart using the policy's own shipping fee.
func (e *Engine) Quote(cart []models.CartLineItem, c *models.Coupon) Totals {
	return e.OrderTotals(cart, money.ToMajor(e.policy.ShippingFeeCents), c)
}
