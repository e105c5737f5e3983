package pricing

import (
	"fmt"
	"math"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/money"
)

// Reason classifies why a coupon cannot be applied to a cart.
type Reason string

const (
	ReasonMalformed      Reason = "MALFORMED_COUPON"
	ReasonUsageLimit     Reason = "USAGE_LIMIT_REACHED"
	ReasonVendorMismatch Reason = "VENDOR_SCOPE_MISMATCH"
	ReasonEmptyCart      Reason = "EMPTY_CART"
	ReasonThresholdUnmet Reason = "THRESHOLD_UNMET"
	ReasonNoEligibleItem Reason = "NO_ELIGIBLE_ITEM"
)

// IneligibleError reports that a coupon does not apply, with a message
// suitable for showing to the shopper.
type IneligibleError struct {
	Reason  Reason
	Message string
}

func (e *IneligibleError) Error() string {
	return e.Message
}

// IsLineItemEligible reports whether the coupon may discount this line.
// Eligibility is decided per line, so one coupon can discount some lines
// of a cart and skip others.
func IsLineItemEligible(c *models.Coupon, item models.CartLineItem) bool {
	if c == nil {
		return false
	}
	if c.Scope == models.ScopeVendor {
		if c.VendorID == "" || item.VendorID == "" || c.VendorID != item.VendorID {
			return false
		}
	}
	if c.LimitReached() {
		return false
	}
	if minCents, ok := money.OptionalMinor(c.MinOrderAmountMajor); ok && LineTotalCents(item) < minCents {
		return false
	}
	if c.MinQuantity != nil && item.Quantity < *c.MinQuantity {
		return false
	}
	return true
}

// CheckEligibility returns nil when at least one line of the cart can use
// the coupon, or an *IneligibleError describing the first failing rule in
// order: usage limit, vendor scope, empty cart, thresholds.
func CheckEligibility(c *models.Coupon, cart []models.CartLineItem) *IneligibleError {
	if c == nil || !validDiscount(c) {
		return &IneligibleError{Reason: ReasonMalformed, Message: "This coupon has an invalid discount"}
	}

	if c.LimitReached() {
		return &IneligibleError{Reason: ReasonUsageLimit, Message: "This coupon has reached its usage limit"}
	}

	if c.Scope == models.ScopeVendor {
		if c.VendorID == "" {
			return &IneligibleError{Reason: ReasonVendorMismatch, Message: "This coupon is not linked to any vendor"}
		}
		if !hasVendor(cart, c.VendorID) {
			return &IneligibleError{
				Reason:  ReasonVendorMismatch,
				Message: fmt.Sprintf("This coupon only applies to items sold by vendor %s", c.VendorID),
			}
		}
	}

	if len(cart) == 0 {
		return &IneligibleError{Reason: ReasonEmptyCart, Message: "Your cart is empty"}
	}

	for _, item := range cart {
		if IsLineItemEligible(c, item) {
			return nil
		}
	}

	if msg := thresholdMessage(c); msg != "" {
		return &IneligibleError{Reason: ReasonThresholdUnmet, Message: msg}
	}
	return &IneligibleError{Reason: ReasonNoEligibleItem, Message: "This coupon does not apply to any item in your cart"}
}

// EligibilityMessage is CheckEligibility flattened to a string; it is
// empty when the coupon applies.
func EligibilityMessage(c *models.Coupon, cart []models.CartLineItem) string {
	if err := CheckEligibility(c, cart); err != nil {
		return err.Message
	}
	return ""
}

func thresholdMessage(c *models.Coupon) string {
	minCents, hasAmount := money.OptionalMinor(c.MinOrderAmountMajor)
	hasQuantity := c.MinQuantity != nil

	switch {
	case hasAmount && hasQuantity:
		return fmt.Sprintf("An item must total at least %s with a quantity of at least %d to use this coupon",
			money.Format(minCents), *c.MinQuantity)
	case hasAmount:
		return fmt.Sprintf("An item must total at least %s to use this coupon", money.Format(minCents))
	case hasQuantity:
		return fmt.Sprintf("An item must have a quantity of at least %d to use this coupon", *c.MinQuantity)
	default:
		return ""
	}
}

func hasVendor(cart []models.CartLineItem, vendorID string) bool {
	for _, item := range cart {
		if item.VendorID == vendorID {
			return true
		}
	}
	return false
}

func validDiscount(c *models.Coupon) bool {
	if math.IsNaN(c.DiscountValue) || math.IsInf(c.DiscountValue, 0) || c.DiscountValue <= 0 {
		return false
	}
	return c.DiscountType == models.DiscountPercentage || c.DiscountType == models.DiscountFixed
}
