package models

import "time"

// CouponScope controls which line items a coupon may apply to
type CouponScope string

const (
	ScopeGlobal CouponScope = "GLOBAL"
	ScopeVendor CouponScope = "VENDOR"
)

// DiscountType selects how DiscountValue is interpreted
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon is a discount record as held by the coupon directory.
// Optional thresholds are nil when unset.
type Coupon struct {
	Code                string       `json:"code"`
	Scope               CouponScope  `json:"scope"`
	VendorID            string       `json:"vendorId,omitempty"`
	DiscountType        DiscountType `json:"discountType"`
	DiscountValue       float64      `json:"discountValue"`
	MaxDiscountMajor    *float64     `json:"maxDiscount,omitempty"`
	MinOrderAmountMajor *float64     `json:"minOrderAmount,omitempty"`
	MinQuantity         *int         `json:"minQuantity,omitempty"`
	UsageLimit          *int         `json:"usageLimit,omitempty"`
	UsedCount           int          `json:"usedCount"`
	StartDate           time.Time    `json:"startDate"`
	EndDate             time.Time    `json:"endDate"`
	IsActive            bool         `json:"isActive"`
}

// LimitReached reports whether the usage limit, if any, is exhausted.
func (c *Coupon) LimitReached() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}
