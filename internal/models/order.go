package models

import "time"

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusPending      OrderStatus = "PENDING"
	StatusConfirmed    OrderStatus = "CONFIRMED"
	StatusInProcessing OrderStatus = "IN_PROCESSING"
	StatusDelivered    OrderStatus = "DELIVERED"
	StatusCancelled    OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// PaymentStatus is recorded on orders; no payment gateway is involved.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Role is the kind of actor requesting an operation
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleVendor   Role = "VENDOR"
	RoleAdmin    Role = "ADMIN"
)

// Action names a requested order transition
type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionInProgress Action = "in-progress"
	ActionDelivered  Action = "delivered"
	ActionCancel     Action = "cancel"
)

// OrderRequest represents an incoming checkout or order request
type OrderRequest struct {
	CouponCode string      `json:"couponCode,omitempty" validate:"omitempty,max=64"`
	Items      []OrderItem `json:"items" validate:"required,min=1,dive"`
}

// OrderItem represents a single item in an order request
type OrderItem struct {
	ProductID ProductRef `json:"productId"`
	Quantity  int        `json:"quantity" validate:"gte=1"`
}

// Order is one placed line of a checkout. A cart with several lines
// produces several orders sharing a CheckoutID.
type Order struct {
	ID                  string        `json:"id"`
	CheckoutID          string        `json:"checkoutId"`
	ProductID           string        `json:"productId"`
	ProductName         string        `json:"productName"`
	VendorID            string        `json:"vendorId"`
	CustomerID          string        `json:"customerId"`
	Quantity            int           `json:"quantity"`
	UnitPriceMajor      float64       `json:"unitPrice"`
	ShippingFeeMajor    float64       `json:"shippingFee"`
	DiscountAmountMajor float64       `json:"discountAmount"`
	TotalMajor          float64       `json:"total"`
	CouponCode          string        `json:"couponCode,omitempty"`
	OrderStatus         OrderStatus   `json:"orderStatus"`
	PaymentStatus       PaymentStatus `json:"paymentStatus"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// Actor identifies who is calling, as resolved by the auth middleware.
type Actor struct {
	ID   string
	Role Role
}
