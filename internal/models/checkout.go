package models

// QuoteLine is one priced line of a checkout quote
type QuoteLine struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	VendorID    string  `json:"vendorId"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
	Discount    float64 `json:"discount"`
	Eligible    bool    `json:"couponEligible"`
}

// Quote is the payable breakdown shown at checkout before an order is placed.
// CouponMessage explains why a supplied coupon gives no discount.
type Quote struct {
	Lines         []QuoteLine `json:"lines"`
	Subtotal      float64     `json:"subtotal"`
	Shipping      float64     `json:"shipping"`
	Discount      float64     `json:"discount"`
	Total         float64     `json:"total"`
	CouponCode    string      `json:"couponCode,omitempty"`
	CouponMessage string      `json:"couponMessage,omitempty"`
}

// OrderView is an order as rendered for a particular actor.
type OrderView struct {
	*Order
	StatusLabel      string   `json:"statusLabel"`
	AvailableActions []Action `json:"availableActions"`
}

// TransitionRequest is the body of an order transition call
type TransitionRequest struct {
	Action Action `json:"action" validate:"required,max=32"`
}
