package models

// Product represents a furniture item listed by a vendor
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	VendorID string  `json:"vendorId"`
}

// ProductSummary is the embedded product shape some clients send in
// place of a bare product id.
type ProductSummary struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price,omitempty"`
	VendorID string  `json:"vendorId,omitempty"`
}
