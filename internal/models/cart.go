package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ProductRef is either a bare product id or an embedded product summary.
// It is resolved once when decoded; business logic only calls ID.
type ProductRef struct {
	id       string
	embedded *ProductSummary
}

// Reference builds a ProductRef from a product id.
func Reference(id string) ProductRef {
	return ProductRef{id: id}
}

// Embedded builds a ProductRef from a populated product.
func Embedded(p ProductSummary) ProductRef {
	return ProductRef{id: p.ID, embedded: &p}
}

// ID returns the referenced product id, whichever form was supplied.
func (r ProductRef) ID() string {
	return r.id
}

// Summary returns the embedded product, if one was supplied.
func (r ProductRef) Summary() (ProductSummary, bool) {
	if r.embedded == nil {
		return ProductSummary{}, false
	}
	return *r.embedded, true
}

// IsZero reports whether no product was referenced.
func (r ProductRef) IsZero() bool {
	return r.id == ""
}

// MarshalJSON always emits the bare id.
func (r ProductRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id)
}

// UnmarshalJSON accepts a string, a number, or an object with an "_id"
// or "id" field.
func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ProductRef{}
		return nil
	}

	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Reference(id)
		return nil
	case '{':
		var obj struct {
			ProductSummary
			AltID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.ProductSummary.ID == "" {
			obj.ProductSummary.ID = obj.AltID
		}
		if obj.ProductSummary.ID == "" {
			return errors.New("embedded product has no id")
		}
		*r = Embedded(obj.ProductSummary)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("product reference must be a string, number or object: %w", err)
		}
		*r = Reference(n.String())
		return nil
	}
}

// CartLineItem is one product/quantity pair priced for checkout.
type CartLineItem struct {
	LineID         string     `json:"lineId,omitempty"`
	Product        ProductRef `json:"productId"`
	VendorID       string     `json:"vendorId,omitempty"`
	UnitPriceMajor float64    `json:"unitPrice"`
	Quantity       int        `json:"quantity"`
}

// Key identifies the line in a DiscountResult. It defaults to the product id.
func (i CartLineItem) Key() string {
	if i.LineID != "" {
		return i.LineID
	}
	return i.Product.ID()
}
