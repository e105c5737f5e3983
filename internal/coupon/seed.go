package coupon

import (
	"time"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

// DefaultCoupons is the demo coupon set used when no sources are configured.
func DefaultCoupons() []models.Coupon {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2030, time.December, 31, 23, 59, 59, 0, time.UTC)

	return []models.Coupon{
		{
			Code: "WELCOME10", Scope: models.ScopeGlobal,
			DiscountType: models.DiscountFixed, DiscountValue: 10,
			StartDate: start, EndDate: end, IsActive: true,
		},
		{
			Code: "SPRING20", Scope: models.ScopeGlobal,
			DiscountType: models.DiscountPercentage, DiscountValue: 20,
			MaxDiscountMajor: floatPtr(15), UsageLimit: intPtr(500),
			StartDate: start, EndDate: end, IsActive: true,
		},
		{
			Code: "OAKWORKS15", Scope: models.ScopeVendor, VendorID: "oakworks",
			DiscountType: models.DiscountPercentage, DiscountValue: 15,
			MinOrderAmountMajor: floatPtr(200),
			StartDate: start, EndDate: end, IsActive: true,
		},
		{
			Code: "CHAIRS4", Scope: models.ScopeGlobal,
			DiscountType: models.DiscountFixed, DiscountValue: 25,
			MinQuantity: intPtr(4),
			StartDate: start, EndDate: end, IsActive: true,
		},
	}
}

// SeedDefaults loads DefaultCoupons into the directory.
func (d *Directory) SeedDefaults() error {
	for _, c := range DefaultCoupons() {
		if err := d.Put(c); err != nil {
			return err
		}
	}
	return nil
}
