package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/coupon"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
)

// couponDirectory is the part of the coupon directory the handler reads
type couponDirectory interface {
	Usable(ctx context.Context, code string, now time.Time) (*models.Coupon, error)
	GetStats() map[string]interface{}
}

// CouponHandler handles HTTP requests for coupon lookup
type CouponHandler struct {
	directory couponDirectory
	log       *slog.Logger
	now       func() time.Time
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(directory couponDirectory, log *slog.Logger) *CouponHandler {
	return &CouponHandler{
		directory: directory,
		log:       log,
		now:       time.Now,
	}
}

// ValidateCoupon handles GET /api/coupon/{couponCode}
// Reports whether the code exists and is usable today. Cart-specific rules
// are only checked when quoting.
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	couponCode := chi.URLParam(r, "couponCode")

	c, err := h.directory.Usable(r.Context(), couponCode, h.now())
	if err == nil && c.LimitReached() {
		err = coupon.ErrUsageLimitReached
	}

	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"valid":  true,
			"coupon": c,
		}, h.log)
	case errors.Is(err, coupon.ErrCouponNotFound):
		WriteJSON(w, http.StatusNotFound, map[string]interface{}{
			"valid":   false,
			"coupon":  couponCode,
			"message": "Coupon not found",
		}, h.log)
	default:
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"valid":   false,
			"coupon":  couponCode,
			"message": couponMessage(err),
		}, h.log)
	}
}

// GetStats handles GET /api/coupon/stats (for debugging/monitoring)
func (h *CouponHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.directory.GetStats()
	WriteJSON(w, http.StatusOK, stats, h.log)
}
