package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/coupon"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/lifecycle"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/pricing"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/repository"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/service"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
// It writes a 400 and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *slog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("failed to decode request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", logger)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			WriteError(w, http.StatusBadRequest, validationMessage(verrs[0]), logger)
			return false
		}
		logger.Error("request validation failed", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", logger)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// writeServiceError maps service, repository and state machine errors to
// HTTP responses.
func writeServiceError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var transitionErr *lifecycle.TransitionError
	var ineligible *pricing.IneligibleError

	switch {
	case errors.As(err, &transitionErr):
		status := http.StatusConflict
		switch transitionErr.Kind {
		case lifecycle.KindNotPermitted:
			status = http.StatusForbidden
		case lifecycle.KindUnknownAction:
			status = http.StatusBadRequest
		}
		WriteError(w, status, transitionErr.Error(), logger)
	case errors.Is(err, service.ErrEmptyOrder):
		WriteError(w, http.StatusBadRequest, "Order must contain at least one item", logger)
	case errors.Is(err, service.ErrInvalidQuantity):
		WriteError(w, http.StatusBadRequest, "Quantity must be positive", logger)
	case errors.Is(err, service.ErrInvalidProduct):
		WriteError(w, http.StatusBadRequest, "Invalid product", logger)
	case errors.Is(err, service.ErrMissingFilter):
		WriteError(w, http.StatusBadRequest, "A customerId or vendorId filter is required", logger)
	case errors.As(err, &ineligible):
		WriteError(w, http.StatusUnprocessableEntity, ineligible.Message, logger)
	case errors.Is(err, service.ErrInvalidCoupon):
		WriteError(w, http.StatusUnprocessableEntity, couponMessage(err), logger)
	case errors.Is(err, service.ErrOrderAccessDenied):
		WriteError(w, http.StatusForbidden, "Order is not accessible", logger)
	case errors.Is(err, repository.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "Order not found", logger)
	case errors.Is(err, repository.ErrStatusConflict):
		WriteError(w, http.StatusConflict, "Order was updated by another request; reload and try again", logger)
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", logger)
	}
}

// couponMessage explains why a coupon code cannot be used
func couponMessage(err error) string {
	switch {
	case errors.Is(err, coupon.ErrCouponNotFound):
		return "Coupon not found"
	case errors.Is(err, coupon.ErrCouponInactive):
		return "This coupon is not active"
	case errors.Is(err, coupon.ErrCouponNotStarted):
		return "This coupon is not valid yet"
	case errors.Is(err, coupon.ErrCouponExpired):
		return "This coupon has expired"
	case errors.Is(err, coupon.ErrUsageLimitReached):
		return "This coupon has reached its usage limit"
	default:
		return "Coupon code is not valid"
	}
}
