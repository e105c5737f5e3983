package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/config"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/pricing"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/repository"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/service"
	"github.com/Lixing-Zhang/furniture-store/backend/pkg/logger"
)

const (
	customerKey = "cust-key"
	otherKey    = "other-cust-key"
	oakworksKey = "oak-key"
	adminKey    = "admin-key"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	log := logger.New("error")

	coupons := newCouponDirectory(t)

	products := repository.NewInMemoryProductRepository()
	orders := repository.NewInMemoryOrderRepository()
	orderService := service.NewOrderService(products, coupons, orders, pricing.NewEngine(pricing.DefaultPolicy()), log)

	auth := config.AuthConfig{APIKeys: map[string]models.Actor{
		customerKey: {ID: "cust-1", Role: models.RoleCustomer},
		otherKey:    {ID: "cust-2", Role: models.RoleCustomer},
		oakworksKey: {ID: "oakworks", Role: models.RoleVendor},
		adminKey:    {ID: "root", Role: models.RoleAdmin},
	}}

	return NewRouter(Routes{
		Health:  NewHealthHandler(log, orders),
		Product: NewProductHandler(service.NewProductService(products), log),
		Coupon:  NewCouponHandler(coupons, log),
		Order:   NewOrderHandler(orderService, log),
	}, auth, log)
}

func do(t *testing.T, h http.Handler, method, path, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("api_key", apiKey)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type placedResponse struct {
	CheckoutID string          `json:"checkoutId"`
	Orders     []*models.Order `json:"orders"`
}

func placeOrder(t *testing.T, h http.Handler, body string) placedResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/order", customerKey, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp placedResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp["error"]
}

func TestOrderHandler_Quote(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		check          func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "priced with coupon",
			body:           `{"items":[{"productId":"6","quantity":2}],"couponCode":"WELCOME10"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var q models.Quote
				require.NoError(t, json.NewDecoder(w.Body).Decode(&q))
				assert.Equal(t, 99.98, q.Subtotal)
				assert.Equal(t, 20.0, q.Shipping)
				assert.Equal(t, 10.0, q.Discount)
				assert.Equal(t, 109.98, q.Total)
				require.Len(t, q.Lines, 1)
				assert.True(t, q.Lines[0].Eligible)
			},
		},
		{
			name:           "embedded product and numeric id",
			body:           `{"items":[{"productId":{"_id":"6","name":"Oak Side Table"},"quantity":1},{"productId":10,"quantity":1}]}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var q models.Quote
				require.NoError(t, json.NewDecoder(w.Body).Decode(&q))
				assert.Equal(t, 139.89, q.Subtotal)
				assert.Equal(t, 0.0, q.Shipping)
			},
		},
		{
			name:           "coupon not applicable explains why",
			body:           `{"items":[{"productId":"2","quantity":1}],"couponCode":"CHAIRS4"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var q models.Quote
				require.NoError(t, json.NewDecoder(w.Body).Decode(&q))
				assert.Equal(t, 0.0, q.Discount)
				assert.Contains(t, q.CouponMessage, "quantity of at least 4")
			},
		},
		{
			name:           "empty items",
			body:           `{"items":[]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero quantity",
			body:           `{"items":[{"productId":"1","quantity":0}]}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "quantity must be at least 1", errorMessage(t, w))
			},
		},
		{
			name:           "unknown product",
			body:           `{"items":[{"productId":"999","quantity":1}]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "expired coupon names the reason",
			body:           `{"items":[{"productId":"1","quantity":1}],"couponCode":"BYGONE"}`,
			expectedStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "This coupon has expired", errorMessage(t, w))
			},
		},
		{
			name:           "inactive coupon names the reason",
			body:           `{"items":[{"productId":"1","quantity":1}],"couponCode":"PAUSED"}`,
			expectedStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "This coupon is not active", errorMessage(t, w))
			},
		},
		{
			name:           "unknown coupon names the reason",
			body:           `{"items":[{"productId":"1","quantity":1}],"couponCode":"NOPE"}`,
			expectedStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "Coupon not found", errorMessage(t, w))
			},
		},
		{
			name:           "exhausted coupon quotes without discount",
			body:           `{"items":[{"productId":"1","quantity":1}],"couponCode":"USEDUP"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var q models.Quote
				require.NoError(t, json.NewDecoder(w.Body).Decode(&q))
				assert.Equal(t, 0.0, q.Discount)
				assert.Equal(t, "This coupon has reached its usage limit", q.CouponMessage)
			},
		},
		{
			name:           "malformed json",
			body:           `{"items":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, api, http.MethodPost, "/api/checkout/quote", customerKey, tt.body)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, w)
			}
		})
	}
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	api := newTestAPI(t)

	resp := placeOrder(t, api, `{"items":[{"productId":"6","quantity":2},{"productId":"10","quantity":1}],"couponCode":"spring20"}`)
	require.Len(t, resp.Orders, 2)
	assert.NotEmpty(t, resp.CheckoutID)
	for _, o := range resp.Orders {
		assert.Equal(t, resp.CheckoutID, o.CheckoutID)
		assert.Equal(t, models.StatusPending, o.OrderStatus)
		assert.Equal(t, "SPRING20", o.CouponCode)
	}

	t.Run("requires api key", func(t *testing.T) {
		w := do(t, api, http.MethodPost, "/api/order", "", `{"items":[{"productId":"6","quantity":1}]}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("vendors cannot place orders", func(t *testing.T) {
		w := do(t, api, http.MethodPost, "/api/order", oakworksKey, `{"items":[{"productId":"6","quantity":1}]}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("expired coupon is rejected with its reason", func(t *testing.T) {
		w := do(t, api, http.MethodPost, "/api/order", customerKey, `{"items":[{"productId":"6","quantity":1}],"couponCode":"BYGONE"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "This coupon has expired", errorMessage(t, w))
	})

	t.Run("ineligible coupon is rejected with its message", func(t *testing.T) {
		w := do(t, api, http.MethodPost, "/api/order", customerKey, `{"items":[{"productId":"1","quantity":1}],"couponCode":"OAKWORKS15"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "This coupon only applies to items sold by vendor oakworks", errorMessage(t, w))
	})
}

func TestOrderHandler_Lifecycle(t *testing.T) {
	api := newTestAPI(t)
	order := placeOrder(t, api, `{"items":[{"productId":"6","quantity":1}]}`).Orders[0]
	path := "/api/order/" + order.ID

	// Vendor sees confirm as the only available action
	w := do(t, api, http.MethodGet, path, oakworksKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var view models.OrderView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, "Pending", view.StatusLabel)
	assert.Equal(t, []models.Action{models.ActionConfirm}, view.AvailableActions)

	steps := []struct {
		name           string
		apiKey         string
		action         string
		expectedStatus int
		expectedOrder  models.OrderStatus
	}{
		{"customer cannot deliver", customerKey, "delivered", http.StatusForbidden, ""},
		{"vendor confirms", oakworksKey, "confirm", http.StatusOK, models.StatusConfirmed},
		{"confirm twice", oakworksKey, "confirm", http.StatusConflict, ""},
		{"skip processing", oakworksKey, "delivered", http.StatusConflict, ""},
		{"unknown action", oakworksKey, "ship", http.StatusBadRequest, ""},
		{"vendor starts processing", oakworksKey, "in-progress", http.StatusOK, models.StatusInProcessing},
		{"customer cannot cancel while processing", customerKey, "cancel", http.StatusConflict, ""},
		{"vendor delivers", oakworksKey, "delivered", http.StatusOK, models.StatusDelivered},
		{"terminal", adminKey, "cancel", http.StatusConflict, ""},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]string{"action": step.action})
			require.NoError(t, err)

			w := do(t, api, http.MethodPost, path+"/transition", step.apiKey, string(body))
			require.Equal(t, step.expectedStatus, w.Code, w.Body.String())

			if step.expectedOrder != "" {
				var v models.OrderView
				require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
				assert.Equal(t, step.expectedOrder, v.OrderStatus)
			}
		})
	}
}

func TestOrderHandler_TransitionMessages(t *testing.T) {
	api := newTestAPI(t)
	order := placeOrder(t, api, `{"items":[{"productId":"6","quantity":1}]}`).Orders[0]
	path := "/api/order/" + order.ID + "/transition"

	w := do(t, api, http.MethodPost, path, oakworksKey, `{"action":"confirm"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, api, http.MethodPost, path, oakworksKey, `{"action":"delivered"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "cannot mark this order as delivered while it is Confirmed; it must be In Processing", errorMessage(t, w))

	w = do(t, api, http.MethodPost, path, oakworksKey, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "action is required", errorMessage(t, w))
}

func TestOrderHandler_Access(t *testing.T) {
	api := newTestAPI(t)
	order := placeOrder(t, api, `{"items":[{"productId":"1","quantity":1}]}`).Orders[0]

	w := do(t, api, http.MethodGet, "/api/order/"+order.ID, otherKey, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Product 1 belongs to nordhaus, not oakworks
	w = do(t, api, http.MethodPost, "/api/order/"+order.ID+"/transition", oakworksKey, `{"action":"confirm"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, api, http.MethodGet, "/api/order/not-an-id", adminKey, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, api, http.MethodGet, "/api/order", customerKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.OrderView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&mine))
	assert.Len(t, mine, 1)

	w = do(t, api, http.MethodGet, "/api/order", adminKey, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, api, http.MethodGet, "/api/order?vendorId=nordhaus", adminKey, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_PublicRoutes(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusOK, do(t, api, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, api, http.MethodGet, "/api/product", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, api, http.MethodGet, "/api/coupon/WELCOME10", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, api, http.MethodGet, "/api/coupon/stats", adminKey, "").Code)
}
