package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	courierapp "delivery-settlement/internal/courier/application"
	couriermemory "delivery-settlement/internal/courier/infrastructure/memory"
	feesapp "delivery-settlement/internal/fees/application"
	feesmemory "delivery-settlement/internal/fees/infrastructure/memory"
	partnerapp "delivery-settlement/internal/partner/application"
	partnermemory "delivery-settlement/internal/partner/infrastructure/memory"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type pinger struct{ err error }

func (p pinger) PingContext(ctx context.Context) error { return p.err }

func newRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := &clock{now: time.Date(2026, time.March, 3, 18, 0, 0, 0, time.UTC)}

	couriers := couriermemory.NewCourierRepository()
	directory, err := partnerapp.NewService(partnermemory.NewPartnerRepository(), couriers, c, logger)
	require.NoError(t, err)
	tracker, err := courierapp.NewActivityTracker(couriers, c, logger)
	require.NoError(t, err)
	calculator, err := feesapp.NewFeeCalculator(feesmemory.NewFeeCalculationRepository(), tracker, c, logger)
	require.NoError(t, err)

	h, err := NewHandler(calculator, directory, db, logger)
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Route("/api/delivery", h.Routes)
	return r
}

func post(t *testing.T, router http.Handler, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return resp.Code, out
}

func TestCalculateFee(t *testing.T) {
	router := newRouter(t, nil)
	code, _ := post(t, router, "/api/delivery/courier/create", `{"external_courier_id": 42, "name": "Ana", "phone": "555"}`)
	require.Equal(t, http.StatusOK, code)

	code, out := post(t, router, "/api/delivery/calculate_fee", `{"distance_km": 6.2, "courier_id": 42}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, 3.0, out["delivery_fee"])
	assert.InDelta(t, 1.2, out["company_share"], 1e-9)
	assert.InDelta(t, 1.8, out["courier_share"], 1e-9)
	assert.Equal(t, false, out["high_volume_bonus"])
	assert.NotZero(t, out["calculation_id"])
}

func TestCalculateFee_JSONRPCParams(t *testing.T) {
	router := newRouter(t, nil)
	post(t, router, "/api/delivery/courier/create", `{"params": {"external_courier_id": "7", "name": "Luis"}}`)

	code, out := post(t, router, "/api/delivery/calculate_fee", `{"jsonrpc": "2.0", "params": {"distance_km": "2", "courier_id": "7"}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, out["delivery_fee"])
}

func TestCalculateFee_Errors(t *testing.T) {
	router := newRouter(t, nil)
	post(t, router, "/api/delivery/courier/create", `{"external_courier_id": 1, "name": "Ana"}`)

	cases := []struct {
		body string
		code int
		msg  string
	}{
		{`{"courier_id": 1}`, http.StatusBadRequest, "Missing required parameters: distance_km, courier_id"},
		{`{"distance_km": 0, "courier_id": 1}`, http.StatusBadRequest, "Missing required parameters: distance_km, courier_id"},
		{`{"distance_km": -2, "courier_id": 1}`, http.StatusBadRequest, "Invalid distance value"},
		{`{"distance_km": 100.5, "courier_id": 1}`, http.StatusBadRequest, "Invalid distance value"},
		{`{"distance_km": "far", "courier_id": 1}`, http.StatusBadRequest, "Invalid input parameters"},
		{`{"distance_km": 3, "courier_id": -4}`, http.StatusBadRequest, "Invalid courier ID"},
		{`{"distance_km": 3, "courier_id": 99}`, http.StatusNotFound, "Courier 99 not found"},
		{`not json`, http.StatusBadRequest, "Invalid input parameters"},
	}
	for _, tc := range cases {
		code, out := post(t, router, "/api/delivery/calculate_fee", tc.body)
		assert.Equal(t, tc.code, code, tc.body)
		assert.Equal(t, tc.msg, out["error"], tc.body)
	}
}

func TestCalculateFee_BonusFromSixthDelivery(t *testing.T) {
	router := newRouter(t, nil)
	post(t, router, "/api/delivery/courier/create", `{"external_courier_id": 5, "name": "Rider"}`)

	var last map[string]any
	for i := 0; i < 6; i++ {
		code, out := post(t, router, "/api/delivery/calculate_fee", `{"distance_km": 3, "courier_id": 5}`)
		require.Equal(t, http.StatusOK, code)
		last = out
	}
	assert.Equal(t, true, last["high_volume_bonus"])
	assert.InDelta(t, 0.7, last["company_share"], 1e-9)
	assert.InDelta(t, 1.3, last["courier_share"], 1e-9)
}

func TestOrderCompleted(t *testing.T) {
	router := newRouter(t, nil)
	post(t, router, "/api/delivery/courier/create", `{"external_courier_id": 3, "name": "Ana"}`)
	_, calc := post(t, router, "/api/delivery/calculate_fee", `{"distance_km": 4, "courier_id": 3}`)

	body := `{"external_order_id": 9001, "calculation_id": ` + jsonNumber(calc["calculation_id"]) + `, "order_total": 24.5}`
	code, out := post(t, router, "/api/delivery/order_completed", body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Order marked as delivered", out["message"])

	code, out = post(t, router, "/api/delivery/order_completed", `{"external_order_id": 1, "calculation_id": 777}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Calculation 777 not found", out["error"])

	code, out = post(t, router, "/api/delivery/order_completed", `{"calculation_id": 1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required parameters: external_order_id, calculation_id", out["error"])
}

func TestCreateCourier_Duplicate(t *testing.T) {
	router := newRouter(t, nil)
	code, out := post(t, router, "/api/delivery/courier/create", `{"external_courier_id": 8, "name": "Ana"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Courier Ana created successfully", out["message"])
	assert.NotZero(t, out["partner_id"])

	code, out = post(t, router, "/api/delivery/courier/create", `{"external_courier_id": 8, "name": "Ana"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Courier 8 already exists", out["error"])

	code, out = post(t, router, "/api/delivery/courier/create", `{"name": "Ana"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required parameters: external_courier_id, name", out["error"])
}

func TestCreateRestaurant(t *testing.T) {
	router := newRouter(t, nil)
	code, out := post(t, router, "/api/delivery/restaurant/create", `{"external_restaurant_id": 11, "name": "Pizza Sol", "location_lat": 40.4, "location_lng": -3.7}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Restaurant Pizza Sol created successfully", out["message"])

	code, out = post(t, router, "/api/delivery/restaurant/create", `{"external_restaurant_id": 11, "name": "Pizza Sol"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Restaurant 11 already exists", out["error"])

	code, _ = post(t, router, "/api/delivery/restaurant/create", `{"external_restaurant_id": 12, "name": "X", "location_lat": "north"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		db     Pinger
		code   int
		status string
	}{
		{pinger{}, http.StatusOK, "healthy"},
		{pinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unhealthy"},
	} {
		router := newRouter(t, tc.db)
		req := httptest.NewRequest(http.MethodGet, "/api/delivery/health", nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equal(t, tc.code, resp.Code)
		var out map[string]any
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
		assert.Equal(t, tc.status, out["status"])
	}
}

func jsonNumber(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
