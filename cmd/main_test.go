package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-settlement/internal/auth"
	"github.com/ukydev/fleet-settlement/internal/config"
	"github.com/ukydev/fleet-settlement/internal/db"
	"github.com/ukydev/fleet-settlement/internal/events"
	"github.com/ukydev/fleet-settlement/internal/models"
	"github.com/ukydev/fleet-settlement/internal/reports"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memTrips struct {
	mu    sync.Mutex
	trips map[string]models.Trip
	order []string
}

func (m *memTrips) InsertTrip(_ context.Context, trip models.Trip) (models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip.ID = primitive.NewObjectID()
	trip.Version = 1
	m.trips[trip.ID.Hex()] = trip
	m.order = append(m.order, trip.ID.Hex())
	return trip, nil
}

func (m *memTrips) FindTripByID(_ context.Context, orgID, id string) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok || (orgID != "" && trip.OrganizationID != orgID) {
		return nil, db.ErrNotFound
	}
	return &trip, nil
}

func (m *memTrips) FindTrips(_ context.Context, f db.TripFilter) ([]models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Trip{}
	for _, id := range m.order {
		t := m.trips[id]
		if f.OrganizationID != "" && t.OrganizationID != f.OrganizationID {
			continue
		}
		if f.ConsignorID != "" && t.ConsignorID != f.ConsignorID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTrips) ReplaceTrip(_ context.Context, trip models.Trip, expected int64) (models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.trips[trip.ID.Hex()]
	if !ok {
		return models.Trip{}, db.ErrNotFound
	}
	if current.Version != expected {
		return models.Trip{}, db.ErrVersionConflict
	}
	trip.Version = expected + 1
	m.trips[trip.ID.Hex()] = trip
	return trip, nil
}

type staticDirectory struct{}

func (staticDirectory) FindVehicles(context.Context, string, []string) (map[string]models.Vehicle, error) {
	return map[string]models.Vehicle{"v-1": {VehicleNumber: "TN01AB1234", DriverName: "Ravi"}}, nil
}

func (staticDirectory) FindConsignors(context.Context, string, []string) (map[string]models.Consignor, error) {
	return map[string]models.Consignor{"c-1": {Name: "Acme Cements"}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:            "test-secret",
		JWTExpiry:            time.Hour,
		SettlementMaxRetries: 3,
		RequestTimeout:       5 * time.Second,
	}
}

func call(t *testing.T, h http.Handler, token, method, path, body string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestSettlementFlow(t *testing.T) {
	cfg := testConfig()
	h, err := buildHandler(cfg, &memTrips{trips: map[string]models.Trip{}}, staticDirectory{}, events.NoopPublisher{})
	require.NoError(t, err)

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	require.NoError(t, err)
	token, err := authService.GenerateToken(models.Claims{UserID: "u-1", Role: models.RoleAccountant, OrganizationID: "org-1"})
	require.NoError(t, err)

	var trip models.Trip
	code := call(t, h, token, http.MethodPost, "/api/trips", `{
		"consignor_id": "c-1",
		"vehicle_id": "v-1",
		"weight": {"loaded": "20"},
		"costing": {"rate_per_ton": "500", "commission": "400", "unloading_charge": "100"},
		"billing": {"rate_per_ton": "650", "loading_mamul": "250"},
		"financials": {"total_driver_balance": "999999"}
	}`, &trip)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, decimal.NewFromInt(10000).Equal(trip.Costing.HireValue))
	assert.True(t, decimal.NewFromInt(13250).Equal(trip.Billing.TotalReceivable))
	assert.True(t, decimal.NewFromInt(9500).Equal(trip.Financials.TotalDriverBalance))

	path := "/api/trips/" + trip.ID.Hex() + "/transactions"
	code = call(t, h, token, http.MethodPost, path, `{"type":"ADVANCE_PAID","amount":"3000","mode":"CASH"}`, &trip)
	require.Equal(t, http.StatusCreated, code)
	code = call(t, h, token, http.MethodPost, path, `{"type":"RECEIVED_FROM_CONSIGNOR","amount":"5000"}`, &trip)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, int64(3), trip.Version)
	assert.True(t, decimal.NewFromInt(6500).Equal(trip.Financials.TotalDriverBalance))
	assert.True(t, decimal.NewFromInt(8250).Equal(trip.Financials.TotalConsignorBalance))

	code = call(t, h, token, http.MethodPost, path, `{"type":"ADVANCE_PAID","amount":"-5"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var aging reports.AgingReport
	code = call(t, h, token, http.MethodGet, "/api/reports/aging", "", &aging)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, aging.Rows, 1)
	assert.Equal(t, "Acme Cements", aging.Rows[0].ConsignorName)
	assert.True(t, trip.Financials.TotalConsignorBalance.Equal(aging.Rows[0].TotalOutstanding))

	var ops reports.OperationsReport
	code = call(t, h, token, http.MethodGet, "/api/reports/operations", "", &ops)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, ops.Rows, 1)
	assert.Equal(t, "TN01AB1234", ops.Rows[0].VehicleNumber)
	assert.True(t, trip.Financials.TotalDriverBalance.Equal(ops.Rows[0].Balance))

	var profit reports.ProfitabilityReport
	code = call(t, h, token, http.MethodGet, "/api/reports/profitability?consignor_id=c-2", "", &profit)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, profit.Rows)
	assert.NotNil(t, profit.Rows)
}

func TestNewPublisherWithoutBroker(t *testing.T) {
	publisher, closeFn := newPublisher(testConfig())
	defer closeFn()
	assert.IsType(t, events.NoopPublisher{}, publisher)
}

func TestBuildHandlerRejectsMissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""
	_, err := buildHandler(cfg, &memTrips{trips: map[string]models.Trip{}}, staticDirectory{}, events.NoopPublisher{})
	assert.Error(t, err)
}
