package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-settlement/internal/db"
	"github.com/ukydev/fleet-settlement/internal/models"
	"github.com/ukydev/fleet-settlement/internal/settlement"
	"github.com/ukydev/fleet-settlement/internal/trips"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

var asOf = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func makeTrip(consignor, vehicle string, daysAgo int, hire, receivable string, txs ...models.Transaction) models.Trip {
	return settlement.Recompute(models.Trip{
		ID:             primitive.NewObjectID(),
		OrganizationID: "org-1",
		ConsignorID:    consignor,
		VehicleID:      vehicle,
		TripDate:       asOf.AddDate(0, 0, -daysAgo),
		Costing: models.Costing{
			HireValue:     dec(hire),
			LoadingCharge: dec("100"),
			Commission:    dec("50"),
		},
		Billing:      models.Billing{GrossAmount: dec(receivable)},
		Transactions: txs,
		Status:       models.TripDelivered,
	})
}

func pay(typ models.TransactionType, amount string) models.Transaction {
	return models.Transaction{Type: typ, Amount: dec(amount)}
}

func fixture() []models.Trip {
	return []models.Trip{
		makeTrip("c-1", "v-1", 5, "1000", "1500", pay(models.TxAdvancePaid, "300"), pay(models.TxReceivedFromConsignor, "500")),
		makeTrip("c-1", "v-2", 45, "2000", "2600", pay(models.TxAdvancePaid, "2000")),
		makeTrip("c-2", "v-1", 100, "500", "800"),
		makeTrip("c-2", "v-2", 75, "700", "900", pay(models.TxReceivedFromConsignor, "900")),
	}
}

var names = Names{
	Vehicles: map[string]models.Vehicle{
		"v-1": {VehicleNumber: "TN01AB1234", DriverName: "Ravi"},
		"v-2": {VehicleNumber: "KA05CD5678", DriverName: "Suresh"},
	},
	Consignors: map[string]models.Consignor{
		"c-1": {Name: "Acme Cements"},
		"c-2": {Name: "Bharat Steel"},
	},
}

func TestBuildProfitability(t *testing.T) {
	list := fixture()
	report := BuildProfitability(list, names)
	require.Len(t, report.Rows, 4)

	row := report.Rows[0]
	assert.Equal(t, list[0].ID.Hex(), row.TripID)
	assert.Equal(t, "TN01AB1234", row.VehicleNumber)
	assert.Equal(t, "Acme Cements", row.ConsignorName)
	assertMoney(t, "1500", row.Revenue)
	assertMoney(t, "1500", row.TotalHireValue)
	assertMoney(t, "1000", row.CostHireValue)
	assertMoney(t, "850", row.DriverPayable)
	assertMoney(t, "100", row.Expenses)
	assertMoney(t, "550", row.GrossProfit)

	assert.Equal(t, 4, report.Totals.TripCount)
	assertMoney(t, "5800", report.Totals.Revenue)
	assertMoney(t, "4200", report.Totals.CostHireValue)
	sum := decimal.Zero
	for _, r := range report.Rows {
		assert.True(t, r.GrossProfit.Equal(r.TotalHireValue.Sub(r.DriverPayable.Add(r.Expenses))))
		sum = sum.Add(r.GrossProfit)
	}
	assert.True(t, sum.Equal(report.Totals.GrossProfit))
}

func TestBuildAging(t *testing.T) {
	list := fixture()
	report := BuildAging(list, names, asOf)
	require.Len(t, report.Rows, 2)

	// c-1 owes 1000 + 2600, c-2 owes 800 + 0.
	first := report.Rows[0]
	assert.Equal(t, "c-1", first.ConsignorID)
	assert.Equal(t, 2, first.TripCount)
	assertMoney(t, "4100", first.TotalBilled)
	assertMoney(t, "500", first.TotalReceived)
	assertMoney(t, "3600", first.TotalOutstanding)
	assertMoney(t, "1000", first.Buckets.Days0To30)
	assertMoney(t, "2600", first.Buckets.Days31To60)

	second := report.Rows[1]
	assert.Equal(t, "Bharat Steel", second.ConsignorName)
	assertMoney(t, "800", second.Buckets.Over90)
	assertMoney(t, "0", second.Buckets.Days61To90)

	received, outstanding := decimal.Zero, decimal.Zero
	for _, trip := range list {
		received = received.Add(trip.Financials.TotalConsignorReceived)
		outstanding = outstanding.Add(trip.Financials.TotalConsignorBalance)
	}
	assert.True(t, received.Equal(report.Totals.TotalReceived))
	assert.True(t, outstanding.Equal(report.Totals.TotalOutstanding))
	b := report.Totals.Buckets
	assert.True(t, outstanding.Equal(b.Days0To30.Add(b.Days31To60).Add(b.Days61To90).Add(b.Over90)))
}

func TestAgingTiesSortByName(t *testing.T) {
	list := []models.Trip{
		makeTrip("c-2", "v-1", 1, "0", "100"),
		makeTrip("c-1", "v-1", 1, "0", "100"),
	}
	report := BuildAging(list, names, asOf)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "Acme Cements", report.Rows[0].ConsignorName)
}

func TestAgeInDays(t *testing.T) {
	assert.Equal(t, 0, ageInDays(asOf, asOf))
	assert.Equal(t, 0, ageInDays(asOf.AddDate(0, 0, 3), asOf))
	assert.Equal(t, 30, ageInDays(asOf.AddDate(0, 0, -30), asOf))
	assert.Equal(t, 1, ageInDays(time.Date(2025, 6, 29, 23, 0, 0, 0, time.UTC), time.Date(2025, 6, 30, 1, 0, 0, 0, time.UTC)))
}

func TestBuildOperations(t *testing.T) {
	list := fixture()
	report := BuildOperations(list, names)
	require.Len(t, report.Rows, 2)

	// v-1: payable 850 + 350, paid 300. v-2: payable 1850 + 550, paid 2000.
	first := report.Rows[0]
	assert.Equal(t, "v-1", first.VehicleID)
	assert.Equal(t, "Ravi", first.DriverName)
	assertMoney(t, "1200", first.TotalPayable)
	assertMoney(t, "300", first.TotalPaid)
	assertMoney(t, "900", first.Balance)

	second := report.Rows[1]
	assert.Equal(t, "KA05CD5678", second.VehicleNumber)
	assertMoney(t, "400", second.Balance)

	balance := decimal.Zero
	for _, trip := range list {
		balance = balance.Add(trip.Financials.TotalDriverBalance)
	}
	assert.True(t, balance.Equal(report.Totals.Balance))
	assert.True(t, report.Totals.TotalPayable.Sub(report.Totals.TotalPaid).Equal(report.Totals.Balance))
}

func TestEmptyReports(t *testing.T) {
	p := BuildProfitability(nil, Names{})
	assert.NotNil(t, p.Rows)
	assert.Empty(t, p.Rows)
	assert.True(t, p.Totals.GrossProfit.IsZero())

	a := BuildAging([]models.Trip{}, Names{}, asOf)
	assert.NotNil(t, a.Rows)
	assert.Empty(t, a.Rows)

	o := BuildOperations(nil, Names{})
	assert.NotNil(t, o.Rows)
	assert.Equal(t, 0, o.Totals.TripCount)
}

type MockTripSource struct {
	mock.Mock
}

func (m *MockTripSource) Query(ctx context.Context, scope trips.Scope, filter db.TripFilter) ([]models.Trip, error) {
	args := m.Called(ctx, scope, filter)
	if v := args.Get(0); v != nil {
		return v.([]models.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindVehicles(ctx context.Context, orgID string, ids []string) (map[string]models.Vehicle, error) {
	args := m.Called(ctx, orgID, ids)
	v, _ := args.Get(0).(map[string]models.Vehicle)
	return v, args.Error(1)
}

func (m *MockDirectory) FindConsignors(ctx context.Context, orgID string, ids []string) (map[string]models.Consignor, error) {
	args := m.Called(ctx, orgID, ids)
	v, _ := args.Get(0).(map[string]models.Consignor)
	return v, args.Error(1)
}

var scope = trips.Scope{OrganizationID: "org-1", Role: models.RoleAccountant}

func TestServiceProfitabilityJoinsNames(t *testing.T) {
	src := new(MockTripSource)
	dir := new(MockDirectory)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := Filter{From: &from, VehicleID: "v-1"}

	src.On("Query", mock.Anything, scope, f.TripFilter()).Return(fixture()[:1], nil)
	dir.On("FindVehicles", mock.Anything, "org-1", []string{"v-1"}).Return(names.Vehicles, nil)
	dir.On("FindConsignors", mock.Anything, "org-1", []string{"c-1"}).Return(names.Consignors, nil)

	report, err := NewService(src, dir).Profitability(context.Background(), scope, f)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "Acme Cements", report.Rows[0].ConsignorName)
	src.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestServiceDirectoryFailureDegrades(t *testing.T) {
	src := new(MockTripSource)
	dir := new(MockDirectory)
	src.On("Query", mock.Anything, scope, mock.Anything).Return(fixture(), nil)
	dir.On("FindVehicles", mock.Anything, "org-1", mock.Anything).Return(nil, errors.New("registry down"))

	report, err := NewService(src, dir).Operations(context.Background(), scope, Filter{})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Empty(t, report.Rows[0].VehicleNumber)
	assert.Empty(t, report.Rows[0].DriverName)
	dir.AssertNotCalled(t, "FindConsignors", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceAgingDefaultsAsOf(t *testing.T) {
	src := new(MockTripSource)
	src.On("Query", mock.Anything, scope, mock.Anything).Return([]models.Trip{}, nil)
	svc := NewService(src, nil)
	svc.now = func() time.Time { return asOf }

	report, err := svc.Aging(context.Background(), scope, Filter{})
	require.NoError(t, err)
	assert.Equal(t, asOf, report.AsOf)
	assert.NotNil(t, report.Rows)
	assert.Empty(t, report.Rows)
}

func TestServicePropagatesQueryErrors(t *testing.T) {
	src := new(MockTripSource)
	src.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, trips.ErrForbidden)

	_, err := NewService(src, nil).Aging(context.Background(), scope, Filter{OrganizationID: "org-2"})
	assert.ErrorIs(t, err, trips.ErrForbidden)
}
