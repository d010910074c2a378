// Package reports aggregates stored trips into profitability, receivable
// aging and driver payable reports. Every figure is summed from the
// per-trip financials, so the reports always agree with the trips.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-settlement/internal/models"
	"github.com/ukydev/fleet-settlement/internal/settlement"
)

// Names resolves registry references into display values. Missing
// entries resolve to empty strings.
type Names struct {
	Vehicles   map[string]models.Vehicle
	Consignors map[string]models.Consignor
}

func (n Names) vehicle(id string) models.Vehicle {
	return n.Vehicles[id]
}

func (n Names) consignor(id string) string {
	return n.Consignors[id].Name
}

// ProfitabilityRow is one trip's revenue and cost.
type ProfitabilityRow struct {
	TripID         string            `json:"trip_id"`
	Date           time.Time         `json:"date"`
	VehicleID      string            `json:"vehicle_id"`
	VehicleNumber  string            `json:"vehicle_number"`
	ConsignorID    string            `json:"consignor_id"`
	ConsignorName  string            `json:"consignor_name"`
	Origin         string            `json:"origin"`
	Destination    string            `json:"destination"`
	Revenue        decimal.Decimal   `json:"revenue"`
	TotalHireValue decimal.Decimal   `json:"total_hire_value"`
	CostHireValue  decimal.Decimal   `json:"cost_hire_value"`
	DriverPayable  decimal.Decimal   `json:"driver_payable"`
	Expenses       decimal.Decimal   `json:"expenses"`
	GrossProfit    decimal.Decimal   `json:"gross_profit"`
	Status         models.TripStatus `json:"status"`
}

// ProfitabilityTotals sums every row of the report.
type ProfitabilityTotals struct {
	TripCount      int             `json:"trip_count"`
	Revenue        decimal.Decimal `json:"revenue"`
	TotalHireValue decimal.Decimal `json:"total_hire_value"`
	CostHireValue  decimal.Decimal `json:"cost_hire_value"`
	DriverPayable  decimal.Decimal `json:"driver_payable"`
	Expenses       decimal.Decimal `json:"expenses"`
	GrossProfit    decimal.Decimal `json:"gross_profit"`
}

// ProfitabilityReport has one row per trip, in store order.
type ProfitabilityReport struct {
	Rows   []ProfitabilityRow  `json:"rows"`
	Totals ProfitabilityTotals `json:"totals"`
}

// BuildProfitability computes per-trip revenue against driver cost.
func BuildProfitability(trips []models.Trip, names Names) ProfitabilityReport {
	report := ProfitabilityReport{Rows: make([]ProfitabilityRow, 0, len(trips))}
	for _, t := range trips {
		revenue := t.Billing.TotalReceivable
		payable := settlement.NetDriverPayable(t.Costing)
		expenses := t.Costing.LoadingCharge.Add(t.Costing.UnloadingCharge)
		row := ProfitabilityRow{
			TripID:         t.ID.Hex(),
			Date:           t.TripDate,
			VehicleID:      t.VehicleID,
			VehicleNumber:  names.vehicle(t.VehicleID).VehicleNumber,
			ConsignorID:    t.ConsignorID,
			ConsignorName:  names.consignor(t.ConsignorID),
			Origin:         t.Origin,
			Destination:    t.Destination,
			Revenue:        revenue,
			TotalHireValue: revenue,
			CostHireValue:  t.Costing.HireValue,
			DriverPayable:  payable,
			Expenses:       expenses,
			GrossProfit:    revenue.Sub(payable.Add(expenses)),
			Status:         t.Status,
		}
		report.Rows = append(report.Rows, row)

		tot := &report.Totals
		tot.TripCount++
		tot.Revenue = tot.Revenue.Add(row.Revenue)
		tot.TotalHireValue = tot.TotalHireValue.Add(row.TotalHireValue)
		tot.CostHireValue = tot.CostHireValue.Add(row.CostHireValue)
		tot.DriverPayable = tot.DriverPayable.Add(row.DriverPayable)
		tot.Expenses = tot.Expenses.Add(row.Expenses)
		tot.GrossProfit = tot.GrossProfit.Add(row.GrossProfit)
	}
	return report
}

// AgingBuckets splits an outstanding amount by trip age in days.
type AgingBuckets struct {
	Days0To30  decimal.Decimal `json:"0-30"`
	Days31To60 decimal.Decimal `json:"31-60"`
	Days61To90 decimal.Decimal `json:"61-90"`
	Over90     decimal.Decimal `json:"90+"`
}

func (b *AgingBuckets) add(age int, amount decimal.Decimal) {
	switch {
	case age <= 30:
		b.Days0To30 = b.Days0To30.Add(amount)
	case age <= 60:
		b.Days31To60 = b.Days31To60.Add(amount)
	case age <= 90:
		b.Days61To90 = b.Days61To90.Add(amount)
	default:
		b.Over90 = b.Over90.Add(amount)
	}
}

func (b *AgingBuckets) merge(o AgingBuckets) {
	b.Days0To30 = b.Days0To30.Add(o.Days0To30)
	b.Days31To60 = b.Days31To60.Add(o.Days31To60)
	b.Days61To90 = b.Days61To90.Add(o.Days61To90)
	b.Over90 = b.Over90.Add(o.Over90)
}

// AgingRow is one consignor's receivable position.
type AgingRow struct {
	ConsignorID      string          `json:"consignor_id"`
	ConsignorName    string          `json:"consignor_name"`
	TripCount        int             `json:"trip_count"`
	TotalBilled      decimal.Decimal `json:"total_billed"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	Buckets          AgingBuckets    `json:"buckets"`
}

// AgingReport has one row per consignor, largest outstanding first.
type AgingReport struct {
	AsOf   time.Time  `json:"as_of"`
	Rows   []AgingRow `json:"rows"`
	Totals AgingRow   `json:"totals"`
}

// BuildAging groups consignor balances. Trip age is counted in whole days
// from the trip date to asOf; future trips fall in the first bucket.
func BuildAging(trips []models.Trip, names Names, asOf time.Time) AgingReport {
	byConsignor := make(map[string]*AgingRow)
	for _, t := range trips {
		row, ok := byConsignor[t.ConsignorID]
		if !ok {
			row = &AgingRow{ConsignorID: t.ConsignorID, ConsignorName: names.consignor(t.ConsignorID)}
			byConsignor[t.ConsignorID] = row
		}
		row.TripCount++
		row.TotalBilled = row.TotalBilled.Add(t.Billing.TotalReceivable)
		row.TotalReceived = row.TotalReceived.Add(t.Financials.TotalConsignorReceived)
		row.TotalOutstanding = row.TotalOutstanding.Add(t.Financials.TotalConsignorBalance)
		row.Buckets.add(ageInDays(t.TripDate, asOf), t.Financials.TotalConsignorBalance)
	}

	report := AgingReport{AsOf: asOf, Rows: make([]AgingRow, 0, len(byConsignor))}
	for _, row := range byConsignor {
		report.Rows = append(report.Rows, *row)
		report.Totals.TripCount += row.TripCount
		report.Totals.TotalBilled = report.Totals.TotalBilled.Add(row.TotalBilled)
		report.Totals.TotalReceived = report.Totals.TotalReceived.Add(row.TotalReceived)
		report.Totals.TotalOutstanding = report.Totals.TotalOutstanding.Add(row.TotalOutstanding)
		report.Totals.Buckets.merge(row.Buckets)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if c := a.TotalOutstanding.Cmp(b.TotalOutstanding); c != 0 {
			return c > 0
		}
		if a.ConsignorName != b.ConsignorName {
			return a.ConsignorName < b.ConsignorName
		}
		return a.ConsignorID < b.ConsignorID
	})
	return report
}

func ageInDays(tripDate, asOf time.Time) int {
	from := truncateDay(tripDate)
	to := truncateDay(asOf)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// OperationsRow is one vehicle's payable position towards its driver.
type OperationsRow struct {
	VehicleID     string          `json:"vehicle_id"`
	VehicleNumber string          `json:"vehicle_number"`
	DriverName    string          `json:"driver_name"`
	TripCount     int             `json:"trip_count"`
	TotalPayable  decimal.Decimal `json:"total_payable"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Balance       decimal.Decimal `json:"balance"`
}

// OperationsReport has one row per vehicle, largest balance first.
type OperationsReport struct {
	Rows   []OperationsRow `json:"rows"`
	Totals OperationsRow   `json:"totals"`
}

// BuildOperations groups driver payables by vehicle.
func BuildOperations(trips []models.Trip, names Names) OperationsReport {
	byVehicle := make(map[string]*OperationsRow)
	for _, t := range trips {
		row, ok := byVehicle[t.VehicleID]
		if !ok {
			v := names.vehicle(t.VehicleID)
			row = &OperationsRow{VehicleID: t.VehicleID, VehicleNumber: v.VehicleNumber, DriverName: v.DriverName}
			byVehicle[t.VehicleID] = row
		}
		row.TripCount++
		row.TotalPayable = row.TotalPayable.Add(settlement.NetDriverPayable(t.Costing))
		row.TotalPaid = row.TotalPaid.Add(t.Financials.TotalDriverAdvance)
		row.Balance = row.Balance.Add(t.Financials.TotalDriverBalance)
	}

	report := OperationsReport{Rows: make([]OperationsRow, 0, len(byVehicle))}
	for _, row := range byVehicle {
		report.Rows = append(report.Rows, *row)
		report.Totals.TripCount += row.TripCount
		report.Totals.TotalPayable = report.Totals.TotalPayable.Add(row.TotalPayable)
		report.Totals.TotalPaid = report.Totals.TotalPaid.Add(row.TotalPaid)
		report.Totals.Balance = report.Totals.Balance.Add(row.Balance)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if c := a.Balance.Cmp(b.Balance); c != 0 {
			return c > 0
		}
		if a.VehicleNumber != b.VehicleNumber {
			return a.VehicleNumber < b.VehicleNumber
		}
		return a.VehicleID < b.VehicleID
	})
	return report
}
