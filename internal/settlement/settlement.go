// Package settlement derives a trip's summary balances from its costing,
// billing and transaction list.
package settlement

import (
	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-settlement/internal/models"
)

// Side is the direction a transaction moves money in.
type Side int

const (
	// NoSide marks types that do not affect any balance.
	NoSide Side = iota
	// DriverSide is money paid by the operator to the driver or vehicle owner.
	DriverSide
	// ConsignorSide is money received by the operator from the consignor.
	ConsignorSide
)

var sides = map[models.TransactionType]Side{
	models.TxAdvancePaid:           DriverSide,
	models.TxPartPayment:           DriverSide,
	models.TxBalancePaid:           DriverSide,
	models.TxReceivedFromConsignor: ConsignorSide,
}

// SideOf returns the balance a transaction type counts towards.
func SideOf(t models.TransactionType) Side {
	return sides[t]
}

// Recompute fills defaulted costing and billing amounts and overwrites the
// trip's financials from its transaction list. It never fails and does not
// modify the slices of the trip it is given.
func Recompute(t models.Trip) models.Trip {
	if t.Costing.HireValue.IsZero() && !t.Costing.RatePerTon.IsZero() && !t.Weight.Loaded.IsZero() {
		t.Costing.HireValue = t.Costing.RatePerTon.Mul(t.Weight.Loaded)
	}
	if t.Billing.GrossAmount.IsZero() && !t.Billing.RatePerTon.IsZero() && !t.Weight.Loaded.IsZero() {
		t.Billing.GrossAmount = t.Billing.RatePerTon.Mul(t.Weight.Loaded)
	}
	t.Billing.TotalReceivable = t.Billing.GrossAmount.Add(t.Billing.LoadingMamul)

	driverPaid, consignorReceived := Totals(t.Transactions)

	t.Financials = models.Financials{
		TotalDriverAdvance:     driverPaid,
		TotalDriverBalance:     NetDriverPayable(t.Costing).Sub(driverPaid),
		TotalConsignorReceived: consignorReceived,
		TotalConsignorBalance:  t.Billing.TotalReceivable.Sub(consignorReceived),
	}
	return t
}

// Totals sums transaction amounts per side in a single pass.
func Totals(txs []models.Transaction) (driverPaid, consignorReceived decimal.Decimal) {
	for _, tx := range txs {
		switch SideOf(tx.Type) {
		case DriverSide:
			driverPaid = driverPaid.Add(tx.Amount)
		case ConsignorSide:
			consignorReceived = consignorReceived.Add(tx.Amount)
		}
	}
	return driverPaid, consignorReceived
}

// NetDriverPayable is the hire value less commission and loading/unloading charges.
func NetDriverPayable(c models.Costing) decimal.Decimal {
	return c.HireValue.Sub(Deductions(c))
}

// Deductions is the sum of amounts withheld from the hire value.
func Deductions(c models.Costing) decimal.Decimal {
	return c.Commission.Add(c.LoadingCharge).Add(c.UnloadingCharge)
}
