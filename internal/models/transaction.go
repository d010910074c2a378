package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType tags a ledger event on a trip.
type TransactionType string

const (
	TxAdvancePaid           TransactionType = "ADVANCE_PAID"
	TxPartPayment           TransactionType = "PART_PAYMENT"
	TxBalancePaid           TransactionType = "BALANCE_PAID"
	TxReceivedFromConsignor TransactionType = "RECEIVED_FROM_CONSIGNOR"
)

// PaymentMode is how money moved.
type PaymentMode string

const (
	ModeCash         PaymentMode = "CASH"
	ModeBankTransfer PaymentMode = "BANK_TRANSFER"
	ModeUPI          PaymentMode = "UPI"
	ModeCheque       PaymentMode = "CHEQUE"
	ModeFuel         PaymentMode = "FUEL"
	ModeOther        PaymentMode = "OTHER"
)

// EntryStatus is the per-entry verification state.
type EntryStatus string

const (
	EntryPending  EntryStatus = "PENDING"
	EntryPaid     EntryStatus = "PAID"
	EntryVerified EntryStatus = "VERIFIED"
)

// Transaction is a single payment event recorded against a trip.
type Transaction struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Type      TransactionType    `json:"type" bson:"type"`
	Amount    decimal.Decimal    `json:"amount" bson:"amount"`
	Mode      PaymentMode        `json:"mode,omitempty" bson:"mode,omitempty"`
	Reference string             `json:"reference,omitempty" bson:"reference,omitempty"`
	Status    EntryStatus        `json:"status" bson:"status"`
	Date      time.Time          `json:"date" bson:"date"`
}
