package trips

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-settlement/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Money is validated by sign, so float precision is enough here.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// TransactionInput is a payment event to record on a trip.
type TransactionInput struct {
	Type      models.TransactionType `json:"type" validate:"required,oneof=ADVANCE_PAID PART_PAYMENT BALANCE_PAID RECEIVED_FROM_CONSIGNOR"`
	Amount    decimal.Decimal        `json:"amount" validate:"gt=0"`
	Mode      models.PaymentMode     `json:"mode,omitempty" validate:"omitempty,oneof=CASH BANK_TRANSFER UPI CHEQUE FUEL OTHER"`
	Reference string                 `json:"reference,omitempty" validate:"max=200"`
	Status    models.EntryStatus     `json:"status,omitempty" validate:"omitempty,oneof=PENDING PAID VERIFIED"`
	Date      *time.Time             `json:"date,omitempty"`
}

func (in TransactionInput) toTransaction(now time.Time) models.Transaction {
	tx := models.Transaction{
		ID:        primitive.NewObjectID(),
		Type:      in.Type,
		Amount:    in.Amount,
		Mode:      in.Mode,
		Reference: in.Reference,
		Status:    in.Status,
		Date:      now,
	}
	if tx.Status == "" {
		tx.Status = models.EntryPaid
	}
	if in.Date != nil {
		tx.Date = in.Date.UTC()
	}
	return tx
}

// CreateInput is everything a caller may supply for a new trip. Derived
// fields (billing total and financials) are not accepted.
type CreateInput struct {
	OrganizationID string             `json:"organization_id,omitempty"`
	ConsignorID    string             `json:"consignor_id"`
	VehicleID      string             `json:"vehicle_id" validate:"required"`
	TripDate       *time.Time         `json:"trip_date,omitempty"`
	Origin         string             `json:"origin"`
	Destination    string             `json:"destination"`
	Consignment    string             `json:"consignment"`
	Weight         models.Weight      `json:"weight"`
	Costing        models.Costing     `json:"costing"`
	Billing        models.Billing     `json:"billing"`
	Transactions   []TransactionInput `json:"transactions" validate:"dive"`
	Status         models.TripStatus  `json:"status,omitempty" validate:"omitempty,oneof=PLANNED LOADED IN_TRANSIT DELIVERED SETTLED CANCELLED"`
	Notes          string             `json:"notes,omitempty"`
}

func (in CreateInput) toTrip(orgID string, now time.Time) models.Trip {
	trip := models.Trip{
		OrganizationID: orgID,
		ConsignorID:    in.ConsignorID,
		VehicleID:      in.VehicleID,
		TripDate:       now,
		Origin:         in.Origin,
		Destination:    in.Destination,
		Consignment:    in.Consignment,
		Weight:         in.Weight,
		Costing:        in.Costing,
		Billing:        in.Billing,
		Transactions:   make([]models.Transaction, 0, len(in.Transactions)),
		Status:         in.Status,
		Notes:          in.Notes,
	}
	if in.TripDate != nil {
		trip.TripDate = in.TripDate.UTC()
	}
	if trip.Weight.Unit == "" {
		trip.Weight.Unit = models.DefaultWeightUnit
	}
	if trip.Status == "" {
		trip.Status = models.TripPlanned
	}
	for _, t := range in.Transactions {
		trip.Transactions = append(trip.Transactions, t.toTransaction(now))
	}
	return trip
}

// WeightPatch changes weight fields; nil fields are left untouched.
type WeightPatch struct {
	Loaded   *decimal.Decimal `json:"loaded,omitempty" validate:"omitempty,gte=0"`
	Unloaded *decimal.Decimal `json:"unloaded,omitempty" validate:"omitempty,gte=0"`
	Unit     *string          `json:"unit,omitempty"`
}

// CostingPatch changes costing fields; nil fields are left untouched.
type CostingPatch struct {
	RatePerTon      *decimal.Decimal    `json:"rate_per_ton,omitempty" validate:"omitempty,gte=0"`
	HireType        *models.HireType    `json:"hire_type,omitempty" validate:"omitempty,oneof=FIXED PER_TON"`
	HireValue       *decimal.Decimal    `json:"hire_value,omitempty" validate:"omitempty,gte=0"`
	LoadingCharge   *decimal.Decimal    `json:"loading_charge,omitempty" validate:"omitempty,gte=0"`
	UnloadingCharge *decimal.Decimal    `json:"unloading_charge,omitempty" validate:"omitempty,gte=0"`
	Commission      *decimal.Decimal    `json:"commission,omitempty" validate:"omitempty,gte=0"`
	OwnerBank       *models.BankDetails `json:"owner_bank,omitempty"`
}

// BillingPatch changes billing inputs; the receivable total is always derived.
type BillingPatch struct {
	RatePerTon   *decimal.Decimal `json:"rate_per_ton,omitempty" validate:"omitempty,gte=0"`
	GrossAmount  *decimal.Decimal `json:"gross_amount,omitempty" validate:"omitempty,gte=0"`
	LoadingMamul *decimal.Decimal `json:"loading_mamul,omitempty" validate:"omitempty,gte=0"`
}

// Patch is a partial trip update. Transactions can only be appended.
type Patch struct {
	ConsignorID        *string            `json:"consignor_id,omitempty"`
	VehicleID          *string            `json:"vehicle_id,omitempty" validate:"omitempty,min=1"`
	TripDate           *time.Time         `json:"trip_date,omitempty"`
	Origin             *string            `json:"origin,omitempty"`
	Destination        *string            `json:"destination,omitempty"`
	Consignment        *string            `json:"consignment,omitempty"`
	Weight             *WeightPatch       `json:"weight,omitempty"`
	Costing            *CostingPatch      `json:"costing,omitempty"`
	Billing            *BillingPatch      `json:"billing,omitempty"`
	Status             *models.TripStatus `json:"status,omitempty" validate:"omitempty,oneof=PLANNED LOADED IN_TRANSIT DELIVERED SETTLED CANCELLED"`
	Notes              *string            `json:"notes,omitempty"`
	AppendTransactions []TransactionInput `json:"append_transactions,omitempty" validate:"dive"`
}

// apply merges the patch into a copy of trip. Appended transactions are
// passed in already built so retries keep their ids.
func (p Patch) apply(trip models.Trip, appended []models.Transaction) models.Trip {
	setString(&trip.ConsignorID, p.ConsignorID)
	setString(&trip.VehicleID, p.VehicleID)
	setString(&trip.Origin, p.Origin)
	setString(&trip.Destination, p.Destination)
	setString(&trip.Consignment, p.Consignment)
	setString(&trip.Notes, p.Notes)
	if p.TripDate != nil {
		trip.TripDate = p.TripDate.UTC()
	}
	if p.Status != nil {
		trip.Status = *p.Status
	}
	if w := p.Weight; w != nil {
		setDecimal(&trip.Weight.Loaded, w.Loaded)
		setDecimal(&trip.Weight.Unloaded, w.Unloaded)
		setString(&trip.Weight.Unit, w.Unit)
	}
	if trip.Weight.Unit == "" {
		trip.Weight.Unit = models.DefaultWeightUnit
	}
	if c := p.Costing; c != nil {
		setDecimal(&trip.Costing.RatePerTon, c.RatePerTon)
		setDecimal(&trip.Costing.HireValue, c.HireValue)
		setDecimal(&trip.Costing.LoadingCharge, c.LoadingCharge)
		setDecimal(&trip.Costing.UnloadingCharge, c.UnloadingCharge)
		setDecimal(&trip.Costing.Commission, c.Commission)
		if c.HireType != nil {
			trip.Costing.HireType = *c.HireType
		}
		if c.OwnerBank != nil {
			trip.Costing.OwnerBank = *c.OwnerBank
		}
	}
	if b := p.Billing; b != nil {
		setDecimal(&trip.Billing.RatePerTon, b.RatePerTon)
		setDecimal(&trip.Billing.GrossAmount, b.GrossAmount)
		setDecimal(&trip.Billing.LoadingMamul, b.LoadingMamul)
	}

	txs := make([]models.Transaction, 0, len(trip.Transactions)+len(appended))
	txs = append(txs, trip.Transactions...)
	trip.Transactions = append(txs, appended...)
	return trip
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

// validateInput runs struct-tag validation and wraps failures in ErrValidation.
func validateInput(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", "min":
		return field + " is required"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must not be negative"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "max":
		return field + " is too long"
	default:
		return field + " is invalid"
	}
}
