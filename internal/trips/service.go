// Package trips owns every write to a trip record. Each write runs the
// settlement engine before persisting, so stored financials always match
// the stored inputs.
package trips

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-settlement/internal/db"
	"github.com/ukydev/fleet-settlement/internal/events"
	"github.com/ukydev/fleet-settlement/internal/metrics"
	"github.com/ukydev/fleet-settlement/internal/models"
	"github.com/ukydev/fleet-settlement/internal/settlement"
)

// DefaultMaxRetries bounds how often an update re-reads after a version conflict.
const DefaultMaxRetries = 5

// Service creates, updates and reads trips.
type Service struct {
	coll       db.TripCollection
	publisher  events.Publisher
	maxRetries int
	locks      *keyedMutex
	now        func() time.Time
}

// NewService creates a trip service. A nil publisher disables events.
func NewService(coll db.TripCollection, publisher events.Publisher, maxRetries int) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Service{
		coll:       coll,
		publisher:  publisher,
		maxRetries: maxRetries,
		locks:      newKeyedMutex(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// BatchResult is the outcome of one record in CreateBatch.
type BatchResult struct {
	Index int          `json:"index"`
	Trip  *models.Trip `json:"trip,omitempty"`
	Error string       `json:"error,omitempty"`
	Err   error        `json:"-"`
}

// Create validates, settles and stores a new trip.
func (s *Service) Create(ctx context.Context, scope Scope, in CreateInput) (models.Trip, error) {
	trip, err := s.create(ctx, scope, in)
	metrics.ObserveWrite("create", err)
	return trip, err
}

func (s *Service) create(ctx context.Context, scope Scope, in CreateInput) (models.Trip, error) {
	orgID, err := scope.writeOrg(in.OrganizationID)
	if err != nil {
		return models.Trip{}, err
	}
	if err := validateInput(in); err != nil {
		return models.Trip{}, err
	}

	trip := settlement.Recompute(in.toTrip(orgID, s.now()))
	stored, err := s.coll.InsertTrip(ctx, trip)
	if err != nil {
		return models.Trip{}, fmt.Errorf("store trip: %w", err)
	}

	s.afterWrite(ctx, "create", stored)
	return stored, nil
}

// CreateBatch creates each input independently. One failure does not stop
// the rest; results keep the input order.
func (s *Service) CreateBatch(ctx context.Context, scope Scope, inputs []CreateInput) []BatchResult {
	results := make([]BatchResult, 0, len(inputs))
	for i, in := range inputs {
		res := BatchResult{Index: i}
		trip, err := s.Create(ctx, scope, in)
		if err != nil {
			res.Err = err
			res.Error = err.Error()
		} else {
			res.Trip = &trip
		}
		results = append(results, res)
	}
	return results
}

// Update applies a patch to a trip and recomputes its settlement. Lost races
// against other writers are retried on the fresh record.
func (s *Service) Update(ctx context.Context, scope Scope, id string, patch Patch) (models.Trip, error) {
	trip, err := s.update(ctx, scope, id, patch)
	metrics.ObserveWrite("update", err)
	return trip, err
}

// AppendTransactions records new payment events on a trip.
func (s *Service) AppendTransactions(ctx context.Context, scope Scope, id string, txs []TransactionInput) (models.Trip, error) {
	if len(txs) == 0 {
		return models.Trip{}, fmt.Errorf("%w: at least one transaction is required", ErrValidation)
	}
	return s.Update(ctx, scope, id, Patch{AppendTransactions: txs})
}

func (s *Service) update(ctx context.Context, scope Scope, id string, patch Patch) (models.Trip, error) {
	orgID, err := scope.recordOrg()
	if err != nil {
		return models.Trip{}, err
	}
	if err := validateInput(patch); err != nil {
		return models.Trip{}, err
	}

	now := s.now()
	appended := make([]models.Transaction, 0, len(patch.AppendTransactions))
	for _, in := range patch.AppendTransactions {
		appended = append(appended, in.toTransaction(now))
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, err := s.coll.FindTripByID(ctx, orgID, id)
		if err != nil {
			return models.Trip{}, mapStoreError(err)
		}

		next := settlement.Recompute(patch.apply(*current, appended))
		stored, err := s.coll.ReplaceTrip(ctx, next, current.Version)
		if err == nil {
			s.afterWrite(ctx, "update", stored)
			return stored, nil
		}
		if !errors.Is(err, db.ErrVersionConflict) {
			return models.Trip{}, mapStoreError(err)
		}

		metrics.VersionConflicts.Inc()
		log.WithFields(log.Fields{
			"trip_id": id,
			"attempt": attempt,
			"version": current.Version,
		}).Debug("Trip version conflict, retrying")

		if err := ctx.Err(); err != nil {
			return models.Trip{}, err
		}
	}

	log.WithFields(log.Fields{
		"trip_id":     id,
		"max_retries": s.maxRetries,
	}).Warn("Trip update gave up after repeated version conflicts")
	return models.Trip{}, ErrConcurrentUpdate
}

// Get returns one trip visible to the caller.
func (s *Service) Get(ctx context.Context, scope Scope, id string) (models.Trip, error) {
	orgID, err := scope.recordOrg()
	if err != nil {
		return models.Trip{}, err
	}
	trip, err := s.coll.FindTripByID(ctx, orgID, id)
	if err != nil {
		return models.Trip{}, mapStoreError(err)
	}
	return *trip, nil
}

// Query returns the trips matching filter, pinned to the caller's organization.
func (s *Service) Query(ctx context.Context, scope Scope, filter db.TripFilter) ([]models.Trip, error) {
	orgID, err := scope.readOrg(filter.OrganizationID)
	if err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: from is after to", ErrValidation)
	}
	for _, st := range filter.Statuses {
		if !models.IsValidTripStatus(st) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, st)
		}
	}
	filter.OrganizationID = orgID

	trips, err := s.coll.FindTrips(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	return trips, nil
}

func (s *Service) afterWrite(ctx context.Context, op string, trip models.Trip) {
	fields := log.Fields{
		"trip_id":         trip.ID.Hex(),
		"organization_id": trip.OrganizationID,
		"version":         trip.Version,
		"operation":       op,
	}
	if trip.Financials.TotalDriverBalance.IsNegative() || trip.Financials.TotalConsignorBalance.IsNegative() {
		log.WithFields(fields).WithFields(log.Fields{
			"driver_balance":    trip.Financials.TotalDriverBalance.String(),
			"consignor_balance": trip.Financials.TotalConsignorBalance.String(),
		}).Warn("Trip is overpaid")
	}
	log.WithFields(fields).Info("Trip settled")

	if err := s.publisher.PublishSettlement(ctx, trip); err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to publish settlement event")
	}
}

func mapStoreError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("trip store: %w", err)
}
