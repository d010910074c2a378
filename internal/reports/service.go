package reports

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-settlement/internal/db"
	"github.com/ukydev/fleet-settlement/internal/metrics"
	"github.com/ukydev/fleet-settlement/internal/models"
	"github.com/ukydev/fleet-settlement/internal/trips"
)

// TripSource reads trips with the caller's tenant scope applied.
type TripSource interface {
	Query(ctx context.Context, scope trips.Scope, filter db.TripFilter) ([]models.Trip, error)
}

// Filter selects the trips a report covers. AsOf only affects aging and
// defaults to now.
type Filter struct {
	OrganizationID string
	From           *time.Time
	To             *time.Time
	ConsignorID    string
	VehicleID      string
	Statuses       []models.TripStatus
	AsOf           time.Time
}

// TripFilter returns the store filter for f.
func (f Filter) TripFilter() db.TripFilter {
	return db.TripFilter{
		OrganizationID: f.OrganizationID,
		ConsignorID:    f.ConsignorID,
		VehicleID:      f.VehicleID,
		From:           f.From,
		To:             f.To,
		Statuses:       f.Statuses,
	}
}

// Service runs reports over the trip store.
type Service struct {
	trips     TripSource
	directory db.Directory
	now       func() time.Time
}

// NewService creates a report service. A nil directory leaves names empty.
func NewService(source TripSource, directory db.Directory) *Service {
	return &Service{
		trips:     source,
		directory: directory,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Profitability returns per-trip revenue and cost rows.
func (s *Service) Profitability(ctx context.Context, scope trips.Scope, f Filter) (ProfitabilityReport, error) {
	start := time.Now()
	list, names, err := s.load(ctx, scope, f, true, true)
	if err != nil {
		return ProfitabilityReport{}, err
	}
	report := BuildProfitability(list, names)
	metrics.ObserveReport("profitability", start, len(report.Rows))
	return report, nil
}

// Aging returns consignor receivables bucketed by trip age.
func (s *Service) Aging(ctx context.Context, scope trips.Scope, f Filter) (AgingReport, error) {
	start := time.Now()
	list, names, err := s.load(ctx, scope, f, false, true)
	if err != nil {
		return AgingReport{}, err
	}
	asOf := f.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	report := BuildAging(list, names, asOf)
	metrics.ObserveReport("aging", start, len(report.Rows))
	return report, nil
}

// Operations returns driver payables per vehicle.
func (s *Service) Operations(ctx context.Context, scope trips.Scope, f Filter) (OperationsReport, error) {
	start := time.Now()
	list, names, err := s.load(ctx, scope, f, true, false)
	if err != nil {
		return OperationsReport{}, err
	}
	report := BuildOperations(list, names)
	metrics.ObserveReport("operations", start, len(report.Rows))
	return report, nil
}

func (s *Service) load(ctx context.Context, scope trips.Scope, f Filter, vehicles, consignors bool) ([]models.Trip, Names, error) {
	list, err := s.trips.Query(ctx, scope, f.TripFilter())
	if err != nil {
		return nil, Names{}, err
	}
	if len(list) == 0 || s.directory == nil {
		return list, Names{}, nil
	}

	orgID := scope.OrganizationID
	if scope.IsSuperAdmin() {
		orgID = f.OrganizationID
	}

	var names Names
	if vehicles {
		names.Vehicles, err = s.directory.FindVehicles(ctx, orgID, uniqueIDs(list, func(t models.Trip) string { return t.VehicleID }))
		if err != nil {
			log.WithError(err).WithField("organization_id", orgID).Warn("Vehicle lookup failed, report rows will have no vehicle names")
			names.Vehicles = nil
		}
	}
	if consignors {
		names.Consignors, err = s.directory.FindConsignors(ctx, orgID, uniqueIDs(list, func(t models.Trip) string { return t.ConsignorID }))
		if err != nil {
			log.WithError(err).WithField("organization_id", orgID).Warn("Consignor lookup failed, report rows will have no consignor names")
			names.Consignors = nil
		}
	}
	return list, names, nil
}

func uniqueIDs(list []models.Trip, key func(models.Trip) string) []string {
	seen := make(map[string]struct{}, len(list))
	ids := make([]string, 0, len(list))
	for _, t := range list {
		id := key(t)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
