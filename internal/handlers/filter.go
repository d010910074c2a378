package handlers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ukydev/fleet-settlement/internal/models"
	"github.com/ukydev/fleet-settlement/internal/reports"
	"github.com/ukydev/fleet-settlement/internal/trips"
)

const dateLayout = "2006-01-02"

// parseFilter reads the shared trip/report query parameters. The to date
// is inclusive of the whole day.
func parseFilter(q url.Values) (reports.Filter, error) {
	f := reports.Filter{
		OrganizationID: q.Get("organization_id"),
		ConsignorID:    q.Get("consignor_id"),
		VehicleID:      q.Get("vehicle_id"),
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, fmt.Errorf("%w: from must be YYYY-MM-DD", trips.ErrValidation)
		}
		f.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, fmt.Errorf("%w: to must be YYYY-MM-DD", trips.ErrValidation)
		}
		end := to.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	if v := q.Get("as_of"); v != "" {
		asOf, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, fmt.Errorf("%w: as_of must be YYYY-MM-DD", trips.ErrValidation)
		}
		f.AsOf = asOf
	}
	if v := q.Get("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			st := models.TripStatus(strings.ToUpper(strings.TrimSpace(s)))
			if st == "" {
				continue
			}
			if !models.IsValidTripStatus(st) {
				return f, fmt.Errorf("%w: unknown status %q", trips.ErrValidation, s)
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	return f, nil
}
