package handlers

import (
	"context"
	"net/http"

	"github.com/ukydev/fleet-settlement/internal/reports"
	"github.com/ukydev/fleet-settlement/internal/trips"
)

// ReportService computes the financial reports.
type ReportService interface {
	Profitability(ctx context.Context, scope trips.Scope, f reports.Filter) (reports.ProfitabilityReport, error)
	Aging(ctx context.Context, scope trips.Scope, f reports.Filter) (reports.AgingReport, error)
	Operations(ctx context.Context, scope trips.Scope, f reports.Filter) (reports.OperationsReport, error)
}

// ReportHandler handles report requests
type ReportHandler struct {
	service ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Profitability handles GET /api/reports/profitability
func (h *ReportHandler) Profitability(w http.ResponseWriter, r *http.Request) {
	serveReport(w, r, h.service.Profitability)
}

// Aging handles GET /api/reports/aging
func (h *ReportHandler) Aging(w http.ResponseWriter, r *http.Request) {
	serveReport(w, r, h.service.Aging)
}

// Operations handles GET /api/reports/operations
func (h *ReportHandler) Operations(w http.ResponseWriter, r *http.Request) {
	serveReport(w, r, h.service.Operations)
}

func serveReport[T any](w http.ResponseWriter, r *http.Request, run func(context.Context, trips.Scope, reports.Filter) (T, error)) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	report, err := run(r.Context(), scope, f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
