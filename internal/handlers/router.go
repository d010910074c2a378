package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ukydev/fleet-settlement/internal/middleware"
)

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewRouter wires every route with its permission check.
func NewRouter(auth *middleware.AuthMiddleware, tripHandler *TripHandler, reportHandler *ReportHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logging)

	router.HandleFunc("/health", Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.Authenticate)

	guard := func(action string, h http.HandlerFunc) http.Handler {
		return auth.RequirePermission(action)(h)
	}

	api.Handle("/trips", guard("create_trip", tripHandler.Create)).Methods(http.MethodPost)
	api.Handle("/trips/batch", guard("create_trip", tripHandler.CreateBatch)).Methods(http.MethodPost)
	api.Handle("/trips", guard("view_trips", tripHandler.List)).Methods(http.MethodGet)
	api.Handle("/trips/{id}", guard("view_trips", tripHandler.Get)).Methods(http.MethodGet)
	api.Handle("/trips/{id}", guard("update_trip", tripHandler.Update)).Methods(http.MethodPatch)
	api.Handle("/trips/{id}/transactions", guard("record_payment", tripHandler.AddTransaction)).Methods(http.MethodPost)

	api.Handle("/reports/profitability", guard("view_reports", reportHandler.Profitability)).Methods(http.MethodGet)
	api.Handle("/reports/aging", guard("view_reports", reportHandler.Aging)).Methods(http.MethodGet)
	api.Handle("/reports/operations", guard("view_reports", reportHandler.Operations)).Methods(http.MethodGet)

	return router
}
