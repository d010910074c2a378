package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ukydev/fleet-settlement/internal/db"
	"github.com/ukydev/fleet-settlement/internal/models"
	"github.com/ukydev/fleet-settlement/internal/trips"
)

// MaxBatchSize caps the number of trips in one batch request.
const MaxBatchSize = 500

// TripService is the write and read surface of the trip store.
type TripService interface {
	Create(ctx context.Context, scope trips.Scope, in trips.CreateInput) (models.Trip, error)
	CreateBatch(ctx context.Context, scope trips.Scope, inputs []trips.CreateInput) []trips.BatchResult
	Update(ctx context.Context, scope trips.Scope, id string, patch trips.Patch) (models.Trip, error)
	AppendTransactions(ctx context.Context, scope trips.Scope, id string, txs []trips.TransactionInput) (models.Trip, error)
	Get(ctx context.Context, scope trips.Scope, id string) (models.Trip, error)
	Query(ctx context.Context, scope trips.Scope, filter db.TripFilter) ([]models.Trip, error)
}

// TripHandler handles trip requests
type TripHandler struct {
	service TripService
}

// NewTripHandler creates a new trip handler
func NewTripHandler(service TripService) *TripHandler {
	return &TripHandler{service: service}
}

// BatchResponse summarizes a batch create.
type BatchResponse struct {
	Created int                 `json:"created"`
	Failed  int                 `json:"failed"`
	Results []trips.BatchResult `json:"results"`
}

// Create handles POST /api/trips
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var in trips.CreateInput
	if !decodeBody(w, r, &in) {
		return
	}
	trip, err := h.service.Create(r.Context(), scope, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// CreateBatch handles POST /api/trips/batch. Each record succeeds or
// fails on its own.
func (h *TripHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var inputs []trips.CreateInput
	if !decodeBody(w, r, &inputs) {
		return
	}
	if len(inputs) == 0 {
		writeError(w, http.StatusBadRequest, "batch is empty")
		return
	}
	if len(inputs) > MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch exceeds %d trips", MaxBatchSize))
		return
	}

	resp := BatchResponse{Results: h.service.CreateBatch(r.Context(), scope, inputs)}
	for _, res := range resp.Results {
		if res.Err != nil {
			resp.Failed++
		} else {
			resp.Created++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /api/trips
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list, err := h.service.Query(r.Context(), scope, f.TripFilter())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/trips/{id}
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	trip, err := h.service.Get(r.Context(), scope, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// Update handles PATCH /api/trips/{id}
func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var patch trips.Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	if len(patch.AppendTransactions) > 0 && !scope.Role.HasPermission("record_payment") {
		writeError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}
	trip, err := h.service.Update(r.Context(), scope, mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// AddTransaction handles POST /api/trips/{id}/transactions
func (h *TripHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var in trips.TransactionInput
	if !decodeBody(w, r, &in) {
		return
	}
	trip, err := h.service.AppendTransactions(r.Context(), scope, mux.Vars(r)["id"], []trips.TransactionInput{in})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}
