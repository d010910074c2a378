package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-settlement/internal/auth"
	"github.com/ukydev/fleet-settlement/internal/handlers"
	"github.com/ukydev/fleet-settlement/internal/models"
	"github.com/ukydev/fleet-settlement/internal/trips"
)

// Lane is a common haulage route with its typical distance.
type Lane struct {
	Origin      string
	Destination string
	Km          int
}

var lanes = []Lane{
	{"Chennai", "Bengaluru", 350},
	{"Mumbai", "Pune", 150},
	{"Delhi", "Jaipur", 280},
	{"Kolkata", "Bhubaneswar", 440},
	{"Ahmedabad", "Surat", 265},
	{"Hyderabad", "Vijayawada", 275},
	{"Coimbatore", "Kochi", 190},
	{"Nagpur", "Raipur", 290},
	{"Ludhiana", "Delhi", 310},
	{"Visakhapatnam", "Chennai", 800},
}

var consignments = []string{"Cement bags", "Steel coils", "Rice", "Fertilizer", "Cotton bales", "Tiles", "Sugar"}

// APIClient talks to the settlement API.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPIClient creates a client for baseURL, e.g. http://localhost:8080/api.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}, want int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// CreateBatch submits new trips in one request.
func (c *APIClient) CreateBatch(ctx context.Context, inputs []trips.CreateInput) (handlers.BatchResponse, error) {
	var resp handlers.BatchResponse
	err := c.do(ctx, http.MethodPost, "/trips/batch", inputs, &resp, http.StatusOK)
	return resp, err
}

// CreateTrip submits a single trip.
func (c *APIClient) CreateTrip(ctx context.Context, in trips.CreateInput) (models.Trip, error) {
	var trip models.Trip
	err := c.do(ctx, http.MethodPost, "/trips", in, &trip, http.StatusCreated)
	return trip, err
}

// AddTransaction records one payment on a trip.
func (c *APIClient) AddTransaction(ctx context.Context, tripID string, in trips.TransactionInput) (models.Trip, error) {
	var trip models.Trip
	err := c.do(ctx, http.MethodPost, "/trips/"+tripID+"/transactions", in, &trip, http.StatusCreated)
	return trip, err
}

// SetStatus moves a trip to a new lifecycle status.
func (c *APIClient) SetStatus(ctx context.Context, tripID string, status models.TripStatus) (models.Trip, error) {
	var trip models.Trip
	err := c.do(ctx, http.MethodPatch, "/trips/"+tripID, trips.Patch{Status: &status}, &trip, http.StatusOK)
	return trip, err
}

// randomTrip builds a plausible trip for a vehicle. Hire and billing are
// left for the server to derive from rate and weight.
func randomTrip(rng *rand.Rand, vehicleID, consignorID string) trips.CreateInput {
	lane := lanes[rng.Intn(len(lanes))]
	tons := decimal.NewFromInt(int64(8 + rng.Intn(25)))
	// Rates per ton scale with distance, rounded to 10.
	costRate := decimal.NewFromInt(int64(lane.Km*3+rng.Intn(200)) / 10 * 10)
	billRate := costRate.Mul(decimal.NewFromFloat(1.1 + rng.Float64()*0.15)).Round(0)

	return trips.CreateInput{
		ConsignorID: consignorID,
		VehicleID:   vehicleID,
		Origin:      lane.Origin,
		Destination: lane.Destination,
		Consignment: consignments[rng.Intn(len(consignments))],
		Weight:      models.Weight{Loaded: tons, Unloaded: tons.Sub(decimal.NewFromFloat(rng.Float64() * 0.2).Round(2))},
		Costing: models.Costing{
			RatePerTon:      costRate,
			HireType:        models.HirePerTon,
			LoadingCharge:   decimal.NewFromInt(int64(rng.Intn(5)) * 100),
			UnloadingCharge: decimal.NewFromInt(int64(rng.Intn(5)) * 100),
			Commission:      decimal.NewFromInt(int64(rng.Intn(10)) * 100),
		},
		Billing: models.Billing{
			RatePerTon:   billRate,
			LoadingMamul: decimal.NewFromInt(int64(rng.Intn(4)) * 250),
		},
	}
}

// VehicleState tracks the trip a simulated vehicle is running.
type VehicleState struct {
	VehicleID   string
	ConsignorID string
	Trip        *models.Trip
	Step        int
}

var modes = []models.PaymentMode{models.ModeCash, models.ModeUPI, models.ModeBankTransfer, models.ModeFuel}

// nextAction returns the write that moves the vehicle's trip along: an
// advance, a status change, a consignor receipt, the balance and finally
// settlement. A nil trip means a new trip must be created first.
func nextAction(rng *rand.Rand, s *VehicleState) (tx *trips.TransactionInput, status models.TripStatus) {
	if s.Trip == nil {
		return nil, ""
	}
	fin := s.Trip.Financials
	mode := modes[rng.Intn(len(modes))]
	switch s.Step {
	case 0:
		advance := fin.TotalDriverBalance.Mul(decimal.NewFromFloat(0.3 + rng.Float64()*0.3)).Round(0)
		if advance.IsPositive() {
			return &trips.TransactionInput{Type: models.TxAdvancePaid, Amount: advance, Mode: mode}, ""
		}
		return nil, models.TripInTransit
	case 1:
		return nil, models.TripInTransit
	case 2:
		return nil, models.TripDelivered
	case 3:
		if fin.TotalConsignorBalance.IsPositive() {
			return &trips.TransactionInput{Type: models.TxReceivedFromConsignor, Amount: fin.TotalConsignorBalance, Mode: models.ModeBankTransfer}, ""
		}
		return nil, models.TripDelivered
	case 4:
		if fin.TotalDriverBalance.IsPositive() {
			return &trips.TransactionInput{Type: models.TxBalancePaid, Amount: fin.TotalDriverBalance, Mode: mode}, ""
		}
		return nil, models.TripSettled
	default:
		return nil, models.TripSettled
	}
}

func simulateVehicle(ctx context.Context, client *APIClient, s *VehicleState, interval time.Duration, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		if err := step(ctx, client, rng, s); err != nil {
			log.WithError(err).WithField("vehicle_id", s.VehicleID).Error("Simulation step failed")
		}
	}
}

func step(ctx context.Context, client *APIClient, rng *rand.Rand, s *VehicleState) error {
	if s.Trip == nil {
		trip, err := client.CreateTrip(ctx, randomTrip(rng, s.VehicleID, s.ConsignorID))
		if err != nil {
			return err
		}
		s.Trip, s.Step = &trip, 0
		log.WithFields(log.Fields{"vehicle_id": s.VehicleID, "trip_id": trip.ID.Hex()}).Info("Started trip")
		return nil
	}

	tx, status := nextAction(rng, s)
	var (
		trip models.Trip
		err  error
	)
	if tx != nil {
		trip, err = client.AddTransaction(ctx, s.Trip.ID.Hex(), *tx)
	} else {
		trip, err = client.SetStatus(ctx, s.Trip.ID.Hex(), status)
	}
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"vehicle_id":        s.VehicleID,
		"trip_id":           trip.ID.Hex(),
		"status":            trip.Status,
		"driver_balance":    trip.Financials.TotalDriverBalance.String(),
		"consignor_balance": trip.Financials.TotalConsignorBalance.String(),
	}).Info("Trip updated")

	if trip.Status == models.TripSettled {
		s.Trip = nil
		return nil
	}
	s.Trip = &trip
	s.Step++
	return nil
}

// seedFleet creates the first trip of every vehicle in one batch.
func seedFleet(ctx context.Context, client *APIClient, rng *rand.Rand, states []*VehicleState) error {
	inputs := make([]trips.CreateInput, 0, len(states))
	for _, s := range states {
		inputs = append(inputs, randomTrip(rng, s.VehicleID, s.ConsignorID))
	}
	resp, err := client.CreateBatch(ctx, inputs)
	if err != nil {
		return err
	}
	for _, res := range resp.Results {
		if res.Trip == nil {
			log.WithFields(log.Fields{"index": res.Index, "error": res.Error}).Warn("Seed trip rejected")
			continue
		}
		if res.Index >= 0 && res.Index < len(states) {
			states[res.Index].Trip = res.Trip
		}
	}
	log.WithFields(log.Fields{"created": resp.Created, "failed": resp.Failed}).Info("Seeded fleet trips")
	return nil
}

// resolveToken uses SIM_AUTH_TOKEN, or signs one with JWT_SECRET.
func resolveToken() (string, error) {
	if token := os.Getenv("SIM_AUTH_TOKEN"); token != "" {
		return token, nil
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", fmt.Errorf("set SIM_AUTH_TOKEN or JWT_SECRET")
	}
	svc, err := auth.NewService(secret, 24*time.Hour)
	if err != nil {
		return "", err
	}
	return svc.GenerateToken(models.Claims{
		UserID:         "simulator",
		Username:       "simulator",
		Role:           models.RoleAccountant,
		OrganizationID: envOr("SIM_ORG_ID", "org-demo"),
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback, min int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= min {
			return n
		}
	}
	return fallback
}

func main() {
	token, err := resolveToken()
	if err != nil {
		log.WithError(err).Fatal("No credentials for the settlement API")
	}

	fleetSize := envInt("FLEET_SIZE", 10, 1)
	consignors := envInt("SIM_CONSIGNORS", 4, 1)
	interval := time.Duration(envInt("SIM_TICK_SECONDS", 2, 1)) * time.Second
	apiURL := envOr("API_BASE_URL", "http://localhost:8080/api")

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"consignors": consignors,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting settlement simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := NewAPIClient(apiURL, token)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	states := make([]*VehicleState, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		states = append(states, &VehicleState{
			VehicleID:   fmt.Sprintf("vehicle-%d", i+1),
			ConsignorID: fmt.Sprintf("consignor-%d", rng.Intn(consignors)+1),
		})
	}
	if err := seedFleet(ctx, client, rng, states); err != nil {
		log.WithError(err).Error("Batch seeding failed, vehicles will create trips one by one")
	}

	for _, s := range states {
		go simulateVehicle(ctx, client, s, interval, rng.Int63())
	}

	log.Info("Settlement simulation started")
	<-ctx.Done()
	log.Info("Simulation stopped")
}
