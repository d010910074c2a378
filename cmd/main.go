package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-settlement/internal/auth"
	"github.com/ukydev/fleet-settlement/internal/config"
	"github.com/ukydev/fleet-settlement/internal/db"
	"github.com/ukydev/fleet-settlement/internal/events"
	"github.com/ukydev/fleet-settlement/internal/handlers"
	"github.com/ukydev/fleet-settlement/internal/middleware"
	"github.com/ukydev/fleet-settlement/internal/reports"
	"github.com/ukydev/fleet-settlement/internal/trips"
)

// buildHandler wires services, routes and the outer middleware.
func buildHandler(cfg *config.Config, coll db.TripCollection, dir db.Directory, publisher events.Publisher) (http.Handler, error) {
	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}

	tripService := trips.NewService(coll, publisher, cfg.SettlementMaxRetries)
	reportService := reports.NewService(tripService, dir)

	router := handlers.NewRouter(
		middleware.NewAuthMiddleware(authService),
		handlers.NewTripHandler(tripService),
		handlers.NewReportHandler(reportService),
	)

	limiter := middleware.NewRateLimitMiddleware()
	return limiter.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)(
		middleware.Timeout(cfg.RequestTimeout)(router),
	), nil
}

// newPublisher connects to MQTT when a broker is configured. The returned
// func releases the connection.
func newPublisher(cfg *config.Config) (events.Publisher, func()) {
	if cfg.MQTTBroker == "" {
		log.Info("MQTT_BROKER not set, settlement events disabled")
		return events.NoopPublisher{}, func() {}
	}
	publisher, err := events.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	if err != nil {
		log.WithError(err).WithField("broker", cfg.MQTTBroker).Warn("MQTT unavailable, settlement events disabled")
		return events.NoopPublisher{}, func() {}
	}
	log.WithField("broker", cfg.MQTTBroker).Info("Publishing settlement events over MQTT")
	return publisher, publisher.Close
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.WithError(err).Warn("Failed to read .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := config.SetupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("MongoDB disconnect failed")
		}
	}()
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	tripColl := database.Collection("trips")
	if err := db.EnsureTripIndexes(ctx, tripColl); err != nil {
		log.WithError(err).Warn("Failed to ensure trip indexes")
	}
	directory := &db.MongoDirectory{
		Vehicles:   database.Collection("vehicles"),
		Consignors: database.Collection("consignors"),
	}

	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	handler, err := buildHandler(cfg, &db.MongoCollection{Collection: tripColl}, directory, publisher)
	if err != nil {
		log.WithError(err).Fatal("Failed to build HTTP handler")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}
