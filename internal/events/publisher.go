// Package events announces recomputed trip balances to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-settlement/internal/models"
)

// Publisher sends settlement notifications after a trip is persisted.
type Publisher interface {
	PublishSettlement(ctx context.Context, trip models.Trip) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// PublishSettlement does nothing.
func (NoopPublisher) PublishSettlement(context.Context, models.Trip) error { return nil }

// SettlementEvent is the payload published for every trip write.
type SettlementEvent struct {
	TripID          string            `json:"trip_id"`
	OrganizationID  string            `json:"organization_id"`
	Status          models.TripStatus `json:"status"`
	TotalReceivable decimal.Decimal   `json:"billing_total_receivable"`
	Financials      models.Financials `json:"financials"`
	Version         int64             `json:"version"`
	At              time.Time         `json:"at"`
}

// NewSettlementEvent builds the event for a stored trip.
func NewSettlementEvent(trip models.Trip) SettlementEvent {
	return SettlementEvent{
		TripID:          trip.ID.Hex(),
		OrganizationID:  trip.OrganizationID,
		Status:          trip.Status,
		TotalReceivable: trip.Billing.TotalReceivable,
		Financials:      trip.Financials,
		Version:         trip.Version,
		At:              trip.UpdatedAt,
	}
}

// Topic returns the MQTT topic a trip's settlement events go to.
func Topic(prefix string, trip models.Trip) string {
	return fmt.Sprintf("%s/%s/trips/%s/settlement", prefix, trip.OrganizationID, trip.ID.Hex())
}

// MQTTPublisher publishes settlement events with QoS 1.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
	timeout     time.Duration
}

// NewMQTTPublisher wraps an mqtt client.
func NewMQTTPublisher(client mqtt.Client, topicPrefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topicPrefix: topicPrefix, timeout: 5 * time.Second}
}

// ConnectMQTT dials the broker and returns a publisher for it.
func ConnectMQTT(broker, clientID, topicPrefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return NewMQTTPublisher(client, topicPrefix), nil
}

// PublishSettlement publishes the trip's balances and waits for the broker ack.
func (p *MQTTPublisher) PublishSettlement(ctx context.Context, trip models.Trip) error {
	payload, err := json.Marshal(NewSettlementEvent(trip))
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}

	token := p.client.Publish(Topic(p.topicPrefix, trip), 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish settlement for trip %s timed out", trip.ID.Hex())
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
