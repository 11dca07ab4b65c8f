package ports

import (
	"context"
	"encoding/json"

	"checkout-sandbox/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CreateSessionRequest holds validated, normalized input for session
// creation. Amount is the item amount; the delivery charge is added on top.
type CreateSessionRequest struct {
	OrderID     string // generated when empty
	Amount      decimal.Decimal
	Currency    string
	Description string

	Sender   domain.Party
	Receiver domain.Party

	Location           string
	Weight             decimal.Decimal
	IsCOD              bool
	SameDayDelivery    bool
	IsSensitive        bool
	SpecialNotes       *string
	ProntoCustomerCode *string
}

// SessionService owns the payment-session state machine.
type SessionService interface {
	// CreateSession quotes delivery cost, creates a hosted-checkout session
	// for item amount + delivery charge, and persists a PENDING session
	// keyed by the gateway-issued identifier.
	CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.PaymentSession, error)
	// Transition moves a session to its terminal state and merges the raw
	// notification payload into metadata. Replays with the same outcome are
	// idempotent on status; metadata accumulates every replay.
	Transition(ctx context.Context, sessionID string, success bool, payload domain.NotificationPayload) (*domain.PaymentSession, error)
	GetSession(ctx context.Context, sessionID string) (*domain.PaymentSession, error)
	ListSessions(ctx context.Context, limit int) ([]domain.PaymentSession, error)
}

// ShipmentResult is the outcome of a successful shipment creation.
type ShipmentResult struct {
	TrackingNumber  string          `json:"trackingNumber"`
	Cost            decimal.Decimal `json:"cost"`
	AreaCode        domain.ZoneCode `json:"areaCode"`
	CarrierResponse json.RawMessage `json:"carrierResponse,omitempty"`
}

// ShipmentService orchestrates shipment creation against the carrier.
type ShipmentService interface {
	// CreateShipmentForSession reconstructs a carrier request from the
	// stored session, allocates a tracking number, computes cost, inserts
	// the shipment, and persists the carrier outcome onto the session.
	CreateShipmentForSession(ctx context.Context, sessionID string) (*ShipmentResult, error)
	// TrackShipment returns the carrier tracking history for a session
	// that already has a tracking number.
	TrackShipment(ctx context.Context, sessionID string) ([]domain.TrackingEvent, error)
}

// NotificationResult is the webhook ingress outcome returned to the caller.
type NotificationResult struct {
	SessionID     string
	OrderID       string
	PaymentStatus domain.SessionStatus
	Shipment      *ShipmentResult
}

// NotificationService drives the session lifecycle from an inbound payment
// notification: extract session id, determine outcome, transition, then
// attempt shipment creation on success.
type NotificationService interface {
	ProcessNotification(ctx context.Context, payload domain.NotificationPayload) (*NotificationResult, error)
}
