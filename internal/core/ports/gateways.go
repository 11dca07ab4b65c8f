package ports

import (
	"context"
	"encoding/json"
	"time"

	"checkout-sandbox/internal/core/domain"

	"github.com/shopspring/decimal"
)

// GatewaySessionRequest holds the order details sent to the hosted-checkout
// payment gateway when initiating a session.
type GatewaySessionRequest struct {
	OrderID     string
	Amount      decimal.Decimal // total, delivery charge included
	Currency    string
	Description string
}

// GatewaySession is the gateway's checkout context: the gateway-issued
// session identifier plus the raw response for audit.
type GatewaySession struct {
	SessionID string
	Raw       json.RawMessage
}

// PaymentGateway wraps the hosted payment gateway's session API.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req GatewaySessionRequest) (*GatewaySession, error)
}

// ShipmentInsertRequest is the reconstructed carrier shipment submission.
type ShipmentInsertRequest struct {
	TrackingNumber string
	CustomerCode   string
	Sender         domain.Party
	Receiver       domain.Party
	ItemValue      decimal.Decimal
	Zone           domain.ZoneCode
	WeightKg       decimal.Decimal
	SameDay        bool
	Sensitive      bool
	Notes          string
}

// ShipmentInsertResult carries the carrier's verdict. Status "1" means
// accepted; any other value is a carrier-side rejection, not a transport
// failure. Payload is the exact request sent to the carrier, kept for the
// session's audit fields.
type ShipmentInsertResult struct {
	Status    string
	StatusRef string
	Payload   json.RawMessage
	Raw       json.RawMessage
}

// CarrierGateway wraps the shipping carrier's single-endpoint,
// method-dispatched JSON protocol.
type CarrierGateway interface {
	QuoteCost(ctx context.Context, customerCode string, weightKg decimal.Decimal, zone domain.ZoneCode) (decimal.Decimal, error)
	AllocateTrackingNumber(ctx context.Context, customerCode string, isCOD bool) (string, error)
	InsertShipment(ctx context.Context, req ShipmentInsertRequest) (*ShipmentInsertResult, error)
	TrackingHistory(ctx context.Context, customerCode string, trackingNumber string) ([]domain.TrackingEvent, error)
}

// QuoteCache is a best-effort cache for carrier cost quotes. Errors never
// fail a quote; callers fall through to the carrier.
type QuoteCache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, key string, cost decimal.Decimal, ttl time.Duration) error
}
