package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus represents the lifecycle state of a payment session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"

	// Declared for forward compatibility with the validation layer; the
	// state machine never assigns these.
	SessionStatusProcessing SessionStatus = "PROCESSING"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
	SessionStatusRefunded   SessionStatus = "REFUNDED"
)

// ShipmentStatus is the free-form carrier outcome recorded on a session.
type ShipmentStatus string

const (
	ShipmentStatusCreated           ShipmentStatus = "SHIPMENT_CREATED"
	ShipmentStatusTrackingGenerated ShipmentStatus = "TRACKING_GENERATED"
	ShipmentStatusFailed            ShipmentStatus = "FAILED"
)

// Party holds the sender or receiver contact block of a shipment.
type Party struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// PaymentSession is the central entity: a gateway-issued checkout context
// tying an order's amount and currency to sender/receiver/shipment intent.
type PaymentSession struct {
	SessionID   string          `json:"session_id"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"` // total charged, includes delivery
	Currency    string          `json:"currency"`
	Description string          `json:"description"`

	Sender   Party `json:"sender"`
	Receiver Party `json:"receiver"`

	Location           string          `json:"location"`
	Weight             decimal.Decimal `json:"weight"` // kg
	IsCOD              bool            `json:"is_cod"`
	SameDayDelivery    bool            `json:"same_day_delivery"`
	IsSensitive        bool            `json:"is_sensitive"`
	SpecialNotes       *string         `json:"special_notes,omitempty"`
	ProntoCustomerCode *string         `json:"pronto_customer_code,omitempty"`

	Status SessionStatus `json:"status"`

	// Carrier outcome, nil until a shipment is attempted. Retried attempts
	// overwrite these fields last-write-wins; a shipment is not
	// idempotency-keyed beyond the session.
	ProntoTrackingNumber *string          `json:"pronto_tracking_number,omitempty"`
	ProntoStatus         *ShipmentStatus  `json:"pronto_status,omitempty"`
	ProntoAreaCode       *ZoneCode        `json:"pronto_area_code,omitempty"`
	ProntoCost           *decimal.Decimal `json:"pronto_cost,omitempty"`
	ProntoPayload        json.RawMessage  `json:"pronto_payload,omitempty"`
	ProntoResponse       json.RawMessage  `json:"pronto_response,omitempty"`

	Metadata json.RawMessage `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal returns true if the session is in a final state.
func (s *PaymentSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusFailed
}

// TransitionTarget returns the terminal status a payment outcome maps to.
func TransitionTarget(success bool) SessionStatus {
	if success {
		return SessionStatusCompleted
	}
	return SessionStatusFailed
}

// MetadataMap decodes the session's metadata bag. A nil or malformed blob
// yields an empty map.
func (s *PaymentSession) MetadataMap() map[string]any {
	m := map[string]any{}
	if len(s.Metadata) > 0 {
		_ = json.Unmarshal(s.Metadata, &m)
	}
	return m
}

// TrackingEvent is one entry in a carrier tracking history, ordered as the
// carrier returns it (chronological). The current status is the last entry.
type TrackingEvent struct {
	Status   string `json:"status"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Remarks  string `json:"remarks"`
}
