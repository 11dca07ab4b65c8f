package ports

import (
	"context"
	"encoding/json"

	"checkout-sandbox/internal/core/domain"

	"github.com/shopspring/decimal"
)

// SessionUpdate is a partial update applied to a stored payment session.
// Only non-nil fields are written. MetadataPatch is shallow-merged into the
// existing metadata bag, never replacing it wholesale.
type SessionUpdate struct {
	Status               *domain.SessionStatus
	ProntoTrackingNumber *string
	ProntoStatus         *domain.ShipmentStatus
	ProntoAreaCode       *domain.ZoneCode
	ProntoCost           *decimal.Decimal
	ProntoPayload        json.RawMessage
	ProntoResponse       json.RawMessage
	MetadataPatch        json.RawMessage
}

// IsEmpty reports whether the update carries no fields to write.
func (u SessionUpdate) IsEmpty() bool {
	return u.Status == nil &&
		u.ProntoTrackingNumber == nil &&
		u.ProntoStatus == nil &&
		u.ProntoAreaCode == nil &&
		u.ProntoCost == nil &&
		u.ProntoPayload == nil &&
		u.ProntoResponse == nil &&
		u.MetadataPatch == nil
}

// SessionRepository defines persistence operations for payment sessions.
// Lookup methods return nil, nil when no record exists.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.PaymentSession) error
	Get(ctx context.Context, sessionID string) (*domain.PaymentSession, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentSession, error)
	Update(ctx context.Context, sessionID string, patch SessionUpdate) (*domain.PaymentSession, error)
	List(ctx context.Context, limit int) ([]domain.PaymentSession, error)
	// DeleteAll wipes every session. Test isolation only.
	DeleteAll(ctx context.Context) error
}
