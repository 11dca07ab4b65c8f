package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const sessionColumns = `session_id, order_id, amount, currency, description,
	sender_name, sender_phone, sender_address,
	receiver_name, receiver_phone, receiver_address,
	location, weight, is_cod, same_day_delivery, is_sensitive, special_notes, pronto_customer_code,
	status, pronto_tracking_number, pronto_status, pronto_area_code, pronto_cost,
	pronto_payload, pronto_response, metadata, created_at, updated_at`

// SessionRepo implements ports.SessionRepository on PostgreSQL.
type SessionRepo struct {
	pool Pool
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(pool Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Create inserts a new payment session. created_at/updated_at are assigned
// by the store, and the primary key constraint rejects duplicate session ids.
func (r *SessionRepo) Create(ctx context.Context, s *domain.PaymentSession) error {
	query := `INSERT INTO payment_sessions (session_id, order_id, amount, currency, description,
		sender_name, sender_phone, sender_address,
		receiver_name, receiver_phone, receiver_address,
		location, weight, is_cod, same_day_delivery, is_sensitive, special_notes, pronto_customer_code,
		status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at`

	metadata := s.Metadata
	if metadata == nil {
		metadata = []byte(`{}`)
	}

	err := r.pool.QueryRow(ctx, query,
		s.SessionID, s.OrderID, s.Amount, s.Currency, s.Description,
		s.Sender.Name, s.Sender.Phone, s.Sender.Address,
		s.Receiver.Name, s.Receiver.Phone, s.Receiver.Address,
		s.Location, s.Weight, s.IsCOD, s.SameDayDelivery, s.IsSensitive, s.SpecialNotes, s.ProntoCustomerCode,
		s.Status, metadata,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment session: %w", err)
	}
	return nil
}

// Get fetches a session by its gateway-issued identifier.
// Returns nil, nil when no record exists.
func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_sessions WHERE session_id = $1`, sessionColumns)
	return r.scanSession(r.pool.QueryRow(ctx, query, sessionID))
}

// GetByOrderID fetches a session by order identifier via the secondary
// index. Order ids are treated as unique in practice; the most recent
// session wins if that assumption is ever violated.
func (r *SessionRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_sessions WHERE order_id = $1
		ORDER BY created_at DESC LIMIT 1`, sessionColumns)
	return r.scanSession(r.pool.QueryRow(ctx, query, orderID))
}

// Update applies a partial update and returns the resulting record.
// Metadata is merged with the stored bag, not replaced.
func (r *SessionRepo) Update(ctx context.Context, sessionID string, patch ports.SessionUpdate) (*domain.PaymentSession, error) {
	sets := []string{"updated_at = now()"}
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ProntoTrackingNumber != nil {
		add("pronto_tracking_number", *patch.ProntoTrackingNumber)
	}
	if patch.ProntoStatus != nil {
		add("pronto_status", *patch.ProntoStatus)
	}
	if patch.ProntoAreaCode != nil {
		add("pronto_area_code", *patch.ProntoAreaCode)
	}
	if patch.ProntoCost != nil {
		add("pronto_cost", *patch.ProntoCost)
	}
	if patch.ProntoPayload != nil {
		add("pronto_payload", patch.ProntoPayload)
	}
	if patch.ProntoResponse != nil {
		add("pronto_response", patch.ProntoResponse)
	}
	if patch.MetadataPatch != nil {
		sets = append(sets, fmt.Sprintf("metadata = metadata || $%d", argIdx))
		args = append(args, patch.MetadataPatch)
		argIdx++
	}

	query := fmt.Sprintf(`UPDATE payment_sessions SET %s WHERE session_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argIdx, sessionColumns)
	args = append(args, sessionID)

	session, err := r.scanSession(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("payment session not found: %s", sessionID)
	}
	return session, nil
}

// List fetches sessions most-recent-created first.
func (r *SessionRepo) List(ctx context.Context, limit int) ([]domain.PaymentSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_sessions ORDER BY created_at DESC LIMIT $1`, sessionColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list payment sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.PaymentSession
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment session row: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment session rows: %w", err)
	}
	return sessions, nil
}

// DeleteAll wipes every session. Used only for test isolation.
func (r *SessionRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM payment_sessions`); err != nil {
		return fmt.Errorf("delete payment sessions: %w", err)
	}
	return nil
}

// scanSession scans a single row, mapping pgx.ErrNoRows to nil, nil.
func (r *SessionRepo) scanSession(row pgx.Row) (*domain.PaymentSession, error) {
	s, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment session: %w", err)
	}
	return s, nil
}

func scanSessionRow(row pgx.Row) (*domain.PaymentSession, error) {
	s := &domain.PaymentSession{}
	err := row.Scan(
		&s.SessionID, &s.OrderID, &s.Amount, &s.Currency, &s.Description,
		&s.Sender.Name, &s.Sender.Phone, &s.Sender.Address,
		&s.Receiver.Name, &s.Receiver.Phone, &s.Receiver.Address,
		&s.Location, &s.Weight, &s.IsCOD, &s.SameDayDelivery, &s.IsSensitive,
		&s.SpecialNotes, &s.ProntoCustomerCode,
		&s.Status, &s.ProntoTrackingNumber, &s.ProntoStatus, &s.ProntoAreaCode, &s.ProntoCost,
		&s.ProntoPayload, &s.ProntoResponse, &s.Metadata, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
