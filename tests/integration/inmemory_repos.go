package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"
)

// --- In-Memory Session Repo ---

// inMemorySessionRepo mirrors the postgres repository's observable
// behavior: lookups return nil, nil on miss, Update applies only non-nil
// fields and shallow-merges the metadata patch into the existing bag, and
// timestamps are stamped on write.
type inMemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*domain.PaymentSession
	order    []string // insertion order, newest last
}

func newInMemorySessionRepo() *inMemorySessionRepo {
	return &inMemorySessionRepo{sessions: make(map[string]*domain.PaymentSession)}
}

func (r *inMemorySessionRepo) Create(ctx context.Context, session *domain.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.SessionID]; ok {
		return fmt.Errorf("session %s already exists", session.SessionID)
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Metadata == nil {
		session.Metadata = json.RawMessage(`{}`)
	}
	stored := *session
	r.sessions[session.SessionID] = &stored
	r.order = append(r.order, session.SessionID)
	return nil
}

func (r *inMemorySessionRepo) Get(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (r *inMemorySessionRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	// Most recent session wins, matching ORDER BY created_at DESC LIMIT 1.
	for i := len(r.order) - 1; i >= 0; i-- {
		if s := r.sessions[r.order[i]]; s.OrderID == orderID {
			out := *s
			return &out, nil
		}
	}
	return nil, nil
}

func (r *inMemorySessionRepo) Update(ctx context.Context, sessionID string, patch ports.SessionUpdate) (*domain.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	if patch.ProntoTrackingNumber != nil {
		s.ProntoTrackingNumber = patch.ProntoTrackingNumber
	}
	if patch.ProntoStatus != nil {
		s.ProntoStatus = patch.ProntoStatus
	}
	if patch.ProntoAreaCode != nil {
		s.ProntoAreaCode = patch.ProntoAreaCode
	}
	if patch.ProntoCost != nil {
		s.ProntoCost = patch.ProntoCost
	}
	if patch.ProntoPayload != nil {
		s.ProntoPayload = patch.ProntoPayload
	}
	if patch.ProntoResponse != nil {
		s.ProntoResponse = patch.ProntoResponse
	}
	if patch.MetadataPatch != nil {
		merged, err := mergeMetadata(s.Metadata, patch.MetadataPatch)
		if err != nil {
			return nil, err
		}
		s.Metadata = merged
	}
	s.UpdatedAt = time.Now().UTC()
	out := *s
	return &out, nil
}

func (r *inMemorySessionRepo) List(ctx context.Context, limit int) ([]domain.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.PaymentSession, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, *r.sessions[r.order[i]])
	}
	return result, nil
}

func (r *inMemorySessionRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*domain.PaymentSession)
	r.order = nil
	return nil
}

// mergeMetadata reproduces the postgres `metadata || patch` shallow merge:
// top-level keys from the patch replace existing ones.
func mergeMetadata(existing, patch json.RawMessage) (json.RawMessage, error) {
	base := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			base = map[string]any{}
		}
	}
	var overlay map[string]any
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return nil, fmt.Errorf("metadata patch is not a JSON object: %w", err)
	}
	for k, v := range overlay {
		base[k] = v
	}
	return json.Marshal(base)
}
