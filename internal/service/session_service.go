package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	quoteCacheTTL    = 10 * time.Minute
	defaultListLimit = 20
	maxListLimit     = 100
)

// SessionServiceImpl implements ports.SessionService.
type SessionServiceImpl struct {
	repo                ports.SessionRepository
	gateway             ports.PaymentGateway
	carrier             ports.CarrierGateway
	quoteCache          ports.QuoteCache // nil = caching disabled
	defaultCustomerCode string
	defaultCurrency     string
	log                 zerolog.Logger
}

// NewSessionService creates a new SessionServiceImpl.
func NewSessionService(
	repo ports.SessionRepository,
	gateway ports.PaymentGateway,
	carrier ports.CarrierGateway,
	quoteCache ports.QuoteCache,
	defaultCustomerCode string,
	defaultCurrency string,
	log zerolog.Logger,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		repo:                repo,
		gateway:             gateway,
		carrier:             carrier,
		quoteCache:          quoteCache,
		defaultCustomerCode: defaultCustomerCode,
		defaultCurrency:     defaultCurrency,
		log:                 log,
	}
}

// CreateSession quotes the delivery charge, initiates a hosted-checkout
// session for item amount plus delivery, and persists a PENDING session
// keyed by the gateway-issued identifier. A failed quote aborts creation
// entirely: nothing is persisted and the gateway is never called.
func (s *SessionServiceImpl) CreateSession(ctx context.Context, req ports.CreateSessionRequest) (*domain.PaymentSession, error) {
	orderID := req.OrderID
	if orderID == "" {
		orderID = "ORD-" + uuid.New().String()
	}
	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	customerCode := s.defaultCustomerCode
	if req.ProntoCustomerCode != nil && *req.ProntoCustomerCode != "" {
		customerCode = *req.ProntoCustomerCode
	}

	zone := domain.ResolveZone(req.Location)

	deliveryCharge, err := s.quoteDeliveryCharge(ctx, customerCode, req.Weight, zone)
	if err != nil {
		return nil, apperror.ErrQuoteUnavailable(err)
	}

	totalAmount := req.Amount.Add(deliveryCharge).Round(2)

	gwSession, err := s.gateway.CreateCheckoutSession(ctx, ports.GatewaySessionRequest{
		OrderID:     orderID,
		Amount:      totalAmount,
		Currency:    currency,
		Description: req.Description,
	})
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]any{
		"pricing": map[string]any{
			"itemAmount":     req.Amount.String(),
			"deliveryCharge": deliveryCharge.String(),
			"totalAmount":    totalAmount.String(),
			"areaCode":       int(zone),
		},
		"gatewayResponse": json.RawMessage(gwSession.Raw),
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal session metadata: %w", err))
	}

	session := &domain.PaymentSession{
		SessionID:          gwSession.SessionID,
		OrderID:            orderID,
		Amount:             totalAmount,
		Currency:           currency,
		Description:        req.Description,
		Sender:             req.Sender,
		Receiver:           req.Receiver,
		Location:           req.Location,
		Weight:             req.Weight,
		IsCOD:              req.IsCOD,
		SameDayDelivery:    req.SameDayDelivery,
		IsSensitive:        req.IsSensitive,
		SpecialNotes:       req.SpecialNotes,
		ProntoCustomerCode: req.ProntoCustomerCode,
		Status:             domain.SessionStatusPending,
		Metadata:           metadata,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("persist payment session: %w", err))
	}

	s.log.Info().
		Str("session_id", session.SessionID).
		Str("order_id", orderID).
		Str("total_amount", totalAmount.String()).
		Str("delivery_charge", deliveryCharge.String()).
		Int("area_code", int(zone)).
		Msg("payment session created")

	return session, nil
}

// quoteDeliveryCharge returns the carrier cost quote, consulting the
// best-effort cache first. Cache errors fall through to the carrier.
func (s *SessionServiceImpl) quoteDeliveryCharge(ctx context.Context, customerCode string, weightKg decimal.Decimal, zone domain.ZoneCode) (decimal.Decimal, error) {
	key := fmt.Sprintf("%s:%d:%s", customerCode, zone, weightKg.String())

	if s.quoteCache != nil {
		cost, found, err := s.quoteCache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("quote cache read failed, falling through to carrier")
		} else if found {
			return cost, nil
		}
	}

	cost, err := s.carrier.QuoteCost(ctx, customerCode, weightKg, zone)
	if err != nil {
		return decimal.Zero, err
	}

	if s.quoteCache != nil {
		if err := s.quoteCache.Set(ctx, key, cost, quoteCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("quote cache write failed")
		}
	}
	return cost, nil
}

// Transition moves a session to its terminal state and merges the raw
// notification payload plus a timestamp into metadata. Replays with the
// same outcome leave the same terminal status; metadata accumulates every
// replay in the webhooks list.
func (s *SessionServiceImpl) Transition(ctx context.Context, sessionID string, success bool, payload domain.NotificationPayload) (*domain.PaymentSession, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load session: %w", err))
	}
	if session == nil {
		return nil, apperror.ErrNotFound("session")
	}

	receivedAt := time.Now().UTC().Format(time.RFC3339Nano)

	meta := session.MetadataMap()
	webhooks, _ := meta["webhooks"].([]any)
	webhooks = append(webhooks, map[string]any{
		"receivedAt": receivedAt,
		"success":    success,
		"payload":    map[string]any(payload),
	})

	patch, err := json.Marshal(map[string]any{
		"webhooks":           webhooks,
		"lastWebhookAt":      receivedAt,
		"lastWebhookPayload": map[string]any(payload),
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal webhook metadata: %w", err))
	}

	status := domain.TransitionTarget(success)
	updated, err := s.repo.Update(ctx, sessionID, ports.SessionUpdate{
		Status:        &status,
		MetadataPatch: patch,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("transition session: %w", err))
	}

	s.log.Info().
		Str("session_id", sessionID).
		Bool("success", success).
		Str("status", string(status)).
		Msg("session transitioned")

	return updated, nil
}

// GetSession loads a session by its gateway-issued identifier.
func (s *SessionServiceImpl) GetSession(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load session: %w", err))
	}
	if session == nil {
		return nil, apperror.ErrNotFound("session")
	}
	return session, nil
}

// ListSessions returns sessions most-recent-created first.
func (s *SessionServiceImpl) ListSessions(ctx context.Context, limit int) ([]domain.PaymentSession, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	sessions, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list sessions: %w", err))
	}
	return sessions, nil
}
