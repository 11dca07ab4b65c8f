package service

import (
	"context"
	"encoding/json"
	"time"

	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/pkg/apperror"

	"github.com/rs/zerolog"
)

// NotificationServiceImpl implements ports.NotificationService: it drives
// the session lifecycle and shipment orchestration from an inbound payment
// notification.
type NotificationServiceImpl struct {
	sessions  ports.SessionService
	shipments ports.ShipmentService
	repo      ports.SessionRepository
	log       zerolog.Logger
}

// NewNotificationService creates a new NotificationServiceImpl.
func NewNotificationService(
	sessions ports.SessionService,
	shipments ports.ShipmentService,
	repo ports.SessionRepository,
	log zerolog.Logger,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		sessions:  sessions,
		shipments: shipments,
		repo:      repo,
		log:       log,
	}
}

// ProcessNotification extracts the session identifier, determines the
// payment outcome, transitions the session, and attempts shipment creation
// on success. The terminal-status write happens before any shipment call,
// so the session is COMPLETED or FAILED in storage even when the shipment
// subsequently fails. A failed payment is a fully handled outcome, not an
// error.
func (s *NotificationServiceImpl) ProcessNotification(ctx context.Context, payload domain.NotificationPayload) (*ports.NotificationResult, error) {
	sessionID, ok := payload.SessionID()
	if !ok {
		return nil, apperror.ErrInvalidPayload()
	}

	success := payload.PaymentSucceeded()

	session, err := s.sessions.Transition(ctx, sessionID, success, payload)
	if err != nil {
		return nil, err
	}

	result := &ports.NotificationResult{
		SessionID:     session.SessionID,
		OrderID:       session.OrderID,
		PaymentStatus: session.Status,
	}

	if !success {
		s.log.Info().
			Str("session_id", sessionID).
			Msg("payment failed, no shipment attempted")
		return result, nil
	}

	shipment, err := s.shipments.CreateShipmentForSession(ctx, sessionID)
	if err != nil {
		s.persistShipmentFailure(ctx, sessionID, err)
		return nil, err
	}

	result.Shipment = shipment
	return result, nil
}

// persistShipmentFailure records the shipment error on the session before
// the failure propagates. The session keeps the terminal status the
// transition already wrote.
func (s *NotificationServiceImpl) persistShipmentFailure(ctx context.Context, sessionID string, shipmentErr error) {
	failed := domain.ShipmentStatusFailed
	patch, err := json.Marshal(map[string]any{
		"lastShipmentError":   shipmentErr.Error(),
		"lastShipmentErrorAt": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal shipment failure metadata")
		return
	}

	if _, err := s.repo.Update(ctx, sessionID, ports.SessionUpdate{
		ProntoStatus:  &failed,
		MetadataPatch: patch,
	}); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to persist shipment failure")
	}
}
