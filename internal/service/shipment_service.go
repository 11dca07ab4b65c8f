package service

import (
	"context"
	"fmt"

	"checkout-sandbox/internal/core/domain"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ShipmentServiceImpl implements ports.ShipmentService.
type ShipmentServiceImpl struct {
	repo                ports.SessionRepository
	carrier             ports.CarrierGateway
	defaultCustomerCode string
	log                 zerolog.Logger
}

// NewShipmentService creates a new ShipmentServiceImpl.
func NewShipmentService(
	repo ports.SessionRepository,
	carrier ports.CarrierGateway,
	defaultCustomerCode string,
	log zerolog.Logger,
) *ShipmentServiceImpl {
	return &ShipmentServiceImpl{
		repo:                repo,
		carrier:             carrier,
		defaultCustomerCode: defaultCustomerCode,
		log:                 log,
	}
}

// CreateShipmentForSession reconstructs a carrier shipment request from the
// stored session, allocates a tracking number, computes cost, and inserts
// the shipment. On success it persists the carrier outcome and marks the
// session COMPLETED.
//
// The tracking number is allocated before insertion and is not reclaimed
// when insertion fails: the carrier's pool is consumed regardless of
// outcome.
func (s *ShipmentServiceImpl) CreateShipmentForSession(ctx context.Context, sessionID string) (*ports.ShipmentResult, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load session: %w", err))
	}
	if session == nil {
		return nil, apperror.ErrNotFound("session")
	}

	customerCode := s.defaultCustomerCode
	if session.ProntoCustomerCode != nil && *session.ProntoCustomerCode != "" {
		customerCode = *session.ProntoCustomerCode
	}

	zone := domain.ResolveZone(session.Location)

	trackingNumber, err := s.carrier.AllocateTrackingNumber(ctx, customerCode, session.IsCOD)
	if err != nil {
		return nil, apperror.ErrShipmentFailed(fmt.Errorf("allocate tracking number: %w", err))
	}

	cost, err := s.carrier.QuoteCost(ctx, customerCode, session.Weight, zone)
	if err != nil {
		return nil, apperror.ErrShipmentFailed(fmt.Errorf("compute shipment cost: %w", err))
	}

	// COD shipments declare the collectible amount; prepaid ones declare
	// nothing.
	itemValue := decimal.Zero
	if session.IsCOD {
		itemValue = session.Amount
	}

	notes := ""
	if session.SpecialNotes != nil {
		notes = *session.SpecialNotes
	}

	result, err := s.carrier.InsertShipment(ctx, ports.ShipmentInsertRequest{
		TrackingNumber: trackingNumber,
		CustomerCode:   customerCode,
		Sender:         session.Sender,
		Receiver:       session.Receiver,
		ItemValue:      itemValue,
		Zone:           zone,
		WeightKg:       session.Weight,
		SameDay:        session.SameDayDelivery,
		Sensitive:      session.IsSensitive,
		Notes:          notes,
	})
	if err != nil {
		return nil, apperror.ErrShipmentFailed(fmt.Errorf("insert shipment: %w", err))
	}

	if result.Status != "1" {
		s.log.Warn().
			Str("session_id", sessionID).
			Str("tracking_number", trackingNumber).
			Str("carrier_status", result.Status).
			Str("status_ref", result.StatusRef).
			Msg("carrier rejected shipment insertion")
		return nil, apperror.ErrShipmentRejected(result.StatusRef)
	}

	shipmentStatus := domain.ShipmentStatusCreated
	completed := domain.SessionStatusCompleted
	if _, err := s.repo.Update(ctx, sessionID, ports.SessionUpdate{
		Status:               &completed,
		ProntoTrackingNumber: &trackingNumber,
		ProntoStatus:         &shipmentStatus,
		ProntoAreaCode:       &zone,
		ProntoCost:           &cost,
		ProntoPayload:        result.Payload,
		ProntoResponse:       result.Raw,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("persist shipment outcome: %w", err))
	}

	s.log.Info().
		Str("session_id", sessionID).
		Str("tracking_number", trackingNumber).
		Str("cost", cost.String()).
		Int("area_code", int(zone)).
		Msg("shipment created")

	return &ports.ShipmentResult{
		TrackingNumber:  trackingNumber,
		Cost:            cost,
		AreaCode:        zone,
		CarrierResponse: result.Raw,
	}, nil
}

// TrackShipment fetches the carrier tracking history for a shipped session.
func (s *ShipmentServiceImpl) TrackShipment(ctx context.Context, sessionID string) ([]domain.TrackingEvent, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load session: %w", err))
	}
	if session == nil {
		return nil, apperror.ErrNotFound("session")
	}
	if session.ProntoTrackingNumber == nil || *session.ProntoTrackingNumber == "" {
		return nil, apperror.ErrNoShipment()
	}

	customerCode := s.defaultCustomerCode
	if session.ProntoCustomerCode != nil && *session.ProntoCustomerCode != "" {
		customerCode = *session.ProntoCustomerCode
	}

	events, err := s.carrier.TrackingHistory(ctx, customerCode, *session.ProntoTrackingNumber)
	if err != nil {
		return nil, apperror.ErrCarrierUnavailable(err)
	}
	return events, nil
}
